package mocks

import "github.com/stretchr/testify/mock"

// Store is a mock for the store.Store interface
type Store struct {
	mock.Mock
}

func (m *Store) Open() error {
	args := m.Called()
	return args.Error(0)
}

func (m *Store) Close() error {
	args := m.Called()
	return args.Error(0)
}

func (m *Store) Shutdown() error {
	args := m.Called()
	return args.Error(0)
}

func (m *Store) IsOpen() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *Store) Set(key []byte, value []byte) error {
	args := m.Called(key, value)
	return args.Error(0)
}

func (m *Store) Get(key []byte) ([]byte, error) {
	args := m.Called(key)
	var val []byte
	if args.Get(0) != nil {
		val = args.Get(0).([]byte)
	}
	return val, args.Error(1)
}

func (m *Store) Remove(key []byte) error {
	args := m.Called(key)
	return args.Error(0)
}

func (m *Store) SetString(key string, value string) error {
	args := m.Called(key, value)
	return args.Error(0)
}

func (m *Store) GetString(key string) (string, error) {
	args := m.Called(key)
	return args.String(0), args.Error(1)
}

func (m *Store) SetBool(key string, value bool) error {
	args := m.Called(key, value)
	return args.Error(0)
}

func (m *Store) GetBool(key string) (bool, error) {
	args := m.Called(key)
	return args.Bool(0), args.Error(1)
}
