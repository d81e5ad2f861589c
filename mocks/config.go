package mocks

import "github.com/stretchr/testify/mock"

// Config is a mock for the config.Config interface
type Config struct {
	mock.Mock
}

func (m *Config) GetString(key string, defaultValue interface{}) string {
	args := m.Called(key, defaultValue)
	return args.String(0)
}

func (m *Config) GetInt(key string, defaultValue interface{}) int {
	args := m.Called(key, defaultValue)
	return args.Int(0)
}
