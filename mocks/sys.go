package mocks

import (
	"context"
	"os"

	"github.com/stretchr/testify/mock"

	"github.com/oxicloud/drive-daemon/core/sys"
)

// Runner is a mock for the sys.Runner interface
type Runner struct {
	mock.Mock
}

func (m *Runner) Run(ctx context.Context, name string, args ...string) (sys.Output, error) {
	callArgs := []interface{}{ctx, name}
	for _, a := range args {
		callArgs = append(callArgs, a)
	}
	ret := m.Called(callArgs...)
	return ret.Get(0).(sys.Output), ret.Error(1)
}

func (m *Runner) LookPath(name string) (string, error) {
	args := m.Called(name)
	return args.String(0), args.Error(1)
}

// FS is a mock for the sys.FS interface
type FS struct {
	mock.Mock
}

func (m *FS) Exists(path string) bool {
	args := m.Called(path)
	return args.Bool(0)
}

func (m *FS) IsDir(path string) bool {
	args := m.Called(path)
	return args.Bool(0)
}

func (m *FS) MkdirAll(path string, perm os.FileMode) error {
	args := m.Called(path, perm)
	return args.Error(0)
}

func (m *FS) Remove(path string) error {
	args := m.Called(path)
	return args.Error(0)
}

func (m *FS) Touch(path string) error {
	args := m.Called(path)
	return args.Error(0)
}

func (m *FS) WriteFile(path string, data []byte, perm os.FileMode) error {
	args := m.Called(path, data, perm)
	return args.Error(0)
}

func (m *FS) ReadFile(path string) ([]byte, error) {
	args := m.Called(path)
	var data []byte
	if args.Get(0) != nil {
		data = args.Get(0).([]byte)
	}
	return data, args.Error(1)
}

func (m *FS) Writable(path string) bool {
	args := m.Called(path)
	return args.Bool(0)
}
