package sys

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"time"
)

// FS covers the filesystem primitives the drive subsystem relies on:
// existence checks, directory creation, file deletion, timestamp touch and
// small reads/writes for autostart artifacts. Injectable so strategies stay
// testable on any host.
type FS interface {
	Exists(path string) bool
	IsDir(path string) bool
	MkdirAll(path string, perm os.FileMode) error
	Remove(path string) error
	Touch(path string) error
	WriteFile(path string, data []byte, perm os.FileMode) error
	ReadFile(path string) ([]byte, error)
	Writable(path string) bool
}

type osFS struct {
}

func NewFS() FS {
	return &osFS{}
}

func (f *osFS) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (f *osFS) IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func (f *osFS) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

func (f *osFS) Remove(path string) error {
	return os.Remove(path)
}

func (f *osFS) Touch(path string) error {
	now := time.Now()
	return os.Chtimes(path, now, now)
}

func (f *osFS) WriteFile(path string, data []byte, perm os.FileMode) error {
	return ioutil.WriteFile(path, data, perm)
}

func (f *osFS) ReadFile(path string) ([]byte, error) {
	return ioutil.ReadFile(path)
}

// Writable probes write access by dropping and removing a marker file inside
// path. A plain permission-bit check misses ACLs and network mounts.
func (f *osFS) Writable(path string) bool {
	probe := filepath.Join(path, ".oxidrive-probe")
	if err := ioutil.WriteFile(probe, []byte{}, 0600); err != nil {
		return false
	}
	_ = os.Remove(probe)
	return true
}
