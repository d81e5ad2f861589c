package sys

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFS_Exists_And_IsDir(t *testing.T) {
	fs := NewFS()
	dir := t.TempDir()

	assert.True(t, fs.Exists(dir))
	assert.True(t, fs.IsDir(dir))
	assert.False(t, fs.Exists(filepath.Join(dir, "missing")))

	file := filepath.Join(dir, "a.txt")
	assert.NoError(t, fs.WriteFile(file, []byte("data"), 0644))
	assert.True(t, fs.Exists(file))
	assert.False(t, fs.IsDir(file))
}

func TestFS_WriteFile_ReadFile_Round_Trip(t *testing.T) {
	fs := NewFS()
	file := filepath.Join(t.TempDir(), "entry.desktop")

	assert.NoError(t, fs.WriteFile(file, []byte("[Desktop Entry]\n"), 0644))

	data, err := fs.ReadFile(file)
	assert.NoError(t, err)
	assert.Equal(t, "[Desktop Entry]\n", string(data))

	assert.NoError(t, fs.Remove(file))
	assert.False(t, fs.Exists(file))
}

func TestFS_MkdirAll_Creates_Nested_Directories(t *testing.T) {
	fs := NewFS()
	nested := filepath.Join(t.TempDir(), ".config", "autostart")

	assert.NoError(t, fs.MkdirAll(nested, 0755))
	assert.True(t, fs.IsDir(nested))
}

func TestFS_Writable_Probes_With_Marker_File(t *testing.T) {
	fs := NewFS()
	dir := t.TempDir()

	assert.True(t, fs.Writable(dir))
	assert.False(t, fs.Exists(filepath.Join(dir, ".oxidrive-probe")), "probe file must be cleaned up")
	assert.False(t, fs.Writable(filepath.Join(dir, "missing")))
}

func TestFS_Touch_Updates_Existing_File(t *testing.T) {
	fs := NewFS()
	dir := t.TempDir()
	file := filepath.Join(dir, "a.txt")

	assert.NoError(t, fs.WriteFile(file, []byte{}, 0644))
	assert.NoError(t, fs.Touch(file))
	assert.Error(t, fs.Touch(filepath.Join(dir, "missing")))
}
