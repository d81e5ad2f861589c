package config

import (
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

// fakeEnv points the config loader at a working folder under test control.
type fakeEnv struct {
	workingFolder string
}

func (e fakeEnv) CurrentFolder() (string, error) { return e.workingFolder, nil }
func (e fakeEnv) WorkingFolder() string          { return e.workingFolder }
func (e fakeEnv) LogLevel() string               { return "debug" }

func TestMapConfig_Defaults(t *testing.T) {
	cfg := NewMap(fakeEnv{t.TempDir()}, &Flags{})

	assert.Equal(t, "~/.oxicloud-drive", cfg.GetString(DriveStorePath, ""))
	assert.Equal(t, "~/OxiCloudSync", cfg.GetString(DriveSyncFolder, ""))
	assert.Equal(t, "OxiCloud", cfg.GetString(DriveName, ""))
	assert.Equal(t, "false", cfg.GetString(DriveAutoMount, ""))
	assert.Equal(t, "", cfg.GetString(DriveMountPoint, ""))
}

func TestMapConfig_Flags_Override_Defaults(t *testing.T) {
	cfg := NewMap(fakeEnv{t.TempDir()}, &Flags{
		StorePath:     "/var/lib/oxicloud",
		SyncFolder:    "/data/sync",
		MountPoint:    "/mnt/oxicloud",
		HelperDir:     "/opt/oxicloud/bin",
		MountOnLaunch: true,
	})

	assert.Equal(t, "/var/lib/oxicloud", cfg.GetString(DriveStorePath, ""))
	assert.Equal(t, "/data/sync", cfg.GetString(DriveSyncFolder, ""))
	assert.Equal(t, "/mnt/oxicloud", cfg.GetString(DriveMountPoint, ""))
	assert.Equal(t, "/opt/oxicloud/bin", cfg.GetString(DriveHelperDir, ""))
	assert.Equal(t, "true", cfg.GetString(DriveAutoMount, ""))
}

func TestMapConfig_File_Values_Sit_Between_Flags_And_Defaults(t *testing.T) {
	dir := t.TempDir()
	content := []byte(`{"drive": {"syncFolder": "/srv/sync", "mountPoint": "/mnt/from-file"}}`)
	assert.NoError(t, ioutil.WriteFile(filepath.Join(dir, JsonConfigFileName), content, 0644))

	cfg := NewMap(fakeEnv{dir}, &Flags{MountPoint: "/mnt/from-flag"})

	assert.Equal(t, "/mnt/from-flag", cfg.GetString(DriveMountPoint, ""), "flag wins over file")
	assert.Equal(t, "/srv/sync", cfg.GetString(DriveSyncFolder, ""), "file wins over default")
	assert.Equal(t, "~/.oxicloud-drive", cfg.GetString(DriveStorePath, ""), "default when file is silent")
}

func TestMapConfig_Missing_Key_Falls_Back_To_Default_Value(t *testing.T) {
	cfg := NewMap(fakeEnv{t.TempDir()}, &Flags{})

	assert.Equal(t, "fallback", cfg.GetString("drive/unknown", "fallback"))
	assert.Equal(t, "", cfg.GetString("drive/unknown", 42), "non-string default yields empty")
	assert.Equal(t, 7, cfg.GetInt("drive/unknown", 7))
}

func TestStandardConfig_Reads_Json_File(t *testing.T) {
	dir := t.TempDir()
	content := []byte(`{"drive": {"driveName": "OxiCloud Work", "helperDir": "/opt/helpers"}}`)
	assert.NoError(t, ioutil.WriteFile(filepath.Join(dir, JsonConfigFileName), content, 0644))

	cfg := New(fakeEnv{dir})

	assert.Equal(t, "OxiCloud Work", cfg.GetString(DriveName, ""))
	assert.Equal(t, "/opt/helpers", cfg.GetString(DriveHelperDir, ""))
}

func TestStandardConfig_Missing_File_Yields_Empty_Values(t *testing.T) {
	cfg := New(fakeEnv{t.TempDir()})

	assert.Equal(t, "", cfg.GetString(DriveSyncFolder, "ignored"))
}

func TestTestConfig_Lookup_And_Defaults(t *testing.T) {
	cfg := NewTestConfig(map[string]interface{}{
		DriveSyncFolder: "/data/sync",
	})

	assert.Equal(t, "/data/sync", cfg.GetString(DriveSyncFolder, "~/OxiCloudSync"))
	assert.Equal(t, "~/OxiCloudSync", cfg.GetString(DriveMountPoint, "~/OxiCloudSync"))
	assert.Equal(t, 0, cfg.GetInt(DriveMountPoint, "not-an-int"))
}
