package config

import (
	"github.com/oxicloud/drive-daemon/core/env"
)

// Flags carries the command line overrides handed to the daemon at startup.
type Flags struct {
	StorePath     string
	SyncFolder    string
	MountPoint    string
	DriveName     string
	HelperDir     string
	MountOnLaunch bool
}

// Built-in defaults, used when neither a flag nor the drive.json file sets
// a value.
var stringDefaults = map[string]string{
	DriveStorePath:  "~/.oxicloud-drive",
	DriveSyncFolder: "~/OxiCloudSync",
	DriveName:       "OxiCloud",
	DriveAutoMount:  "false",
}

type mapConfig struct {
	configStr map[string]string
	configInt map[string]int
	file      Config
}

// NewMap layers the daemon configuration sources: command line flags win
// over the drive.json file, which wins over built-in defaults.
func NewMap(env env.DriveEnv, flags *Flags) Config {
	configStr := make(map[string]string)
	configInt := make(map[string]int)

	if flags.StorePath != "" {
		configStr[DriveStorePath] = flags.StorePath
	}
	if flags.SyncFolder != "" {
		configStr[DriveSyncFolder] = flags.SyncFolder
	}
	if flags.MountPoint != "" {
		configStr[DriveMountPoint] = flags.MountPoint
	}
	if flags.DriveName != "" {
		configStr[DriveName] = flags.DriveName
	}
	if flags.HelperDir != "" {
		configStr[DriveHelperDir] = flags.HelperDir
	}
	if flags.MountOnLaunch {
		configStr[DriveAutoMount] = "true"
	}

	c := mapConfig{
		configStr: configStr,
		configInt: configInt,
		file:      New(env),
	}

	return c
}

func (m mapConfig) GetString(key string, defaultValue interface{}) string {
	if val, exists := m.configStr[key]; exists {
		return val
	}

	if m.file != nil {
		if val := m.file.GetString(key, ""); val != "" {
			return val
		}
	}

	if val, exists := stringDefaults[key]; exists {
		return val
	}

	if stringValue, ok := defaultValue.(string); ok {
		return stringValue
	}

	return ""
}

func (m mapConfig) GetInt(key string, defaultValue interface{}) int {
	if val, exists := m.configInt[key]; exists {
		return val
	}

	if m.file != nil {
		if val := m.file.GetInt(key, 0); val != 0 {
			return val
		}
	}

	if intVal, ok := defaultValue.(int); ok {
		return intVal
	}

	return 0
}
