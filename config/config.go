package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/creamdog/gonfig"
	"github.com/oxicloud/drive-daemon/core/env"
	"github.com/oxicloud/drive-daemon/log"
)

const (
	JsonConfigFileName = "drive.json"
	DriveStorePath     = "drive/storePath"
	DriveSyncFolder    = "drive/syncFolder"
	DriveMountPoint    = "drive/mountPoint"
	DriveName          = "drive/driveName"
	DriveHelperDir     = "drive/helperDir"
	DriveAutoMount     = "drive/autoMount"
)

var (
	ErrConfigNotLoaded = errors.New("config file was not loaded correctly or it does not exist")
)

// Config used to fetch config information
type Config interface {
	GetString(key string, defaultValue interface{}) string
	GetInt(key string, defaultValue interface{}) int
}

// standardConfig implements Config
// It loads its config information from the drive.json file
type standardConfig struct {
	cfg gonfig.Gonfig
}

func New(env env.DriveEnv) Config {
	wd := env.WorkingFolder()
	f, err := os.Open(wd + "/" + JsonConfigFileName)
	if err != nil {
		log.Info("could not find drive.json file in " + wd + ", using defaults")
	}

	defer f.Close()
	config, err := gonfig.FromJson(f)
	if err != nil {
		log.Info("could not read drive.json file, using defaults")
	}

	c := standardConfig{
		cfg: config,
	}

	return c
}

// Gets the configuration value given a path in the json config file
// defaults to empty value if none is found and just logs errors
func (c standardConfig) GetString(key string, defaultValue interface{}) string {
	if c.cfg == nil {
		return ""
	}
	v, err := c.cfg.GetString(key, defaultValue)
	if err != nil {
		log.Error(fmt.Sprintf("error getting key %s from config", key), err)
		return ""
	}

	return v
}

// Gets the configuration value given a path in the json config file
// defaults to empty value if none is found and just logs errors
func (c standardConfig) GetInt(key string, defaultValue interface{}) int {
	if c.cfg == nil {
		return 0
	}
	v, err := c.cfg.GetInt(key, defaultValue)
	if err != nil {
		log.Error(fmt.Sprintf("error getting key %s from config", key), err)
		return 0
	}

	return v
}
