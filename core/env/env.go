package env

import (
	syslog "log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

const (
	DriveWorkingDir = "OXIDRIVE_APP_DIR"
	LogLevel        = "LOG_LEVEL"
)

type DriveEnv interface {
	CurrentFolder() (string, error)
	WorkingFolder() string
	LogLevel() string
}

type driveEnv struct {
}

func New() DriveEnv {
	err := godotenv.Load()
	if err != nil {
		syslog.Println("Error loading .env file. Using defaults")
	}

	return driveEnv{}
}

func (d driveEnv) CurrentFolder() (string, error) {
	path, err := os.Executable()
	if err != nil {
		return "", err
	}

	return filepath.Dir(path), nil
}

func (d driveEnv) WorkingFolder() string {
	var wd = os.Getenv(DriveWorkingDir)
	// use default
	if wd == "" {
		cf, err := d.CurrentFolder()
		if err != nil {
			syslog.Fatal("unable to get working folder", err)
		}
		wd = cf
	}

	return wd
}

func (d driveEnv) LogLevel() string {
	var ll = os.Getenv(LogLevel)
	if ll == "" {
		ll = "info"
	}

	return ll
}
