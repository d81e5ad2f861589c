package drive

import (
	"fmt"
	"path/filepath"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"

	"github.com/oxicloud/drive-daemon/core/sys"
	"github.com/oxicloud/drive-daemon/log"
)

const (
	macLaunchAgentLabel = "com.oxicloud.drive"
	macLaunchAgentFile  = macLaunchAgentLabel + ".plist"
)

const macLaunchAgentTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>%s</string>
    <key>ProgramArguments</key>
    <array>
        <string>%s</string>
        <string>mount</string>
        <string>%s</string>
        <string>%s</string>
    </array>
    <key>RunAtLoad</key>
    <true/>
</dict>
</plist>
`

// macAutostart maintains a per-user launch agent that re-runs the mount
// helper with the persisted mount point and sync folder at login.
type macAutostart struct {
	fs      sys.FS
	homeDir func() (string, error)
}

func newMacAutostart(fs sys.FS) *macAutostart {
	return &macAutostart{
		fs:      fs,
		homeDir: homedir.Dir,
	}
}

func (a *macAutostart) Enable(helper, mountPoint, syncFolder string) error {
	dir, err := a.agentsDir()
	if err != nil {
		return err
	}

	if err := a.fs.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "could not create LaunchAgents directory")
	}

	plist := fmt.Sprintf(macLaunchAgentTemplate, macLaunchAgentLabel, helper, mountPoint, syncFolder)
	path := filepath.Join(dir, macLaunchAgentFile)
	if err := a.fs.WriteFile(path, []byte(plist), 0644); err != nil {
		return errors.Wrap(err, "could not write launch agent")
	}

	log.Debug("registered launch agent", "path:"+path)
	return nil
}

func (a *macAutostart) Disable() error {
	dir, err := a.agentsDir()
	if err != nil {
		return err
	}

	path := filepath.Join(dir, macLaunchAgentFile)
	if !a.fs.Exists(path) {
		return nil
	}

	if err := a.fs.Remove(path); err != nil {
		return errors.Wrap(err, "could not remove launch agent")
	}
	return nil
}

func (a *macAutostart) agentsDir() (string, error) {
	home, err := a.homeDir()
	if err != nil {
		return "", errors.Wrap(err, "could not resolve home directory")
	}
	return filepath.Join(home, "Library", "LaunchAgents"), nil
}
