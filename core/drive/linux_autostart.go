package drive

import (
	"fmt"
	"os"
	"path/filepath"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"

	"github.com/oxicloud/drive-daemon/core/sys"
	"github.com/oxicloud/drive-daemon/log"
)

const linuxAutostartFile = "oxicloud-drive.desktop"

const linuxDesktopEntryTemplate = `[Desktop Entry]
Type=Application
Name=OxiCloud Drive
Exec=%s --mount-on-launch
Comment=OxiCloud virtual drive daemon
Categories=Network;
Terminal=false
StartupNotify=false
X-GNOME-Autostart-enabled=true
`

// linuxAutostart maintains an XDG autostart desktop entry that launches the
// daemon with the mount-on-launch flag at login.
type linuxAutostart struct {
	fs         sys.FS
	homeDir    func() (string, error)
	executable func() (string, error)
}

func newLinuxAutostart(fs sys.FS) *linuxAutostart {
	return &linuxAutostart{
		fs:         fs,
		homeDir:    homedir.Dir,
		executable: os.Executable,
	}
}

func (a *linuxAutostart) Enable() error {
	exe, err := a.executable()
	if err != nil {
		return errors.Wrap(err, "could not resolve daemon executable")
	}

	dir, err := a.autostartDir()
	if err != nil {
		return err
	}

	if err := a.fs.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "could not create autostart directory")
	}

	entry := fmt.Sprintf(linuxDesktopEntryTemplate, exe)
	path := filepath.Join(dir, linuxAutostartFile)
	if err := a.fs.WriteFile(path, []byte(entry), 0644); err != nil {
		return errors.Wrap(err, "could not write desktop entry")
	}

	log.Debug("registered autostart desktop entry", "path:"+path)
	return nil
}

func (a *linuxAutostart) Disable() error {
	dir, err := a.autostartDir()
	if err != nil {
		return err
	}

	path := filepath.Join(dir, linuxAutostartFile)
	if !a.fs.Exists(path) {
		return nil
	}

	if err := a.fs.Remove(path); err != nil {
		return errors.Wrap(err, "could not remove desktop entry")
	}
	return nil
}

func (a *linuxAutostart) autostartDir() (string, error) {
	home, err := a.homeDir()
	if err != nil {
		return "", errors.Wrap(err, "could not resolve home directory")
	}
	return filepath.Join(home, ".config", "autostart"), nil
}
