package drive

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/oxicloud/drive-daemon/core/sys"
	"github.com/oxicloud/drive-daemon/log"
)

const (
	windowsRunKeyPath = `HKCU\Software\Microsoft\Windows\CurrentVersion\Run`
	windowsRunKeyName = "OxiCloudDrive"
)

// windowsAutostart keeps an HKCU run-key value pointing at the daemon
// executable with the minimized-start flag. Registry access goes through
// reg.exe with the same bounded runner used for the mount helpers.
type windowsAutostart struct {
	runner     sys.Runner
	executable func() (string, error)
}

func newWindowsAutostart(runner sys.Runner) *windowsAutostart {
	return &windowsAutostart{
		runner:     runner,
		executable: os.Executable,
	}
}

func (a *windowsAutostart) Enable(ctx context.Context) error {
	exe, err := a.executable()
	if err != nil {
		return errors.Wrap(err, "could not resolve daemon executable")
	}

	command := fmt.Sprintf(`"%s" --minimized`, exe)
	out, err := a.runner.Run(ctx, "reg", "add", windowsRunKeyPath,
		"/v", windowsRunKeyName, "/t", "REG_SZ", "/d", command, "/f")
	if err != nil {
		return errors.Wrap(err, "could not write run key")
	}
	if out.ExitCode != 0 {
		return errors.Wrap(ErrProcessFailure, "reg add: "+out.Stderr)
	}

	log.Debug("registered autostart run key", "value:"+windowsRunKeyName)
	return nil
}

func (a *windowsAutostart) Disable(ctx context.Context) error {
	out, err := a.runner.Run(ctx, "reg", "delete", windowsRunKeyPath,
		"/v", windowsRunKeyName, "/f")
	if err != nil {
		return errors.Wrap(err, "could not delete run key")
	}
	if out.ExitCode != 0 {
		// the value was most likely never registered
		log.Debug("run key delete returned non-zero", "stderr:"+out.Stderr)
	}

	return nil
}
