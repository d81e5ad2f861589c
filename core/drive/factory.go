package drive

import (
	"github.com/pkg/errors"

	"github.com/oxicloud/drive-daemon/config"
	"github.com/oxicloud/drive-daemon/core/store"
	"github.com/oxicloud/drive-daemon/core/sys"
)

// New builds the strategy for the given platform. Unsupported platforms fail
// fast with ErrUnsupportedPlatform: that is a deployment configuration
// error, not a runtime condition, so no degraded strategy is returned.
func New(
	platform Platform,
	cfg config.Config,
	st store.Store,
	runner sys.Runner,
	fs sys.FS,
) (Strategy, error) {
	switch platform {
	case Windows:
		return newWindowsStrategy(cfg, st, runner, fs), nil
	case MacOS:
		return newMacStrategy(cfg, st, runner, fs), nil
	case Linux:
		return newLinuxStrategy(cfg, st, runner, fs), nil
	default:
		return nil, errors.Wrapf(ErrUnsupportedPlatform, "no virtual drive strategy for %q", platform)
	}
}
