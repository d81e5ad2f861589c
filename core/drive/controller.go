package drive

import (
	"context"

	"github.com/oxicloud/drive-daemon/log"
)

// Controller is the drive domain controller consumed by the app and the UI
// layer. It wraps the platform strategy selected at startup and converts
// every failure into a boolean result; nothing below it surfaces errors to
// callers, matching the recoverable-failure contract of the subsystem.
type Controller struct {
	strategy Strategy
}

func NewController(strategy Strategy) *Controller {
	return &Controller{
		strategy: strategy,
	}
}

// Initialize reconciles persisted preferences with the live OS mount table
// and honors the auto-mount flag. Returns false when the platform driver is
// unavailable; the feature stays disabled but the daemon keeps running.
func (c *Controller) Initialize(ctx context.Context) bool {
	return c.strategy.Initialize(ctx)
}

func (c *Controller) MountVirtualDrive(ctx context.Context, mountPoint string) bool {
	return c.strategy.Mount(ctx, mountPoint)
}

func (c *Controller) UnmountVirtualDrive(ctx context.Context) bool {
	return c.strategy.Unmount(ctx)
}

func (c *Controller) IsVirtualDriveMounted() bool {
	return c.strategy.IsMounted()
}

func (c *Controller) GetVirtualDriveMountPoint() string {
	return c.strategy.MountPoint()
}

func (c *Controller) SetAutoMount(ctx context.Context, enabled bool) bool {
	if err := c.strategy.SetAutoMount(ctx, enabled); err != nil {
		log.Error("could not persist auto-mount setting", err)
		return false
	}
	return true
}

func (c *Controller) GetAutoMount() bool {
	return c.strategy.AutoMount()
}

func (c *Controller) RefreshDirectory(ctx context.Context, path string) {
	c.strategy.RefreshDirectory(ctx, path)
}

func (c *Controller) OpenFileWithDefaultApp(ctx context.Context, file string) bool {
	return c.strategy.OpenFileWithDefaultApp(ctx, file)
}

func (c *Controller) RevealInFileExplorer(ctx context.Context, path string) bool {
	return c.strategy.RevealInFileExplorer(ctx, path)
}

func (c *Controller) GetVirtualDriveRequirements() []string {
	return c.strategy.Requirements()
}

func (c *Controller) CheckVirtualDriveRequirements(ctx context.Context) bool {
	return c.strategy.CheckRequirements(ctx)
}

func (c *Controller) GetVirtualDriveLimitations() map[string]string {
	return c.strategy.Limitations()
}

// Shutdown releases the drive so the OS namespace is clean when the daemon
// exits. Part of the app component contract.
func (c *Controller) Shutdown() error {
	if !c.strategy.IsMounted() {
		return nil
	}

	if !c.strategy.Unmount(context.Background()) {
		log.Warn("virtual drive still mounted after shutdown unmount attempt")
	}
	return nil
}
