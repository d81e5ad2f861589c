package drive

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	homedir "github.com/mitchellh/go-homedir"
)

// Platform identifies the operating system a strategy drives. It is resolved
// once at startup and injected; strategies never branch on runtime.GOOS per
// call.
type Platform string

const (
	Windows Platform = "windows"
	MacOS   Platform = "darwin"
	Linux   Platform = "linux"
)

// CurrentPlatform maps the running OS to a Platform identifier. The factory
// rejects anything it does not recognize.
func CurrentPlatform() Platform {
	return Platform(runtime.GOOS)
}

// Strategy is the per-OS contract for managing the virtual drive that
// exposes the local sync folder as a native volume. Implementations drive
// bundled helper executables on top of an already installed OS driver; they
// never handle filesystem operations themselves.
//
// Mount and Unmount are idempotent and serialized per instance. Every
// failure is logged and reported as a boolean; no error from a helper
// process escapes a Strategy.
type Strategy interface {
	Platform() Platform

	// Initialize loads the persisted configuration, reconciles it against
	// the live OS mount table and, when auto-mount is enabled, mounts the
	// drive. It returns false when the OS driver is unavailable and the
	// feature stays disabled.
	Initialize(ctx context.Context) bool

	// Mount bridges the sync folder to the given mount point. An empty or
	// invalid mount point falls back to the platform default. Returns true
	// if the drive is mounted when the call returns.
	Mount(ctx context.Context, mountPoint string) bool

	// Unmount releases the drive, retrying with the platform's forced
	// variant when the graceful path fails. Returns true if the drive is
	// unmounted when the call returns; on failure the record stays mounted.
	Unmount(ctx context.Context) bool

	IsMounted() bool
	MountPoint() string

	// RefreshDirectory asks the OS file manager to re-read a directory.
	// Best effort: failures are swallowed and logged.
	RefreshDirectory(ctx context.Context, path string)

	OpenFileWithDefaultApp(ctx context.Context, file string) bool
	RevealInFileExplorer(ctx context.Context, path string) bool

	Requirements() []string
	CheckRequirements(ctx context.Context) bool
	Limitations() map[string]string

	SetAutoMount(ctx context.Context, enabled bool) error
	AutoMount() bool
	PersistConfiguration(ctx context.Context) error
	LoadConfiguration(ctx context.Context) error
}

// Persisted-state key layout, two keys per platform.

func autoMountKey(p Platform) string {
	return fmt.Sprintf("%s_native_fs_auto_mount", p)
}

func mountPointKey(p Platform) string {
	return fmt.Sprintf("%s_native_fs_mount_point", p)
}

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := homedir.Dir()
	if err != nil {
		return path
	}
	return home + strings.TrimPrefix(path, "~")
}
