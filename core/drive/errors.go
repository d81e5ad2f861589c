package drive

import "github.com/pkg/errors"

var (
	// ErrDriverUnavailable means the prerequisite OS component (proxy
	// driver, macFUSE, kernel FUSE) is missing.
	ErrDriverUnavailable = errors.New("virtual drive driver is not available")

	// ErrPermissionDenied means the current user lacks the group or write
	// access the platform requires.
	ErrPermissionDenied = errors.New("insufficient permissions for virtual drive")

	// ErrProcessFailure means a helper process exited non-zero.
	ErrProcessFailure = errors.New("helper process failed")

	// ErrUnsupportedPlatform is returned by the factory for platforms no
	// strategy exists for. It indicates a deployment misconfiguration and
	// is the only error meant to fail loudly at construction.
	ErrUnsupportedPlatform = errors.New("unsupported platform for virtual drive")

	// ErrConfigPersistence means the durable store rejected a read or
	// write of the drive configuration.
	ErrConfigPersistence = errors.New("could not persist virtual drive configuration")
)
