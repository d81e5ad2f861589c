package drive

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/oxicloud/drive-daemon/config"
	"github.com/oxicloud/drive-daemon/core/store"
	"github.com/oxicloud/drive-daemon/core/sys"
	"github.com/oxicloud/drive-daemon/log"
)

const (
	// DefaultMacMountPoint is used whenever the requested mount point is
	// empty.
	DefaultMacMountPoint = "~/OxiCloud"

	macHelperName     = "oxifs-macfuse"
	macFusePath       = "/Library/Filesystems/macfuse.fs"
	legacyOsxfusePath = "/Library/Filesystems/osxfuse.fs"
)

// macStrategy drives macFUSE through the bundled oxifs-macfuse helper and
// mounts the sync folder at a directory, typically in the user's home.
type macStrategy struct {
	cfg    config.Config
	st     store.Store
	runner sys.Runner
	fs     sys.FS

	opLock    sync.Mutex
	record    *mountRecord
	autoMount bool
	preferred string

	autostart *macAutostart
}

func newMacStrategy(cfg config.Config, st store.Store, runner sys.Runner, fs sys.FS) *macStrategy {
	return &macStrategy{
		cfg:       cfg,
		st:        st,
		runner:    runner,
		fs:        fs,
		record:    newMountRecord(),
		autostart: newMacAutostart(fs),
	}
}

func (s *macStrategy) Platform() Platform {
	return MacOS
}

func (s *macStrategy) Initialize(ctx context.Context) bool {
	if err := s.LoadConfiguration(ctx); err != nil {
		log.Error("could not load macOS drive configuration", err)
	}

	if !s.driverAvailable() {
		log.Warn("macFUSE not installed, virtual drive disabled")
		return false
	}

	if s.AutoMount() && !s.IsMounted() {
		return s.Mount(ctx, s.preferredMountPoint())
	}

	return true
}

func (s *macStrategy) Mount(ctx context.Context, mountPoint string) bool {
	s.opLock.Lock()
	defer s.opLock.Unlock()

	if s.record.isMounted() {
		return true
	}

	mp := s.normalizeMountPoint(mountPoint)
	if !s.fs.Exists(mp) {
		if err := s.fs.MkdirAll(mp, 0755); err != nil {
			log.Error("could not create mount point", err, "mountPoint:"+mp)
			return false
		}
	}

	out, err := s.runner.Run(ctx, s.helperPath(), "mount", mp, s.syncFolder())
	if err != nil {
		log.Error("macfuse mount helper could not run", err)
		return false
	}
	if out.ExitCode != 0 {
		log.Error("macfuse mount helper failed", ErrProcessFailure,
			fmt.Sprintf("exitCode:%d", out.ExitCode), "stderr:"+out.Stderr)
		return false
	}

	s.record.setMounted(mp)
	s.preferred = mp

	if err := s.st.SetString(mountPointKey(MacOS), mp); err != nil {
		log.Error("could not persist macOS mount point", errors.Wrap(ErrConfigPersistence, err.Error()))
	}

	log.Info("virtual drive mounted", "mountPoint:"+mp)
	return true
}

func (s *macStrategy) Unmount(ctx context.Context) bool {
	s.opLock.Lock()
	defer s.opLock.Unlock()

	if !s.record.isMounted() {
		return true
	}

	mp := s.record.getMountPoint()

	out, err := s.runner.Run(ctx, "diskutil", "unmount", mp)
	if err == nil && out.ExitCode == 0 {
		s.record.setUnmounted()
		log.Info("virtual drive unmounted", "mountPoint:"+mp)
		return true
	}
	if err != nil {
		log.Error("diskutil unmount could not run", err)
	} else {
		log.Warn("graceful unmount failed, forcing", "stderr:"+out.Stderr)
	}

	out, err = s.runner.Run(ctx, "diskutil", "unmount", "force", mp)
	if err == nil && out.ExitCode == 0 {
		s.record.setUnmounted()
		log.Info("virtual drive force-unmounted", "mountPoint:"+mp)
		return true
	}
	if err != nil {
		log.Error("diskutil forced unmount could not run", err)
	} else {
		log.Error("forced unmount failed", ErrProcessFailure, "stderr:"+out.Stderr)
	}

	// the drive may still be live, never claim otherwise
	return false
}

func (s *macStrategy) IsMounted() bool {
	return s.record.isMounted()
}

func (s *macStrategy) MountPoint() string {
	return s.record.getMountPoint()
}

func (s *macStrategy) RefreshDirectory(ctx context.Context, path string) {
	if err := s.fs.Touch(path); err != nil {
		log.Debug("could not refresh directory", "path:"+path, fmt.Sprintf("err:%v", err))
	}
}

func (s *macStrategy) OpenFileWithDefaultApp(ctx context.Context, file string) bool {
	if !s.fs.Exists(file) {
		return false
	}

	out, err := s.runner.Run(ctx, "open", file)
	if err != nil {
		log.Error("could not open file with default app", err, "file:"+file)
		return false
	}
	return out.ExitCode == 0
}

func (s *macStrategy) RevealInFileExplorer(ctx context.Context, path string) bool {
	out, err := s.runner.Run(ctx, "open", "-R", path)
	if err == nil && out.ExitCode == 0 {
		return true
	}

	// fall back to opening the parent directory in Finder
	out, err = s.runner.Run(ctx, "open", filepath.Dir(path))
	if err != nil {
		log.Error("could not open parent directory in Finder", err, "path:"+path)
		return false
	}
	return out.ExitCode == 0
}

func (s *macStrategy) Requirements() []string {
	return []string{
		"macFUSE installed (" + macFusePath + ")",
		"Bundled " + macHelperName + " helper present in the helper directory",
		"Write access to the mount folder (default " + DefaultMacMountPoint + ")",
		"The system extension approved in Security & Privacy on first install",
	}
}

func (s *macStrategy) CheckRequirements(ctx context.Context) bool {
	if !s.driverAvailable() {
		return false
	}

	if !s.helperInvocable() {
		log.Warn("macfuse helper not found", "helper:"+s.helperPath())
		return false
	}

	parent := filepath.Dir(s.normalizeMountPoint(s.preferredMountPoint()))
	if !s.fs.Writable(parent) {
		log.Warn("mount folder parent not writable", "path:"+parent)
		return false
	}

	return true
}

func (s *macStrategy) Limitations() map[string]string {
	return map[string]string{
		"offline_access":      "Files are reachable only while the daemon is running; the volume disappears on exit",
		"extended_attributes": "Finder tags and resource forks are not persisted to the sync folder",
		"case_sensitivity":    "The volume follows the sync folder's casing; case-colliding names shadow each other",
	}
}

func (s *macStrategy) SetAutoMount(ctx context.Context, enabled bool) error {
	s.opLock.Lock()
	s.autoMount = enabled
	s.opLock.Unlock()

	return s.PersistConfiguration(ctx)
}

func (s *macStrategy) AutoMount() bool {
	s.opLock.Lock()
	defer s.opLock.Unlock()
	return s.autoMount
}

func (s *macStrategy) PersistConfiguration(ctx context.Context) error {
	s.opLock.Lock()
	defer s.opLock.Unlock()
	return s.persistState(ctx)
}

// persistState writes the auto-mount flag and mount point and keeps the
// launch agent in agreement. Callers hold opLock.
func (s *macStrategy) persistState(ctx context.Context) error {
	if err := s.st.SetBool(autoMountKey(MacOS), s.autoMount); err != nil {
		return errors.Wrap(ErrConfigPersistence, err.Error())
	}
	if err := s.st.SetString(mountPointKey(MacOS), s.preferredMountPoint()); err != nil {
		return errors.Wrap(ErrConfigPersistence, err.Error())
	}

	if s.autoMount {
		mp := s.normalizeMountPoint(s.preferredMountPoint())
		return s.autostart.Enable(s.helperPath(), mp, s.syncFolder())
	}
	return s.autostart.Disable()
}

func (s *macStrategy) LoadConfiguration(ctx context.Context) error {
	s.opLock.Lock()
	defer s.opLock.Unlock()

	enabled, err := s.st.GetBool(autoMountKey(MacOS))
	if err != nil && !store.IsNotFound(err) {
		return errors.Wrap(ErrConfigPersistence, err.Error())
	}
	s.autoMount = enabled

	mp, err := s.st.GetString(mountPointKey(MacOS))
	if err != nil {
		if !store.IsNotFound(err) {
			return errors.Wrap(ErrConfigPersistence, err.Error())
		}
		mp = s.cfg.GetString(config.DriveMountPoint, "")
	}
	s.preferred = mp

	// reconcile with the live mount table from a previous run
	if mp != "" {
		live := s.normalizeMountPoint(mp)
		if s.mountTableHas(ctx, live) {
			s.record.setMounted(live)
		}
	}

	return nil
}

func (s *macStrategy) preferredMountPoint() string {
	if s.preferred != "" {
		return s.preferred
	}
	return DefaultMacMountPoint
}

func (s *macStrategy) normalizeMountPoint(mountPoint string) string {
	mp := strings.TrimSpace(mountPoint)
	if mp == "" {
		mp = DefaultMacMountPoint
	}
	return strings.TrimRight(expandHome(mp), "/")
}

func (s *macStrategy) driverAvailable() bool {
	return s.fs.Exists(macFusePath) || s.fs.Exists(legacyOsxfusePath)
}

func (s *macStrategy) helperInvocable() bool {
	if s.fs.Exists(s.helperPath()) {
		return true
	}
	_, err := s.runner.LookPath(macHelperName)
	return err == nil
}

func (s *macStrategy) helperPath() string {
	dir := s.cfg.GetString(config.DriveHelperDir, "")
	if dir == "" {
		return macHelperName
	}
	return filepath.Join(dir, macHelperName)
}

func (s *macStrategy) syncFolder() string {
	return expandHome(s.cfg.GetString(config.DriveSyncFolder, "~/OxiCloudSync"))
}

// mountTableHas scrapes `mount` output for the given path.
func (s *macStrategy) mountTableHas(ctx context.Context, mountPoint string) bool {
	out, err := s.runner.Run(ctx, "mount")
	if err != nil || out.ExitCode != 0 {
		return false
	}

	for _, line := range strings.Split(out.Stdout, "\n") {
		if strings.Contains(line, " on "+mountPoint+" (") {
			return true
		}
	}
	return false
}
