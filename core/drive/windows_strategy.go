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
	// DefaultWindowsDriveLetter is used whenever the requested mount point
	// is empty or not a valid drive-letter form.
	DefaultWindowsDriveLetter = "O:"

	windowsHelperName   = "oxifs-winproxy.exe"
	windowsDriverSvc    = "oxifsproxy"
	windowsForcedFlag   = "/force"
	windowsMaxPathChars = "260"
)

// windowsStrategy drives the file-system proxy driver through the bundled
// oxifs-winproxy.exe helper and maps the sync folder onto a drive letter.
type windowsStrategy struct {
	cfg    config.Config
	st     store.Store
	runner sys.Runner
	fs     sys.FS

	opLock    sync.Mutex
	record    *mountRecord
	autoMount bool
	preferred string

	autostart *windowsAutostart
}

func newWindowsStrategy(cfg config.Config, st store.Store, runner sys.Runner, fs sys.FS) *windowsStrategy {
	return &windowsStrategy{
		cfg:       cfg,
		st:        st,
		runner:    runner,
		fs:        fs,
		record:    newMountRecord(),
		autostart: newWindowsAutostart(runner),
	}
}

func (s *windowsStrategy) Platform() Platform {
	return Windows
}

func (s *windowsStrategy) Initialize(ctx context.Context) bool {
	if err := s.LoadConfiguration(ctx); err != nil {
		log.Error("could not load windows drive configuration", err)
	}

	if !s.driverAvailable(ctx) {
		log.Warn("windows file-system proxy driver not available, virtual drive disabled")
		return false
	}

	if s.AutoMount() && !s.IsMounted() {
		return s.Mount(ctx, s.preferredMountPoint())
	}

	return true
}

func (s *windowsStrategy) Mount(ctx context.Context, mountPoint string) bool {
	s.opLock.Lock()
	defer s.opLock.Unlock()

	if s.record.isMounted() {
		return true
	}

	letter := normalizeDriveLetter(mountPoint)
	syncFolder := s.syncFolder()

	out, err := s.runner.Run(ctx, s.helperPath(), "mount", letter, syncFolder)
	if err != nil {
		log.Error("winproxy mount helper could not run", err)
		return false
	}
	if out.ExitCode != 0 {
		log.Error("winproxy mount helper failed", ErrProcessFailure,
			fmt.Sprintf("exitCode:%d", out.ExitCode), "stderr:"+out.Stderr)
		return false
	}

	s.record.setMounted(letter)
	s.preferred = letter

	if err := s.st.SetString(mountPointKey(Windows), letter); err != nil {
		log.Error("could not persist windows mount point", errors.Wrap(ErrConfigPersistence, err.Error()))
	}

	log.Info("virtual drive mounted", "mountPoint:"+letter)
	return true
}

func (s *windowsStrategy) Unmount(ctx context.Context) bool {
	s.opLock.Lock()
	defer s.opLock.Unlock()

	if !s.record.isMounted() {
		return true
	}

	letter := s.record.getMountPoint()

	out, err := s.runner.Run(ctx, s.helperPath(), "unmount", letter)
	if err == nil && out.ExitCode == 0 {
		s.record.setUnmounted()
		log.Info("virtual drive unmounted", "mountPoint:"+letter)
		return true
	}
	if err != nil {
		log.Error("winproxy unmount helper could not run", err)
	} else {
		log.Warn("graceful unmount failed, forcing", "stderr:"+out.Stderr)
	}

	out, err = s.runner.Run(ctx, s.helperPath(), "unmount", letter, windowsForcedFlag)
	if err == nil && out.ExitCode == 0 {
		s.record.setUnmounted()
		log.Info("virtual drive force-unmounted", "mountPoint:"+letter)
		return true
	}
	if err != nil {
		log.Error("winproxy forced unmount could not run", err)
	} else {
		log.Error("forced unmount failed", ErrProcessFailure, "stderr:"+out.Stderr)
	}

	// the drive may still be live, never claim otherwise
	return false
}

func (s *windowsStrategy) IsMounted() bool {
	return s.record.isMounted()
}

func (s *windowsStrategy) MountPoint() string {
	return s.record.getMountPoint()
}

func (s *windowsStrategy) RefreshDirectory(ctx context.Context, path string) {
	if err := s.fs.Touch(path); err != nil {
		log.Debug("could not refresh directory", "path:"+path, fmt.Sprintf("err:%v", err))
	}
}

func (s *windowsStrategy) OpenFileWithDefaultApp(ctx context.Context, file string) bool {
	if !s.fs.Exists(file) {
		return false
	}

	out, err := s.runner.Run(ctx, "cmd", "/c", "start", "", file)
	if err != nil {
		log.Error("could not open file with default app", err, "file:"+file)
		return false
	}
	return out.ExitCode == 0
}

func (s *windowsStrategy) RevealInFileExplorer(ctx context.Context, path string) bool {
	out, err := s.runner.Run(ctx, "explorer", "/select,"+path)
	if err == nil && out.ExitCode == 0 {
		return true
	}

	// fall back to opening the parent directory
	out, err = s.runner.Run(ctx, "explorer", filepath.Dir(path))
	if err != nil {
		log.Error("could not open parent directory in explorer", err, "path:"+path)
		return false
	}
	return out.ExitCode == 0
}

func (s *windowsStrategy) Requirements() []string {
	return []string{
		"OxiFS file-system proxy driver installed (service '" + windowsDriverSvc + "')",
		"Bundled " + windowsHelperName + " helper present in the helper directory",
		"A free drive letter (default " + DefaultWindowsDriveLetter + ")",
		"Permission to run helper processes as the current user",
	}
}

func (s *windowsStrategy) CheckRequirements(ctx context.Context) bool {
	if !s.driverAvailable(ctx) {
		return false
	}

	if !s.helperInvocable() {
		log.Warn("winproxy helper not found", "helper:"+s.helperPath())
		return false
	}

	return true
}

func (s *windowsStrategy) Limitations() map[string]string {
	return map[string]string{
		"max_path_length":     "Paths longer than " + windowsMaxPathChars + " characters are not accessible through the drive",
		"reserved_characters": `File names may not contain < > : " / \ | ? *`,
		"offline_access":      "Files are reachable only while the daemon is running; the drive disappears on exit",
		"case_sensitivity":    "The drive is case-insensitive even when the sync folder holds case-colliding names",
	}
}

func (s *windowsStrategy) SetAutoMount(ctx context.Context, enabled bool) error {
	s.opLock.Lock()
	s.autoMount = enabled
	s.opLock.Unlock()

	return s.PersistConfiguration(ctx)
}

func (s *windowsStrategy) AutoMount() bool {
	s.opLock.Lock()
	defer s.opLock.Unlock()
	return s.autoMount
}

func (s *windowsStrategy) PersistConfiguration(ctx context.Context) error {
	s.opLock.Lock()
	defer s.opLock.Unlock()
	return s.persistState(ctx)
}

// persistState writes the auto-mount flag and mount point and keeps the
// registry run key in agreement. Callers hold opLock.
func (s *windowsStrategy) persistState(ctx context.Context) error {
	if err := s.st.SetBool(autoMountKey(Windows), s.autoMount); err != nil {
		return errors.Wrap(ErrConfigPersistence, err.Error())
	}
	if err := s.st.SetString(mountPointKey(Windows), s.preferredMountPoint()); err != nil {
		return errors.Wrap(ErrConfigPersistence, err.Error())
	}

	if s.autoMount {
		return s.autostart.Enable(ctx)
	}
	return s.autostart.Disable(ctx)
}

func (s *windowsStrategy) LoadConfiguration(ctx context.Context) error {
	s.opLock.Lock()
	defer s.opLock.Unlock()

	enabled, err := s.st.GetBool(autoMountKey(Windows))
	if err != nil && !store.IsNotFound(err) {
		return errors.Wrap(ErrConfigPersistence, err.Error())
	}
	s.autoMount = enabled

	mp, err := s.st.GetString(mountPointKey(Windows))
	if err != nil {
		if !store.IsNotFound(err) {
			return errors.Wrap(ErrConfigPersistence, err.Error())
		}
		mp = s.cfg.GetString(config.DriveMountPoint, "")
	}
	if mp != "" {
		s.preferred = normalizeDriveLetter(mp)
	}

	// reconcile with the live mount table: an administrator may have left
	// the drive mapped from a previous run
	if s.preferred != "" && s.mountTableHas(ctx, s.preferred) {
		s.record.setMounted(s.preferred)
	}

	return nil
}

func (s *windowsStrategy) preferredMountPoint() string {
	if s.preferred != "" {
		return s.preferred
	}
	return DefaultWindowsDriveLetter
}

func (s *windowsStrategy) driverAvailable(ctx context.Context) bool {
	out, err := s.runner.Run(ctx, "sc", "query", windowsDriverSvc)
	if err != nil {
		log.Debug("driver service query failed", fmt.Sprintf("err:%v", err))
		return false
	}
	return out.ExitCode == 0
}

func (s *windowsStrategy) helperInvocable() bool {
	if s.fs.Exists(s.helperPath()) {
		return true
	}
	_, err := s.runner.LookPath(windowsHelperName)
	return err == nil
}

func (s *windowsStrategy) helperPath() string {
	dir := s.cfg.GetString(config.DriveHelperDir, "")
	if dir == "" {
		return windowsHelperName
	}
	return filepath.Join(dir, windowsHelperName)
}

func (s *windowsStrategy) syncFolder() string {
	return expandHome(s.cfg.GetString(config.DriveSyncFolder, "~/OxiCloudSync"))
}

// mountTableHas scrapes `net use` for the given drive letter.
func (s *windowsStrategy) mountTableHas(ctx context.Context, letter string) bool {
	if letter == "" {
		return false
	}

	out, err := s.runner.Run(ctx, "net", "use")
	if err != nil || out.ExitCode != 0 {
		return false
	}

	target := strings.ToUpper(letter)
	for _, line := range strings.Split(out.Stdout, "\n") {
		for _, field := range strings.Fields(line) {
			if strings.ToUpper(field) == target {
				return true
			}
		}
	}
	return false
}

// normalizeDriveLetter accepts the two-character drive-letter form ("X:",
// case-insensitive) and falls back to the default for anything else.
func normalizeDriveLetter(mountPoint string) string {
	mp := strings.TrimSpace(mountPoint)
	if len(mp) != 2 || mp[1] != ':' {
		return DefaultWindowsDriveLetter
	}

	letter := mp[0]
	if (letter < 'A' || letter > 'Z') && (letter < 'a' || letter > 'z') {
		return DefaultWindowsDriveLetter
	}

	return strings.ToUpper(mp)
}
