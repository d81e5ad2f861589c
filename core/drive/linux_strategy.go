package drive

import (
	"context"
	"fmt"
	"os"
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
	// DefaultLinuxMountPoint is used whenever the requested mount point is
	// empty.
	DefaultLinuxMountPoint = "~/OxiCloud"

	linuxHelperName = "oxifs-fuse"
	fuseDevicePath  = "/dev/fuse"
	procMountsPath  = "/proc/self/mounts"
)

// fileManager describes a known graphical file manager and how to ask it to
// select a file.
type fileManager struct {
	binary     string
	desktops   []string
	selectArgs func(path string) []string
}

// Known file managers, probed in order when the desktop environment gives no
// hint. nemo/thunar/pcmanfm have no select flag; they get the directory.
var linuxFileManagers = []fileManager{
	{
		binary:   "nautilus",
		desktops: []string{"GNOME", "UNITY", "PANTHEON"},
		selectArgs: func(path string) []string {
			return []string{"--select", path}
		},
	},
	{
		binary:   "dolphin",
		desktops: []string{"KDE"},
		selectArgs: func(path string) []string {
			return []string{"--select", path}
		},
	},
	{
		binary:   "nemo",
		desktops: []string{"X-CINNAMON", "CINNAMON"},
		selectArgs: func(path string) []string {
			return []string{path}
		},
	},
	{
		binary:   "thunar",
		desktops: []string{"XFCE"},
		selectArgs: func(path string) []string {
			return []string{filepath.Dir(path)}
		},
	},
	{
		binary:   "pcmanfm",
		desktops: []string{"LXDE", "LXQT"},
		selectArgs: func(path string) []string {
			return []string{filepath.Dir(path)}
		},
	},
}

// linuxStrategy drives kernel FUSE through the bundled oxifs-fuse helper and
// mounts the sync folder at a directory in the user's home.
type linuxStrategy struct {
	cfg    config.Config
	st     store.Store
	runner sys.Runner
	fs     sys.FS

	opLock    sync.Mutex
	record    *mountRecord
	autoMount bool
	preferred string

	autostart *linuxAutostart

	// swapped in tests to simulate desktop environments
	lookupEnv func(key string) string
}

func newLinuxStrategy(cfg config.Config, st store.Store, runner sys.Runner, fs sys.FS) *linuxStrategy {
	return &linuxStrategy{
		cfg:       cfg,
		st:        st,
		runner:    runner,
		fs:        fs,
		record:    newMountRecord(),
		autostart: newLinuxAutostart(fs),
		lookupEnv: os.Getenv,
	}
}

func (s *linuxStrategy) Platform() Platform {
	return Linux
}

func (s *linuxStrategy) Initialize(ctx context.Context) bool {
	if err := s.LoadConfiguration(ctx); err != nil {
		log.Error("could not load linux drive configuration", err)
	}

	if !s.driverAvailable() {
		log.Warn("kernel FUSE not available, virtual drive disabled")
		return false
	}

	if s.AutoMount() && !s.IsMounted() {
		return s.Mount(ctx, s.preferredMountPoint())
	}

	return true
}

func (s *linuxStrategy) Mount(ctx context.Context, mountPoint string) bool {
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

	out, err := s.runner.Run(ctx, s.helperPath(), s.syncFolder(), mp)
	if err != nil {
		log.Error("fuse mount helper could not run", err)
		return false
	}
	if out.ExitCode != 0 {
		log.Error("fuse mount helper failed", ErrProcessFailure,
			fmt.Sprintf("exitCode:%d", out.ExitCode), "stderr:"+out.Stderr)
		return false
	}

	s.record.setMounted(mp)
	s.preferred = mp

	if err := s.st.SetString(mountPointKey(Linux), mp); err != nil {
		log.Error("could not persist linux mount point", errors.Wrap(ErrConfigPersistence, err.Error()))
	}

	log.Info("virtual drive mounted", "mountPoint:"+mp)
	return true
}

func (s *linuxStrategy) Unmount(ctx context.Context) bool {
	s.opLock.Lock()
	defer s.opLock.Unlock()

	if !s.record.isMounted() {
		return true
	}

	mp := s.record.getMountPoint()

	out, err := s.runner.Run(ctx, "fusermount", "-u", mp)
	if err == nil && out.ExitCode == 0 {
		s.record.setUnmounted()
		log.Info("virtual drive unmounted", "mountPoint:"+mp)
		return true
	}
	if err != nil {
		log.Error("fusermount could not run", err)
	} else {
		log.Warn("graceful unmount failed, trying lazy unmount", "stderr:"+out.Stderr)
	}

	out, err = s.runner.Run(ctx, "umount", "-l", mp)
	if err == nil && out.ExitCode == 0 {
		s.record.setUnmounted()
		log.Info("virtual drive lazily unmounted", "mountPoint:"+mp)
		return true
	}
	if err != nil {
		log.Error("lazy umount could not run", err)
	} else {
		log.Error("lazy unmount failed", ErrProcessFailure, "stderr:"+out.Stderr)
	}

	// the drive may still be live, never claim otherwise
	return false
}

func (s *linuxStrategy) IsMounted() bool {
	return s.record.isMounted()
}

func (s *linuxStrategy) MountPoint() string {
	return s.record.getMountPoint()
}

func (s *linuxStrategy) RefreshDirectory(ctx context.Context, path string) {
	if err := s.fs.Touch(path); err != nil {
		log.Debug("could not refresh directory", "path:"+path, fmt.Sprintf("err:%v", err))
	}
}

func (s *linuxStrategy) OpenFileWithDefaultApp(ctx context.Context, file string) bool {
	if !s.fs.Exists(file) {
		return false
	}

	out, err := s.runner.Run(ctx, "xdg-open", file)
	if err != nil {
		log.Error("could not open file with default app", err, "file:"+file)
		return false
	}
	return out.ExitCode == 0
}

// RevealInFileExplorer tries the file manager the desktop environment hints
// at, then the known ones in order, and falls back to xdg-open on the parent
// directory when none can select the file.
func (s *linuxStrategy) RevealInFileExplorer(ctx context.Context, path string) bool {
	if fm, ok := s.detectFileManager(); ok {
		out, err := s.runner.Run(ctx, fm.binary, fm.selectArgs(path)...)
		if err == nil && out.ExitCode == 0 {
			return true
		}
		log.Debug("file manager reveal failed, falling back", "binary:"+fm.binary)
	}

	out, err := s.runner.Run(ctx, "xdg-open", filepath.Dir(path))
	if err != nil {
		log.Error("could not open parent directory", err, "path:"+path)
		return false
	}
	return out.ExitCode == 0
}

func (s *linuxStrategy) detectFileManager() (fileManager, bool) {
	desktop := strings.ToUpper(s.lookupEnv("XDG_CURRENT_DESKTOP"))

	// desktop hint first
	for _, fm := range linuxFileManagers {
		for _, d := range fm.desktops {
			if desktop != "" && strings.Contains(desktop, d) {
				if _, err := s.runner.LookPath(fm.binary); err == nil {
					return fm, true
				}
			}
		}
	}

	// otherwise first known binary on PATH
	for _, fm := range linuxFileManagers {
		if _, err := s.runner.LookPath(fm.binary); err == nil {
			return fm, true
		}
	}

	return fileManager{}, false
}

func (s *linuxStrategy) Requirements() []string {
	return []string{
		"Linux kernel FUSE support (" + fuseDevicePath + " present)",
		"fusermount utility installed",
		"Bundled " + linuxHelperName + " helper present in the helper directory",
		"Membership in the 'fuse' group or write access to " + fuseDevicePath,
	}
}

func (s *linuxStrategy) CheckRequirements(ctx context.Context) bool {
	if !s.driverAvailable() {
		return false
	}

	if _, err := s.runner.LookPath("fusermount"); err != nil {
		log.Warn("fusermount not found on PATH")
		return false
	}

	if !s.helperInvocable() {
		log.Warn("fuse helper not found", "helper:"+s.helperPath())
		return false
	}

	if !s.inFuseGroup(ctx) && !s.fs.Writable(filepath.Dir(s.normalizeMountPoint(s.preferredMountPoint()))) {
		log.Warn("no fuse group membership and mount folder parent not writable")
		return false
	}

	return true
}

func (s *linuxStrategy) Limitations() map[string]string {
	return map[string]string{
		"offline_access": "Files are reachable only while the daemon is running; the mount disappears on exit",
		"hard_links":     "Hard links inside the drive are not propagated to the sync folder",
		"file_locking":   "POSIX advisory locks are local to this machine and not synchronized",
	}
}

func (s *linuxStrategy) SetAutoMount(ctx context.Context, enabled bool) error {
	s.opLock.Lock()
	s.autoMount = enabled
	s.opLock.Unlock()

	return s.PersistConfiguration(ctx)
}

func (s *linuxStrategy) AutoMount() bool {
	s.opLock.Lock()
	defer s.opLock.Unlock()
	return s.autoMount
}

func (s *linuxStrategy) PersistConfiguration(ctx context.Context) error {
	s.opLock.Lock()
	defer s.opLock.Unlock()
	return s.persistState(ctx)
}

// persistState writes the auto-mount flag and mount point and keeps the XDG
// autostart entry in agreement. Callers hold opLock.
func (s *linuxStrategy) persistState(ctx context.Context) error {
	if err := s.st.SetBool(autoMountKey(Linux), s.autoMount); err != nil {
		return errors.Wrap(ErrConfigPersistence, err.Error())
	}
	if err := s.st.SetString(mountPointKey(Linux), s.preferredMountPoint()); err != nil {
		return errors.Wrap(ErrConfigPersistence, err.Error())
	}

	if s.autoMount {
		return s.autostart.Enable()
	}
	return s.autostart.Disable()
}

func (s *linuxStrategy) LoadConfiguration(ctx context.Context) error {
	s.opLock.Lock()
	defer s.opLock.Unlock()

	enabled, err := s.st.GetBool(autoMountKey(Linux))
	if err != nil && !store.IsNotFound(err) {
		return errors.Wrap(ErrConfigPersistence, err.Error())
	}
	s.autoMount = enabled

	mp, err := s.st.GetString(mountPointKey(Linux))
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

func (s *linuxStrategy) preferredMountPoint() string {
	if s.preferred != "" {
		return s.preferred
	}
	return DefaultLinuxMountPoint
}

func (s *linuxStrategy) normalizeMountPoint(mountPoint string) string {
	mp := strings.TrimSpace(mountPoint)
	if mp == "" {
		mp = DefaultLinuxMountPoint
	}
	return strings.TrimRight(expandHome(mp), "/")
}

func (s *linuxStrategy) driverAvailable() bool {
	return s.fs.Exists(fuseDevicePath)
}

func (s *linuxStrategy) helperInvocable() bool {
	if s.fs.Exists(s.helperPath()) {
		return true
	}
	_, err := s.runner.LookPath(linuxHelperName)
	return err == nil
}

func (s *linuxStrategy) helperPath() string {
	dir := s.cfg.GetString(config.DriveHelperDir, "")
	if dir == "" {
		return linuxHelperName
	}
	return filepath.Join(dir, linuxHelperName)
}

func (s *linuxStrategy) syncFolder() string {
	return expandHome(s.cfg.GetString(config.DriveSyncFolder, "~/OxiCloudSync"))
}

func (s *linuxStrategy) inFuseGroup(ctx context.Context) bool {
	out, err := s.runner.Run(ctx, "id", "-nG")
	if err != nil || out.ExitCode != 0 {
		return false
	}

	for _, group := range strings.Fields(out.Stdout) {
		if group == "fuse" {
			return true
		}
	}
	return false
}

// mountTableHas checks /proc/self/mounts, falling back to scraping `mount`
// when proc is unreadable.
func (s *linuxStrategy) mountTableHas(ctx context.Context, mountPoint string) bool {
	if data, err := s.fs.ReadFile(procMountsPath); err == nil {
		for _, line := range strings.Split(string(data), "\n") {
			fields := strings.Fields(line)
			if len(fields) >= 2 && fields[1] == mountPoint {
				return true
			}
		}
		return false
	}

	out, err := s.runner.Run(ctx, "mount")
	if err != nil || out.ExitCode != 0 {
		return false
	}
	for _, line := range strings.Split(out.Stdout, "\n") {
		if strings.Contains(line, " on "+mountPoint+" ") {
			return true
		}
	}
	return false
}
