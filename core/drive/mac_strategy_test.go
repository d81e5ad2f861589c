package drive

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/oxicloud/drive-daemon/config"
	"github.com/oxicloud/drive-daemon/core/store"
	"github.com/oxicloud/drive-daemon/core/sys"
	"github.com/oxicloud/drive-daemon/mocks"
)

type macTestCtx struct {
	cfg    config.Config
	st     *mocks.Store
	runner *mocks.Runner
	fs     *mocks.FS
}

func initMacTestCtx() (context.Context, *macTestCtx, *macStrategy) {
	tctx := &macTestCtx{
		cfg: config.NewTestConfig(map[string]interface{}{
			config.DriveSyncFolder: "/Users/test/OxiCloudSync",
		}),
		st:     new(mocks.Store),
		runner: new(mocks.Runner),
		fs:     new(mocks.FS),
	}

	strategy := newMacStrategy(tctx.cfg, tctx.st, tctx.runner, tctx.fs)
	strategy.autostart.homeDir = func() (string, error) {
		return "/Users/test", nil
	}

	return context.Background(), tctx, strategy
}

func TestMacStrategy_Mount_Creates_Missing_Mount_Point(t *testing.T) {
	ctx, test, strategy := initMacTestCtx()

	test.fs.On("Exists", "/Users/test/OxiCloud").Return(false)
	test.fs.On("MkdirAll", "/Users/test/OxiCloud", mock.Anything).Return(nil)
	test.runner.On("Run", mock.Anything, macHelperName, "mount",
		"/Users/test/OxiCloud", "/Users/test/OxiCloudSync").
		Return(sys.Output{ExitCode: 0}, nil)
	test.st.On("SetString", mountPointKey(MacOS), "/Users/test/OxiCloud").Return(nil)

	assert.True(t, strategy.Mount(ctx, "/Users/test/OxiCloud"))
	assert.True(t, strategy.IsMounted())
	assert.Equal(t, "/Users/test/OxiCloud", strategy.MountPoint())
	test.fs.AssertCalled(t, "MkdirAll", "/Users/test/OxiCloud", mock.Anything)
}

func TestMacStrategy_Mount_Trims_Trailing_Slash(t *testing.T) {
	ctx, test, strategy := initMacTestCtx()

	test.fs.On("Exists", "/Users/test/OxiCloud").Return(true)
	test.runner.On("Run", mock.Anything, macHelperName, "mount",
		"/Users/test/OxiCloud", "/Users/test/OxiCloudSync").
		Return(sys.Output{ExitCode: 0}, nil)
	test.st.On("SetString", mountPointKey(MacOS), "/Users/test/OxiCloud").Return(nil)

	assert.True(t, strategy.Mount(ctx, "/Users/test/OxiCloud/"))
	assert.Equal(t, "/Users/test/OxiCloud", strategy.MountPoint())
}

func TestMacStrategy_Mount_Is_Idempotent(t *testing.T) {
	ctx, test, strategy := initMacTestCtx()

	test.fs.On("Exists", "/Users/test/OxiCloud").Return(true)
	test.runner.On("Run", mock.Anything, macHelperName, "mount",
		"/Users/test/OxiCloud", "/Users/test/OxiCloudSync").
		Return(sys.Output{ExitCode: 0}, nil)
	test.st.On("SetString", mountPointKey(MacOS), "/Users/test/OxiCloud").Return(nil)

	assert.True(t, strategy.Mount(ctx, "/Users/test/OxiCloud"))
	assert.True(t, strategy.Mount(ctx, "/Users/test/OxiCloud"))

	test.runner.AssertNumberOfCalls(t, "Run", 1)
}

func TestMacStrategy_Unmount_Graceful_Then_Forced(t *testing.T) {
	ctx, test, strategy := initMacTestCtx()

	test.fs.On("Exists", "/Users/test/OxiCloud").Return(true)
	test.runner.On("Run", mock.Anything, macHelperName, "mount",
		"/Users/test/OxiCloud", "/Users/test/OxiCloudSync").
		Return(sys.Output{ExitCode: 0}, nil)
	test.st.On("SetString", mountPointKey(MacOS), "/Users/test/OxiCloud").Return(nil)
	assert.True(t, strategy.Mount(ctx, "/Users/test/OxiCloud"))

	test.runner.On("Run", mock.Anything, "diskutil", "unmount", "/Users/test/OxiCloud").
		Return(sys.Output{ExitCode: 1, Stderr: "Resource busy"}, nil)
	test.runner.On("Run", mock.Anything, "diskutil", "unmount", "force", "/Users/test/OxiCloud").
		Return(sys.Output{ExitCode: 0}, nil)

	assert.True(t, strategy.Unmount(ctx))
	assert.False(t, strategy.IsMounted())
}

func TestMacStrategy_Unmount_Is_Idempotent(t *testing.T) {
	ctx, test, strategy := initMacTestCtx()

	assert.True(t, strategy.Unmount(ctx))
	test.runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything)
}

func TestMacStrategy_Unmount_Failure_Keeps_Record_Mounted(t *testing.T) {
	ctx, test, strategy := initMacTestCtx()

	test.fs.On("Exists", "/Users/test/OxiCloud").Return(true)
	test.runner.On("Run", mock.Anything, macHelperName, "mount",
		"/Users/test/OxiCloud", "/Users/test/OxiCloudSync").
		Return(sys.Output{ExitCode: 0}, nil)
	test.st.On("SetString", mountPointKey(MacOS), "/Users/test/OxiCloud").Return(nil)
	assert.True(t, strategy.Mount(ctx, "/Users/test/OxiCloud"))

	test.runner.On("Run", mock.Anything, "diskutil", "unmount", "/Users/test/OxiCloud").
		Return(sys.Output{ExitCode: 1}, nil)
	test.runner.On("Run", mock.Anything, "diskutil", "unmount", "force", "/Users/test/OxiCloud").
		Return(sys.Output{ExitCode: 1}, nil)

	assert.False(t, strategy.Unmount(ctx))
	assert.True(t, strategy.IsMounted())
}

func TestMacStrategy_CheckRequirements_False_Without_MacFuse(t *testing.T) {
	ctx, test, strategy := initMacTestCtx()

	test.fs.On("Exists", macFusePath).Return(false)
	test.fs.On("Exists", legacyOsxfusePath).Return(false)
	test.fs.On("Writable", mock.Anything).Return(true).Maybe()

	assert.False(t, strategy.CheckRequirements(ctx))
}

func TestMacStrategy_CheckRequirements_Accepts_Legacy_Osxfuse(t *testing.T) {
	ctx, test, strategy := initMacTestCtx()
	strategy.preferred = "/Users/test/OxiCloud"

	test.fs.On("Exists", macFusePath).Return(false)
	test.fs.On("Exists", legacyOsxfusePath).Return(true)
	test.fs.On("Exists", macHelperName).Return(true)
	test.fs.On("Writable", "/Users/test").Return(true)

	assert.True(t, strategy.CheckRequirements(ctx))
}

func TestMacStrategy_CheckRequirements_False_When_Parent_Not_Writable(t *testing.T) {
	ctx, test, strategy := initMacTestCtx()
	strategy.preferred = "/Users/test/OxiCloud"

	test.fs.On("Exists", macFusePath).Return(true)
	test.fs.On("Exists", macHelperName).Return(true)
	test.fs.On("Writable", "/Users/test").Return(false)

	assert.False(t, strategy.CheckRequirements(ctx))
}

func TestMacStrategy_Requirements_And_Limitations_Are_Static(t *testing.T) {
	_, _, strategy := initMacTestCtx()

	assert.NotEmpty(t, strategy.Requirements())
	assert.NotEmpty(t, strategy.Limitations())
}

func TestMacStrategy_SetAutoMount_Writes_Launch_Agent(t *testing.T) {
	ctx, test, strategy := initMacTestCtx()
	strategy.preferred = "/Users/test/OxiCloud"

	test.st.On("SetBool", autoMountKey(MacOS), true).Return(nil)
	test.st.On("SetString", mountPointKey(MacOS), "/Users/test/OxiCloud").Return(nil)
	test.fs.On("MkdirAll", "/Users/test/Library/LaunchAgents", mock.Anything).Return(nil)
	test.fs.On("WriteFile", "/Users/test/Library/LaunchAgents/"+macLaunchAgentFile,
		mock.MatchedBy(func(data []byte) bool {
			plist := string(data)
			return strings.Contains(plist, macLaunchAgentLabel) &&
				strings.Contains(plist, "/Users/test/OxiCloud") &&
				strings.Contains(plist, "/Users/test/OxiCloudSync")
		}), mock.Anything).Return(nil)

	assert.NoError(t, strategy.SetAutoMount(ctx, true))
	assert.True(t, strategy.AutoMount())
	test.fs.AssertExpectations(t)
}

func TestMacStrategy_SetAutoMount_Disabled_Removes_Launch_Agent(t *testing.T) {
	ctx, test, strategy := initMacTestCtx()

	agentPath := "/Users/test/Library/LaunchAgents/" + macLaunchAgentFile
	test.st.On("SetBool", autoMountKey(MacOS), false).Return(nil)
	test.st.On("SetString", mountPointKey(MacOS), DefaultMacMountPoint).Return(nil)
	test.fs.On("Exists", agentPath).Return(true)
	test.fs.On("Remove", agentPath).Return(nil)

	assert.NoError(t, strategy.SetAutoMount(ctx, false))
	test.fs.AssertCalled(t, "Remove", agentPath)
}

func TestMacStrategy_LoadConfiguration_Reconciles_With_Live_Mount_Table(t *testing.T) {
	ctx, test, strategy := initMacTestCtx()

	test.st.On("GetBool", autoMountKey(MacOS)).Return(false, nil)
	test.st.On("GetString", mountPointKey(MacOS)).Return("/Users/test/OxiCloud", nil)
	test.runner.On("Run", mock.Anything, "mount").
		Return(sys.Output{ExitCode: 0, Stdout: "oxifs on /Users/test/OxiCloud (macfuse, nodev, nosuid)\n"}, nil)

	assert.NoError(t, strategy.LoadConfiguration(ctx))
	assert.True(t, strategy.IsMounted())
	assert.Equal(t, "/Users/test/OxiCloud", strategy.MountPoint())
}

func TestMacStrategy_LoadConfiguration_No_Persisted_Mount_Point_Skips_Probe(t *testing.T) {
	ctx, test, strategy := initMacTestCtx()

	test.st.On("GetBool", autoMountKey(MacOS)).Return(false, nil)
	test.st.On("GetString", mountPointKey(MacOS)).Return("", store.ErrKeyNotFound)

	assert.NoError(t, strategy.LoadConfiguration(ctx))
	assert.False(t, strategy.IsMounted())
	test.runner.AssertNotCalled(t, "Run", mock.Anything, "mount")
}

func TestMacStrategy_RevealInFileExplorer_Falls_Back_To_Parent(t *testing.T) {
	ctx, test, strategy := initMacTestCtx()

	test.runner.On("Run", mock.Anything, "open", "-R", "/Users/test/OxiCloud/docs/a.txt").
		Return(sys.Output{ExitCode: 1}, nil)
	test.runner.On("Run", mock.Anything, "open", "/Users/test/OxiCloud/docs").
		Return(sys.Output{ExitCode: 0}, nil)

	assert.True(t, strategy.RevealInFileExplorer(ctx, "/Users/test/OxiCloud/docs/a.txt"))
}
