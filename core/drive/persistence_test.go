package drive

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/oxicloud/drive-daemon/config"
	"github.com/oxicloud/drive-daemon/core/store"
	"github.com/oxicloud/drive-daemon/mocks"
)

// Round trip through a real store: what one strategy instance persists, a
// fresh instance on the same store must observe.
func TestLinuxStrategy_Persisted_Configuration_Survives_A_Fresh_Instance(t *testing.T) {
	st := store.New(store.WithPath(t.TempDir()))
	assert.NoError(t, st.Open())
	defer st.Close()

	ctx := context.Background()
	cfg := config.NewTestConfig(map[string]interface{}{
		config.DriveSyncFolder: "/home/test/OxiCloudSync",
	})

	first := newLinuxStrategy(cfg, st, new(mocks.Runner), newAutostartFS())
	first.lookupEnv = func(string) string { return "" }
	first.autostart.homeDir = func() (string, error) { return "/home/test", nil }
	first.autostart.executable = func() (string, error) { return "/usr/bin/drive-daemon", nil }
	first.preferred = "/home/test/OxiCloud"

	assert.NoError(t, first.SetAutoMount(ctx, true))

	secondFS := new(mocks.FS)
	secondFS.On("ReadFile", procMountsPath).Return([]byte("proc /proc proc rw 0 0\n"), nil)

	second := newLinuxStrategy(cfg, st, new(mocks.Runner), secondFS)
	second.lookupEnv = func(string) string { return "" }

	assert.NoError(t, second.LoadConfiguration(ctx))
	assert.True(t, second.AutoMount())
	assert.Equal(t, "/home/test/OxiCloud", second.preferredMountPoint())
	assert.False(t, second.IsMounted(), "no live mount means the record stays unmounted")
}

func TestLinuxStrategy_Disabling_AutoMount_Survives_A_Fresh_Instance(t *testing.T) {
	st := store.New(store.WithPath(t.TempDir()))
	assert.NoError(t, st.Open())
	defer st.Close()

	ctx := context.Background()
	cfg := config.NewTestConfig(nil)

	first := newLinuxStrategy(cfg, st, new(mocks.Runner), newAutostartFS())
	first.autostart.homeDir = func() (string, error) { return "/home/test", nil }
	first.autostart.executable = func() (string, error) { return "/usr/bin/drive-daemon", nil }

	assert.NoError(t, first.SetAutoMount(ctx, true))
	assert.NoError(t, first.SetAutoMount(ctx, false))

	secondFS := new(mocks.FS)
	second := newLinuxStrategy(cfg, st, new(mocks.Runner), secondFS)
	secondFS.On("ReadFile", procMountsPath).Return([]byte(""), nil).Maybe()

	assert.NoError(t, second.LoadConfiguration(ctx))
	assert.False(t, second.AutoMount())
}

// newAutostartFS builds an FS mock that accepts any autostart artifact
// writes and removals.
func newAutostartFS() *mocks.FS {
	fs := new(mocks.FS)
	fs.On("MkdirAll", mock.Anything, mock.Anything).Return(nil).Maybe()
	fs.On("WriteFile", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	fs.On("Exists", mock.Anything).Return(true).Maybe()
	fs.On("Remove", mock.Anything).Return(nil).Maybe()
	return fs
}
