package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang-collections/collections/stack"
	"golang.org/x/sync/errgroup"

	"github.com/oxicloud/drive-daemon/config"
	"github.com/oxicloud/drive-daemon/core"
	"github.com/oxicloud/drive-daemon/core/drive"
	"github.com/oxicloud/drive-daemon/core/env"
	"github.com/oxicloud/drive-daemon/core/store"
	"github.com/oxicloud/drive-daemon/core/sys"
	w "github.com/oxicloud/drive-daemon/core/watcher"
	"github.com/oxicloud/drive-daemon/log"
)

// App wires the daemon components together and owns their shutdown order.
type App struct {
	eg             *errgroup.Group
	components     *stack.Stack
	cfg            config.Config
	env            env.DriveEnv
	isShuttingDown bool
}

type componentMap struct {
	name      string
	component core.Component
}

func New(cfg config.Config, env env.DriveEnv) *App {
	return &App{
		components:     stack.New(),
		cfg:            cfg,
		env:            env,
		isShuttingDown: false,
	}
}

// Start is the entry point for the app. All components are initialized and
// managed here; components that need cleanup on exit are tracked with Run(),
// blocking ones with RunAsync().
func (a *App) Start(ctx context.Context) error {
	a.eg, ctx = errgroup.WithContext(ctx)

	// setup to detect interruption
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	// init store
	appStore := store.New(
		store.WithPath(a.cfg.GetString(config.DriveStorePath, "")),
	)
	if err := appStore.Open(); err != nil {
		return err
	}
	a.Run("Store", appStore)

	// select the drive strategy for this OS; anything unsupported is a
	// deployment error and stops startup
	strategy, err := drive.New(
		drive.CurrentPlatform(),
		a.cfg,
		appStore,
		sys.NewRunner(),
		sys.NewFS(),
	)
	if err != nil {
		return err
	}

	driveController := drive.NewController(strategy)
	if !driveController.Initialize(ctx) {
		log.Warn("virtual drive feature disabled, daemon continues without it")
	}
	a.Run("DriveController", driveController)

	syncFolder := a.cfg.GetString(config.DriveSyncFolder, "~/OxiCloudSync")
	watcher, err := w.New(w.WithPaths(syncFolder))
	if err != nil {
		return err
	}
	watcher.RegisterHandler(w.NewDriveRefreshHandler(driveController, syncFolder))
	a.Run("FolderWatcher", watcher)

	a.eg.Go(func() error {
		return watcher.Watch(ctx)
	})

	log.Info("Daemon ready")

	// wait for interruption or done signal
	select {
	case <-interrupt:
		log.Debug("Got interrupt signal")
		break
	case <-ctx.Done():
		log.Debug("Got context done signal")
		break
	}

	return a.Shutdown()
}

// Run registers this component to be cleaned up on Shutdown
func (a *App) Run(name string, component core.Component) {
	log.Debug("Starting Component", "name:"+name)
	a.components.Push(&componentMap{
		name:      name,
		component: component,
	})
}

// RunAsync performs the same function as Run() but also accepts a function
// to be run async to initialize the component.
func (a *App) RunAsync(name string, component core.AsyncComponent, fn func() error) {
	log.Debug("Starting Async Component", "name:"+name)
	if a.eg == nil {
		log.Warn("App.RunAsync() should be called after App.Start()")
		return
	}

	a.eg.Go(func() error {
		return fn()
	})

	<-component.WaitForReady()
	a.components.Push(&componentMap{
		name:      name,
		component: component,
	})
}

// Shutdown performs a graceful shutdown of all components added through the
// Run() or RunAsync() functions
func (a *App) Shutdown() error {
	log.Info("Daemon shutdown started")
	a.isShuttingDown = true
	for a.components.Len() > 0 {
		m, ok := a.components.Pop().(*componentMap)
		if ok {
			log.Debug("Shutting down Component", fmt.Sprintf("name:%s", m.name))
			if err := m.component.Shutdown(); err != nil {
				log.Error(fmt.Sprintf("Error shutting down %s", m.name), err)
			}
		}
	}

	err := a.eg.Wait()
	log.Info("Shutdown complete")
	return err
}
