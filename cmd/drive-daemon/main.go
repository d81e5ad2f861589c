package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/oxicloud/drive-daemon/app"
	"github.com/oxicloud/drive-daemon/config"
	"github.com/oxicloud/drive-daemon/core/env"
	"github.com/oxicloud/drive-daemon/log"
)

var (
	cpuprofile    = flag.String("cpuprofile", "", "write cpu profile to `file`")
	memprofile    = flag.String("memprofile", "", "write memory profile to `file`")
	debugMode     = flag.Bool("debug", false, "run daemon with debug mode for profiling")
	minimized     = flag.Bool("minimized", false, "start without opening any UI surface (used by the autostart entry)")
	mountOnLaunch = flag.Bool("mount-on-launch", false, "mount the virtual drive immediately on startup")
	storePath     = flag.String("store", "", "override the store path")
	syncFolder    = flag.String("sync-folder", "", "override the sync folder path")
	mountPoint    = flag.String("mount-point", "", "override the preferred mount point")
	helperDir     = flag.String("helper-dir", "", "directory holding the bundled mount helpers")
)

func main() {
	// this defer code here ensures all profile defer calls work properly
	returnCode := 0
	defer func() { os.Exit(returnCode) }()

	flag.Parse()

	cf := &config.Flags{
		StorePath:     *storePath,
		SyncFolder:    *syncFolder,
		MountPoint:    *mountPoint,
		HelperDir:     *helperDir,
		MountOnLaunch: *mountOnLaunch,
	}

	if *debugMode {
		log.Debug("Running daemon with profiler. Visit http://localhost:6060/debug/pprof")
		go func() {
			fmt.Println(http.ListenAndServe("localhost:6060", nil))
		}()
	}

	if *cpuprofile != "" {
		cleanupCpuProfile := runCpuProfiler(*cpuprofile)
		defer cleanupCpuProfile()
	}

	// env
	env := env.New()
	log.SetLevel(env.LogLevel())

	if *minimized {
		log.Debug("Started minimized by the autostart entry")
	}

	// load configs
	cfg := config.NewMap(env, cf)

	// setup context
	ctx := context.Background()

	driveApp := app.New(cfg, env)
	// this blocks and returns on exit
	err := driveApp.Start(ctx)

	if *memprofile != "" {
		cleanupMemProfile := runMemProfiler(*memprofile)
		defer cleanupMemProfile()
	}

	if err != nil {
		log.Error("Application startup failed", err)
		returnCode = 1
	}
}

func runCpuProfiler(outputFilePath string) func() {
	f, err := os.Create(outputFilePath)
	if err != nil {
		log.Error("Could not create CPU profile", err)
		return func() {}
	}

	if err := pprof.StartCPUProfile(f); err != nil {
		log.Error("Could not start CPU profile", err)
	}

	// return cleanup function
	return func() {
		pprof.StopCPUProfile()
		if f != nil {
			_ = f.Close() // error is ignored
		}
	}
}

func runMemProfiler(outputFilePath string) func() {
	f, err := os.Create(outputFilePath)
	if err != nil {
		log.Error("Could not create memory profile", err)
		return func() {}
	}

	runtime.GC()
	if err := pprof.WriteHeapProfile(f); err != nil {
		log.Error("Could not write memory profile", err)
	}

	return func() {
		if f != nil {
			_ = f.Close() // error is ignored
		}
	}
}
