package watcher

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/radovskyb/watcher"

	"github.com/oxicloud/drive-daemon/log"
)

var (
	ErrFolderPathNotFound = errors.New("could not find a folder path for watcher")
)

// FolderWatcher polls the sync folder and publishes change events to its
// handlers. The drive subsystem uses it to refresh mounted directories after
// the sync engine writes into the folder.
type FolderWatcher struct {
	w *watcher.Watcher

	lock        sync.Mutex
	publishLock sync.RWMutex
	options     watcherOptions
	started     bool
	closed      bool
	handlers    []EventHandler
}

type watcherOptions struct {
	paths    []string
	interval time.Duration
}

type Option func(o *watcherOptions)

func WithPaths(paths ...string) Option {
	return func(o *watcherOptions) {
		o.paths = append(o.paths, paths...)
	}
}

func WithInterval(interval time.Duration) Option {
	return func(o *watcherOptions) {
		if interval > 0 {
			o.interval = interval
		}
	}
}

// New creates a new folder watcher for the given paths. Defaults to the
// current working directory when no path is configured.
func New(configs ...Option) (*FolderWatcher, error) {
	options := watcherOptions{interval: time.Millisecond * 100}
	for _, config := range configs {
		config(&options)
	}

	if len(options.paths) == 0 {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		options.paths = append(options.paths, cwd)
	}

	w := watcher.New()

	for _, path := range options.paths {
		if home, err := homedir.Dir(); err == nil {
			// If the root directory contains ~, we replace it with the actual home directory
			path = strings.Replace(path, "~", home, 1)
		}

		if path == "" {
			return nil, ErrFolderPathNotFound
		}

		if err := w.AddRecursive(path); err != nil {
			return nil, err
		}
	}

	return &FolderWatcher{
		w:       w,
		options: options,
	}, nil
}

func (fw *FolderWatcher) RegisterHandler(handler EventHandler) {
	fw.publishLock.Lock()
	defer fw.publishLock.Unlock()
	fw.handlers = append(fw.handlers, handler)
}

// Watch will start listening for changes on the FolderWatcher paths and
// trigger the handlers with any update events. This is a blocking operation.
func (fw *FolderWatcher) Watch(ctx context.Context) error {
	fw.setToStarted()

	go func() {
		for {
			select {
			case <-fw.w.Closed:
				log.Debug("Watcher graceful shutdown triggered")
				return
			case <-ctx.Done():
				fw.Close()
			case event, ok := <-fw.w.Event:
				if ok {
					fw.publishEvent(ctx, event)
				}
			case err, ok := <-fw.w.Error:
				if !ok {
					return
				}
				log.Error("watcher error", err)
			}
		}
	}()

	log.Info("Starting watcher", fmt.Sprintf("paths:%s", fw.options.paths))
	// This is blocking
	err := fw.w.Start(fw.options.interval)
	fw.started = false
	if err != nil {
		return err
	}

	return nil
}

func (fw *FolderWatcher) setToStarted() {
	fw.lock.Lock()
	defer fw.lock.Unlock()
	if fw.started {
		return
	}
	fw.started = true
}

func (fw *FolderWatcher) publishEvent(ctx context.Context, event watcher.Event) {
	fw.publishLock.RLock()
	defer fw.publishLock.RUnlock()

	if isBlacklisted(event.Path, event.FileInfo) {
		log.Debug("Skipping blacklisted file/folder event")
		return
	}

	for _, handler := range fw.handlers {
		publishEventToHandler(ctx, handler, event)
	}
}

func publishEventToHandler(
	ctx context.Context,
	handler EventHandler,
	event watcher.Event,
) {
	switch event.Op {
	case watcher.Create:
		handler.OnCreate(ctx, event.Path, event.FileInfo)
	case watcher.Remove:
		handler.OnRemove(ctx, event.Path, event.FileInfo)
	case watcher.Write:
		handler.OnWrite(ctx, event.Path, event.FileInfo)
	case watcher.Rename:
		handler.OnRename(ctx, event.Path, event.FileInfo, event.OldPath)
	case watcher.Move:
		handler.OnMove(ctx, event.Path, event.FileInfo, event.OldPath)
	}
}

// Close will stop the watching operation and unblock watch calls
func (fw *FolderWatcher) Close() {
	fw.lock.Lock()
	defer fw.lock.Unlock()

	if !fw.started || fw.closed {
		return
	}

	fw.closed = true
	fw.w.Close()
}

// Shutdown implements the app component contract.
func (fw *FolderWatcher) Shutdown() error {
	fw.Close()
	return nil
}

// isBlacklisted returns true if the file or path is not a supported entry
// to trigger file watcher event handlers
func isBlacklisted(path string, fileInfo os.FileInfo) bool {
	if fileInfo != nil && fileInfo.Name() == ".DS_Store" {
		return true
	}

	return false
}
