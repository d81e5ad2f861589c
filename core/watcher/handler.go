package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/oxicloud/drive-daemon/log"
)

// EventHandler reacts to filesystem events published by the FolderWatcher.
type EventHandler interface {
	OnCreate(ctx context.Context, path string, fileInfo os.FileInfo)
	OnRemove(ctx context.Context, path string, fileInfo os.FileInfo)
	OnWrite(ctx context.Context, path string, fileInfo os.FileInfo)
	OnRename(ctx context.Context, path string, fileInfo os.FileInfo, oldPath string)
	OnMove(ctx context.Context, path string, fileInfo os.FileInfo, oldPath string)
}

// DirectoryRefresher is the slice of the drive controller the refresh
// handler needs.
type DirectoryRefresher interface {
	IsVirtualDriveMounted() bool
	GetVirtualDriveMountPoint() string
	RefreshDirectory(ctx context.Context, path string)
}

// driveRefreshHandler maps sync-folder events onto the mounted drive and
// asks the controller to refresh the affected directory so file managers
// pick up sync-engine writes. Purely best effort.
type driveRefreshHandler struct {
	refresher  DirectoryRefresher
	syncFolder string
}

func NewDriveRefreshHandler(refresher DirectoryRefresher, syncFolder string) EventHandler {
	return &driveRefreshHandler{
		refresher:  refresher,
		syncFolder: syncFolder,
	}
}

func (h *driveRefreshHandler) refresh(ctx context.Context, path string) {
	if !h.refresher.IsVirtualDriveMounted() {
		return
	}

	rel, err := filepath.Rel(h.syncFolder, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		log.Debug("event outside sync folder", "path:"+path)
		return
	}

	target := filepath.Join(h.refresher.GetVirtualDriveMountPoint(), filepath.Dir(rel))
	h.refresher.RefreshDirectory(ctx, target)
}

func (h *driveRefreshHandler) OnCreate(ctx context.Context, path string, fileInfo os.FileInfo) {
	h.refresh(ctx, path)
}

func (h *driveRefreshHandler) OnRemove(ctx context.Context, path string, fileInfo os.FileInfo) {
	h.refresh(ctx, path)
}

func (h *driveRefreshHandler) OnWrite(ctx context.Context, path string, fileInfo os.FileInfo) {
	h.refresh(ctx, path)
}

func (h *driveRefreshHandler) OnRename(ctx context.Context, path string, fileInfo os.FileInfo, oldPath string) {
	h.refresh(ctx, oldPath)
	h.refresh(ctx, path)
}

func (h *driveRefreshHandler) OnMove(ctx context.Context, path string, fileInfo os.FileInfo, oldPath string) {
	h.refresh(ctx, oldPath)
	h.refresh(ctx, path)
}
