package drive

import "sync"

// mountRecord tracks the in-memory mount state of a strategy instance. It is
// mutated only as a side effect of a successful mount or unmount, never set
// directly by callers. A mounted record does not guarantee the OS mount is
// still live; callers needing that guarantee re-probe the mount table.
type mountRecord struct {
	mu         sync.RWMutex
	mounted    bool
	mountPoint string
}

func newMountRecord() *mountRecord {
	return &mountRecord{}
}

func (r *mountRecord) setMounted(mountPoint string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mounted = true
	r.mountPoint = mountPoint
}

func (r *mountRecord) setUnmounted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mounted = false
}

func (r *mountRecord) isMounted() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.mounted
}

func (r *mountRecord) getMountPoint() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.mountPoint
}
