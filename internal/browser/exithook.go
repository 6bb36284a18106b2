package browser

import (
	"slices"
	"sync"
)

var exitHooks = struct {
	sync.Mutex
	next uint64
	fns  map[uint64]func()
}{fns: map[uint64]func(){}}

// RegisterExitHook schedules fn to run from RunExitHooks. The returned
// function unregisters it; calling it after the hook ran is a no-op.
func RegisterExitHook(fn func()) (unregister func()) {
	exitHooks.Lock()
	defer exitHooks.Unlock()
	exitHooks.next++
	key := exitHooks.next
	exitHooks.fns[key] = fn
	return func() {
		exitHooks.Lock()
		delete(exitHooks.fns, key)
		exitHooks.Unlock()
	}
}

// RunExitHooks runs every registered hook once, newest first. main should
// defer it and call it from its signal handler so sessions that escaped
// their scope still get terminated.
func RunExitHooks() {
	exitHooks.Lock()
	keys := make([]uint64, 0, len(exitHooks.fns))
	fns := exitHooks.fns
	for k := range fns {
		keys = append(keys, k)
	}
	exitHooks.fns = map[uint64]func(){}
	exitHooks.Unlock()

	slices.Sort(keys)
	slices.Reverse(keys)
	for _, k := range keys {
		fns[k]()
	}
}

func pendingExitHooks() int {
	exitHooks.Lock()
	defer exitHooks.Unlock()
	return len(exitHooks.fns)
}
