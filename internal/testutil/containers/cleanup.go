//go:build integration

package containers

import (
	"fmt"
	"sync"
	"testing"
)

type namedCleanup struct {
	name string
	fn   func() error
}

// CleanupManager tears down test resources in LIFO order, so dependents
// (clients, connections) go before the containers they point at.
type CleanupManager struct {
	mu    sync.Mutex
	stack []namedCleanup
}

// NewCleanupManager creates an empty manager.
func NewCleanupManager() *CleanupManager {
	return &CleanupManager{}
}

// Add registers a named cleanup. Later additions run first.
func (cm *CleanupManager) Add(name string, fn func() error) {
	cm.mu.Lock()
	cm.stack = append(cm.stack, namedCleanup{name: name, fn: fn})
	cm.mu.Unlock()
}

// Cleanup runs every registered function in LIFO order, collecting errors
// rather than stopping at the first. The stack is detached before running
// so a cleanup may safely call Add.
func (cm *CleanupManager) Cleanup() []error {
	cm.mu.Lock()
	stack := cm.stack
	cm.stack = nil
	cm.mu.Unlock()

	var errs []error
	for i := len(stack) - 1; i >= 0; i-- {
		if err := stack[i].fn(); err != nil {
			errs = append(errs, fmt.Errorf("%s cleanup failed: %w", stack[i].name, err))
		}
	}
	return errs
}

// RegisterTestCleanup hooks the manager into t.Cleanup so teardown runs
// even when the test panics.
func (cm *CleanupManager) RegisterTestCleanup(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		for _, err := range cm.Cleanup() {
			t.Errorf("cleanup error: %v", err)
		}
	})
}

// CleanupOnce guards a teardown that may be reached from several paths
// (defer plus TestMain exit); only the first call runs it.
type CleanupOnce struct {
	once sync.Once
	fn   func() error
	err  error
}

// NewCleanupOnce wraps fn.
func NewCleanupOnce(fn func() error) *CleanupOnce {
	return &CleanupOnce{fn: fn}
}

// Do runs the wrapped function on the first call and returns that result
// on every call.
func (co *CleanupOnce) Do() error {
	co.once.Do(func() { co.err = co.fn() })
	return co.err
}
