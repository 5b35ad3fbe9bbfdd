// Package flock provides advisory file locks for cross-process coordination.
//
// Multiple independent krep invocations (and a background rollup) may touch
// the same data directory, so mutual exclusion must hold across processes,
// not goroutines. Locks are syscall-level flock(2) locks scoped to an open
// file: shared for reads, exclusive for writes. Acquisition is non-blocking
// with a bounded retry window; callers get ErrTimeout instead of a deadlock
// and can retry the whole operation.
package flock

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"syscall"
	"time"
)

// ErrTimeout is returned when a lock cannot be acquired within the wait
// window. The operation is safe to retry.
var ErrTimeout = errors.New("flock: timed out waiting for file lock")

// retryInterval is how often a contended lock is re-attempted.
const retryInterval = 10 * time.Millisecond

// Shared acquires a read lock on f, waiting at most wait. The returned
// release func is idempotent and must be called on every exit path.
func Shared(f *os.File, wait time.Duration) (func(), error) {
	return acquire(f, syscall.LOCK_SH, wait)
}

// Exclusive acquires a write lock on f, waiting at most wait. The returned
// release func is idempotent and must be called on every exit path.
func Exclusive(f *os.File, wait time.Duration) (func(), error) {
	return acquire(f, syscall.LOCK_EX, wait)
}

func acquire(f *os.File, how int, wait time.Duration) (func(), error) {
	deadline := time.Now().Add(wait)
	for {
		err := syscall.Flock(int(f.Fd()), how|syscall.LOCK_NB)
		if err == nil {
			break
		}
		if !errors.Is(err, syscall.EWOULDBLOCK) && !errors.Is(err, syscall.EAGAIN) {
			return nil, fmt.Errorf("flock %s: %w", f.Name(), err)
		}
		if time.Now().After(deadline) {
			slog.Warn("flock: lock contended past deadline", "path", f.Name(), "wait", wait)
			return nil, fmt.Errorf("%w: %s", ErrTimeout, f.Name())
		}
		time.Sleep(retryInterval)
	}

	released := false
	release := func() {
		if released {
			return
		}
		released = true
		if err := syscall.Flock(int(f.Fd()), syscall.LOCK_UN); err != nil {
			// The lock also dies with the descriptor, so a failed unlock
			// only delays release until the file is closed.
			slog.Warn("flock: unlock failed", "path", f.Name(), "error", err)
		}
	}
	return release, nil
}
