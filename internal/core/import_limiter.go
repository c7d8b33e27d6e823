package core

// import_limiter.go enforces the single-writer rule for imports.
//
// Imports hold one transaction for the whole file and race on natural keys
// if run side by side, so the service admits one at a time. A second
// caller waits up to maxWait for the slot and then fails with
// ErrImportBusy without touching storage.

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// ErrImportBusy is returned when another import holds the slot past the
// wait timeout.
var ErrImportBusy = errors.New("too many imports in progress, please try again later")

// DefaultMaxWaitTime is how long to wait for the import slot before rejecting.
const DefaultMaxWaitTime = 30 * time.Second

// ImportLimiter is a semaphore sized to the number of concurrent imports
// allowed, which is 1 for the import service.
type ImportLimiter struct {
	slots   chan struct{}
	maxWait time.Duration
	active  atomic.Int32
}

// NewImportLimiter creates a limiter admitting at most capacity imports.
func NewImportLimiter(capacity int, maxWait time.Duration) *ImportLimiter {
	if capacity <= 0 {
		capacity = 1
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}
	return &ImportLimiter{
		slots:   make(chan struct{}, capacity),
		maxWait: maxWait,
	}
}

// Acquire takes a slot, waiting at most maxWait. The caller must Release
// after a nil return.
func (l *ImportLimiter) Acquire(ctx context.Context) error {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		l.active.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrImportBusy
	}
}

// Release frees a slot taken by Acquire.
func (l *ImportLimiter) Release() {
	l.active.Add(-1)
	<-l.slots
}

// ActiveCount returns the number of imports holding a slot.
func (l *ImportLimiter) ActiveCount() int {
	return int(l.active.Load())
}

// Available returns the number of free slots.
func (l *ImportLimiter) Available() int {
	return cap(l.slots) - len(l.slots)
}

// WaitForDrain blocks until no import is running or ctx is done.
// Used during shutdown.
func (l *ImportLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.ActiveCount() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// ImportLimiterStatus is a point-in-time view of the limiter.
type ImportLimiterStatus struct {
	Active    int `json:"active"`
	Available int `json:"available"`
	Capacity  int `json:"capacity"`
}

func (l *ImportLimiter) Status() ImportLimiterStatus {
	return ImportLimiterStatus{
		Active:    l.ActiveCount(),
		Available: l.Available(),
		Capacity:  cap(l.slots),
	}
}
