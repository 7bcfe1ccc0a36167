// ABOUTME: Mutual exclusion with bounded acquisition timeout
// ABOUTME: Keeps the real-time pull callback from waiting unboundedly
package render

import "time"

// timedLock is a one-slot channel semaphore. Unlike sync.Mutex it supports
// acquisition with a deadline, which both the producer and the real-time
// consumer paths rely on to degrade to a skipped cycle instead of blocking.
type timedLock struct {
	ch chan struct{}
}

func newTimedLock() *timedLock {
	l := &timedLock{ch: make(chan struct{}, 1)}
	l.ch <- struct{}{}
	return l
}

// Lock blocks until the lock is held. Used by paths with no real-time
// deadline (seek, close).
func (l *timedLock) Lock() {
	<-l.ch
}

// TryLockFor attempts to take the lock within d and reports success.
func (l *timedLock) TryLockFor(d time.Duration) bool {
	select {
	case <-l.ch:
		return true
	default:
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-l.ch:
		return true
	case <-timer.C:
		return false
	}
}

// Unlock releases the lock. Calling Unlock without holding it is a
// programmer error and will deadlock a later Lock.
func (l *timedLock) Unlock() {
	l.ch <- struct{}{}
}
