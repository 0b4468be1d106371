package engine

import "sync/atomic"

// CycleLock serializes trade cycles. It is owned by the callers (scheduler
// and API trigger share one instance); the engine itself keeps no running
// state.
type CycleLock struct {
	running atomic.Bool
}

func (l *CycleLock) TryAcquire() bool {
	return l.running.CompareAndSwap(false, true)
}

func (l *CycleLock) Release() {
	l.running.Store(false)
}

func (l *CycleLock) Running() bool {
	return l.running.Load()
}
