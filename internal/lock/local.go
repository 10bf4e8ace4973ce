package lock

import (
	"context"
	"sync"
	"time"
)

type localEntry struct {
	ch   chan struct{}
	refs int
}

// LocalLocker implements Locker with in-process keyed mutexes. It is used
// when no Redis is configured and only serializes within one process.
type LocalLocker struct {
	mu      sync.Mutex
	entries map[string]*localEntry
	opts    Options
}

// NewLocalLocker creates an in-process locker
func NewLocalLocker(opts Options) *LocalLocker {
	return &LocalLocker{
		entries: make(map[string]*localEntry),
		opts:    opts.withDefaults(),
	}
}

// Acquire implements Locker
func (l *LocalLocker) Acquire(ctx context.Context, key string) (Release, error) {
	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &localEntry{ch: make(chan struct{}, 1)}
		l.entries[key] = e
	}
	e.refs++
	l.mu.Unlock()

	timer := time.NewTimer(l.opts.Wait)
	defer timer.Stop()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		l.unref(key, e)
		return nil, ctx.Err()
	case <-timer.C:
		l.unref(key, e)
		return nil, busyError(key)
	}

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			<-e.ch
			l.unref(key, e)
		})
		return nil
	}, nil
}

func (l *LocalLocker) unref(key string, e *localEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
	}
}
