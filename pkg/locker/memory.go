package locker

import (
	"context"
	"fmt"
	"sync"
)

type keyEntry struct {
	sem  chan struct{}
	refs int
}

// MemoryLocker блокировки в пределах одного процесса.
// Записи для ключей удаляются, когда их никто не держит и не ждёт.
type MemoryLocker struct {
	mu   sync.Mutex
	keys map[string]*keyEntry
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{keys: make(map[string]*keyEntry)}
}

func (l *MemoryLocker) Lock(ctx context.Context, keys ...string) (func(), error) {
	keys = normalizeKeys(keys)
	acquired := make([]string, 0, len(keys))

	release := func() {
		for i := len(acquired) - 1; i >= 0; i-- {
			l.unlockKey(acquired[i])
		}
	}

	for _, key := range keys {
		if err := l.lockKey(ctx, key); err != nil {
			release()
			return nil, err
		}
		acquired = append(acquired, key)
	}

	var once sync.Once
	return func() { once.Do(release) }, nil
}

func (l *MemoryLocker) lockKey(ctx context.Context, key string) error {
	l.mu.Lock()
	e, ok := l.keys[key]
	if !ok {
		e = &keyEntry{sem: make(chan struct{}, 1)}
		l.keys[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		l.dropRef(key, e)
		return fmt.Errorf("%w: key=%s: %v", ErrLockTimeout, key, ctx.Err())
	}
}

func (l *MemoryLocker) unlockKey(key string) {
	l.mu.Lock()
	e := l.keys[key]
	l.mu.Unlock()

	<-e.sem
	l.dropRef(key, e)
}

func (l *MemoryLocker) dropRef(key string, e *keyEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(l.keys, key)
	}
}

// size количество отслеживаемых ключей
func (l *MemoryLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.keys)
}
