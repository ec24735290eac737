package locker

import (
	"context"
	"errors"
	"slices"
	"time"
)

var (
	// ErrLockTimeout не удалось захватить блокировку до истечения контекста или таймаута
	ErrLockTimeout = errors.New("locker: lock acquisition timed out")

	// ErrLockBackend ошибка хранилища блокировок
	ErrLockBackend = errors.New("locker: backend error")
)

// Locker захватывает набор именованных блокировок.
// Ключи захватываются в отсортированном порядке, что исключает взаимоблокировки
// между вызывающими с пересекающимися наборами ключей.
type Locker interface {
	Lock(ctx context.Context, keys ...string) (unlock func(), err error)
}

// normalizeKeys сортирует ключи и убирает дубликаты
func normalizeKeys(keys []string) []string {
	out := slices.Clone(keys)
	slices.Sort(out)
	return slices.Compact(out)
}

// WaitObserver получатель длительности ожидания блокировок (*metrics.Metrics)
type WaitObserver interface {
	ObserveLockWait(backend string, d time.Duration)
}

type instrumented struct {
	next     Locker
	backend  string
	observer WaitObserver
}

// Instrumented добавляет замер времени ожидания блокировок
func Instrumented(next Locker, backend string, observer WaitObserver) Locker {
	if observer == nil {
		return next
	}
	return &instrumented{next: next, backend: backend, observer: observer}
}

func (l *instrumented) Lock(ctx context.Context, keys ...string) (func(), error) {
	start := time.Now()
	unlock, err := l.next.Lock(ctx, keys...)
	l.observer.ObserveLockWait(l.backend, time.Since(start))
	return unlock, err
}
