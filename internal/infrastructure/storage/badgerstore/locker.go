package badgerstore

import (
	"context"
	"sync"

	"ArticlesPublisher/internal/ports"
)

// Locker is a process-local advisory lock table; the embedded store has a
// single writer process.
type Locker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

var _ ports.Locker = (*Locker)(nil)

// NewLocker returns an empty lock table.
func NewLocker() *Locker {
	return &Locker{held: map[string]struct{}{}}
}

// TryLock never blocks.
func (l *Locker) TryLock(ctx context.Context, name string) (func(), bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.held[name]; busy {
		return nil, false, nil
	}
	l.held[name] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, name)
			l.mu.Unlock()
		})
	}, true, nil
}
