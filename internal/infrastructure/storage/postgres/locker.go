package postgres

import (
	"context"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"

	"ArticlesPublisher/internal/ports"
)

// Locker takes session-level advisory locks on a dedicated connection, so the
// lock is released with the connection if the process dies.
type Locker struct {
	db *sqlx.DB
}

var _ ports.Locker = (*Locker)(nil)

func (l *Locker) TryLock(ctx context.Context, name string) (func(), bool, error) {
	conn, err := l.db.Connx(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.GetContext(ctx, &acquired, "SELECT pg_try_advisory_lock(hashtext($1))", name); err != nil {
		_ = conn.Close()
		return nil, false, fmt.Errorf("try advisory lock %s: %w", name, err)
	}
	if !acquired {
		_ = conn.Close()
		return nil, false, nil
	}

	var once sync.Once
	unlock := func() {
		once.Do(func() {
			_, _ = conn.ExecContext(context.Background(), "SELECT pg_advisory_unlock(hashtext($1))", name)
			_ = conn.Close()
		})
	}
	return unlock, true, nil
}
