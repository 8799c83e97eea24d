// Package postgres implements the repositories on PostgreSQL with sqlx and squirrel.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"ArticlesPublisher/internal/domain"
	"ArticlesPublisher/internal/ports"
)

const uniqueViolation = "23505"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Open connects with the lib/pq driver and verifies the connection.
func Open(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

// Ports bundles the repositories backed by db.
func Ports(db *sqlx.DB) ports.Store {
	return ports.Store{
		Sources:      &SourceRepository{db: db},
		Items:        &FeedItemRepository{db: db},
		Generations:  &GenerationRepository{db: db},
		Articles:     &ArticleRepository{db: db},
		Images:       &ImageRepository{db: db},
		Publications: &PublicationRepository{db: db},
		Rules:        &RuleRepository{db: db},
		Locker:       &Locker{db: db},
		Close:        db.Close,
	}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func wrapNotFound(err error, what, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", what, id, domain.ErrNotFound)
	}
	return fmt.Errorf("get %s %s: %w", what, id, err)
}

func selectRows[R any](ctx context.Context, db *sqlx.DB, query sq.Sqlizer) ([]R, error) {
	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var rows []R
	if err := db.SelectContext(ctx, &rows, stmt, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

func getRow[R any](ctx context.Context, db *sqlx.DB, query sq.Sqlizer) (R, error) {
	var row R
	stmt, args, err := query.ToSql()
	if err != nil {
		return row, fmt.Errorf("build query: %w", err)
	}
	err = db.GetContext(ctx, &row, stmt, args...)
	return row, err
}

func exec(ctx context.Context, db *sqlx.DB, query sq.Sqlizer) (int64, error) {
	stmt, args, err := query.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}
	res, err := db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// casUpdate runs update (already constrained on id and the expected status) and
// tells a missing row from a lost race.
func casUpdate(ctx context.Context, db *sqlx.DB, table, id string, update sq.UpdateBuilder) error {
	n, err := exec(ctx, db, update)
	if err != nil {
		return fmt.Errorf("update %s %s: %w", table, id, err)
	}
	if n > 0 {
		return nil
	}

	var exists bool
	stmt, args, err := psql.Select("1").Prefix("SELECT EXISTS (").From(table).Where(sq.Eq{"id": id}).Suffix(")").ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if err := db.GetContext(ctx, &exists, stmt, args...); err != nil {
		return fmt.Errorf("check %s %s: %w", table, id, err)
	}
	if !exists {
		return fmt.Errorf("%s %s: %w", table, id, domain.ErrNotFound)
	}
	return fmt.Errorf("%s %s: %w", table, id, domain.ErrStaleState)
}
