// Package sqlite implements the relational storage backend. Local keys are
// dense integers assigned by AUTOINCREMENT; relationships live in join
// tables; vectors are packed float32 blobs scanned in-process.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	sqlite3 "modernc.org/sqlite"

	"ai-knowledgebase-be/internal/storage"
	"ai-knowledgebase-be/internal/tenant"
)

//go:embed schema.sql
var schemaSQL string

var (
	_ storage.IDriver       = (*Driver)(nil)
	_ storage.ISearchDriver = (*Driver)(nil)
)

// Driver implements storage.IDriver and storage.ISearchDriver over a
// single SQLite database shared by all tenants, isolated per-row by the
// namespace column.
type Driver struct {
	db *sql.DB
	// scorerPool bounds the goroutines doing cosine math during vector
	// search so a large scan cannot starve the scheduler.
	scorerPool int
}

// Open opens (or creates) the database at path and applies the schema.
// Use ":memory:" for an ephemeral instance.
func Open(path string) (*Driver, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}

	// A single writer connection avoids SQLITE_BUSY on concurrent
	// mutations; reads still interleave via the shared cache.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: applying schema: %v", storage.ErrUnavailable, err)
	}

	return &Driver{db: db, scorerPool: 4}, nil
}

func (d *Driver) Close() error {
	return d.db.Close()
}

// DB exposes the underlying handle for the queue store, which shares the
// database file with the entity tables.
func (d *Driver) DB() *sql.DB {
	return d.db
}

// scope extracts the tenant namespace or fails.
func scope(ctx context.Context) (tenant.Context, error) {
	tc, ok := tenant.FromContext(ctx)
	if !ok {
		return tenant.Context{}, storage.ErrTenantScope
	}
	return tc, nil
}

// mapErr folds backend errors into the storage taxonomy. Constraint codes
// (SQLITE_CONSTRAINT and its extended forms) become ErrConstraint; other
// engine or connection failures become ErrUnavailable.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	var serr *sqlite3.Error
	if errors.As(err, &serr) {
		if serr.Code()&0xff == 19 {
			return fmt.Errorf("%w: %v", storage.ErrConstraint, err)
		}
		return fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", storage.ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
}

func isConstraint(err error) bool {
	var serr *sqlite3.Error
	return errors.As(err, &serr) && serr.Code()&0xff == 19
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
