// Package postgres implements the graph-style storage backend on
// PostgreSQL. Local keys are opaque UUID strings, relationships are edge
// rows, vectors live in pgvector columns queried with the <=> operator.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"ai-knowledgebase-be/internal/storage"
	"ai-knowledgebase-be/internal/tenant"
)

// vectorDim is the pgvector column width. Query vectors of any other
// dimensionality cannot match and are filtered before hitting the engine.
const vectorDim = 768

var (
	_ storage.IDriver       = (*Driver)(nil)
	_ storage.ISearchDriver = (*Driver)(nil)
)

// Driver implements storage.IDriver and storage.ISearchDriver over a
// shared PostgreSQL database, isolated per-row by the namespace column.
type Driver struct {
	db *gorm.DB
}

// Open connects with the pool sizing used across deployments.
func Open(dsn string) (*Driver, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &Driver{db: db}, nil
}

// NewDriver wraps an existing gorm handle, used by tests and migrations.
func NewDriver(db *gorm.DB) *Driver {
	return &Driver{db: db}
}

func (d *Driver) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// DB exposes the gorm handle for the queue store.
func (d *Driver) DB() *gorm.DB {
	return d.db
}

func scope(ctx context.Context) (tenant.Context, error) {
	tc, ok := tenant.FromContext(ctx)
	if !ok {
		return tenant.Context{}, storage.ErrTenantScope
	}
	return tc, nil
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return storage.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey), errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("%w: %v", storage.ErrConstraint, err)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", storage.ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
}

// parseKey turns a RecordID into its UUID key.
func parseKey(id storage.RecordID) (uuid.UUID, error) {
	key, err := uuid.Parse(id.Key)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: non-uuid key in %q", storage.ErrMalformedID, id.String())
	}
	return key, nil
}
