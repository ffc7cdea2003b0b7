// internal/store/store.go
//
// Registration storage.
//
// Context
// -------
// Two adapters satisfy registry.Store:
//
//   - Memory – process-local maps; the default for development and tests.
//   - MySQL  – sqlx over go-sql-driver/mysql, one row per registration
//     plus an append-only note table.
//
// Both translate their own failure modes into the shared sentinels so the
// engine never needs to know which one it is talking to.
//
// No physical delete exists: `terminated` is the soft delete.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/yanizio/swregistry/internal/config"
	"github.com/yanizio/swregistry/internal/database"
	"github.com/yanizio/swregistry/internal/registry"
)

// Sentinels, shared with the engine.
var (
	ErrNotFound  = registry.ErrRecordNotFound
	ErrDuplicate = registry.ErrRecordExists
)

// Note is one audit entry.
type Note struct {
	Key       string    `db:"registry_key"`
	Text      string    `db:"note"`
	CreatedAt time.Time `db:"created_at"`
}

// Store is registry.Store plus operational helpers.
type Store interface {
	registry.Store
	Notes(ctx context.Context, key string) ([]Note, error)
	Ping(ctx context.Context) error
	Close() error
}

// Open selects the adapter for cfg.  password replaces a `%s` verb in the
// DSN template when non-empty.
func Open(ctx context.Context, cfg config.Database, password string) (Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemory(), nil
	case "mysql":
		db, err := database.OpenWithOptions(ctx, database.DSN(cfg.DSN, password), cfg.MaxOpen, cfg.MaxIdle)
		if err != nil {
			return nil, fmt.Errorf("open mysql: %w", err)
		}
		if cfg.Migrate {
			if err := database.Migrate(ctx, db, Migrations()); err != nil {
				_ = db.Close()
				return nil, err
			}
		}
		return NewMySQL(db), nil
	}
	return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
}
