// Package database centralises sqlx connection helpers for the MySQL
// registration store.  The driver is go-sql-driver/mysql, which also works
// with MariaDB.
//
// Public entry points:
//
//	Open(ctx, dsn)                            – conservative pool sizes.
//	OpenWithOptions(ctx, dsn, maxOpen, maxIdle) – fine-grained control.
//	DSN(template, password)                   – password substitution.
//	Migrate(ctx, db, stmts)                   – idempotent schema setup.
//
// Both Open helpers Ping the database before returning so callers can fail
// fast during bootstrap.  Callers should Close() the returned *sqlx.DB when
// no longer needed.
package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// Open returns a *sqlx.DB with sane defaults: 15 max open, 5 idle, and a
// 30-minute connection lifetime.
func Open(ctx context.Context, dsn string) (*sqlx.DB, error) {
	return OpenWithOptions(ctx, dsn, 15, 5)
}

// OpenWithOptions lets callers tune maxOpen and maxIdle.  Zero values fall
// back to the Open defaults.
func OpenWithOptions(ctx context.Context, dsn string, maxOpen, maxIdle int) (*sqlx.DB, error) {
	if maxOpen <= 0 {
		maxOpen = 15
	}
	if maxIdle <= 0 {
		maxIdle = 5
	}
	db, err := sqlx.Open("mysql", withParseTime(dsn))
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// DSN substitutes password into a template holding one `%s` verb.  A
// template without the verb, or an empty password, is returned unchanged.
func DSN(template, password string) string {
	if password == "" || !strings.Contains(template, "%s") {
		return template
	}
	return fmt.Sprintf(template, password)
}

// withParseTime makes DATETIME columns scan into time.Time.
func withParseTime(dsn string) string {
	if strings.Contains(dsn, "parseTime=") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&parseTime=true"
	}
	return dsn + "?parseTime=true"
}

// Migrate executes each statement in order.  Statements must be
// idempotent (CREATE TABLE IF NOT EXISTS …).
func Migrate(ctx context.Context, db *sqlx.DB, stmts []string) error {
	for i, q := range stmts {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	zap.S().Infow("database migrated", "statements", len(stmts))
	return nil
}
