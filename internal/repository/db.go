// Package repository persists the extraction job history. It speaks
// plain database/sql so the same store runs against postgres in
// deployments and sqlite for the CLI and tests.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/tbellec/ladingd/internal/common"
)

const schema = `
CREATE TABLE IF NOT EXISTS extraction_jobs (
	id          TEXT PRIMARY KEY,
	filename    TEXT NOT NULL,
	format      TEXT NOT NULL,
	method      TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL,
	confidence  REAL NOT NULL DEFAULT 0,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	fields      TEXT NOT NULL DEFAULT '{}',
	error       TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_extraction_jobs_created_at ON extraction_jobs (created_at);
`

// DB wraps the sql pool with the driver name so queries can be rebound
// to the right placeholder style.
type DB struct {
	*sql.DB
	driver string
}

// Open connects to the database named by the DSN, applies pool limits
// and runs the schema. postgres DSNs use pgx, anything else is treated
// as a sqlite path.
func Open(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	driver := "sqlite"
	if isPostgres(cfg.DSN) {
		driver = "pgx"
	}

	db, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return nil, common.WrapError(err, "open database")
	}
	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(cfg.MaxConns)
	}
	if cfg.MaxConnLifetime > 0 {
		db.SetConnMaxLifetime(cfg.MaxConnLifetime)
	}

	dialTimeout := cfg.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, common.WrapError(err, "ping database")
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, common.WrapError(err, "apply schema")
	}

	logger.Info("repository.open", "driver", driver)
	return &DB{DB: db, driver: driver}, nil
}

func isPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") ||
		strings.HasPrefix(dsn, "postgresql://")
}

// rebind rewrites ? placeholders to $n for the postgres driver.
func (d *DB) rebind(query string) string {
	if d.driver != "pgx" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
