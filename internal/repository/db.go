// Package repository persists batch runs so results can be re-exported
// and runs compared later. Two backends share the schema: modernc
// SQLite (the default, file-backed or in-memory) and Postgres through
// the pgx stdlib driver.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"markscan/internal/common"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id             TEXT PRIMARY KEY,
		source_dir     TEXT NOT NULL,
		output_dir     TEXT NOT NULL,
		model_version  TEXT NOT NULL,
		started_at     TIMESTAMP NOT NULL,
		finished_at    TIMESTAMP,
		sheets_ok      INTEGER NOT NULL DEFAULT 0,
		sheets_skipped INTEGER NOT NULL DEFAULT 0,
		sheets_failed  INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS sheets (
		id       TEXT PRIMARY KEY,
		run_id   TEXT NOT NULL REFERENCES runs(id),
		path     TEXT NOT NULL,
		status   TEXT NOT NULL,
		reason   TEXT NOT NULL DEFAULT '',
		crossed  INTEGER NOT NULL DEFAULT 0,
		empty    INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS boxes (
		sheet_id   TEXT NOT NULL REFERENCES sheets(id),
		question   INTEGER NOT NULL,
		option_num INTEGER NOT NULL,
		label      TEXT NOT NULL,
		confidence REAL NOT NULL,
		PRIMARY KEY (sheet_id, question, option_num)
	)`,
}

// Open connects to the store behind the DSN, pings it within the dial
// timeout and applies the idempotent schema. postgres:// DSNs use pgx,
// anything else the sqlite driver. The driver name is returned so query
// placeholders can be rebound.
func Open(ctx context.Context, cfg common.StoreConfig, logger *slog.Logger) (*sql.DB, string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	driver := "sqlite"
	if strings.HasPrefix(cfg.DSN, "postgres://") || strings.HasPrefix(cfg.DSN, "postgresql://") {
		driver = "pgx"
	}
	logger.Info("connecting to result store", "driver", driver, "dsn", cfg.DSN)

	db, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return nil, driver, common.NewAppError("DB_ERROR", "open store", err)
	}
	if driver == "sqlite" {
		// modernc sqlite serializes writes; a single conn avoids
		// table-lock errors under the worker pool.
		db.SetMaxOpenConns(1)
	}

	pingCtx := ctx
	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, driver, common.NewAppError("DB_ERROR", "ping store", err)
	}

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, driver, common.NewAppError("DB_ERROR", "apply schema", err)
		}
	}

	logger.Info("result store ready")
	return db, driver, nil
}

// rebind rewrites ?-placeholders into $N for the Postgres driver.
func rebind(driver, query string) string {
	if driver != "pgx" {
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
