package database

import (
	"database/sql"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"paperjet/internal/platform/config"
)

// New opens the billing database. A single SQLite file is the only
// durable store; every read and write is an independent short statement,
// so the default pool settings are deliberately conservative.
func New(cfg config.DatabaseConfig) (*sql.DB, error) {
	dsn := cfg.Path
	if strings.HasPrefix(dsn, "file:") {
		dsn = dsn[5:]
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}

	maxConns := cfg.MaxConnections
	if maxConns <= 0 {
		maxConns = 10
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}
