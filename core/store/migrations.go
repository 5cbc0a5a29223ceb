package store

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sync"
	"time"

	"fusionguard/core/utils"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*/*.sql
var migrationsFS embed.FS

// goose keeps dialect and base FS in package globals.
var gooseMu sync.Mutex

type MigrationStatus struct {
	NowUTC         time.Time `json:"now_utc"`
	Dialect        string    `json:"dialect"`
	CurrentVersion int64     `json:"current_version"`
	LatestVersion  int64     `json:"latest_version"`
	HasPending     bool      `json:"has_pending"`
}

func gooseDialect(dialect string) (string, string, error) {
	switch dialect {
	case DialectSQLite:
		return "sqlite3", "migrations/sqlite", nil
	case DialectPostgres:
		return "postgres", "migrations/postgres", nil
	case DialectMySQL:
		return "mysql", "migrations/mysql", nil
	default:
		return "", "", fmt.Errorf("unsupported dialect: %s", dialect)
	}
}

func prepareGoose(db *DB, logger *utils.Logger) (string, error) {
	if db == nil || db.DB == nil {
		return "", fmt.Errorf("nil db")
	}
	name, dir, err := gooseDialect(db.Dialect)
	if err != nil {
		return "", err
	}
	if err := goose.SetDialect(name); err != nil {
		return "", err
	}
	goose.SetBaseFS(migrationsFS)
	if logger != nil {
		goose.SetLogger(logger)
	} else {
		goose.SetLogger(goose.NopLogger())
	}
	return dir, nil
}

func ApplyMigrations(ctx context.Context, db *DB, logger *utils.Logger) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()
	dir, err := prepareGoose(db, logger)
	if err != nil {
		return err
	}
	logger.Printf("applying goose migrations (%s)", db.Dialect)
	if err := goose.UpContext(ctx, db.DB, dir); err != nil {
		return err
	}
	logger.Printf("goose migrations applied")
	return nil
}

func GetMigrationStatus(ctx context.Context, db *DB) (MigrationStatus, error) {
	now := time.Now().UTC()
	if db == nil {
		return MigrationStatus{NowUTC: now}, fmt.Errorf("nil db")
	}
	gooseMu.Lock()
	defer gooseMu.Unlock()
	dir, err := prepareGoose(db, nil)
	if err != nil {
		return MigrationStatus{NowUTC: now}, err
	}
	latest, err := latestMigrationVersion(dir)
	if err != nil {
		return MigrationStatus{NowUTC: now, Dialect: db.Dialect}, err
	}
	current, err := goose.GetDBVersionContext(ctx, db.DB)
	if err != nil {
		return MigrationStatus{NowUTC: now, Dialect: db.Dialect, LatestVersion: latest}, err
	}
	return MigrationStatus{
		NowUTC:         now,
		Dialect:        db.Dialect,
		CurrentVersion: current,
		LatestVersion:  latest,
		HasPending:     latest > current,
	}, nil
}

func latestMigrationVersion(dir string) (int64, error) {
	entries, err := fs.Glob(migrationsFS, dir+"/*.sql")
	if err != nil {
		return 0, err
	}
	var max int64
	for _, p := range entries {
		// filename: 00001_kv_entries.sql
		n, err := goose.NumericComponent(p)
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return max, nil
}
