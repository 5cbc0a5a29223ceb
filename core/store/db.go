package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"fusionguard/config"
	"fusionguard/core/utils"

	"github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
	DialectMySQL    = "mysql"
)

// DB is a database handle that remembers which SQL dialect it speaks.
type DB struct {
	*sql.DB
	Dialect string
}

// NewDB opens the SQL backend named by cfg.DBDriver. An empty driver means
// postgres when a URL is set and sqlite otherwise.
func NewDB(cfg config.StorageConfig, logger *utils.Logger) (*DB, error) {
	dialect, driverName, dsn, err := resolveDSN(cfg)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		logger.Errorf("store: open %s: %v", dialect, err)
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}
	if dialect == DialectSQLite {
		// modernc sqlite serialises writers; one connection avoids SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	}
	logger.Printf("store: opened %s backend", dialect)
	return &DB{DB: db, Dialect: dialect}, nil
}

func resolveDSN(cfg config.StorageConfig) (dialect, driverName, dsn string, err error) {
	url := strings.TrimSpace(cfg.DBURL)
	dialect = strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	switch {
	case dialect == "pg":
		dialect = DialectPostgres
	case dialect == "" && url != "":
		dialect = DialectPostgres
	case dialect == "":
		dialect = DialectSQLite
	}
	switch dialect {
	case DialectPostgres:
		if url == "" {
			return "", "", "", errors.New("FUSIONGUARD_DB_URL is required for postgres")
		}
		return dialect, postgresDriverName, url, nil
	case DialectMySQL:
		dsn, err = mysqlDSN(url)
		return dialect, "mysql", dsn, err
	case DialectSQLite:
		path := strings.TrimSpace(cfg.DBPath)
		if path == "" {
			return "", "", "", errors.New("DBPath is required for sqlite")
		}
		return dialect, "sqlite", path, nil
	}
	return "", "", "", fmt.Errorf("unsupported db driver: %s", dialect)
}

func mysqlDSN(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("FUSIONGUARD_DB_URL is required for mysql")
	}
	raw = strings.TrimPrefix(raw, "mysql://")
	mc, err := mysql.ParseDSN(raw)
	if err != nil {
		return "", err
	}
	mc.ParseTime = true
	return mc.FormatDSN(), nil
}
