// Package database opens the artifact database and applies its schema.
package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"wiki-quiz/internal/config"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx"
	"github.com/jmoiron/sqlx"
	_ "github.com/sijms/go-ora/v2" // registers "oracle"
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // registers "sqlite"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverOracle   = "oracle"
)

func init() {
	sqlx.BindDriver("oracle", sqlx.NAMED)
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// SQLDriverName maps the configured driver to the database/sql driver name.
func SQLDriverName(driver string) (string, error) {
	switch strings.ToLower(driver) {
	case DriverPostgres, "pgx":
		return "pgx", nil
	case DriverSQLite:
		return "sqlite", nil
	case DriverOracle:
		return "oracle", nil
	default:
		return "", fmt.Errorf("unsupported database driver: %s", driver)
	}
}

// Open connects and pings the configured database.
func Open(ctx context.Context, cfg config.DBConfig, dsn string, logger *zap.Logger) (*sqlx.DB, error) {
	driverName, err := SQLDriverName(cfg.Driver)
	if err != nil {
		return nil, err
	}
	if driverName == "sqlite" {
		dsn = sqliteDSN(dsn)
	}

	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.Driver, err)
	}

	if driverName == "sqlite" {
		db.SetMaxOpenConns(1)
	} else if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxOpenConns)
	}
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", cfg.Driver, err)
	}

	if logger != nil {
		logger.Info("Connected to database", zap.String("driver", cfg.Driver))
	}
	return db, nil
}

// sqliteDSN adds a busy timeout and foreign keys unless the DSN already sets pragmas.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
}
