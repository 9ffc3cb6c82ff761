package repository

import (
	"errors"
	"fmt"
	"strings"

	"wiki-quiz/internal/database"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sijms/go-ora/v2/network"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Dialect is the SQL flavour of the artifact database.
type Dialect int

const (
	DialectPostgres Dialect = iota
	DialectSQLite
	DialectOracle
)

func (d Dialect) String() string {
	switch d {
	case DialectSQLite:
		return database.DriverSQLite
	case DialectOracle:
		return database.DriverOracle
	default:
		return database.DriverPostgres
	}
}

// ParseDialect maps a configured driver name to its dialect.
func ParseDialect(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case database.DriverPostgres, "pgx":
		return DialectPostgres, nil
	case database.DriverSQLite:
		return DialectSQLite, nil
	case database.DriverOracle:
		return DialectOracle, nil
	default:
		return 0, fmt.Errorf("unsupported database driver: %s", driver)
	}
}

const (
	pgUniqueViolation     = "23505"
	oracleUniqueViolation = 1
)

// isUniqueViolation reports whether err is a unique constraint failure in any supported engine.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	var oraErr *network.OracleError
	if errors.As(err, &oraErr) {
		return oraErr.ErrCode == oracleUniqueViolation
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "ORA-00001") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}
