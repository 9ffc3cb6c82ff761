package database

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

//go:embed migrations
var migrationsFS embed.FS

// RunMigrations brings the schema up to date. Postgres and SQLite go through
// golang-migrate; Oracle applies the numbered .up.sql files in order.
func RunMigrations(ctx context.Context, db *sqlx.DB, driver string, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch strings.ToLower(driver) {
	case DriverOracle:
		return runOracleMigrations(ctx, db, logger)
	case DriverPostgres, "pgx", DriverSQLite:
	default:
		return fmt.Errorf("unsupported database driver: %s", driver)
	}

	dir := "migrations/" + strings.ToLower(driver)
	if driver == "pgx" {
		dir = "migrations/postgres"
	}
	src, err := iofs.New(migrationsFS, dir)
	if err != nil {
		return fmt.Errorf("could not open migrations %s: %w", dir, err)
	}

	var target migratedb.Driver
	if strings.ToLower(driver) == DriverSQLite {
		target, err = migratesqlite.WithInstance(db.DB, &migratesqlite.Config{})
	} else {
		target, err = migratepgx.WithInstance(db.DB, &migratepgx.Config{})
	}
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, driver, target)
	if err != nil {
		return fmt.Errorf("could not create migrator: %w", err)
	}
	// m.Close is not called: the sqlite driver would close the shared *sql.DB.

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("Database schema is up to date", zap.String("driver", driver))
			return nil
		}
		return fmt.Errorf("migration failed: %w", err)
	}
	version, dirty, _ := m.Version()
	logger.Info("Migrations completed successfully",
		zap.String("driver", driver), zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

// oracleObjectExists is ORA-00955: the object already exists.
const oracleObjectExists = "ORA-00955"

func runOracleMigrations(ctx context.Context, db *sqlx.DB, logger *zap.Logger) error {
	files, err := fs.ReadDir(migrationsFS, "migrations/oracle")
	if err != nil {
		return fmt.Errorf("could not read migrations directory: %w", err)
	}
	names := make([]string, 0, len(files))
	for _, f := range files {
		if strings.HasSuffix(f.Name(), ".up.sql") {
			names = append(names, f.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		content, err := fs.ReadFile(migrationsFS, "migrations/oracle/"+name)
		if err != nil {
			return fmt.Errorf("could not read migration file %s: %w", name, err)
		}
		for _, stmt := range SplitStatements(string(content)) {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				if strings.Contains(err.Error(), oracleObjectExists) {
					logger.Debug("Oracle object already exists, skipping", zap.String("file", name))
					continue
				}
				return fmt.Errorf("could not execute migration %s: %w", name, err)
			}
		}
		logger.Info("Executed migration", zap.String("file", name))
	}
	return nil
}

// SplitStatements splits a script on ";" line endings, since the Oracle driver runs one statement per call.
func SplitStatements(script string) []string {
	var stmts []string
	for _, part := range strings.Split(script, ";") {
		lines := strings.Split(part, "\n")
		kept := lines[:0]
		for _, l := range lines {
			if trimmed := strings.TrimSpace(l); trimmed != "" && !strings.HasPrefix(trimmed, "--") {
				kept = append(kept, l)
			}
		}
		if stmt := strings.TrimSpace(strings.Join(kept, "\n")); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}
