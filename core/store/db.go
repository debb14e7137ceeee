package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"workguard360/config"
)

// DB wraps the sql pool with the driver it was opened for. Store queries are
// written with ? placeholders; Rebind rewrites them for drivers that use a
// different parameter syntax.
type DB struct {
	*sql.DB
	driver string
}

// Rebind rewrites ? placeholders into the $N form PostgreSQL expects. The
// pgx stdlib adapter passes query text through verbatim, so the rewrite has
// to happen here; sqlite binds ? natively and passes through unchanged.
func (d *DB) Rebind(query string) string {
	if d.driver != "postgres" {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] != '?' {
			b.WriteByte(query[i])
			continue
		}
		n++
		b.WriteByte('$')
		b.WriteString(strconv.Itoa(n))
	}
	return b.String()
}

// NewDB opens the configured backing store. The default is an embedded
// sqlite database; db_driver "postgres" routes through the pgx stdlib
// adapter with db_url as a connection string.
func NewDB(cfg *config.AppConfig, logger zerolog.Logger) (*DB, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	switch driver {
	case "", "sqlite":
		return openSQLite(cfg.DBURL, logger)
	case "postgres":
		db, err := sql.Open("pgx", cfg.DBURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := db.Ping(); err != nil {
			db.Close()
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		logger.Info().Str("driver", "postgres").Msg("database connected")
		return &DB{DB: db, driver: "postgres"}, nil
	default:
		return nil, fmt.Errorf("unsupported db driver %q", cfg.DBDriver)
	}
}

func openSQLite(path string, logger zerolog.Logger) (*DB, error) {
	if strings.TrimSpace(path) == "" {
		path = "data/workguard.db"
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// modernc sqlite serializes writers; a single connection avoids
	// SQLITE_BUSY under concurrent transitions.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	logger.Info().Str("driver", "sqlite").Str("path", path).Msg("database opened")
	return &DB{DB: db, driver: "sqlite"}, nil
}
