// Package db owns the embedded DuckDB connection used for ad-hoc analysis
// over the raw dataset files.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/canopyhq/canopy/internal/dataset"
)

var (
	instance *sql.DB
	once     sync.Once
	initErr  error
)

// Config holds database configuration.
type Config struct {
	DataDir string
	DBName  string
}

// Get returns the singleton DuckDB connection.
func Get(cfg Config) (*sql.DB, error) {
	once.Do(func() {
		duckdbDir := filepath.Join(cfg.DataDir, "duckdb")
		if err := os.MkdirAll(duckdbDir, 0755); err != nil {
			initErr = fmt.Errorf("failed to create duckdb directory: %w", err)
			return
		}

		dbPath := filepath.Join(duckdbDir, cfg.DBName+".duckdb")
		instance, initErr = sql.Open("duckdb", dbPath)
		if initErr != nil {
			return
		}

		// Load extensions
		extensions := []string{"spatial"}
		for _, ext := range extensions {
			if _, err := instance.Exec(fmt.Sprintf("INSTALL %s; LOAD %s;", ext, ext)); err != nil {
				// Extension might already be installed, continue
			}
		}
	})
	return instance, initErr
}

// Close closes the database connection.
func Close() error {
	if instance != nil {
		return instance.Close()
	}
	return nil
}

// RegisterDatasetViews creates one read-only view per registered dataset
// file so /api/v1/query can analyse the raw data without going through the
// cache. Missing files are skipped; the view set reflects what is on disk.
func RegisterDatasetViews(conn *sql.DB, dataDir string, reg *dataset.Registry) error {
	if conn == nil {
		return nil
	}
	for _, d := range reg.All() {
		path := filepath.Join(dataDir, d.Filename)
		if _, err := os.Stat(path); err != nil {
			continue
		}

		var stmt string
		switch d.Format {
		case dataset.FormatTable:
			stmt = fmt.Sprintf("CREATE OR REPLACE VIEW %s AS SELECT * FROM read_csv(%s)", d.ID, quote(path))
		default:
			stmt = fmt.Sprintf("CREATE OR REPLACE VIEW %s AS SELECT * FROM ST_Read(%s)", d.ID, quote(path))
		}
		if _, err := conn.Exec(stmt); err != nil {
			return fmt.Errorf("register view %s: %w", d.ID, err)
		}
	}
	return nil
}

// quote returns a single-quoted SQL string literal.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
