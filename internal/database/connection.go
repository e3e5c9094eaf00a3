package database

import (
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// Supported driver names.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Config selects the backing database. Zero value means sqlite under ./data.
type Config struct {
	// Driver is DriverSQLite or DriverPostgres.
	Driver string
	// DSN is the postgres connection string; ignored for sqlite.
	DSN string
	// DataDir is where the sqlite file lives; ignored for postgres.
	DataDir string
}

// DB wraps the sqlx handle together with the driver name, which the
// repositories need to pick per-backend SQL.
type DB struct {
	*sqlx.DB
	driver string
}

// Driver returns the driver name this handle was opened with.
func (d *DB) Driver() string {
	return d.driver
}

// Connect opens the configured database and, for sqlite, bootstraps the
// schema. Postgres schemas are managed by external migration tooling.
func Connect(cfg Config) (*DB, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverSQLite
	}

	switch driver {
	case DriverSQLite:
		dataDir := cfg.DataDir
		if dataDir == "" {
			dataDir = "data"
		}
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return nil, errors.Wrap(err, "create data directory")
		}
		dsn := cfg.DSN
		if dsn == "" {
			dsn = filepath.Join(dataDir, "drillsched.db")
		}
		db, err := sqlx.Connect(DriverSQLite, dsn)
		if err != nil {
			return nil, errors.Wrap(err, "connect sqlite")
		}
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, errors.Wrap(err, "enable foreign keys")
		}
		// SQLite doesn't support multiple writers.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)

		wrapped := &DB{DB: db, driver: DriverSQLite}
		if err := wrapped.initializeSchema(); err != nil {
			db.Close()
			return nil, err
		}
		return wrapped, nil

	case DriverPostgres:
		db, err := sqlx.Connect(DriverPostgres, cfg.DSN)
		if err != nil {
			return nil, errors.Wrap(err, "connect postgres")
		}
		return &DB{DB: db, driver: DriverPostgres}, nil

	default:
		return nil, errors.Errorf("unsupported database driver %q", driver)
	}
}

// initializeSchema creates the scheduling tables if they don't exist.
func (d *DB) initializeSchema() error {
	_, err := d.Exec(`
		CREATE TABLE IF NOT EXISTS scheduling_states (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			device_id TEXT NOT NULL,
			task_id TEXT NOT NULL,
			task_type TEXT NOT NULL DEFAULT '',
			pos TEXT NOT NULL DEFAULT '',
			leitner_box INTEGER NOT NULL DEFAULT 1,
			total_attempts INTEGER NOT NULL DEFAULT 0,
			correct_attempts INTEGER NOT NULL DEFAULT 0,
			average_response_ms REAL NOT NULL DEFAULT 0,
			accuracy_weight REAL NOT NULL DEFAULT 0,
			latency_weight REAL NOT NULL DEFAULT 0,
			stability_weight REAL NOT NULL DEFAULT 0,
			due_at TIMESTAMP NOT NULL,
			priority_score REAL NOT NULL DEFAULT 0,
			last_result TEXT NOT NULL DEFAULT '',
			last_practiced_at TIMESTAMP NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(device_id, task_id)
		)
	`)
	if err != nil {
		return errors.Wrap(err, "create scheduling_states table")
	}

	_, err = d.Exec(`
		CREATE TABLE IF NOT EXISTS telemetry_snapshots (
			id TEXT PRIMARY KEY,
			device_id TEXT NOT NULL,
			task_id TEXT NOT NULL,
			sampled_at TIMESTAMP NOT NULL,
			accuracy_weight REAL NOT NULL DEFAULT 0,
			latency_weight REAL NOT NULL DEFAULT 0,
			stability_weight REAL NOT NULL DEFAULT 0,
			priority_score REAL NOT NULL DEFAULT 0,
			metadata TEXT NOT NULL DEFAULT '{}'
		)
	`)
	if err != nil {
		return errors.Wrap(err, "create telemetry_snapshots table")
	}

	_, err = d.Exec(`
		CREATE INDEX IF NOT EXISTS idx_scheduling_states_device_pos
		ON scheduling_states(device_id, pos)
	`)
	if err != nil {
		return errors.Wrap(err, "create device/pos index")
	}

	return nil
}
