package database

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// DB is the global database connection
var DB *sqlx.DB

// Connect establishes a connection to the database. With a DATABASE_URL it
// connects to PostgreSQL, otherwise it falls back to a local SQLite file.
func Connect(databaseURL string) error {
	var db *sqlx.DB
	var err error

	if databaseURL != "" {
		db, err = sqlx.Connect("postgres", databaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %v", err)
		}
	} else {
		// Create data directory if it doesn't exist
		dataDir := "data"
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return fmt.Errorf("failed to create data directory: %v", err)
		}

		dbPath := filepath.Join(dataDir, "satbot.db")
		db, err = sqlx.Connect("sqlite3", dbPath)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %v", err)
		}

		// Enable foreign keys
		if _, err = db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			return fmt.Errorf("failed to enable foreign keys: %v", err)
		}

		// SQLite doesn't support multiple writers
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	DB = db

	// Initialize schema
	return initializeSchema()
}

// Close closes the database connection
func Close() error {
	if DB != nil {
		return DB.Close()
	}
	return nil
}

// initializeSchema creates necessary tables if they don't exist
func initializeSchema() error {
	usersTable := `
		CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			telegram_id INTEGER UNIQUE NOT NULL,
			chat_id INTEGER NOT NULL,
			first_name TEXT,
			surname TEXT,
			nickname TEXT,
			email TEXT,
			registered_at TIMESTAMP,
			reg_step INTEGER NOT NULL DEFAULT 1,
			state TEXT,
			approved BOOLEAN NOT NULL DEFAULT false,
			banned BOOLEAN NOT NULL DEFAULT false,
			goal_math INTEGER,
			total_points INTEGER NOT NULL DEFAULT 0,
			tests_count INTEGER NOT NULL DEFAULT 0,
			last_test_at TIMESTAMP,
			last_nudge_at TIMESTAMP,
			pref_hour INTEGER,
			pref_minute INTEGER,
			streak_savers INTEGER NOT NULL DEFAULT 0,
			saver_awarded_date TEXT,
			saver_used_date TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`
	testsTable := `
		CREATE TABLE IF NOT EXISTS tests (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			math_score INTEGER NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			created_by_admin INTEGER
		)
	`
	updatesTable := `
		CREATE TABLE IF NOT EXISTS processed_updates (
			update_id INTEGER PRIMARY KEY,
			processed_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`

	if DB.DriverName() == "postgres" {
		usersTable = `
			CREATE TABLE IF NOT EXISTS users (
				id SERIAL PRIMARY KEY,
				telegram_id BIGINT UNIQUE NOT NULL,
				chat_id BIGINT NOT NULL,
				first_name TEXT,
				surname TEXT,
				nickname TEXT,
				email TEXT,
				registered_at TIMESTAMPTZ,
				reg_step SMALLINT NOT NULL DEFAULT 1,
				state TEXT,
				approved BOOLEAN NOT NULL DEFAULT FALSE,
				banned BOOLEAN NOT NULL DEFAULT FALSE,
				goal_math SMALLINT,
				total_points BIGINT NOT NULL DEFAULT 0,
				tests_count INTEGER NOT NULL DEFAULT 0,
				last_test_at TIMESTAMPTZ,
				last_nudge_at TIMESTAMPTZ,
				pref_hour SMALLINT,
				pref_minute SMALLINT,
				streak_savers INTEGER NOT NULL DEFAULT 0,
				saver_awarded_date TEXT,
				saver_used_date TEXT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)
		`
		testsTable = `
			CREATE TABLE IF NOT EXISTS tests (
				id SERIAL PRIMARY KEY,
				user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				math_score SMALLINT NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
				created_by_admin BIGINT
			)
		`
		updatesTable = `
			CREATE TABLE IF NOT EXISTS processed_updates (
				update_id BIGINT PRIMARY KEY,
				processed_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)
		`
	}

	if _, err := DB.Exec(usersTable); err != nil {
		return fmt.Errorf("failed to create users table: %v", err)
	}
	if _, err := DB.Exec(testsTable); err != nil {
		return fmt.Errorf("failed to create tests table: %v", err)
	}
	if _, err := DB.Exec(updatesTable); err != nil {
		return fmt.Errorf("failed to create processed_updates table: %v", err)
	}

	if _, err := DB.Exec("CREATE INDEX IF NOT EXISTS idx_tests_user_created ON tests(user_id, created_at)"); err != nil {
		return fmt.Errorf("failed to create tests index: %v", err)
	}
	if _, err := DB.Exec("CREATE INDEX IF NOT EXISTS idx_tests_created_at ON tests(created_at)"); err != nil {
		return fmt.Errorf("failed to create tests created_at index: %v", err)
	}

	return nil
}
