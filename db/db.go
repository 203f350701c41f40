package db

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// DB wraps the database connection
type DB struct {
	conn *sql.DB
}

// NewDB opens the Postgres connection and prepares the schema. An empty dsn
// falls back to the DATABASE_URL environment variable, then to individual
// DB_* components.
func NewDB(dsn string) (*DB, error) {
	connStr := dsn
	if connStr == "" {
		connStr = os.Getenv("DATABASE_URL")
	}
	if connStr == "" {
		host := getEnvOrDefault("DB_HOST", "localhost")
		port := getEnvOrDefault("DB_PORT", "5432")
		user := getEnvOrDefault("DB_USER", "crd_scraper")
		password := getEnvOrDefault("DB_PASSWORD", "")
		dbname := getEnvOrDefault("DB_NAME", "crd_scraper")
		sslmode := getEnvOrDefault("DB_SSLMODE", "disable")

		connStr = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s search_path=crd_scraper",
			host, port, user, password, dbname, sslmode)
	}

	conn, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// initSchema creates the necessary tables if they don't exist
func (db *DB) initSchema() error {
	// The schema usually exists already; creation may fail on restricted
	// accounts and that is fine.
	if _, err := db.conn.Exec(`CREATE SCHEMA IF NOT EXISTS crd_scraper`); err != nil {
		zap.L().Debug("Could not create schema (may already exist)", zap.Error(err))
	}

	if _, err := db.conn.Exec(`SET search_path TO crd_scraper`); err != nil {
		return fmt.Errorf("failed to set search path: %w", err)
	}

	// Queued scrape requests for serve mode.
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS scrape_requests (
			id SERIAL PRIMARY KEY,
			doi TEXT NOT NULL,
			max_pages INTEGER NOT NULL DEFAULT 10,
			status VARCHAR(20) NOT NULL DEFAULT 'created',
			run_id UUID,
			reactions_count INTEGER DEFAULT 0,
			pages_count INTEGER DEFAULT 0,
			last_error TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT valid_status CHECK (status IN ('created', 'in_progress', 'done', 'failed'))
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create scrape_requests table: %w", err)
	}

	// One row per orchestrated run.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS scrape_runs (
			id UUID PRIMARY KEY,
			doi TEXT NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'in_progress',
			stop_reason VARCHAR(32),
			pages_count INTEGER DEFAULT 0,
			reactions_count INTEGER DEFAULT 0,
			started_at TIMESTAMP NOT NULL,
			finished_at TIMESTAMP,
			CONSTRAINT valid_run_status CHECK (status IN ('in_progress', 'done', 'failed'))
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create scrape_runs table: %w", err)
	}

	// Collected reactions. The unique constraint mirrors the in-memory
	// dedup key, so replays cannot duplicate rows.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS reactions (
			id SERIAL PRIMARY KEY,
			run_id UUID NOT NULL REFERENCES scrape_runs(id) ON DELETE CASCADE,
			reaction_smiles TEXT NOT NULL,
			reactant_smiles TEXT[] NOT NULL,
			reagent_smiles TEXT[] NOT NULL,
			product_smiles TEXT[] NOT NULL,
			source_url TEXT NOT NULL,
			extraction_method VARCHAR(32),
			scraped_at TIMESTAMP NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT uniq_run_reaction UNIQUE (run_id, reaction_smiles)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create reactions table: %w", err)
	}

	if _, err := db.conn.Exec(`CREATE INDEX IF NOT EXISTS idx_scrape_requests_status ON scrape_requests(status)`); err != nil {
		zap.L().Warn("Failed to create index on scrape_requests.status", zap.Error(err))
	}
	if _, err := db.conn.Exec(`CREATE INDEX IF NOT EXISTS idx_scrape_runs_doi ON scrape_runs(doi)`); err != nil {
		zap.L().Warn("Failed to create index on scrape_runs.doi", zap.Error(err))
	}
	if _, err := db.conn.Exec(`CREATE INDEX IF NOT EXISTS idx_reactions_run_id ON reactions(run_id)`); err != nil {
		zap.L().Warn("Failed to create index on reactions.run_id", zap.Error(err))
	}

	zap.L().Info("Database schema initialized")
	return nil
}
