package db

import (
	"database/sql"
	"fmt"
	"time"

	"crd-scraper/models"

	"github.com/lib/pq"
)

// Request represents a queued scrape request
type Request struct {
	ID             int
	DOI            string
	MaxPages       int
	Status         string // "created", "in_progress", "done", "failed"
	RunID          sql.NullString
	ReactionsCount int
	PagesCount     int
	LastError      sql.NullString
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CreateRequest enqueues a scrape request for serve mode
func (db *DB) CreateRequest(doi string, maxPages int) (*Request, error) {
	var req Request
	err := db.conn.QueryRow(`
		INSERT INTO scrape_requests (doi, max_pages, status)
		VALUES ($1, $2, 'created')
		RETURNING id, doi, max_pages, status, run_id, reactions_count, pages_count, last_error, created_at, updated_at
	`, doi, maxPages).Scan(
		&req.ID, &req.DOI, &req.MaxPages, &req.Status, &req.RunID,
		&req.ReactionsCount, &req.PagesCount, &req.LastError, &req.CreatedAt, &req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// ClaimNextRequest takes the oldest request with status 'created' and marks
// it in_progress, in one statement so the row lock covers the status flip.
// SKIP LOCKED keeps concurrent workers off each other's claims. Returns nil
// without error when the queue is empty.
func (db *DB) ClaimNextRequest() (*Request, error) {
	var req Request
	err := db.conn.QueryRow(`
		UPDATE scrape_requests
		SET status = 'in_progress', updated_at = CURRENT_TIMESTAMP
		WHERE id = (
			SELECT id
			FROM scrape_requests
			WHERE status = 'created'
			ORDER BY created_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, doi, max_pages, status, run_id, reactions_count, pages_count, last_error, created_at, updated_at
	`).Scan(
		&req.ID, &req.DOI, &req.MaxPages, &req.Status, &req.RunID,
		&req.ReactionsCount, &req.PagesCount, &req.LastError, &req.CreatedAt, &req.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// UpdateRequestStatus updates the status of a request
func (db *DB) UpdateRequestStatus(requestID int, status string) error {
	_, err := db.conn.Exec(`
		UPDATE scrape_requests
		SET status = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2
	`, status, requestID)
	return err
}

// UpdateRequestResult records the run outcome on a request
func (db *DB) UpdateRequestResult(requestID int, runID string, reactionsCount, pagesCount int) error {
	_, err := db.conn.Exec(`
		UPDATE scrape_requests
		SET run_id = $1, reactions_count = $2, pages_count = $3, updated_at = CURRENT_TIMESTAMP
		WHERE id = $4
	`, runID, reactionsCount, pagesCount, requestID)
	return err
}

// UpdateRequestError records a failure message on a request
func (db *DB) UpdateRequestError(requestID int, lastError string) error {
	_, err := db.conn.Exec(`
		UPDATE scrape_requests
		SET last_error = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2
	`, lastError, requestID)
	return err
}

// CreateRun inserts a run row in 'in_progress' state
func (db *DB) CreateRun(runID, doi string, startedAt time.Time) error {
	_, err := db.conn.Exec(`
		INSERT INTO scrape_runs (id, doi, status, started_at)
		VALUES ($1, $2, 'in_progress', $3)
	`, runID, doi, startedAt)
	return err
}

// FinishRun closes a run row with its final status and counters
func (db *DB) FinishRun(runID, status, stopReason string, pagesCount, reactionsCount int, finishedAt time.Time) error {
	_, err := db.conn.Exec(`
		UPDATE scrape_runs
		SET status = $1, stop_reason = $2, pages_count = $3, reactions_count = $4, finished_at = $5
		WHERE id = $6
	`, status, stopReason, pagesCount, reactionsCount, finishedAt, runID)
	return err
}

// SaveReactions stores a run's records in one transaction. Conflicting rows
// (same run, same reaction string) are skipped, so the call is safe to
// repeat.
func (db *DB) SaveReactions(runID string, records []models.ReactionRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO reactions (run_id, reaction_smiles, reactant_smiles, reagent_smiles, product_smiles, source_url, extraction_method, scraped_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT ON CONSTRAINT uniq_run_reaction DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		var method sql.NullString
		if rec.Method != "" {
			method = sql.NullString{String: rec.Method, Valid: true}
		}

		_, err := stmt.Exec(
			runID,
			rec.ReactionSMILES,
			pq.Array(rec.Reactants),
			pq.Array(rec.Reagents),
			pq.Array(rec.Products),
			rec.SourceURL,
			method,
			rec.ScrapedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert reaction (runID=%s): %w", runID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
