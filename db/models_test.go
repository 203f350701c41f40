package db

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

var requestColumns = []string{
	"id", "doi", "max_pages", "status", "run_id",
	"reactions_count", "pages_count", "last_error", "created_at", "updated_at",
}

func TestClaimNextRequestMarksInProgress(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to open sqlmock: %v", err)
	}
	defer conn.Close()
	database := &DB{conn: conn}

	now := time.Now()
	// A single statement selects the row under SKIP LOCKED and flips it to
	// in_progress, so the claim holds across concurrent workers.
	mock.ExpectQuery(`UPDATE scrape_requests SET status = 'in_progress'.+FOR UPDATE SKIP LOCKED.+RETURNING id, doi, max_pages, status`).
		WillReturnRows(sqlmock.NewRows(requestColumns).
			AddRow(7, "10.1021/jacsau.4c01276", 5, "in_progress", nil, 0, 0, nil, now, now))

	req, err := database.ClaimNextRequest()
	if err != nil {
		t.Fatalf("ClaimNextRequest() error = %v", err)
	}
	if req == nil {
		t.Fatal("ClaimNextRequest() = nil, want a claimed request")
	}
	if req.ID != 7 {
		t.Errorf("req.ID = %d, want 7", req.ID)
	}
	if req.DOI != "10.1021/jacsau.4c01276" {
		t.Errorf("req.DOI = %q, want %q", req.DOI, "10.1021/jacsau.4c01276")
	}
	if req.Status != "in_progress" {
		t.Errorf("req.Status = %q, want %q", req.Status, "in_progress")
	}
	if req.RunID.Valid {
		t.Errorf("req.RunID = %v, want unset", req.RunID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestClaimNextRequestEmptyQueue(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to open sqlmock: %v", err)
	}
	defer conn.Close()
	database := &DB{conn: conn}

	mock.ExpectQuery("UPDATE scrape_requests").
		WillReturnRows(sqlmock.NewRows(requestColumns))

	req, err := database.ClaimNextRequest()
	if err != nil {
		t.Errorf("ClaimNextRequest() error = %v, want nil on empty queue", err)
	}
	if req != nil {
		t.Errorf("ClaimNextRequest() = %+v, want nil", req)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
