package scheduler

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"crd-scraper/config"
	"crd-scraper/db"
	"crd-scraper/export"
	"crd-scraper/extractor"
	"crd-scraper/fetcher"
	"crd-scraper/models"
	"crd-scraper/notify"
	"crd-scraper/paginate"
	"crd-scraper/scraper"
	"crd-scraper/sheets"
	"crd-scraper/store"

	"go.uber.org/zap"
)

// requestStore is the database surface the scheduler drives. *db.DB
// implements it.
type requestStore interface {
	ClaimNextRequest() (*db.Request, error)
	UpdateRequestStatus(requestID int, status string) error
	UpdateRequestResult(requestID int, runID string, reactionsCount, pagesCount int) error
	UpdateRequestError(requestID int, lastError string) error
	CreateRun(runID, doi string, startedAt time.Time) error
	FinishRun(runID, status, stopReason string, pagesCount, reactionsCount int, finishedAt time.Time) error
	SaveReactions(runID string, records []models.ReactionRecord) error
}

// Scheduler processes queued scrape requests from the database. Each
// request gets its own store and pagination state, so queued DOIs never
// leak records into each other.
type Scheduler struct {
	cfg      *config.Config
	db       requestStore
	fetcher  fetcher.Fetcher
	writer   *sheets.Writer   // nil disables the Sheets export
	notifier *notify.Notifier // nil disables notifications
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewScheduler creates a new scheduler. writer and notifier may be nil.
func NewScheduler(cfg *config.Config, database *db.DB, f fetcher.Fetcher, writer *sheets.Writer, notifier *notify.Notifier) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cfg:      cfg,
		db:       database,
		fetcher:  f,
		writer:   writer,
		notifier: notifier,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start starts the scheduler in a goroutine
func (s *Scheduler) Start() {
	go s.run()
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.cancel()
	zap.L().Info("Scheduler stopped")
}

// run is the main scheduler loop
func (s *Scheduler) run() {
	poll := time.Duration(s.cfg.Scheduler.PollSeconds) * time.Second
	if poll <= 0 {
		poll = 15 * time.Second
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.processNextRequest()
		}
	}
}

// processNextRequest claims and runs the oldest pending request.
func (s *Scheduler) processNextRequest() {
	req, err := s.db.ClaimNextRequest()
	if err != nil {
		zap.L().Error("Failed to claim next request", zap.Error(err))
		return
	}
	if req == nil {
		return
	}

	zap.L().Info("Processing request", zap.Int("request_id", req.ID), zap.String("doi", req.DOI))

	base, err := url.Parse(s.cfg.BaseURL)
	if err != nil {
		s.handleRequestError(req, fmt.Errorf("invalid base URL %q: %w", s.cfg.BaseURL, err))
		return
	}

	maxPages := req.MaxPages
	if maxPages <= 0 {
		maxPages = s.cfg.MaxPages
	}

	// Fresh store and planner per request.
	minDelay, maxDelay := s.cfg.Fetch.DelayRange()
	st := store.New(store.ParsePolicy(s.cfg.AcceptPolicy))
	orch := scraper.New(
		s.fetcher,
		extractor.New(),
		paginate.NewPlanner(base, req.DOI, s.cfg.PageSize),
		st,
		scraper.Options{
			DOI:          req.DOI,
			MaxPages:     maxPages,
			MinDelay:     minDelay,
			MaxDelay:     maxDelay,
			RecordMethod: s.cfg.RecordMethod,
		},
	)

	result, runErr := orch.Run(s.ctx)
	records := st.Export()

	// Partial results are persisted even when the run failed.
	s.persistRun(req, result, records, runErr)

	if runErr != nil {
		s.handleRequestError(req, runErr)
		return
	}

	if s.writer != nil {
		s.writeSheet(req, st, result)
	}

	if err := s.db.UpdateRequestStatus(req.ID, "done"); err != nil {
		zap.L().Error("Failed to mark request done", zap.Error(err))
		return
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyRunFinished(result, st.Summary(req.DOI)); err != nil {
			zap.L().Warn("Failed to send completion notification", zap.Error(err))
		}
	}
}

// persistRun writes the per-request JSON export, then the run row and its
// reactions. The file export does not depend on the database writes, so the
// collected records survive a database outage.
func (s *Scheduler) persistRun(req *db.Request, result *models.RunResult, records []models.ReactionRecord, runErr error) {
	jsonPath := fmt.Sprintf("reactions_request_%d.json", req.ID)
	doc := export.BuildDocument(req.DOI, s.cfg.BaseURL, records)
	if err := export.WriteJSON(jsonPath, doc); err != nil {
		zap.L().Warn("Failed to write JSON export", zap.String("path", jsonPath), zap.Error(err))
	}

	status := "done"
	if runErr != nil {
		status = "failed"
	}

	if err := s.db.CreateRun(result.RunID, result.DOI, result.StartedAt); err != nil {
		zap.L().Error("Failed to create run row", zap.Error(err))
		return
	}
	if err := s.db.SaveReactions(result.RunID, records); err != nil {
		zap.L().Error("Failed to save reactions", zap.Error(err))
	}
	if err := s.db.FinishRun(result.RunID, status, result.StopReason, result.PagesLoaded, len(records), result.FinishedAt); err != nil {
		zap.L().Error("Failed to finish run row", zap.Error(err))
	}
	if err := s.db.UpdateRequestResult(req.ID, result.RunID, len(records), result.PagesLoaded); err != nil {
		zap.L().Error("Failed to update request result", zap.Error(err))
	}
}

// writeSheet exports the run to a fresh sheet named after the request.
func (s *Scheduler) writeSheet(req *db.Request, st *store.Store, result *models.RunResult) {
	sheetName := fmt.Sprintf("Request_%d_%s", req.ID, time.Now().Format("20060102_150405"))
	summary := st.Summary(req.DOI)
	summaryInfo := fmt.Sprintf("%d reactions, %d unique reactants, %d unique products",
		summary.TotalReactions, summary.UniqueReactants, summary.UniqueProducts)

	if _, _, err := s.writer.CreateSheetAndWriteReactions(sheetName, st.Export(), req.DOI, summaryInfo); err != nil {
		zap.L().Error("Failed to write to Google Sheets", zap.Error(err))
	}
}

// handleRequestError marks the request failed and sends the failure
// notification.
func (s *Scheduler) handleRequestError(req *db.Request, err error) {
	zap.L().Error("Request failed", zap.Int("request_id", req.ID), zap.Error(err))

	if updateErr := s.db.UpdateRequestError(req.ID, err.Error()); updateErr != nil {
		zap.L().Error("Failed to record request error", zap.Error(updateErr))
	}
	if updateErr := s.db.UpdateRequestStatus(req.ID, "failed"); updateErr != nil {
		zap.L().Error("Failed to mark request failed", zap.Error(updateErr))
	}

	if s.notifier != nil {
		if notifyErr := s.notifier.NotifyRunFailed(req.DOI, err); notifyErr != nil {
			zap.L().Warn("Failed to send failure notification", zap.Error(notifyErr))
		}
	}
}
