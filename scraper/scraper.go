package scraper

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"time"

	"crd-scraper/extractor"
	"crd-scraper/fetcher"
	"crd-scraper/models"
	"crd-scraper/paginate"
	"crd-scraper/smiles"
	"crd-scraper/store"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Options tune a single scrape run.
type Options struct {
	DOI      string
	MaxPages int
	// MinDelay and MaxDelay bound the randomized pause between page loads.
	// The pause runs only when another fetch follows; zero disables it.
	MinDelay time.Duration
	MaxDelay time.Duration
	// RecordMethod stamps each stored record with the extraction strategy
	// that found it.
	RecordMethod bool
}

// Orchestrator drives one scrape run: fetch a page, extract candidates,
// split them, store the survivors, plan the next page, repeat until a stop
// condition fires. It owns no pagination state between runs; everything is
// rebuilt per Run call.
type Orchestrator struct {
	fetcher   fetcher.Fetcher
	extractor *extractor.Extractor
	planner   *paginate.Planner
	store     *store.Store
	opts      Options
}

// New creates an Orchestrator. The store is owned by the caller, which
// reads results from it after the run.
func New(f fetcher.Fetcher, e *extractor.Extractor, p *paginate.Planner, s *store.Store, opts Options) *Orchestrator {
	return &Orchestrator{
		fetcher:   f,
		extractor: e,
		planner:   p,
		store:     s,
		opts:      opts,
	}
}

// Run executes the scrape loop. Stop conditions are checked in a fixed
// order on every iteration: cancellation, page limit, repeated URL, fetch
// failure, planner exhaustion. Consecutive fetches are spaced by a
// randomized delay; the first fetch starts immediately.
//
// The returned result is valid even when err is non-nil; an error means the
// run ended early (fetch failure or cancellation) and the store holds
// everything collected up to that point.
func (o *Orchestrator) Run(ctx context.Context) (*models.RunResult, error) {
	result := &models.RunResult{
		RunID:     uuid.NewString(),
		DOI:       o.opts.DOI,
		StartedAt: time.Now().UTC(),
	}

	visited := make(map[string]bool)
	currentURL := o.planner.StartURL()
	var runErr error

	for {
		if err := ctx.Err(); err != nil {
			result.StopReason = models.StopCanceled
			runErr = err
			break
		}
		if result.PagesLoaded >= o.opts.MaxPages {
			result.StopReason = models.StopPageLimit
			break
		}
		if visited[currentURL] {
			result.StopReason = models.StopCycle
			zap.L().Warn("Pagination cycle detected", zap.String("url", currentURL))
			break
		}

		// Pause between page loads only. Every stop condition has already
		// been checked, so the delay never trails the final page.
		if result.PagesLoaded > 0 {
			if err := o.pause(ctx); err != nil {
				result.StopReason = models.StopCanceled
				runErr = err
				break
			}
		}
		visited[currentURL] = true

		zap.L().Info("Fetching page",
			zap.Int("page", result.PagesLoaded+1),
			zap.Int("max_pages", o.opts.MaxPages),
			zap.String("url", currentURL))

		body, err := o.fetcher.Fetch(ctx, currentURL)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				result.StopReason = models.StopCanceled
			} else {
				result.StopReason = models.StopFetchError
			}
			runErr = err
			break
		}
		result.PagesLoaded++

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
		if err != nil {
			result.StopReason = models.StopFetchError
			runErr = err
			break
		}

		result.NewRecords += o.processPage(doc, body, currentURL)

		next, ok := o.planner.Next(doc, currentURL)
		if !ok {
			result.StopReason = models.StopNoNextPage
			break
		}
		currentURL = next
	}

	result.FinishedAt = time.Now().UTC()
	zap.L().Info("Run finished",
		zap.String("run_id", result.RunID),
		zap.String("doi", result.DOI),
		zap.String("stop_reason", result.StopReason),
		zap.Int("pages", result.PagesLoaded),
		zap.Int("new_records", result.NewRecords),
		zap.Int("total_records", o.store.Len()))

	return result, runErr
}

// pause blocks for a random duration within the configured delay range, or
// until ctx is canceled.
func (o *Orchestrator) pause(ctx context.Context) error {
	d := o.randomDelay()
	if d <= 0 {
		return nil
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// randomDelay picks a pause duration in [MinDelay, MaxDelay).
func (o *Orchestrator) randomDelay() time.Duration {
	min, max := o.opts.MinDelay, o.opts.MaxDelay
	if min <= 0 && max <= 0 {
		return 0
	}
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)))
}

// processPage extracts and stores the reactions of one fetched page and
// returns how many records were new. All records from the same page share
// one scrape timestamp.
func (o *Orchestrator) processPage(doc *goquery.Document, body, pageURL string) int {
	candidates := o.extractor.Extract(doc, body)
	scrapedAt := time.Now().UTC()

	newRecords := 0
	for _, cand := range candidates {
		reaction, ok := smiles.SplitReaction(cand.Text)
		if !ok {
			continue
		}
		rec := models.ReactionRecord{
			ReactionSMILES: cand.Text,
			Reactants:      reaction.Reactants,
			Reagents:       reaction.Reagents,
			Products:       reaction.Products,
			SourceURL:      pageURL,
			ScrapedAt:      scrapedAt,
		}
		if o.opts.RecordMethod {
			rec.Method = cand.Method
		}
		if o.store.Insert(rec) {
			newRecords++
		}
	}

	zap.L().Info("Page processed",
		zap.String("url", pageURL),
		zap.Int("candidates", len(candidates)),
		zap.Int("new_records", newRecords),
		zap.Int("total_records", o.store.Len()))

	return newRecords
}
