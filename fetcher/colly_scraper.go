package fetcher

import (
	"context"
	"sync"
	"time"

	"crd-scraper/config"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// CollyFetcher implements the Fetcher interface using colly. It presents a
// browser-like identity and retries failed fetches with exponential backoff
// before giving up.
type CollyFetcher struct {
	collector  *colly.Collector
	maxRetries int
	retryDelay time.Duration

	mu       sync.Mutex
	lastBody string
	lastErr  error
}

// NewCollyFetcher creates a CollyFetcher from the fetch configuration.
func NewCollyFetcher(cfg *config.FetchConfig) *CollyFetcher {
	c := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		// Revisits are allowed here; cycle detection belongs to the caller.
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(cfg.Timeout())

	// One request at a time. No limit delay: colly sleeps it off after
	// every request, the final one included, so inter-page pacing lives in
	// the orchestrator instead.
	c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 1,
	})

	// Accept-Encoding is omitted so the transport's transparent gzip
	// handling stays active.
	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.9")
		r.Headers.Set("Connection", "keep-alive")
		r.Headers.Set("Upgrade-Insecure-Requests", "1")
	})

	cf := &CollyFetcher{
		collector:  c,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay(),
	}

	c.OnResponse(func(r *colly.Response) {
		cf.lastBody = string(r.Body)
	})
	c.OnError(func(r *colly.Response, err error) {
		cf.lastErr = &FetchError{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Err:        err,
		}
	})

	return cf
}

// Fetch retrieves pageURL, retrying transient failures with doubling
// backoff. Non-2xx responses count as failures. The last error is returned
// once retries are exhausted.
func (cf *CollyFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	var lastErr error
	delay := cf.retryDelay

	for attempt := 0; attempt <= cf.maxRetries; attempt++ {
		if attempt > 0 {
			zap.L().Warn("Retrying fetch",
				zap.String("url", pageURL),
				zap.Int("attempt", attempt),
				zap.Error(lastErr))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
			delay *= 2
		}

		body, err := cf.fetchOnce(pageURL)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}

	return "", lastErr
}

// fetchOnce performs a single synchronous visit and returns the response
// body. An empty body on a successful response is returned as-is; deciding
// what to do with a page that holds nothing is not the fetcher's call.
func (cf *CollyFetcher) fetchOnce(pageURL string) (string, error) {
	cf.mu.Lock()
	defer cf.mu.Unlock()

	cf.lastBody = ""
	cf.lastErr = nil

	if err := cf.collector.Visit(pageURL); err != nil {
		if cf.lastErr != nil {
			// The OnError callback saw the response and knows the status.
			return "", cf.lastErr
		}
		return "", &FetchError{URL: pageURL, Err: err}
	}
	cf.collector.Wait()

	if cf.lastErr != nil {
		return "", cf.lastErr
	}
	return cf.lastBody, nil
}
