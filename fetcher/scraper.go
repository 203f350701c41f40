package fetcher

import (
	"context"
	"fmt"
)

// Fetcher retrieves the raw HTML of a single page.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (string, error)
}

// FetchError describes a failed page retrieval. StatusCode is zero when the
// request never produced a response.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
