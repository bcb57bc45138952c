package port

import (
	"context"
	"time"

	"navwatch/internal/domain/model"
)

type FetchRequest struct {
	URL     string
	Headers map[string]string
	Timeout time.Duration
}

type FetchResponse struct {
	Status int
	Body   []byte
	URL    string // final URL after redirects
}

// PageFetcher retrieves a page or JSON endpoint. Non-2xx statuses are errors
// wrapping model.ErrFetchFailed.
type PageFetcher interface {
	Fetch(ctx context.Context, req FetchRequest) (*FetchResponse, error)
}

// PageEvaluator runs a script inside a rendered page and returns its
// JSON-decoded result.
type PageEvaluator interface {
	Evaluate(ctx context.Context, url, script string) (any, error)
}

// Extractor recovers a NAV series for one fund.
type Extractor interface {
	Extract(ctx context.Context, code model.FundCode) (*model.ExtractionResult, error)
}
