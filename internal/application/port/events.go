package port

import (
	"context"
	"time"

	"navwatch/internal/domain/model"
)

// CrawlEvent is published once per fund after a crawl task finishes.
type CrawlEvent struct {
	RunID      string         `json:"runId"`
	Code       model.FundCode `json:"code"`
	OK         bool           `json:"ok"`
	Error      string         `json:"error,omitempty"`
	NewCount   int            `json:"newCount"`
	TotalCount int            `json:"totalCount"`
	Added      int            `json:"added"`
	Return12M  *float64       `json:"return12M,omitempty"`
	Durable    bool           `json:"durable"`
	Sources    map[string]int `json:"sources,omitempty"`
	Duration   time.Duration  `json:"durationNs"`
	Ts         time.Time      `json:"ts"`
}

// EventSink receives crawl events. Failures are logged by the publisher and
// never affect the crawl.
type EventSink interface {
	PublishCrawl(ctx context.Context, ev CrawlEvent) error
}
