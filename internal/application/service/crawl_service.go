package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"navwatch/internal/application/port"
	"navwatch/internal/domain/model"
)

const DefaultCrawlConcurrency = 3

// FundResult is the outcome of crawling one fund.
type FundResult struct {
	Code       model.FundCode `json:"fund"`
	OK         bool           `json:"ok"`
	Error      string         `json:"error,omitempty"`
	NewCount   int            `json:"new"`
	TotalCount int            `json:"total"`
	Added      int            `json:"added"`
	Return12M  *float64       `json:"return12M"`
	Durable    bool           `json:"durable"`
	Sources    map[string]int `json:"sources,omitempty"`
}

// BatchReport lists results in roster order.
type BatchReport struct {
	RunID      string        `json:"runId"`
	StartedAt  time.Time     `json:"startedAt"`
	FinishedAt time.Time     `json:"finishedAt"`
	Results    []FundResult  `json:"results"`
	Succeeded  int           `json:"success"`
	Failed     int           `json:"failed"`
	Duration   time.Duration `json:"durationNs"`
}

type CrawlService struct {
	extractor   port.Extractor
	history     *HistoryService
	sinks       []port.EventSink
	concurrency int
	now         func() time.Time
}

type CrawlOption func(*CrawlService)

func WithConcurrency(n int) CrawlOption {
	return func(s *CrawlService) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithEventSinks registers sinks notified after every fund.
func WithEventSinks(sinks ...port.EventSink) CrawlOption {
	return func(s *CrawlService) {
		for _, sk := range sinks {
			if sk != nil {
				s.sinks = append(s.sinks, sk)
			}
		}
	}
}

func WithCrawlClock(now func() time.Time) CrawlOption {
	return func(s *CrawlService) { s.now = now }
}

func NewCrawlService(extractor port.Extractor, history *HistoryService, opts ...CrawlOption) *CrawlService {
	s := &CrawlService{
		extractor:   extractor,
		history:     history,
		concurrency: DefaultCrawlConcurrency,
		now:         time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *CrawlService) Concurrency() int { return s.concurrency }

// Subscribe adds a sink. Call it during wiring, before the first crawl.
func (s *CrawlService) Subscribe(sk port.EventSink) {
	if sk != nil {
		s.sinks = append(s.sinks, sk)
	}
}

// CrawlOne extracts and merges a single fund.
func (s *CrawlService) CrawlOne(ctx context.Context, code model.FundCode) FundResult {
	return s.crawl(ctx, uuid.NewString(), code)
}

// CrawlAll runs the bounded pool over codes. A failed fund never aborts the
// batch; its error is carried in its result.
func (s *CrawlService) CrawlAll(ctx context.Context, codes []model.FundCode) BatchReport {
	report := BatchReport{RunID: uuid.NewString(), StartedAt: s.now()}

	log.Info().
		Str("run_id", report.RunID).
		Int("funds", len(codes)).
		Int("concurrency", s.concurrency).
		Msg("crawl started")

	var (
		mu      sync.Mutex
		results = make(map[model.FundCode]FundResult, len(codes))
	)

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for _, code := range codes {
		g.Go(func() error {
			r := s.crawl(ctx, report.RunID, code)
			mu.Lock()
			results[code] = r
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	report.Results = make([]FundResult, 0, len(codes))
	for _, code := range codes {
		r := results[code]
		report.Results = append(report.Results, r)
		if r.OK {
			report.Succeeded++
		} else {
			report.Failed++
		}
	}
	report.FinishedAt = s.now()
	report.Duration = report.FinishedAt.Sub(report.StartedAt)

	log.Info().
		Str("run_id", report.RunID).
		Int("success", report.Succeeded).
		Int("failed", report.Failed).
		Dur("elapsed", report.Duration).
		Msg("crawl finished")
	return report
}

func (s *CrawlService) crawl(ctx context.Context, runID string, code model.FundCode) FundResult {
	start := s.now()
	res := FundResult{Code: code}

	if err := ctx.Err(); err != nil {
		res.Error = err.Error()
		s.publish(ctx, runID, res, start)
		return res
	}

	ex, err := s.extractor.Extract(ctx, code)
	if err != nil {
		res.Error = err.Error()
		log.Warn().Err(err).Str("fund", string(code)).Msg("crawl failed")
		s.publish(ctx, runID, res, start)
		return res
	}
	res.NewCount = len(ex.Points)
	res.Return12M = ex.Return12M
	res.Sources = ex.Sources

	merged, err := s.history.MergeReport(ctx, code, ex.Points, ex.Return12M)
	res.TotalCount = len(merged.Series)
	res.Added = merged.Added
	res.Durable = merged.Durable
	if err != nil {
		res.Error = err.Error()
		s.publish(ctx, runID, res, start)
		return res
	}
	res.OK = true

	ev := log.Info().
		Str("fund", string(code)).
		Int("new", res.NewCount).
		Int("total", res.TotalCount).
		Int("added", res.Added)
	if res.Return12M != nil {
		ev = ev.Float64("return_12m", *res.Return12M)
	}
	ev.Msg("fund crawled")

	s.publish(ctx, runID, res, start)
	return res
}

func (s *CrawlService) publish(ctx context.Context, runID string, res FundResult, start time.Time) {
	if len(s.sinks) == 0 {
		return
	}
	now := s.now()
	ev := port.CrawlEvent{
		RunID:      runID,
		Code:       res.Code,
		OK:         res.OK,
		Error:      res.Error,
		NewCount:   res.NewCount,
		TotalCount: res.TotalCount,
		Added:      res.Added,
		Return12M:  res.Return12M,
		Durable:    res.Durable,
		Sources:    res.Sources,
		Duration:   now.Sub(start),
		Ts:         now,
	}
	// publish even when the batch context is cancelled
	pubCtx := context.WithoutCancel(ctx)
	for _, sk := range s.sinks {
		if err := sk.PublishCrawl(pubCtx, ev); err != nil {
			log.Warn().Err(err).Str("fund", string(res.Code)).Msg("event sink publish failed")
		}
	}
}
