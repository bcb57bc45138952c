package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"navwatch/internal/application/port"
	"navwatch/internal/domain/model"
)

// HistoryService owns the persisted per-fund history. Merges are serialized
// in-process; writers in other processes are not coordinated.
type HistoryService struct {
	repo port.HistoryRepository
	now  func() time.Time
	mu   sync.Mutex
}

type HistoryOption func(*HistoryService)

// WithHistoryClock replaces time.Now for metadata timestamps.
func WithHistoryClock(now func() time.Time) HistoryOption {
	return func(s *HistoryService) { s.now = now }
}

func NewHistoryService(repo port.HistoryRepository, opts ...HistoryOption) *HistoryService {
	s := &HistoryService{repo: repo, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// MergeResult describes one merge.
type MergeResult struct {
	Series model.FundSeries
	// Added is the number of dates that did not exist before.
	Added   int
	Durable bool
}

// Load returns every stored fund. Backend failures are logged and yield an
// empty map.
func (s *HistoryService) Load(ctx context.Context) map[model.FundCode]model.FundRecord {
	all, err := s.repo.LoadAll(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("history load failed, using empty state")
		return make(map[model.FundCode]model.FundRecord)
	}
	if all == nil {
		all = make(map[model.FundCode]model.FundRecord)
	}
	return all
}

// Merge overlays points onto the stored series of a fund and persists it.
// return12M replaces the stored figure only when non-nil. On a save failure
// the merged series is still returned together with an error wrapping
// model.ErrStorageUnavailable.
func (s *HistoryService) Merge(ctx context.Context, code model.FundCode, points []model.NavPoint, return12M *float64) (model.FundSeries, error) {
	res, err := s.MergeReport(ctx, code, points, return12M)
	return res.Series, err
}

// MergeReport is Merge with the number of new dates and the durability of the write.
func (s *HistoryService) MergeReport(ctx context.Context, code model.FundCode, points []model.NavPoint, return12M *float64) (MergeResult, error) {
	if err := code.Validate(); err != nil {
		return MergeResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, _, err := s.repo.Load(ctx, code)
	if err != nil {
		log.Warn().Err(err).Str("fund", string(code)).Msg("history load failed, merging onto empty series")
		rec = model.FundRecord{}
	}

	before := len(rec.Series)
	merged := model.MergeSeries(rec.Series, points)
	next := model.FundRecord{Series: merged, Metadata: rec.Metadata}
	if return12M != nil {
		v := *return12M
		ts := s.now().UTC()
		next.Metadata.Return12M = &v
		next.Metadata.Return12MUpdatedAt = &ts
	}

	res := MergeResult{Series: merged.Clone(), Added: len(merged) - before}
	if err := s.repo.Save(ctx, code, next); err != nil {
		log.Error().Err(err).Str("fund", string(code)).Int("points", len(merged)).Msg("history save failed, in-memory result only")
		if !errors.Is(err, model.ErrStorageUnavailable) {
			err = fmt.Errorf("%w: %v", model.ErrStorageUnavailable, err)
		}
		return res, err
	}
	res.Durable = true
	return res, nil
}

// Record returns a copy of the stored record of one fund.
func (s *HistoryService) Record(ctx context.Context, code model.FundCode) (model.FundRecord, bool) {
	rec, ok, err := s.repo.Load(ctx, code)
	if err != nil {
		log.Warn().Err(err).Str("fund", string(code)).Msg("history load failed")
		return model.FundRecord{}, false
	}
	if !ok {
		return model.FundRecord{}, false
	}
	return rec.Clone(), true
}

// History returns the ascending series of a fund, empty when unknown.
func (s *HistoryService) History(ctx context.Context, code model.FundCode) model.FundSeries {
	rec, _ := s.Record(ctx, code)
	if rec.Series == nil {
		return model.FundSeries{}
	}
	return rec.Series
}

func (s *HistoryService) Return12M(ctx context.Context, code model.FundCode) *float64 {
	rec, _ := s.Record(ctx, code)
	return rec.Metadata.Return12M
}

func (s *HistoryService) Metadata(ctx context.Context, code model.FundCode) model.FundMetadata {
	rec, _ := s.Record(ctx, code)
	return rec.Metadata
}

// Funds lists the stored fund codes in ascending order.
func (s *HistoryService) Funds(ctx context.Context) []model.FundCode {
	all := s.Load(ctx)
	out := make([]model.FundCode, 0, len(all))
	for code := range all {
		out = append(out, code)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// LastUpdated is the newest date across every stored series.
func (s *HistoryService) LastUpdated(ctx context.Context) string {
	var last string
	for _, rec := range s.Load(ctx) {
		if p, ok := rec.Series.Latest(); ok && p.Date > last {
			last = p.Date
		}
	}
	return last
}
