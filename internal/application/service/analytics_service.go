package service

import (
	"context"
	"fmt"
	"sort"

	"navwatch/internal/domain/indicator"
	"navwatch/internal/domain/model"
)

const (
	DefaultMinScore            = 50
	DefaultRecommendationLimit = 10
)

// AnalyticsService computes indicator views over the stored history. It never
// writes.
type AnalyticsService struct {
	history *HistoryService
}

func NewAnalyticsService(history *HistoryService) *AnalyticsService {
	return &AnalyticsService{history: history}
}

// Analytics returns the indicator snapshot of one fund.
func (s *AnalyticsService) Analytics(ctx context.Context, code model.FundCode) (indicator.Snapshot, error) {
	rec, ok := s.history.Record(ctx, code)
	if !ok || len(rec.Series) == 0 {
		return indicator.Snapshot{}, fmt.Errorf("%w: %s", model.ErrFundNotFound, code)
	}
	snap := indicator.Compute(rec.Series, rec.Metadata)
	snap.FundCode = string(code)
	return snap, nil
}

// Stats summarizes the stored series of one fund.
func (s *AnalyticsService) Stats(ctx context.Context, code model.FundCode) (indicator.Stats, error) {
	st, ok := indicator.Summarize(s.history.History(ctx, code))
	if !ok {
		return indicator.Stats{}, fmt.Errorf("%w: %s", model.ErrFundNotFound, code)
	}
	return st, nil
}

// FundOverview is one row of the funds overview.
type FundOverview struct {
	Code          model.FundCode `json:"code"`
	LatestNAV     float64        `json:"latestNav"`
	LatestDate    string         `json:"latestDate"`
	Change        float64        `json:"change"`
	ChangePercent float64        `json:"changePercent"`
	TotalRecords  int            `json:"totalRecords"`
	Return12M     *float64       `json:"return12M"`
	RSI           *float64       `json:"rsi"`
	Score         *int           `json:"dcaScore"`
}

// Overview lists every stored fund with a non-empty series, ordered by code.
func (s *AnalyticsService) Overview(ctx context.Context) []FundOverview {
	all := s.history.Load(ctx)
	out := make([]FundOverview, 0, len(all))
	for code, rec := range all {
		latest, ok := rec.Series.Latest()
		if !ok {
			continue
		}
		change, pct := indicator.Change(rec.Series)
		row := FundOverview{
			Code:          code,
			LatestNAV:     latest.NAV,
			LatestDate:    latest.Date,
			Change:        change,
			ChangePercent: pct,
			TotalRecords:  len(rec.Series),
			Return12M:     rec.Metadata.Return12M,
		}
		if v, ok := indicator.RSI(rec.Series, indicator.DefaultRSIPeriod); ok {
			row.RSI = &v
		}
		if v, ok := indicator.Score(rec.Series, rec.Metadata.Return12M); ok {
			row.Score = &v
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Recommendation is a fund whose score reached the requested minimum.
type Recommendation struct {
	Code      model.FundCode `json:"fundCode"`
	Score     int            `json:"dcaScore"`
	LatestNAV float64        `json:"latestNAV"`
	RSI       *float64       `json:"rsi"`
	Drawdown  *float64       `json:"drawdown"`
	Return12M *float64       `json:"return12M"`
	Reasons   []string       `json:"reasons"`
}

// Recommendations ranks funds by score, highest first. Non-positive
// arguments fall back to the defaults.
func (s *AnalyticsService) Recommendations(ctx context.Context, minScore, limit int) []Recommendation {
	if minScore <= 0 {
		minScore = DefaultMinScore
	}
	if limit <= 0 {
		limit = DefaultRecommendationLimit
	}

	all := s.history.Load(ctx)
	out := make([]Recommendation, 0, len(all))
	for code, rec := range all {
		snap := indicator.Compute(rec.Series, rec.Metadata)
		if snap.Score == nil || *snap.Score < minScore {
			continue
		}
		out = append(out, Recommendation{
			Code:      code,
			Score:     *snap.Score,
			LatestNAV: snap.LatestNAV,
			RSI:       snap.RSI,
			Drawdown:  snap.Window.Drawdown,
			Return12M: snap.Return12M,
			Reasons:   indicator.Reasons(snap),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Code < out[j].Code
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
