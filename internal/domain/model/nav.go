package model

import (
	"sort"
	"strings"
	"time"
)

// FundCode is the opaque identifier of a fund, e.g. "DCDS".
type FundCode string

// ParseFundCode trims and upper-cases raw input and validates it.
func ParseFundCode(raw string) (FundCode, error) {
	c := FundCode(strings.ToUpper(strings.TrimSpace(raw)))
	if err := c.Validate(); err != nil {
		return "", err
	}
	return c, nil
}

func (c FundCode) Validate() error {
	if strings.TrimSpace(string(c)) == "" {
		return ErrInvalidFundCode
	}
	return nil
}

func (c FundCode) String() string { return string(c) }

// NavPoint is one daily NAV observation. Date is YYYY-MM-DD.
type NavPoint struct {
	Date string  `json:"date"`
	NAV  float64 `json:"nav"`
}

// FundSeries is ascending by date with unique dates.
type FundSeries []NavPoint

// Sorted returns a copy ordered by date ascending.
func (s FundSeries) Sorted() FundSeries {
	out := s.Clone()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

func (s FundSeries) Clone() FundSeries {
	if s == nil {
		return FundSeries{}
	}
	out := make(FundSeries, len(s))
	copy(out, s)
	return out
}

func (s FundSeries) Dates() []string {
	out := make([]string, len(s))
	for i, p := range s {
		out[i] = p.Date
	}
	return out
}

func (s FundSeries) Values() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.NAV
	}
	return out
}

// Latest returns the last point, false on an empty series.
func (s FundSeries) Latest() (NavPoint, bool) {
	if len(s) == 0 {
		return NavPoint{}, false
	}
	return s[len(s)-1], true
}

// FundMetadata is annotated independently from the series.
type FundMetadata struct {
	Return12M          *float64   `json:"return12M"`
	Return12MUpdatedAt *time.Time `json:"return12MUpdatedAt"`
}

// FundRecord is the persisted unit per fund.
type FundRecord struct {
	Series   FundSeries   `json:"data"`
	Metadata FundMetadata `json:"metadata"`
}

// Clone deep-copies the record so callers never share backing arrays with the store.
func (r FundRecord) Clone() FundRecord {
	out := FundRecord{Series: r.Series.Clone()}
	if r.Metadata.Return12M != nil {
		v := *r.Metadata.Return12M
		out.Metadata.Return12M = &v
	}
	if r.Metadata.Return12MUpdatedAt != nil {
		t := *r.Metadata.Return12MUpdatedAt
		out.Metadata.Return12MUpdatedAt = &t
	}
	return out
}

// ExtractionResult is produced once per extraction call and consumed by merge.
type ExtractionResult struct {
	Points    []NavPoint
	Return12M *float64
	// Sources counts accepted points per strategy name.
	Sources map[string]int
}

// MergeSeries overlays incoming onto existing keyed by date. Incoming values
// win on conflict; no existing date is ever dropped. Incoming points without
// a date or with a non-positive NAV are ignored.
func MergeSeries(existing, incoming []NavPoint) FundSeries {
	byDate := make(map[string]float64, len(existing)+len(incoming))
	for _, p := range existing {
		byDate[p.Date] = p.NAV
	}
	for _, p := range incoming {
		if p.Date == "" || !(p.NAV > 0) {
			continue
		}
		byDate[p.Date] = p.NAV
	}

	out := make(FundSeries, 0, len(byDate))
	for d, v := range byDate {
		out = append(out, NavPoint{Date: d, NAV: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// Dedupe keeps the last value seen per date and sorts ascending.
func Dedupe(points []NavPoint) FundSeries {
	return MergeSeries(nil, points)
}
