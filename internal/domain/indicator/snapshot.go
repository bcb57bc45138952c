package indicator

import (
	"fmt"

	"navwatch/internal/domain/model"
)

// MAPeriods are the averages reported by Compute.
var MAPeriods = []int{7, 30, 50, 90, 180, 200}

// Snapshot is the full indicator view of one fund at query time.
type Snapshot struct {
	FundCode string   `json:"fundCode"`
	RSI      *float64 `json:"rsi"`

	MA       map[int][]MAPoint `json:"ma"`
	LatestMA map[int]float64   `json:"latestMA"`

	LatestNAV float64     `json:"latestNAV"`
	Window    WindowStats `json:"window"`

	IsBelowMA30  bool `json:"isBelowMA30"`
	IsBelowMA90  bool `json:"isBelowMA90"`
	IsBelowMA180 bool `json:"isBelowMA180"`
	IsRSILow     bool `json:"isRSILow"`
	RSIAtBottom  bool `json:"rsiAtBottom"`

	IsDeepDrawdown bool `json:"isDeepDrawdown"`
	IsAtBottomZone bool `json:"isAtBottomZone"`

	Cross
	Divergence Divergence `json:"divergence,omitempty"`

	BuySignal   bool     `json:"buySignal"`
	SellSignal  bool     `json:"sellSignal"`
	BuySignals  []string `json:"buySignals"`
	SellSignals []string `json:"sellSignals"`

	Score     *int     `json:"dcaScore"`
	Return12M *float64 `json:"return12M"`
}

// Compute derives every indicator for an ascending series. An empty series
// yields a zero snapshot with empty signal lists.
func Compute(series model.FundSeries, meta model.FundMetadata) Snapshot {
	snap := Snapshot{
		MA:          make(map[int][]MAPoint, len(MAPeriods)),
		LatestMA:    make(map[int]float64, len(MAPeriods)),
		BuySignals:  []string{},
		SellSignals: []string{},
		Return12M:   meta.Return12M,
	}
	for _, p := range MAPeriods {
		ma := MovingAverage(series, p)
		snap.MA[p] = ma
		if v, ok := lastMA(ma); ok {
			snap.LatestMA[p] = v
		}
	}

	latest, ok := series.Latest()
	if !ok {
		return snap
	}
	snap.LatestNAV = latest.NAV

	rsi, hasRSI := RSI(series, DefaultRSIPeriod)
	if hasRSI {
		snap.RSI = &rsi
		snap.RSIAtBottom = rsi <= 30
		snap.IsRSILow = rsi < 40
	}

	if v, ok := snap.LatestMA[30]; ok {
		snap.IsBelowMA30 = latest.NAV < v
	}
	if v, ok := snap.LatestMA[90]; ok {
		snap.IsBelowMA90 = latest.NAV < v
	}
	ma180, hasMA180 := snap.LatestMA[180]
	if hasMA180 {
		snap.IsBelowMA180 = latest.NAV < 0.95*ma180
	}

	snap.Window, _ = Window(series, WindowSize)
	if dd := snap.Window.Drawdown; dd != nil {
		snap.IsDeepDrawdown = *dd < -10
	}
	if rr := snap.Window.RecoveryRatio; rr != nil {
		snap.IsAtBottomZone = *rr < 0.3
	}

	snap.Cross = Crossover(snap.MA[50], snap.MA[200])
	snap.Divergence, _ = DetectDivergence(series, RSISeries(series, DefaultRSIPeriod))

	if score, ok := Score(series, meta.Return12M); ok {
		snap.Score = &score
	}

	if snap.RSIAtBottom {
		snap.BuySignals = append(snap.BuySignals, "RSI <= 30 (bottom forming)")
	}
	if snap.JustDeathCross {
		snap.BuySignals = append(snap.BuySignals, "Death cross (MA50 < MA200)")
	}
	if snap.Divergence == DivergenceBullish {
		snap.BuySignals = append(snap.BuySignals, "Bullish divergence (price down, RSI up)")
	}
	if snap.IsBelowMA30 && snap.IsRSILow {
		snap.BuySignals = append(snap.BuySignals, "NAV < MA30 and RSI < 40")
	}
	if snap.IsBelowMA180 {
		snap.BuySignals = append(snap.BuySignals,
			fmt.Sprintf("NAV < 95%% MA180 (%.1f%% of MA180)", latest.NAV/ma180*100))
	}
	if snap.IsBelowMA90 {
		snap.BuySignals = append(snap.BuySignals, "NAV < MA90")
	}
	if snap.IsDeepDrawdown {
		snap.BuySignals = append(snap.BuySignals,
			fmt.Sprintf("Deep drawdown %.1f%% from 52W high", *snap.Window.Drawdown))
	}
	if snap.IsAtBottomZone {
		snap.BuySignals = append(snap.BuySignals,
			fmt.Sprintf("Recovery ratio %.1f%% (bottom 30%% of 52W range)", *snap.Window.RecoveryRatio*100))
	}

	if hasRSI && rsi >= 70 {
		snap.SellSignals = append(snap.SellSignals, "RSI >= 70 (overbought)")
	}
	if snap.JustGoldenCross {
		snap.SellSignals = append(snap.SellSignals, "Golden cross (MA50 > MA200)")
	}
	if snap.Divergence == DivergenceBearish {
		snap.SellSignals = append(snap.SellSignals, "Bearish divergence (price up, RSI down)")
	}

	snap.BuySignal = len(snap.BuySignals) > 0
	snap.SellSignal = len(snap.SellSignals) > 0
	return snap
}

// DefaultReason is reported when a recommended fund triggers no named reason.
const DefaultReason = "good DCA zone"

// Reasons lists the short recommendation reasons for a snapshot.
func Reasons(s Snapshot) []string {
	var out []string
	if s.RSI != nil {
		switch {
		case *s.RSI <= 30:
			out = append(out, "RSI <= 30 (bottom)")
		case *s.RSI <= 40:
			out = append(out, "RSI <= 40 (oversold)")
		}
	}
	if s.IsBelowMA30 {
		out = append(out, "NAV < MA30")
	}
	if s.IsBelowMA180 {
		out = append(out, "NAV < 95% MA180")
	}
	if dd := s.Window.Drawdown; dd != nil && *dd < -10 {
		out = append(out, fmt.Sprintf("Drawdown %.1f%%", *dd))
	}
	if r := s.Return12M; r != nil && *r < 0 {
		out = append(out, fmt.Sprintf("12M: %.1f%%", *r))
	}
	if len(out) == 0 {
		out = []string{DefaultReason}
	}
	return out
}

// Stats summarizes a series for the stats endpoint.
type Stats struct {
	TotalDays     int     `json:"totalDays"`
	FromDate      string  `json:"from"`
	ToDate        string  `json:"to"`
	Latest        float64 `json:"latest"`
	Oldest        float64 `json:"oldest"`
	Min           float64 `json:"min"`
	Max           float64 `json:"max"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"changePercent"`
}

// Summarize returns first/last/min/max figures; false on an empty series.
func Summarize(series model.FundSeries) (Stats, bool) {
	if len(series) == 0 {
		return Stats{}, false
	}
	first, last := series[0], series[len(series)-1]
	st := Stats{
		TotalDays: len(series),
		FromDate:  first.Date,
		ToDate:    last.Date,
		Latest:    last.NAV,
		Oldest:    first.NAV,
		Min:       first.NAV,
		Max:       first.NAV,
		Change:    round2(last.NAV - first.NAV),
	}
	for _, p := range series {
		if p.NAV < st.Min {
			st.Min = p.NAV
		}
		if p.NAV > st.Max {
			st.Max = p.NAV
		}
	}
	if first.NAV != 0 {
		st.ChangePercent = round2((last.NAV - first.NAV) / first.NAV * 100)
	}
	return st, true
}

// Change reports the move from the previous point to the latest one.
func Change(series model.FundSeries) (change, percent float64) {
	if len(series) < 2 {
		return 0, 0
	}
	prev, last := series[len(series)-2].NAV, series[len(series)-1].NAV
	change = round2(last - prev)
	if prev != 0 {
		percent = round2((last - prev) / prev * 100)
	}
	return change, percent
}
