package indicator

import "navwatch/internal/domain/model"

// Cross reports the MA50/MA200 relationship at the latest point.
type Cross struct {
	DeathCross      bool `json:"deathCross"`
	GoldenCross     bool `json:"goldenCross"`
	JustDeathCross  bool `json:"justDeathCross"`
	JustGoldenCross bool `json:"justGoldenCross"`
}

// Crossover compares the latest fast/slow averages and flags a fresh cross
// when the previous pair was not already in the same strict relation.
func Crossover(fast, slow []MAPoint) Cross {
	var c Cross
	f, okF := lastMA(fast)
	s, okS := lastMA(slow)
	if !okF || !okS {
		return c
	}
	c.DeathCross = f < s
	c.GoldenCross = f > s

	if len(fast) < 2 || len(slow) < 2 {
		return c
	}
	pf := fast[len(fast)-2].Value
	ps := slow[len(slow)-2].Value
	c.JustDeathCross = c.DeathCross && pf >= ps
	c.JustGoldenCross = c.GoldenCross && pf <= ps
	return c
}

// Divergence between price and RSI direction.
type Divergence string

const (
	DivergenceNone    Divergence = ""
	DivergenceBullish Divergence = "bullish"
	DivergenceBearish Divergence = "bearish"
)

const (
	divergenceLookback = 5
	divergenceRSIDelta = 5.0
)

// DetectDivergence compares the price and RSI trend over the last five
// points. It is undefined when either series is shorter than that.
func DetectDivergence(series model.FundSeries, rsi []float64) (Divergence, bool) {
	if len(series) < divergenceLookback || len(rsi) < divergenceLookback {
		return DivergenceNone, false
	}
	recent := series[len(series)-divergenceLookback:]
	recentRSI := rsi[len(rsi)-divergenceLookback:]

	priceTrend := recent[len(recent)-1].NAV - recent[0].NAV
	rsiTrend := recentRSI[len(recentRSI)-1] - recentRSI[0]

	switch {
	case priceTrend > 0 && rsiTrend <= -divergenceRSIDelta:
		return DivergenceBearish, true
	case priceTrend < 0 && rsiTrend >= divergenceRSIDelta:
		return DivergenceBullish, true
	default:
		return DivergenceNone, true
	}
}
