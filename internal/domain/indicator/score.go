package indicator

import (
	"math"

	"navwatch/internal/domain/model"
)

// MinScorePoints is the shortest series that gets a composite score.
const MinScorePoints = 30

const baseScore = 50.0

// Score computes the composite 0..100 accumulation score. It is undefined for
// series shorter than MinScorePoints.
func Score(series model.FundSeries, return12M *float64) (int, bool) {
	if len(series) < MinScorePoints {
		return 0, false
	}
	latest := series[len(series)-1].NAV

	score := baseScore

	if rsi, ok := RSI(series, DefaultRSIPeriod); ok {
		switch {
		case rsi <= 30:
			score += 20
		case rsi <= 40:
			score += 15
		case rsi <= 50:
			score += 10
		case rsi <= 60:
			score += 5
		case rsi >= 70:
			score -= 10
		}
	}

	if ma, ok := lastMA(MovingAverage(series, 30)); ok && latest < ma {
		score += 10
	}
	if ma, ok := lastMA(MovingAverage(series, 90)); ok && latest < ma {
		score += 10
	}
	if ma, ok := lastMA(MovingAverage(series, 180)); ok && latest < 0.95*ma {
		score += 15
	}

	if st, ok := Window(series, WindowSize); ok {
		if dd := st.Drawdown; dd != nil {
			switch {
			case *dd < -15:
				score += 15
			case *dd < -10:
				score += 10
			case *dd < -5:
				score += 5
			}
		}
		if rr := st.RecoveryRatio; rr != nil {
			switch {
			case *rr < 0.2:
				score += 15
			case *rr < 0.3:
				score += 10
			case *rr < 0.5:
				score += 5
			}
		}
	}

	if r := return12M; r != nil {
		switch {
		case *r > 0 && *r < 20:
			score += 5
		case *r < 0 && *r > -10:
			score += 5
		case *r < -10:
			score += 10
		case *r > 30:
			score -= 5
		}
	}

	return int(math.Round(math.Max(0, math.Min(100, score)))), true
}
