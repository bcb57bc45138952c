package indicator

import (
	"math"

	"navwatch/internal/domain/model"
)

// MAPoint is one trailing moving-average value stamped with the date of the
// window's last point.
type MAPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// MovingAverage computes a trailing simple moving average with a running sum.
func MovingAverage(series model.FundSeries, period int) []MAPoint {
	if period <= 0 || len(series) < period {
		return []MAPoint{}
	}

	out := make([]MAPoint, 0, len(series)-period+1)
	sum := 0.0
	for i, p := range series {
		sum += p.NAV
		if i >= period {
			sum -= series[i-period].NAV
		}
		if i >= period-1 {
			out = append(out, MAPoint{Date: p.Date, Value: round2(sum / float64(period))})
		}
	}
	return out
}

func lastMA(ma []MAPoint) (float64, bool) {
	if len(ma) == 0 {
		return 0, false
	}
	return ma[len(ma)-1].Value, true
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
