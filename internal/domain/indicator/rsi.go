package indicator

import "navwatch/internal/domain/model"

// DefaultRSIPeriod is the conventional Wilder period.
const DefaultRSIPeriod = 14

// wilder accumulates Wilder-smoothed average gain and loss over a price slice.
// It seeds with the simple mean of the first period deltas.
type wilder struct {
	period  int
	count   int
	prev    float64
	avgGain float64
	avgLoss float64
}

func (w *wilder) update(price float64) {
	w.count++
	if w.count == 1 {
		w.prev = price
		return
	}

	delta := price - w.prev
	w.prev = price

	gain, loss := 0.0, 0.0
	if delta > 0 {
		gain = delta
	} else {
		loss = -delta
	}

	if w.count <= w.period+1 {
		w.avgGain += gain
		w.avgLoss += loss
		if w.count == w.period+1 {
			w.avgGain /= float64(w.period)
			w.avgLoss /= float64(w.period)
		}
		return
	}

	p := float64(w.period)
	w.avgGain = (w.avgGain*(p-1) + gain) / p
	w.avgLoss = (w.avgLoss*(p-1) + loss) / p
}

func (w *wilder) ready() bool { return w.count > w.period }

func (w *wilder) value() float64 {
	if w.avgLoss == 0 {
		return 100
	}
	rs := w.avgGain / w.avgLoss
	return round2(100 - 100/(1+rs))
}

// RSI returns the Wilder RSI of the whole series, rounded to two decimals.
// It is undefined for fewer than period+1 points.
func RSI(series model.FundSeries, period int) (float64, bool) {
	if period <= 0 || len(series) < period+1 {
		return 0, false
	}
	w := &wilder{period: period}
	for _, p := range series {
		w.update(p.NAV)
	}
	return w.value(), true
}

// RSISeries returns the RSI of every prefix ending at index period or later.
func RSISeries(series model.FundSeries, period int) []float64 {
	if period <= 0 || len(series) < period+1 {
		return []float64{}
	}
	out := make([]float64, 0, len(series)-period)
	w := &wilder{period: period}
	for _, p := range series {
		w.update(p.NAV)
		if w.ready() {
			out = append(out, w.value())
		}
	}
	return out
}
