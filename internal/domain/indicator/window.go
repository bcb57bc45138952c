package indicator

import "navwatch/internal/domain/model"

// WindowSize is the trailing point count used for 52-week statistics.
const WindowSize = 365

// WindowStats describes the latest value relative to a trailing window.
type WindowStats struct {
	Latest        float64  `json:"latest"`
	Max           float64  `json:"max"`
	Min           float64  `json:"min"`
	Drawdown      *float64 `json:"drawdown"`
	RecoveryRatio *float64 `json:"recoveryRatio"`
}

// Window computes drawdown and recovery ratio over the trailing size points.
func Window(series model.FundSeries, size int) (WindowStats, bool) {
	if len(series) == 0 || size <= 0 {
		return WindowStats{}, false
	}
	recent := series
	if len(recent) > size {
		recent = recent[len(recent)-size:]
	}

	st := WindowStats{
		Latest: series[len(series)-1].NAV,
		Max:    recent[0].NAV,
		Min:    recent[0].NAV,
	}
	for _, p := range recent[1:] {
		if p.NAV > st.Max {
			st.Max = p.NAV
		}
		if p.NAV < st.Min {
			st.Min = p.NAV
		}
	}

	if st.Max != 0 {
		dd := (st.Latest - st.Max) / st.Max * 100
		st.Drawdown = &dd
	}
	if st.Max != st.Min {
		rr := (st.Latest - st.Min) / (st.Max - st.Min)
		st.RecoveryRatio = &rr
	}
	return st, true
}
