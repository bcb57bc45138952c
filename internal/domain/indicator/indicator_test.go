package indicator

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"navwatch/internal/domain/model"
)

func seriesOf(values ...float64) model.FundSeries {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make(model.FundSeries, len(values))
	for i, v := range values {
		out[i] = model.NavPoint{Date: start.AddDate(0, 0, i).Format("2006-01-02"), NAV: v}
	}
	return out
}

func linear(n int, from, step float64) model.FundSeries {
	vals := make([]float64, n)
	for i := range vals {
		vals[i] = from + float64(i)*step
	}
	return seriesOf(vals...)
}

func TestRSIBoundaries(t *testing.T) {
	rsi, ok := RSI(linear(15, 100, 1), 14)
	require.True(t, ok)
	assert.Equal(t, 100.0, rsi)

	rsi, ok = RSI(linear(20, 200, -1), 14)
	require.True(t, ok)
	assert.Equal(t, 0.0, rsi)

	_, ok = RSI(linear(14, 100, 1), 14)
	assert.False(t, ok)
}

func TestRSIWilderSmoothing(t *testing.T) {
	// 14 deltas of +1 then one of -2: avgGain=13/14, avgLoss=2/14.
	vals := make([]float64, 0, 16)
	for i := 0; i <= 14; i++ {
		vals = append(vals, 100+float64(i))
	}
	vals = append(vals, 112)
	rsi, ok := RSI(seriesOf(vals...), 14)
	require.True(t, ok)

	avgGain := 1.0 * 13 / 14
	avgLoss := 2.0 / 14
	want := round2(100 - 100/(1+avgGain/avgLoss))
	assert.Equal(t, want, rsi)
}

func TestRSISeriesMatchesPrefixes(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	vals := make([]float64, 60)
	v := 10000.0
	for i := range vals {
		v += r.Float64()*200 - 100
		vals[i] = v
	}
	s := seriesOf(vals...)

	got := RSISeries(s, 14)
	require.Len(t, got, len(s)-14)
	for i := 14; i < len(s); i++ {
		want, ok := RSI(s[:i+1], 14)
		require.True(t, ok)
		assert.InDelta(t, want, got[i-14], 1e-9, "index %d", i)
	}

	assert.Empty(t, RSISeries(linear(5, 1, 1), 14))
}

func TestMovingAverage(t *testing.T) {
	s := seriesOf(1, 2, 3, 4, 5)
	got := MovingAverage(s, 3)
	assert.Equal(t, []MAPoint{
		{Date: s[2].Date, Value: 2},
		{Date: s[3].Date, Value: 3},
		{Date: s[4].Date, Value: 4},
	}, got)

	assert.Empty(t, MovingAverage(s, 6))
	assert.Len(t, MovingAverage(s, 5), 1)
}

func TestWindow(t *testing.T) {
	st, ok := Window(seriesOf(100, 200, 150), WindowSize)
	require.True(t, ok)
	require.NotNil(t, st.Drawdown)
	require.NotNil(t, st.RecoveryRatio)
	assert.InDelta(t, -25.0, *st.Drawdown, 1e-9)
	assert.InDelta(t, 0.5, *st.RecoveryRatio, 1e-9)

	st, ok = Window(seriesOf(100, 100, 100), WindowSize)
	require.True(t, ok)
	assert.Nil(t, st.RecoveryRatio)
	assert.InDelta(t, 0.0, *st.Drawdown, 1e-9)

	_, ok = Window(model.FundSeries{}, WindowSize)
	assert.False(t, ok)
}

func TestWindowIsTrailing(t *testing.T) {
	vals := make([]float64, 400)
	for i := range vals {
		vals[i] = 1000
	}
	vals[0] = 5000 // outside the trailing 365 points
	vals[100] = 2000
	vals[399] = 1500

	st, ok := Window(seriesOf(vals...), WindowSize)
	require.True(t, ok)
	assert.Equal(t, 2000.0, st.Max)
	assert.Equal(t, 1000.0, st.Min)
	assert.InDelta(t, -25.0, *st.Drawdown, 1e-9)
}

func TestCrossover(t *testing.T) {
	ma := func(vals ...float64) []MAPoint {
		out := make([]MAPoint, len(vals))
		for i, v := range vals {
			out[i] = MAPoint{Date: fmt.Sprintf("d%d", i), Value: v}
		}
		return out
	}

	c := Crossover(ma(10, 9), ma(9.5, 9.5))
	assert.True(t, c.DeathCross)
	assert.True(t, c.JustDeathCross)
	assert.False(t, c.GoldenCross)

	c = Crossover(ma(9, 8), ma(9.5, 9.5))
	assert.True(t, c.DeathCross)
	assert.False(t, c.JustDeathCross)

	c = Crossover(ma(9.5, 10), ma(9.5, 9.5))
	assert.True(t, c.GoldenCross)
	assert.True(t, c.JustGoldenCross, "equal previous pair counts as a fresh cross")

	c = Crossover(ma(10), ma(9))
	assert.True(t, c.GoldenCross)
	assert.False(t, c.JustGoldenCross)

	assert.Equal(t, Cross{}, Crossover(nil, ma(1)))
}

func TestDetectDivergence(t *testing.T) {
	up := seriesOf(100, 101, 102, 103, 104)
	down := seriesOf(104, 103, 102, 101, 100)

	d, ok := DetectDivergence(up, []float64{70, 68, 67, 66, 65})
	require.True(t, ok)
	assert.Equal(t, DivergenceBearish, d)

	d, ok = DetectDivergence(down, []float64{30, 31, 33, 34, 35})
	require.True(t, ok)
	assert.Equal(t, DivergenceBullish, d)

	d, ok = DetectDivergence(down, []float64{30, 31, 32, 33, 34})
	require.True(t, ok)
	assert.Equal(t, DivergenceNone, d)

	_, ok = DetectDivergence(up, []float64{1, 2, 3, 4})
	assert.False(t, ok)
}

func TestScoreUndefinedBelowThirtyPoints(t *testing.T) {
	_, ok := Score(linear(29, 100, 1), nil)
	assert.False(t, ok)

	_, ok = Score(linear(30, 100, 1), nil)
	assert.True(t, ok)
}

func TestScoreExamples(t *testing.T) {
	// Falling: RSI 0 (+20), below MA30 (+10), drawdown -22% (+15), recovery 0 (+15).
	score, ok := Score(linear(30, 130, -1), nil)
	require.True(t, ok)
	assert.Equal(t, 100, score)

	// Rising: RSI 100 (-10), 12M above 30 (-5).
	r := 35.0
	score, ok = Score(linear(30, 100, 1), &r)
	require.True(t, ok)
	assert.Equal(t, 35, score)

	// Flat: RSI 100 because no losses (-10), no drawdown, undefined recovery.
	r = 10
	score, ok = Score(linear(40, 100, 0), &r)
	require.True(t, ok)
	assert.Equal(t, 45, score)
}

func TestScoreBounds(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		n := 30 + r.Intn(400)
		vals := make([]float64, n)
		v := 1000 + r.Float64()*50000
		for j := range vals {
			v *= 1 + (r.Float64()-0.5)*0.1
			if v < 1 {
				v = 1
			}
			vals[j] = v
		}
		var ret *float64
		if r.Intn(2) == 0 {
			x := r.Float64()*250 - 50
			ret = &x
		}

		score, ok := Score(seriesOf(vals...), ret)
		require.True(t, ok)
		assert.GreaterOrEqual(t, score, 0)
		assert.LessOrEqual(t, score, 100)
	}
}

func TestComputeSnapshot(t *testing.T) {
	ret := -12.0
	snap := Compute(linear(220, 30000, -10), model.FundMetadata{Return12M: &ret})

	require.NotNil(t, snap.RSI)
	assert.Equal(t, 0.0, *snap.RSI)
	assert.True(t, snap.RSIAtBottom)
	assert.True(t, snap.IsBelowMA30)
	assert.True(t, snap.IsBelowMA90)
	assert.Len(t, snap.MA[200], 21)
	assert.True(t, snap.DeathCross)
	assert.False(t, snap.JustDeathCross)
	assert.True(t, snap.BuySignal)
	assert.False(t, snap.SellSignal)
	require.NotNil(t, snap.Score)
	assert.Equal(t, 100, *snap.Score)
	assert.Contains(t, Reasons(snap), "RSI <= 30 (bottom)")
	assert.Contains(t, Reasons(snap), "12M: -12.0%")
}

func TestComputeEmpty(t *testing.T) {
	snap := Compute(model.FundSeries{}, model.FundMetadata{})
	assert.Nil(t, snap.RSI)
	assert.Nil(t, snap.Score)
	assert.Empty(t, snap.BuySignals)
	assert.Equal(t, []string{DefaultReason}, Reasons(snap))
}

func TestSummarize(t *testing.T) {
	st, ok := Summarize(seriesOf(100, 90, 120, 110))
	require.True(t, ok)
	assert.Equal(t, 4, st.TotalDays)
	assert.Equal(t, 90.0, st.Min)
	assert.Equal(t, 120.0, st.Max)
	assert.Equal(t, 10.0, st.Change)
	assert.Equal(t, 10.0, st.ChangePercent)

	_, ok = Summarize(nil)
	assert.False(t, ok)

	change, pct := Change(seriesOf(100, 110))
	assert.Equal(t, 10.0, change)
	assert.Equal(t, 10.0, pct)
}
