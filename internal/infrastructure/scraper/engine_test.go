package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"navwatch/internal/application/port"
	"navwatch/internal/domain/model"
)

type stubFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	calls []port.FetchRequest
}

func (f *stubFetcher) Fetch(ctx context.Context, req port.FetchRequest) (*port.FetchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	body, ok := f.pages[req.URL]
	if !ok {
		return nil, fmt.Errorf("%w: status 404 for %s", model.ErrFetchFailed, req.URL)
	}
	return &port.FetchResponse{Status: 200, Body: []byte(body), URL: req.URL}, nil
}

type stubEvaluator struct {
	result any
	err    error
	urls   []string
}

func (e *stubEvaluator) Evaluate(ctx context.Context, url, script string) (any, error) {
	e.urls = append(e.urls, url)
	return e.result, e.err
}

func testOptions() Options {
	o := DefaultOptions()
	o.BaseURL = "https://fmarket.test"
	return o
}

const fundURL = "https://fmarket.test/quy/DCDS"

const tablePage = `<html><body>
<table>
  <tr><th>Ngày</th><th>NAV/CCQ</th></tr>
  <tr><td>06/11/2025</td><td>30.687</td></tr>
  <tr><td>05/11/2025</td><td>30.500</td></tr>
  <tr><td>04/11/2025</td><td>500</td></tr>
</table>
</body></html>`

func TestExtractTableOnlyPage(t *testing.T) {
	f := &stubFetcher{pages: map[string]string{fundURL: tablePage}}
	e := NewEngine(testOptions(), f)

	res, err := e.Extract(context.Background(), "DCDS")
	require.NoError(t, err)
	assert.Equal(t, []model.NavPoint{
		{Date: "2025-11-05", NAV: 30500},
		{Date: "2025-11-06", NAV: 30687},
	}, res.Points)
	assert.Equal(t, map[string]int{"table": 2}, res.Sources)
	assert.Nil(t, res.Return12M)

	require.NotEmpty(t, f.calls)
	assert.Equal(t, "vi-VN,vi;q=0.9", f.calls[0].Headers["Accept-Language"])
}

func TestExtractUnrecognizablePageFails(t *testing.T) {
	f := &stubFetcher{pages: map[string]string{fundURL: `<html><body><p>Nothing here</p></body></html>`}}
	e := NewEngine(testOptions(), f)

	res, err := e.Extract(context.Background(), "DCDS")
	assert.Nil(t, res)
	require.ErrorIs(t, err, model.ErrNoNAVData)
	assert.Equal(t, "no NAV data found for fund DCDS", err.Error())
}

func TestExtractPageFetchFailureUsesBrowser(t *testing.T) {
	f := &stubFetcher{pages: map[string]string{}}
	ev := &stubEvaluator{result: []any{
		[]any{"2025-11-05", 30500.0},
		[]any{"2025-11-06", 30687.0},
		[]any{"2025-11-06", 30690.0},
		[]any{"garbage", 1.0},
	}}
	e := NewEngine(testOptions(), f, WithEvaluator(ev))

	res, err := e.Extract(context.Background(), "DCDS")
	require.NoError(t, err)
	assert.Equal(t, []model.NavPoint{
		{Date: "2025-11-05", NAV: 30500},
		{Date: "2025-11-06", NAV: 30690},
	}, res.Points)
	assert.Equal(t, []string{fundURL}, ev.urls)
	assert.Equal(t, 3, res.Sources["browser"])
}

func TestExtractBrowserFailureIsNoData(t *testing.T) {
	f := &stubFetcher{pages: map[string]string{}}
	ev := &stubEvaluator{err: errors.New("timeout")}
	e := NewEngine(testOptions(), f, WithEvaluator(ev))

	_, err := e.Extract(context.Background(), "DCDS")
	assert.ErrorIs(t, err, model.ErrNoNAVData)
}

func TestEvaluatorStageSurvivesCustomStages(t *testing.T) {
	ev := &stubEvaluator{result: []any{[]any{"2025-11-06", 30687.0}}}
	custom := Stage{Strategy: &TableStrategy{}, Band: DefaultOptions().TableBand}

	for name, opts := range map[string][]EngineOption{
		"evaluator first": {WithEvaluator(ev), WithStages(custom)},
		"stages first":    {WithStages(custom), WithEvaluator(ev)},
	} {
		e := NewEngine(testOptions(), &stubFetcher{pages: map[string]string{}}, opts...)
		require.Len(t, e.stages, 2, name)
		assert.Equal(t, "browser", e.stages[1].Strategy.Name(), name)

		res, err := e.Extract(context.Background(), "DCDS")
		require.NoError(t, err, name)
		assert.Equal(t, []model.NavPoint{{Date: "2025-11-06", NAV: 30687}}, res.Points, name)
	}
}

func TestExtractEmbeddedLiteral(t *testing.T) {
	page := `<html><head><script>
var navData = [
  {date: '2025-11-03', nav: 30100.5},
  {date: '2025-11-04', nav: 30200},
  {date: '2025-11-05', nav: '30.300'},
  {date: '2025-11-06', nav: 1},
];
</script></head><body></body></html>`
	f := &stubFetcher{pages: map[string]string{fundURL: page}}
	e := NewEngine(testOptions(), f)

	res, err := e.Extract(context.Background(), "DCDS")
	require.NoError(t, err)
	assert.Equal(t, []model.NavPoint{
		{Date: "2025-11-03", NAV: 30100.5},
		{Date: "2025-11-04", NAV: 30200},
		{Date: "2025-11-05", NAV: 30300},
	}, res.Points)
	assert.Equal(t, 3, res.Sources["embedded"])
}

func TestExtractBareTuples(t *testing.T) {
	page := `<script>Highcharts.stockChart('c', {series: [{name: 'NAV', data: [[1762214400000, 30300], [1762300800000, 30500], [1762387200000, 30687.5]]}]});</script>`
	f := &stubFetcher{pages: map[string]string{fundURL: page}}
	e := NewEngine(testOptions(), f)

	res, err := e.Extract(context.Background(), "DCDS")
	require.NoError(t, err)
	require.Len(t, res.Points, 3)
	assert.Equal(t, model.NavPoint{Date: "2025-11-06", NAV: 30687.5}, res.Points[2])
}

func TestExtractAPIDiscovery(t *testing.T) {
	page := `<html><head><script>
window.__cfg = {};
fetch("/api/v1/quy/{fundCode}/nav-history").then(r => r.json());
</script></head><body></body></html>`
	api := `{"data": {"items": [
  {"x": 1762214400000, "y": 30300},
  {"x": 1762300800000, "y": 30500},
  {"x": 1762387200000, "y": 30687.5}
]}}`
	f := &stubFetcher{pages: map[string]string{
		fundURL: page,
		"https://fmarket.test/api/v1/quy/DCDS/nav-history": api,
	}}
	e := NewEngine(testOptions(), f)

	res, err := e.Extract(context.Background(), "DCDS")
	require.NoError(t, err)
	assert.Len(t, res.Points, 3)
	assert.Equal(t, map[string]int{"api": 3}, res.Sources)

	var apiCall *port.FetchRequest
	for i := range f.calls {
		if strings.Contains(f.calls[i].URL, "nav-history") {
			apiCall = &f.calls[i]
		}
	}
	require.NotNil(t, apiCall)
	assert.Equal(t, "application/json", apiCall.Headers["Accept"])
}

func TestExtractStopsEscalatingOnceSufficient(t *testing.T) {
	page := `<html><head><script>fetch("/api/quy/DCDS/nav")</script></head><body>` +
		`<table><tr><td>01/10/2025</td><td>29.000</td></tr></table></body></html>`
	api := `[["2025-11-04", 30200], ["2025-11-05", 30500]]`
	f := &stubFetcher{pages: map[string]string{
		fundURL:                                page,
		"https://fmarket.test/api/quy/DCDS/nav": api,
	}}
	ev := &stubEvaluator{result: []any{[]any{"2025-09-01", 1000.0}}}
	e := NewEngine(testOptions(), f, WithEvaluator(ev))

	res, err := e.Extract(context.Background(), "DCDS")
	require.NoError(t, err)
	assert.Len(t, res.Points, 2)
	assert.Equal(t, map[string]int{"api": 2}, res.Sources)
	assert.Empty(t, ev.urls, "browser must not run once enough points exist")
}

func TestExtractEscalatesWhileInsufficient(t *testing.T) {
	page := `<html><head><script>fetch("/api/quy/DCDS/nav")</script></head><body>` +
		`<table><tr><td>01/10/2025</td><td>29.000</td></tr><tr><td>02/10/2025</td><td>29.100</td></tr></table></body></html>`
	api := `[["2025-11-05", 30500]]`
	f := &stubFetcher{pages: map[string]string{
		fundURL:                                page,
		"https://fmarket.test/api/quy/DCDS/nav": api,
	}}
	e := NewEngine(testOptions(), f)

	res, err := e.Extract(context.Background(), "DCDS")
	require.NoError(t, err)
	assert.Equal(t, []model.NavPoint{
		{Date: "2025-10-01", NAV: 29000},
		{Date: "2025-10-02", NAV: 29100},
		{Date: "2025-11-05", NAV: 30500},
	}, res.Points)
	assert.Equal(t, map[string]int{"api": 1, "table": 2}, res.Sources)
}

func TestExtractCurrentValue(t *testing.T) {
	page := `<html><body>
<div class="header"><h1>DCDS</h1></div>
<div class="price-box">
  <span class="label">Giá gần nhất</span>
  <b>30.687,50 VND</b>
  <p>Cập nhật ngày 06/11/2025</p>
</div>
</body></html>`
	f := &stubFetcher{pages: map[string]string{fundURL: page}}
	e := NewEngine(testOptions(), f)

	res, err := e.Extract(context.Background(), "DCDS")
	require.NoError(t, err)
	assert.Equal(t, []model.NavPoint{{Date: "2025-11-06", NAV: 30687.5}}, res.Points)
	assert.Equal(t, 1, res.Sources["current"])
}

func TestExtractCurrentValueDefaultsToToday(t *testing.T) {
	page := `<html><body><div><span>Giá gần nhất</span> <b>21.000 VND</b></div></body></html>`
	f := &stubFetcher{pages: map[string]string{fundURL: page}}
	clock := func() time.Time { return time.Date(2025, 12, 1, 10, 0, 0, 0, time.UTC) }
	e := NewEngine(testOptions(), f, WithClock(clock))

	res, err := e.Extract(context.Background(), "DCDS")
	require.NoError(t, err)
	assert.Equal(t, []model.NavPoint{{Date: "2025-12-01", NAV: 21000}}, res.Points)
}

func TestExtractAttachesReturn12M(t *testing.T) {
	page := strings.Replace(tablePage, "<body>", `<body>
<div class="fund__chart">
  <div class="fund__chart--filter"><div class="item">6 tháng</div><div class="item active">12 tháng</div></div>
  <div class="benefit showDesktop up">+18,4%</div>
</div>`, 1)
	f := &stubFetcher{pages: map[string]string{fundURL: page}}
	e := NewEngine(testOptions(), f)

	res, err := e.Extract(context.Background(), "DCDS")
	require.NoError(t, err)
	require.NotNil(t, res.Return12M)
	assert.Equal(t, 18.4, *res.Return12M)
}

func TestExtractRejectsInvalidCode(t *testing.T) {
	e := NewEngine(testOptions(), &stubFetcher{})
	_, err := e.Extract(context.Background(), " ")
	assert.ErrorIs(t, err, model.ErrInvalidFundCode)
}

func TestBand(t *testing.T) {
	generic := DefaultOptions().GenericBand
	table := DefaultOptions().TableBand

	assert.False(t, generic.Contains(100))
	assert.True(t, generic.Contains(100.01))
	assert.True(t, generic.Contains(5e6))
	assert.False(t, table.Contains(1000))
	assert.True(t, table.Contains(30500))
	assert.False(t, table.Contains(1000000))
}
