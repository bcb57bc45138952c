package scraper

import (
	"context"
	"fmt"
	"time"

	"navwatch/internal/application/port"
	"navwatch/internal/domain/model"
)

// inspectScript looks for chart data in the rendered page: Chart.js
// instances, Highcharts series, ApexCharts globals, data attributes, then any
// global array whose first element is a record or a tuple.
const inspectScript = `(() => {
  const nonEmpty = (a) => Array.isArray(a) && a.length > 0;
  try {
    if (window.Chart && Chart.instances) {
      for (const c of Object.values(Chart.instances)) {
        const ds = c && c.data && c.data.datasets && c.data.datasets[0];
        if (ds && nonEmpty(ds.data)) {
          const labels = (c.data && c.data.labels) || [];
          return ds.data.map((v, i) => (v !== null && typeof v === 'object') ? v : [labels[i], v]);
        }
      }
    }
  } catch (e) {}
  try {
    if (window.Highcharts && Highcharts.charts) {
      for (const ch of Highcharts.charts) {
        if (!ch || !ch.series) continue;
        for (const s of ch.series) {
          if (s.options && nonEmpty(s.options.data)) return s.options.data;
          if (nonEmpty(s.points)) return s.points.map((p) => [p.x, p.y]);
        }
      }
    }
  } catch (e) {}
  try {
    const apex = (window.Apex && window.Apex._chartInstances) || [];
    for (const inst of apex) {
      const w = inst && inst.chart && inst.chart.w;
      if (w && w.globals && nonEmpty(w.globals.seriesData) && nonEmpty(w.globals.seriesData[0])) {
        const xs = (w.globals.seriesX && w.globals.seriesX[0]) || [];
        return w.globals.seriesData[0].map((v, i) => [xs[i], v]);
      }
    }
  } catch (e) {}
  try {
    for (const el of document.querySelectorAll('[data-chart-data],[data-data]')) {
      const raw = el.getAttribute('data-chart-data') || el.getAttribute('data-data');
      const v = JSON.parse(raw);
      if (nonEmpty(v)) return v;
    }
  } catch (e) {}
  for (const k of Object.keys(window)) {
    try {
      const v = window[k];
      if (!Array.isArray(v) || v.length <= 5) continue;
      const f = v[0];
      if (Array.isArray(f) && f.length >= 2) return v;
      if (f && typeof f === 'object' && ('date' in f || 'x' in f || 't' in f || 'time' in f)) return v;
    } catch (e) {}
  }
  return [];
})()`

// BrowserStrategy renders the page and reads runtime chart objects.
type BrowserStrategy struct {
	eval    port.PageEvaluator
	timeout time.Duration
}

func NewBrowserStrategy(eval port.PageEvaluator, timeout time.Duration) *BrowserStrategy {
	return &BrowserStrategy{eval: eval, timeout: timeout}
}

func (s *BrowserStrategy) Name() string    { return "browser" }
func (s *BrowserStrategy) NeedsPage() bool { return false }

func (s *BrowserStrategy) Extract(ctx context.Context, in *Input) ([]model.NavPoint, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	v, err := s.eval.Evaluate(ctx, in.URL, inspectScript)
	if err != nil {
		return nil, fmt.Errorf("%w: browser: %v", model.ErrFetchFailed, err)
	}
	items, ok := v.([]any)
	if !ok {
		return nil, nil
	}

	var out []model.NavPoint
	for _, item := range items {
		if p, ok := in.Filter.AcceptItem(item); ok {
			out = append(out, p)
		}
	}
	return out, nil
}
