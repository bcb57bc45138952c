package scraper

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"navwatch/internal/application/port"
	"navwatch/internal/domain/model"
	"navwatch/internal/domain/normalize"
)

// Options tunes the source location and the cascade thresholds.
type Options struct {
	BaseURL        string // https://fmarket.vn
	FundPath       string // path template, {code} is replaced
	UserAgent      string
	AcceptLanguage string
	PageTimeout    time.Duration
	APITimeout     time.Duration

	// A stage runs only while the accumulated point count is at most this.
	InsufficientPoints int
	// The table scan additionally requires fewer points than this.
	TableScanBelow int

	GenericBand Band
	TableBand   Band
	ReturnMin   float64
	ReturnMax   float64

	// Byte bounds for keyed embedded array literals.
	LiteralMin int
	LiteralMax int

	BrowserTimeout time.Duration
	SettleDelay    time.Duration
}

func DefaultOptions() Options {
	return Options{
		BaseURL:            "https://fmarket.vn",
		FundPath:           "/quy/{code}",
		UserAgent:          "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		AcceptLanguage:     "vi-VN,vi;q=0.9",
		PageTimeout:        20 * time.Second,
		APITimeout:         10 * time.Second,
		InsufficientPoints: 1,
		TableScanBelow:     10,
		GenericBand:        Band{Min: 100},
		TableBand:          Band{Min: 1000, Max: 1000000},
		ReturnMin:          -50,
		ReturnMax:          200,
		LiteralMin:         100,
		LiteralMax:         50000,
		BrowserTimeout:     30 * time.Second,
		SettleDelay:        3 * time.Second,
	}
}

// FundURL is the public page of a fund.
func (o Options) FundURL(code model.FundCode) string {
	return strings.TrimRight(o.BaseURL, "/") + strings.ReplaceAll(o.FundPath, "{code}", string(code))
}

// Band is an exclusive value range. Max <= 0 means unbounded above.
type Band struct {
	Min float64
	Max float64
}

func (b Band) Contains(v float64) bool {
	return v > b.Min && (b.Max <= 0 || v < b.Max)
}

// Filter is the plausibility check shared by every strategy.
type Filter struct {
	Band    Band
	dropped int
}

// Accept normalizes a raw pair and checks the band. Rejections are counted,
// never reported as errors.
func (f *Filter) Accept(rawDate, rawValue any) (model.NavPoint, bool) {
	d, ok := normalize.DateValue(rawDate)
	if !ok {
		f.dropped++
		return model.NavPoint{}, false
	}
	v, ok := normalize.NumberValue(rawValue)
	if !ok || !f.Band.Contains(v) {
		f.dropped++
		return model.NavPoint{}, false
	}
	return model.NavPoint{Date: d, NAV: v}, true
}

// AcceptItem resolves a record or tuple through the field aliases first.
func (f *Filter) AcceptItem(item any) (model.NavPoint, bool) {
	d, v, ok := normalize.ResolvePair(item)
	if !ok {
		f.dropped++
		return model.NavPoint{}, false
	}
	return f.Accept(d, v)
}

func (f *Filter) Dropped() int { return f.dropped }

// Page is a fetched fund page parsed once for every HTML strategy.
type Page struct {
	URL     *url.URL
	Raw     string
	Doc     *goquery.Document
	Scripts []string
}

func ParsePage(rawURL string, body []byte) (*Page, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	p := &Page{URL: u, Raw: string(body), Doc: doc}
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		if txt := s.Text(); strings.TrimSpace(txt) != "" {
			p.Scripts = append(p.Scripts, txt)
		}
	})
	return p, nil
}

// Input is what a strategy sees.
type Input struct {
	Code   model.FundCode
	URL    string
	Page   *Page // nil when the page fetch failed
	Filter *Filter
}

// Strategy recovers candidate points from one representation of the data.
type Strategy interface {
	Name() string
	// NeedsPage reports whether the strategy reads the fetched HTML.
	NeedsPage() bool
	Extract(ctx context.Context, in *Input) ([]model.NavPoint, error)
}

// Stage is one step of the cascade.
type Stage struct {
	Strategy Strategy
	Band     Band
	// Gate is an extra condition on the accumulated point count.
	Gate func(count int) bool
}

// Engine runs the cascade for one fund at a time. It is safe for concurrent use.
type Engine struct {
	opts      Options
	fetcher   port.PageFetcher
	stages    []Stage
	evaluator port.PageEvaluator
	now       func() time.Time
}

type EngineOption func(*Engine)

// WithEvaluator adds the rendered-page stage. It always runs last, after the
// default or WithStages cascade, whatever the option order.
func WithEvaluator(ev port.PageEvaluator) EngineOption {
	return func(e *Engine) { e.evaluator = ev }
}

// WithClock replaces time.Now for the current-value fallback date.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// WithStages replaces the default cascade.
func WithStages(stages ...Stage) EngineOption {
	return func(e *Engine) { e.stages = stages }
}

func NewEngine(opts Options, fetcher port.PageFetcher, options ...EngineOption) *Engine {
	e := &Engine{opts: opts, fetcher: fetcher, now: time.Now}
	e.stages = e.defaultStages()
	for _, o := range options {
		o(e)
	}
	if e.evaluator != nil {
		e.stages = append(e.stages, Stage{
			Strategy: NewBrowserStrategy(e.evaluator, e.opts.BrowserTimeout),
			Band:     e.opts.GenericBand,
		})
	}
	return e
}

func (e *Engine) defaultStages() []Stage {
	return []Stage{
		{Strategy: &APIStrategy{fetcher: e.fetcher, opts: e.opts}, Band: e.opts.GenericBand},
		{Strategy: &EmbeddedStrategy{minLen: e.opts.LiteralMin, maxLen: e.opts.LiteralMax}, Band: e.opts.GenericBand},
		{
			Strategy: &TableStrategy{},
			Band:     e.opts.TableBand,
			Gate:     func(count int) bool { return count < e.opts.TableScanBelow },
		},
		{Strategy: &CurrentValueStrategy{now: func() time.Time { return e.now() }}, Band: e.opts.GenericBand},
	}
}

// Extract runs the cascade and the 12-month return lookup for one fund.
func (e *Engine) Extract(ctx context.Context, code model.FundCode) (*model.ExtractionResult, error) {
	if err := code.Validate(); err != nil {
		return nil, err
	}
	pageURL := e.opts.FundURL(code)

	page, err := e.fetchPage(ctx, pageURL)
	if err != nil {
		log.Debug().Err(err).Str("fund", string(code)).Str("url", pageURL).Msg("page fetch failed, html strategies skipped")
	}

	res := &model.ExtractionResult{Sources: make(map[string]int)}
	seen := make(map[string]struct{})

	for _, st := range e.stages {
		count := len(seen)
		if count > e.opts.InsufficientPoints {
			break
		}
		if st.Gate != nil && !st.Gate(count) {
			continue
		}
		if st.Strategy.NeedsPage() && page == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		filter := &Filter{Band: st.Band}
		pts, err := st.Strategy.Extract(ctx, &Input{Code: code, URL: pageURL, Page: page, Filter: filter})
		if err != nil {
			log.Debug().Err(err).Str("fund", string(code)).Str("strategy", st.Strategy.Name()).Msg("strategy failed")
			continue
		}
		log.Debug().
			Str("fund", string(code)).
			Str("strategy", st.Strategy.Name()).
			Int("accepted", len(pts)).
			Int("dropped", filter.Dropped()).
			Msg("strategy done")

		if len(pts) == 0 {
			continue
		}
		res.Sources[st.Strategy.Name()] += len(pts)
		res.Points = append(res.Points, pts...)
		for _, p := range pts {
			seen[p.Date] = struct{}{}
		}
	}

	if page != nil {
		res.Return12M = Return12M(page.Doc, e.opts.ReturnMin, e.opts.ReturnMax)
	}

	res.Points = model.Dedupe(res.Points)
	if len(res.Points) == 0 {
		return nil, fmt.Errorf("%w for fund %s", model.ErrNoNAVData, code)
	}
	return res, nil
}

func (e *Engine) fetchPage(ctx context.Context, pageURL string) (*Page, error) {
	if e.fetcher == nil {
		return nil, fmt.Errorf("%w: no page fetcher", model.ErrFetchFailed)
	}
	resp, err := e.fetcher.Fetch(ctx, port.FetchRequest{
		URL: pageURL,
		Headers: map[string]string{
			"User-Agent":      e.opts.UserAgent,
			"Accept-Language": e.opts.AcceptLanguage,
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		},
		Timeout: e.opts.PageTimeout,
	})
	if err != nil {
		return nil, err
	}
	final := pageURL
	if resp.URL != "" {
		final = resp.URL
	}
	return ParsePage(final, resp.Body)
}

var _ port.Extractor = (*Engine)(nil)
