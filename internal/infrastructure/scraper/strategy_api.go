package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"

	"navwatch/internal/application/port"
	"navwatch/internal/domain/model"
)

var (
	reAbsoluteEndpoint = regexp.MustCompile(`https?://[^"'\s<>]+(?:api|chart|nav|data)[^"'\s<>]*`)
	reCallEndpoint     = regexp.MustCompile(`(?:fetch|axios(?:\.get)?|\.get|\.post)\(\s*['"` + "`" + `]([^'"` + "`" + `]+)['"` + "`" + `]`)
)

var staticExt = map[string]bool{
	".js": true, ".css": true, ".png": true, ".jpg": true, ".jpeg": true,
	".gif": true, ".svg": true, ".webp": true, ".ico": true, ".woff": true, ".woff2": true,
}

// maxAPIAttempts bounds how many discovered endpoints are tried per fund.
const maxAPIAttempts = 3

// APIStrategy discovers a JSON endpoint referenced by the page and reads the
// series from it.
type APIStrategy struct {
	fetcher port.PageFetcher
	opts    Options
}

func (s *APIStrategy) Name() string    { return "api" }
func (s *APIStrategy) NeedsPage() bool { return true }

func (s *APIStrategy) Extract(ctx context.Context, in *Input) ([]model.NavPoint, error) {
	if s.fetcher == nil {
		return nil, nil
	}
	host := ""
	if u, err := url.Parse(s.opts.BaseURL); err == nil {
		host = u.Hostname()
	}

	endpoints := DiscoverEndpoints(in.Page, in.Code, host)
	if len(endpoints) > maxAPIAttempts {
		endpoints = endpoints[:maxAPIAttempts]
	}

	var lastErr error
	for _, ep := range endpoints {
		resp, err := s.fetcher.Fetch(ctx, port.FetchRequest{
			URL: ep,
			Headers: map[string]string{
				"User-Agent":      s.opts.UserAgent,
				"Accept-Language": s.opts.AcceptLanguage,
				"Accept":          "application/json",
				"Referer":         in.URL,
			},
			Timeout: s.opts.APITimeout,
		})
		if err != nil {
			lastErr = err
			continue
		}

		items, err := decodeSeriesPayload(resp.Body)
		if err != nil {
			lastErr = fmt.Errorf("endpoint %s: %w", ep, err)
			continue
		}
		var out []model.NavPoint
		for _, item := range items {
			if p, ok := in.Filter.AcceptItem(item); ok {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			return out, nil
		}
	}
	return nil, lastErr
}

// DiscoverEndpoints lists candidate data URLs in preference order: URLs
// naming the fund, then other absolute URLs on the source host, then
// relative paths passed to fetch-style calls.
func DiscoverEndpoints(page *Page, code model.FundCode, host string) []string {
	if page == nil {
		return nil
	}
	text := strings.Join(page.Scripts, "\n") + "\n" + page.Raw
	lowerCode := strings.ToLower(string(code))

	var withCode, absolute, calls []string
	seen := make(map[string]bool)
	add := func(bucket *[]string, raw string) {
		u := resolveEndpoint(page.URL, substituteCode(raw, code))
		if u == "" || seen[u] || isStaticAsset(u) {
			return
		}
		seen[u] = true
		if strings.Contains(strings.ToLower(u), lowerCode) {
			withCode = append(withCode, u)
			return
		}
		*bucket = append(*bucket, u)
	}

	for _, m := range reAbsoluteEndpoint.FindAllString(text, -1) {
		if host != "" && !strings.Contains(m, host) {
			continue
		}
		add(&absolute, m)
	}
	for _, m := range reCallEndpoint.FindAllStringSubmatch(text, -1) {
		p := m[1]
		lp := strings.ToLower(p)
		if !strings.Contains(lp, "/quy/") && !strings.Contains(lp, "nav") && !strings.Contains(lp, "chart") {
			continue
		}
		add(&calls, p)
	}

	out := make([]string, 0, len(withCode)+len(absolute)+len(calls))
	out = append(out, withCode...)
	out = append(out, absolute...)
	return append(out, calls...)
}

func substituteCode(raw string, code model.FundCode) string {
	r := strings.NewReplacer(
		"${fundCode}", string(code),
		"{fundCode}", string(code),
		"${code}", string(code),
		"{code}", string(code),
	)
	return r.Replace(raw)
}

func resolveEndpoint(base *url.URL, raw string) string {
	ref, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	if base != nil {
		ref = base.ResolveReference(ref)
	}
	if ref.Scheme != "http" && ref.Scheme != "https" {
		return ""
	}
	return ref.String()
}

func isStaticAsset(u string) bool {
	pu, err := url.Parse(u)
	if err != nil {
		return true
	}
	return staticExt[strings.ToLower(path.Ext(pu.Path))]
}

// decodeSeriesPayload accepts a top-level array or an object carrying the
// array under data, items or result (one level of nesting is followed).
func decodeSeriesPayload(b []byte) ([]any, error) {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, err
	}
	if items, ok := seriesIn(v, 2); ok {
		return items, nil
	}
	return nil, fmt.Errorf("no series array in payload")
}

func seriesIn(v any, depth int) ([]any, bool) {
	switch x := v.(type) {
	case []any:
		return x, true
	case map[string]any:
		if depth == 0 {
			return nil, false
		}
		for _, k := range []string{"data", "items", "result"} {
			if inner, ok := x[k]; ok {
				if items, ok := seriesIn(inner, depth-1); ok {
					return items, true
				}
			}
		}
	}
	return nil, false
}
