package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"navwatch/internal/application/port"
	"navwatch/internal/domain/model"
)

// maxBodyBytes caps a single page or API response.
const maxBodyBytes = 16 << 20

// HTTPFetcher is a polite net/http page fetcher: requests share one rate
// limiter and carry default browser-like headers.
type HTTPFetcher struct {
	client   *http.Client
	limiter  *rate.Limiter
	headers  map[string]string
	fallback time.Duration
}

type HTTPConfig struct {
	UserAgent         string
	AcceptLanguage    string
	Timeout           time.Duration // used when a request carries none
	RequestsPerSecond float64       // <= 0 disables limiting
	Burst             int
}

func NewHTTPFetcher(cfg HTTPConfig) *HTTPFetcher {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	headers := map[string]string{}
	if cfg.UserAgent != "" {
		headers["User-Agent"] = cfg.UserAgent
	}
	if cfg.AcceptLanguage != "" {
		headers["Accept-Language"] = cfg.AcceptLanguage
	}

	return &HTTPFetcher{
		client:   &http.Client{},
		limiter:  limiter,
		headers:  headers,
		fallback: timeout,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, in port.FetchRequest) (*port.FetchResponse, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limit: %v", model.ErrFetchFailed, err)
	}

	timeout := in.Timeout
	if timeout <= 0 {
		timeout = f.fallback
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, in.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrFetchFailed, err)
	}
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}
	for k, v := range in.Headers {
		if v != "" {
			req.Header.Set(k, v)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", model.ErrFetchFailed, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := body
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return nil, fmt.Errorf("%w: %s http %d: %s", model.ErrFetchFailed, in.URL, resp.StatusCode, string(snippet))
	}

	return &port.FetchResponse{
		Status: resp.StatusCode,
		Body:   body,
		URL:    resp.Request.URL.String(),
	}, nil
}

var _ port.PageFetcher = (*HTTPFetcher)(nil)
