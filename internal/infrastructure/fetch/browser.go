package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"

	"navwatch/internal/application/port"
	"navwatch/internal/domain/model"
)

type ChromeConfig struct {
	ExecPath    string // empty: let chromedp locate Chrome
	UserAgent   string
	Timeout     time.Duration
	SettleDelay time.Duration
	Headless    bool
}

// ChromeEvaluator renders a page in headless Chrome and evaluates a script
// once the document is complete and a settle delay has passed. Each call
// runs its own browser process.
type ChromeEvaluator struct {
	cfg ChromeConfig
}

func NewChromeEvaluator(cfg ChromeConfig) *ChromeEvaluator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &ChromeEvaluator{cfg: cfg}
}

func (c *ChromeEvaluator) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", c.cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.NoSandbox,
	)
	if c.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(c.cfg.ExecPath))
	}
	if c.cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(c.cfg.UserAgent))
	}
	return opts
}

func (c *ChromeEvaluator) Evaluate(ctx context.Context, url, script string) (any, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, c.allocatorOptions()...)
	defer cancelAlloc()

	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()

	start := time.Now()
	var ready bool
	var out any
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		chromedp.Poll(`document.readyState === "complete"`, &ready),
		chromedp.Sleep(c.cfg.SettleDelay),
		chromedp.Evaluate(script, &out),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: chrome %s: %v", model.ErrFetchFailed, url, err)
	}

	log.Debug().Str("url", url).Dur("elapsed", time.Since(start)).Msg("browser evaluation done")
	return out, nil
}

var _ port.PageEvaluator = (*ChromeEvaluator)(nil)
