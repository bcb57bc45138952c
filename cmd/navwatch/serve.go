package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"navwatch/internal/interfaces/httpapi"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the daily crawl scheduler",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	if !cfg.HTTP.Enabled && !cfg.Schedule.Enabled {
		return errors.New("nothing to serve: enable [http] or [schedule]")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.close()

	g, ctx := errgroup.WithContext(ctx)

	if cfg.Schedule.Enabled {
		g.Go(func() error {
			err := a.daily.Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	if cfg.HTTP.Enabled {
		deps := httpapi.Deps{
			History:   a.svc.HistoryService(),
			Analytics: a.svc.AnalyticsService(),
			Crawler:   a.svc.CrawlService(),
			Batch:     a.daily,
			Events:    a.infra.Hub(),
		}
		if cfg.Schedule.Enabled {
			deps.Schedule = a.daily
		}
		if m := a.infra.Metrics(); m != nil {
			deps.Metrics = m.Handler()
		}
		var handler http.Handler = httpapi.NewRouter(deps)
		g.Go(func() error { return httpapi.Serve(ctx, cfg.HTTP.Addr, handler) })
	}

	log.Info().
		Bool("http", cfg.HTTP.Enabled).
		Bool("schedule", cfg.Schedule.Enabled).
		Int("hour", cfg.Schedule.Hour).
		Int("minute", cfg.Schedule.Minute).
		Msg("navwatch started")

	return g.Wait()
}
