package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	appcontainer "navwatch/internal/application/container"
	"navwatch/internal/application/usecase/dailycrawl"
	infracontainer "navwatch/internal/infrastructure/container"
	"navwatch/internal/interfaces/console"
)

type app struct {
	infra *infracontainer.Container
	svc   *appcontainer.Container
	daily *dailycrawl.Service
}

// bootstrap builds both containers and the daily crawl use case. The caller
// must call close.
func bootstrap() (*app, error) {
	infra, err := infracontainer.New(cfg)
	if err != nil {
		return nil, err
	}

	svc := appcontainer.New(infra.Repository(), infra.Extractor(), cfg.Crawl.Concurrency, infra.EventSinks()...)

	now := time.Now
	if tz := cfg.Schedule.Timezone; tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			_ = infra.Close()
			return nil, fmt.Errorf("schedule.timezone: %w", err)
		}
		now = func() time.Time { return time.Now().In(loc) }
	}

	daily := dailycrawl.NewService(dailycrawl.ServiceDeps{
		Crawler:    svc.CrawlService(),
		Roster:     infra.Roster,
		Hour:       cfg.Schedule.Hour,
		Minute:     cfg.Schedule.Minute,
		RunOnStart: cfg.Schedule.RunOnStart,
		Sink:       console.NewSink(),
		Color:      cfg.App.LogFormat != "json",
		Now:        now,
	})
	svc.CrawlService().Subscribe(daily)

	log.Info().
		Int("concurrency", svc.CrawlService().Concurrency()).
		Str("roster", cfg.Roster.Path).
		Msg("navwatch wired")

	return &app{infra: infra, svc: svc, daily: daily}, nil
}

func (a *app) close() {
	if err := a.infra.Close(); err != nil {
		log.Warn().Err(err).Msg("shutdown incomplete")
	}
}

func (a *app) roster(ctx context.Context, args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	codes, err := a.infra.Roster(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(codes))
	for i, c := range codes {
		out[i] = string(c)
	}
	return out, nil
}
