package dailycrawl

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"navwatch/internal/application/port"
	"navwatch/internal/application/service"
	"navwatch/internal/domain/model"
)

type Crawler interface {
	CrawlAll(ctx context.Context, codes []model.FundCode) service.BatchReport
}

// RosterFunc supplies the fund list at the start of every run.
type RosterFunc func(ctx context.Context) ([]model.FundCode, error)

type ServiceDeps struct {
	Crawler    Crawler
	Roster     RosterFunc
	Hour       int
	Minute     int
	RunOnStart bool
	Sink       port.Sink
	Color      bool
	Now        func() time.Time
}

// Service triggers a batch crawl once a day and renders its progress.
type Service struct {
	deps ServiceDeps
	st   *State
	fmt  *Formatter

	runMu sync.Mutex
}

func NewService(deps ServiceDeps) *Service {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Service{
		deps: deps,
		st:   NewState(),
		fmt:  NewFormatter(deps.Color),
	}
}

// NextRun is the next scheduled trigger after the current time.
func (s *Service) NextRun() time.Time {
	return NextRun(s.deps.Now(), s.deps.Hour, s.deps.Minute)
}

func (s *Service) Snapshot() Snapshot { return s.st.Snapshot() }

// Run blocks until ctx is done, triggering RunOnce at every scheduled time.
func (s *Service) Run(ctx context.Context) error {
	if s.deps.Crawler == nil || s.deps.Roster == nil {
		return errors.New("dailycrawl: crawler and roster are required")
	}

	if s.deps.RunOnStart {
		if _, err := s.RunOnce(ctx); err != nil {
			log.Warn().Err(err).Msg("startup crawl skipped")
		}
	}

	for {
		next := s.NextRun()
		s.st.SetNext(next)
		log.Info().Time("next_run", next).Msg("daily crawl scheduled")

		timer := time.NewTimer(next.Sub(s.deps.Now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			if s.deps.Sink != nil {
				_ = s.deps.Sink.NewLine()
			}
			return ctx.Err()
		case <-timer.C:
			if _, err := s.RunOnce(ctx); err != nil {
				log.Warn().Err(err).Msg("scheduled crawl skipped")
			}
		}
	}
}

// ErrRunInProgress is returned when a run is requested while one is active.
var ErrRunInProgress = errors.New("crawl already running")

// RunOnce crawls the current roster immediately.
func (s *Service) RunOnce(ctx context.Context) (service.BatchReport, error) {
	if !s.runMu.TryLock() {
		return service.BatchReport{}, ErrRunInProgress
	}
	defer s.runMu.Unlock()

	codes, err := s.deps.Roster(ctx)
	if err != nil {
		return service.BatchReport{}, err
	}
	if len(codes) == 0 {
		return service.BatchReport{}, errors.New("roster is empty")
	}

	s.st.Begin(codes)
	s.writeLive()

	report := s.deps.Crawler.CrawlAll(ctx, codes)
	s.st.Finish(report.RunID, report.FinishedAt, report.Succeeded, report.Failed)

	if s.deps.Sink != nil {
		_ = s.deps.Sink.WriteSnapshot(s.deps.Now(), s.fmt.RenderSummary(report))
	}
	return report, nil
}

// PublishCrawl feeds per-fund events into the live progress line.
func (s *Service) PublishCrawl(ctx context.Context, ev port.CrawlEvent) error {
	if s.st.Apply(ev) {
		s.writeLive()
	}
	return nil
}

func (s *Service) writeLive() {
	if s.deps.Sink == nil {
		return
	}
	_ = s.deps.Sink.WriteLive(s.fmt.RenderLive(s.st.Snapshot()))
}

var _ port.EventSink = (*Service)(nil)
