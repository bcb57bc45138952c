package container

import (
	"navwatch/internal/application/port"
	"navwatch/internal/application/service"
)

// Container builds the application services lazily over one repository and
// one extractor.
type Container struct {
	repo        port.HistoryRepository
	extractor   port.Extractor
	sinks       []port.EventSink
	concurrency int

	historyService   *service.HistoryService
	crawlService     *service.CrawlService
	analyticsService *service.AnalyticsService
}

func New(repo port.HistoryRepository, extractor port.Extractor, concurrency int, sinks ...port.EventSink) *Container {
	return &Container{
		repo:        repo,
		extractor:   extractor,
		sinks:       sinks,
		concurrency: concurrency,
	}
}

func (c *Container) Repository() port.HistoryRepository {
	return c.repo
}

func (c *Container) HistoryService() *service.HistoryService {
	if c.historyService == nil {
		c.historyService = service.NewHistoryService(c.repo)
	}
	return c.historyService
}

func (c *Container) CrawlService() *service.CrawlService {
	if c.crawlService == nil {
		c.crawlService = service.NewCrawlService(
			c.extractor,
			c.HistoryService(),
			service.WithConcurrency(c.concurrency),
			service.WithEventSinks(c.sinks...),
		)
	}
	return c.crawlService
}

func (c *Container) AnalyticsService() *service.AnalyticsService {
	if c.analyticsService == nil {
		c.analyticsService = service.NewAnalyticsService(c.HistoryService())
	}
	return c.analyticsService
}

func (c *Container) Close() error {
	return c.repo.Close()
}
