package container

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"navwatch/internal/application/port"
	"navwatch/internal/domain/model"
	"navwatch/internal/infrastructure/config"
	"navwatch/internal/infrastructure/fetch"
	"navwatch/internal/infrastructure/metrics"
	"navwatch/internal/infrastructure/roster"
	"navwatch/internal/infrastructure/scraper"
	"navwatch/internal/infrastructure/storage/composite"
	"navwatch/internal/infrastructure/storage/jsonfile"
	pgrepo "navwatch/internal/infrastructure/storage/postgres"
	redisrepo "navwatch/internal/infrastructure/storage/redis"
	sqliterepo "navwatch/internal/infrastructure/storage/sqlite"
	"navwatch/internal/interfaces/ws"
)

// Container holds every infrastructure dependency built from the config.
type Container struct {
	cfg *config.Config

	redisClient  *redis.Client
	jsonRepo     *jsonfile.Repo
	sqliteRepo   *sqliterepo.Repo
	postgresRepo *pgrepo.Repo
	redisRepo    *redisrepo.Repo
	repo         port.HistoryRepository

	fetcher   *fetch.HTTPFetcher
	evaluator *fetch.ChromeEvaluator
	engine    *scraper.Engine
	metrics   *metrics.Metrics
	hub       *ws.Hub

	closeOnce   sync.Once
	closerChain []func() error
}

func New(cfg *config.Config) (*Container, error) {
	c := &Container{
		cfg:         cfg,
		closerChain: make([]func() error, 0),
	}

	if err := c.initStorage(); err != nil {
		_ = c.Close()
		return nil, err
	}
	c.initExtraction()

	if cfg.Metrics.Enabled {
		c.metrics = metrics.New(cfg.Metrics.Namespace)
	}
	c.hub = ws.NewHub()
	c.closerChain = append(c.closerChain, c.hub.Close)

	return c, nil
}

// initStorage opens every enabled backend. Writes go to all of them and
// reads prefer them in declaration order.
func (c *Container) initStorage() error {
	var backends []port.HistoryRepository

	if c.cfg.Storage.JSONFile.Enabled {
		repo, err := jsonfile.New(c.cfg.Storage.JSONFile.Path)
		if err != nil {
			return fmt.Errorf("%w: jsonfile: %w", ErrStorageInitFailed, err)
		}
		c.jsonRepo = repo
		backends = append(backends, repo)
		log.Info().Str("path", repo.Path()).Msg("json history store initialized")
	}

	if c.cfg.Storage.SQLite.Enabled {
		if err := c.initSQLite(); err != nil {
			return fmt.Errorf("%w: sqlite: %w", ErrStorageInitFailed, err)
		}
		backends = append(backends, c.sqliteRepo)
	}

	if c.cfg.Storage.Postgres.Enabled {
		if err := c.initPostgres(); err != nil {
			return fmt.Errorf("%w: postgres: %w", ErrStorageInitFailed, err)
		}
		backends = append(backends, c.postgresRepo)
	}

	if c.cfg.Storage.Redis.Enabled {
		if err := c.initRedis(); err != nil {
			return fmt.Errorf("%w: redis: %w", ErrStorageInitFailed, err)
		}
		backends = append(backends, c.redisRepo)
	}

	if len(backends) == 0 {
		return fmt.Errorf("%w: no storage backend enabled", model.ErrStorageUnavailable)
	}
	if len(backends) == 1 {
		c.repo = backends[0]
	} else {
		c.repo = composite.New(backends...)
	}
	return nil
}

func (c *Container) initRedis() error {
	rdb := redis.NewClient(&redis.Options{
		Addr:     c.cfg.Storage.Redis.Addr,
		Password: c.cfg.Storage.Redis.Password,
		DB:       c.cfg.Storage.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return fmt.Errorf("redis ping failed: %w", err)
	}

	c.redisClient = rdb
	ttl := time.Duration(c.cfg.Storage.Redis.TTLSeconds) * time.Second

	c.redisRepo = redisrepo.New(
		rdb,
		c.cfg.Storage.Redis.Prefix,
		ttl,
		c.cfg.Storage.Redis.EventStream,
		c.cfg.Storage.Redis.EventChan,
	)

	c.closerChain = append(c.closerChain, func() error {
		log.Info().Msg("closing redis connection")
		return rdb.Close()
	})

	log.Info().
		Str("addr", c.cfg.Storage.Redis.Addr).
		Int("db", c.cfg.Storage.Redis.DB).
		Msg("redis initialized")

	return nil
}

func (c *Container) initSQLite() error {
	repo, err := sqliterepo.New(c.cfg.Storage.SQLite.Path)
	if err != nil {
		return err
	}

	c.sqliteRepo = repo

	c.closerChain = append(c.closerChain, func() error {
		log.Info().Msg("closing sqlite connection")
		return repo.Close()
	})

	log.Info().
		Str("path", c.cfg.Storage.SQLite.Path).
		Msg("sqlite initialized")

	return nil
}

func (c *Container) initPostgres() error {
	repo, err := pgrepo.New(c.cfg.Storage.Postgres.DSN)
	if err != nil {
		return err
	}

	c.postgresRepo = repo

	c.closerChain = append(c.closerChain, func() error {
		log.Info().Msg("closing postgres connection")
		return repo.Close()
	})

	log.Info().Msg("postgres initialized")
	return nil
}

func (c *Container) initExtraction() {
	src := c.cfg.Source
	c.fetcher = fetch.NewHTTPFetcher(fetch.HTTPConfig{
		UserAgent:         src.UserAgent,
		AcceptLanguage:    src.AcceptLanguage,
		Timeout:           time.Duration(src.PageTimeoutSec) * time.Second,
		RequestsPerSecond: src.RequestsPerSecond,
		Burst:             src.Burst,
	})

	opts := ScraperOptions(c.cfg)
	var engineOpts []scraper.EngineOption
	if c.cfg.Browser.Enabled {
		c.evaluator = fetch.NewChromeEvaluator(fetch.ChromeConfig{
			ExecPath:    c.cfg.Browser.ExecPath,
			UserAgent:   opts.UserAgent,
			Timeout:     opts.BrowserTimeout,
			SettleDelay: opts.SettleDelay,
			Headless:    c.cfg.Browser.Headless == nil || *c.cfg.Browser.Headless,
		})
		engineOpts = append(engineOpts, scraper.WithEvaluator(c.evaluator))
	}
	c.engine = scraper.NewEngine(opts, c.fetcher, engineOpts...)

	log.Info().
		Str("base_url", opts.BaseURL).
		Bool("browser", c.evaluator != nil).
		Msg("extraction engine initialized")
}

// ScraperOptions maps the [source], [extract] and [browser] sections.
func ScraperOptions(cfg *config.Config) scraper.Options {
	opts := scraper.DefaultOptions()
	opts.BaseURL = cfg.Source.BaseURL
	opts.FundPath = cfg.Source.FundPath
	if cfg.Source.UserAgent != "" {
		opts.UserAgent = cfg.Source.UserAgent
	}
	opts.AcceptLanguage = cfg.Source.AcceptLanguage
	opts.PageTimeout = time.Duration(cfg.Source.PageTimeoutSec) * time.Second
	opts.APITimeout = time.Duration(cfg.Source.APITimeoutSec) * time.Second

	ex := cfg.Extract
	opts.InsufficientPoints = ex.InsufficientPoints
	opts.TableScanBelow = ex.TableScanBelow
	opts.GenericBand = scraper.Band{Min: ex.GenericMin}
	opts.TableBand = scraper.Band{Min: ex.TableMin, Max: ex.TableMax}
	opts.ReturnMin = ex.ReturnMin
	opts.ReturnMax = ex.ReturnMax
	opts.LiteralMin = ex.LiteralMin
	opts.LiteralMax = ex.LiteralMax

	opts.BrowserTimeout = time.Duration(cfg.Browser.TimeoutSec) * time.Second
	opts.SettleDelay = time.Duration(cfg.Browser.SettleDelaySec) * time.Second
	return opts
}

func (c *Container) Config() *config.Config {
	return c.cfg
}

// Repository is the history backend, composite when several are enabled.
func (c *Container) Repository() port.HistoryRepository {
	return c.repo
}

func (c *Container) Extractor() port.Extractor {
	return c.engine
}

func (c *Container) Metrics() *metrics.Metrics {
	return c.metrics
}

func (c *Container) Hub() *ws.Hub {
	return c.hub
}

// EventSinks lists every enabled crawl event consumer.
func (c *Container) EventSinks() []port.EventSink {
	sinks := []port.EventSink{c.hub}
	if c.metrics != nil {
		sinks = append(sinks, c.metrics)
	}
	if c.redisRepo != nil {
		sinks = append(sinks, c.redisRepo)
	}
	return sinks
}

// Roster reads the configured fund list.
func (c *Container) Roster(ctx context.Context) ([]model.FundCode, error) {
	funds, err := roster.Load(c.cfg.Roster.Path)
	if err != nil {
		return nil, err
	}
	return roster.Codes(funds), nil
}

func (c *Container) RedisClient() *redis.Client {
	return c.redisClient
}

func (c *Container) RedisRepo() *redisrepo.Repo {
	return c.redisRepo
}

func (c *Container) SQLiteRepo() *sqliterepo.Repo {
	return c.sqliteRepo
}

func (c *Container) PostgresRepo() *pgrepo.Repo {
	return c.postgresRepo
}

func (c *Container) JSONRepo() *jsonfile.Repo {
	return c.jsonRepo
}

// Close releases all resources in reverse order of creation.
func (c *Container) Close() error {
	var err error
	c.closeOnce.Do(func() {
		for i := len(c.closerChain) - 1; i >= 0; i-- {
			if e := c.closerChain[i](); e != nil {
				log.Error().Err(e).Msg("error closing resource")
				if err == nil {
					err = e
				}
			}
		}
		log.Info().Msg("container closed")
	})
	return err
}
