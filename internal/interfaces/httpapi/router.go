package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"navwatch/internal/application/service"
)

// BatchRunner runs a full roster crawl.
type BatchRunner interface {
	RunOnce(ctx context.Context) (service.BatchReport, error)
}

// Scheduler reports the next automatic crawl.
type Scheduler interface {
	NextRun() time.Time
}

type Deps struct {
	History   *service.HistoryService
	Analytics *service.AnalyticsService
	Crawler   *service.CrawlService
	Batch     BatchRunner  // nil disables POST /api/crawl-all
	Schedule  Scheduler    // nil when scheduling is off
	Events    http.Handler // websocket endpoint
	Metrics   http.Handler
}

// NewRouter registers every route on a fresh gin engine.
func NewRouter(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	h := &Handlers{deps: deps}
	r.GET("/healthz", h.HandleHealth)

	api := r.Group("/api")
	RegisterRoutes(api, h)

	if deps.Events != nil {
		r.GET("/ws", gin.WrapH(deps.Events))
	}
	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics))
	}
	return r
}

func RegisterRoutes(api *gin.RouterGroup, h *Handlers) {
	api.GET("/funds", h.HandleFunds)
	api.GET("/funds/overview", h.HandleOverview)
	api.GET("/nav/:code", h.HandleNav)
	api.GET("/nav/:code/stats", h.HandleStats)
	api.POST("/nav/:code", h.HandleMerge)
	api.GET("/analytics/:code", h.HandleAnalytics)
	api.GET("/dca/recommendations", h.HandleRecommendations)
	api.GET("/meta", h.HandleMeta)
	api.POST("/crawl/:code", h.HandleCrawl)
	api.POST("/crawl-all", h.HandleCrawlAll)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("http request")
	}
}

// Serve runs the server until ctx is done, then shuts it down gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("http server listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}
