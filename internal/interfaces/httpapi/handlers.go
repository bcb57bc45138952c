package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"navwatch/internal/application/usecase/dailycrawl"
	"navwatch/internal/domain/model"
	"navwatch/internal/domain/normalize"
)

type Handlers struct {
	deps Deps
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

func fail(c *gin.Context, status int, err error) {
	c.JSON(status, ErrorResponse{OK: false, Error: err.Error()})
}

// statusFor maps domain errors onto HTTP codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrInvalidFundCode):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrFundNotFound):
		return http.StatusNotFound
	case errors.Is(err, dailycrawl.ErrRunInProgress):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func fundCode(c *gin.Context) (model.FundCode, bool) {
	code, err := model.ParseFundCode(c.Param("code"))
	if err != nil {
		fail(c, http.StatusBadRequest, err)
		return "", false
	}
	return code, true
}

func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handlers) HandleFunds(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"funds": h.deps.History.Funds(c.Request.Context())})
}

func (h *Handlers) HandleOverview(c *gin.Context) {
	c.JSON(http.StatusOK, h.deps.Analytics.Overview(c.Request.Context()))
}

type navResponse struct {
	FundCode model.FundCode     `json:"fundCode"`
	Data     model.FundSeries   `json:"data"`
	Metadata model.FundMetadata `json:"metadata"`
}

func (h *Handlers) HandleNav(c *gin.Context) {
	code, ok := fundCode(c)
	if !ok {
		return
	}
	rec, found := h.deps.History.Record(c.Request.Context(), code)
	if !found || len(rec.Series) == 0 {
		fail(c, http.StatusNotFound, model.ErrFundNotFound)
		return
	}
	c.JSON(http.StatusOK, navResponse{FundCode: code, Data: rec.Series, Metadata: rec.Metadata})
}

func (h *Handlers) HandleStats(c *gin.Context) {
	code, ok := fundCode(c)
	if !ok {
		return
	}
	st, err := h.deps.Analytics.Stats(c.Request.Context(), code)
	if err != nil {
		fail(c, statusFor(err), model.ErrFundNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"fundCode": code, "stats": st})
}

// MergeRequest carries raw points; every field goes through the normalizer.
type MergeRequest struct {
	Data      []any    `json:"data" binding:"required"`
	Return12M *float64 `json:"return12M"`
}

func (h *Handlers) HandleMerge(c *gin.Context) {
	code, ok := fundCode(c)
	if !ok {
		return
	}
	var req MergeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}

	points := make([]model.NavPoint, 0, len(req.Data))
	for _, item := range req.Data {
		if d, v, ok := normalize.Pair(item); ok && v > 0 {
			points = append(points, model.NavPoint{Date: d, NAV: v})
		}
	}
	rejected := len(req.Data) - len(points)
	if len(points) == 0 {
		fail(c, http.StatusBadRequest, errors.New("no valid points in request"))
		return
	}

	res, err := h.deps.History.MergeReport(c.Request.Context(), code, points, req.Return12M)
	if err != nil && !errors.Is(err, model.ErrStorageUnavailable) {
		fail(c, statusFor(err), err)
		return
	}
	body := gin.H{
		"ok":       err == nil,
		"fundCode": code,
		"accepted": len(points),
		"rejected": rejected,
		"added":    res.Added,
		"total":    len(res.Series),
		"durable":  res.Durable,
	}
	if err != nil {
		body["error"] = err.Error()
	}
	c.JSON(http.StatusOK, body)
}

func (h *Handlers) HandleAnalytics(c *gin.Context) {
	code, ok := fundCode(c)
	if !ok {
		return
	}
	snap, err := h.deps.Analytics.Analytics(c.Request.Context(), code)
	if err != nil {
		fail(c, statusFor(err), model.ErrFundNotFound)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *Handlers) HandleRecommendations(c *gin.Context) {
	minScore := queryInt(c, "minScore", 0)
	limit := queryInt(c, "limit", 0)
	recs := h.deps.Analytics.Recommendations(c.Request.Context(), minScore, limit)
	c.JSON(http.StatusOK, gin.H{"recommendations": recs, "count": len(recs)})
}

func queryInt(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

type metaResponse struct {
	LastUpdated string     `json:"lastUpdated"`
	TotalFunds  int        `json:"totalFunds"`
	NextRun     *time.Time `json:"nextScheduledRun"`
	Concurrency int        `json:"crawlConcurrency"`
}

func (h *Handlers) HandleMeta(c *gin.Context) {
	ctx := c.Request.Context()
	resp := metaResponse{
		LastUpdated: h.deps.History.LastUpdated(ctx),
		TotalFunds:  len(h.deps.History.Funds(ctx)),
	}
	if h.deps.Crawler != nil {
		resp.Concurrency = h.deps.Crawler.Concurrency()
	}
	if h.deps.Schedule != nil {
		next := h.deps.Schedule.NextRun()
		resp.NextRun = &next
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handlers) HandleCrawl(c *gin.Context) {
	code, ok := fundCode(c)
	if !ok {
		return
	}
	if h.deps.Crawler == nil {
		fail(c, http.StatusServiceUnavailable, errors.New("crawler not configured"))
		return
	}
	res := h.deps.Crawler.CrawlOne(c.Request.Context(), code)
	if !res.OK {
		c.JSON(http.StatusInternalServerError, res)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handlers) HandleCrawlAll(c *gin.Context) {
	if h.deps.Batch == nil {
		fail(c, http.StatusServiceUnavailable, errors.New("batch crawl not configured"))
		return
	}
	report, err := h.deps.Batch.RunOnce(c.Request.Context())
	if err != nil {
		fail(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, report)
}
