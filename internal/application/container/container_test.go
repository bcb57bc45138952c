package container

import (
	"context"
	"path/filepath"
	"testing"

	"navwatch/internal/domain/model"
	"navwatch/internal/infrastructure/config"
	infracontainer "navwatch/internal/infrastructure/container"
)

type fixedExtractor struct {
	points []model.NavPoint
}

func (e fixedExtractor) Extract(ctx context.Context, code model.FundCode) (*model.ExtractionResult, error) {
	return &model.ExtractionResult{Points: e.points, Sources: map[string]int{"table": len(e.points)}}, nil
}

func testConfig(t *testing.T, sqlite bool) *config.Config {
	t.Helper()
	cfg, err := config.Parse("")
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	dir := t.TempDir()
	cfg.Storage.JSONFile.Path = filepath.Join(dir, "nav.json")
	if sqlite {
		cfg.Storage.SQLite.Enabled = true
		cfg.Storage.SQLite.Path = filepath.Join(dir, "nav.db")
	}
	return cfg
}

func TestContainerWithSQLite(t *testing.T) {
	c, err := infracontainer.New(testConfig(t, true))
	if err != nil {
		t.Fatalf("failed to create container: %v", err)
	}
	defer c.Close()

	if c.SQLiteRepo() == nil {
		t.Errorf("expected SQLiteRepo, got nil")
	}
	if c.JSONRepo() == nil {
		t.Errorf("expected JSONRepo, got nil")
	}
}

func TestContainerServiceWorkflow(t *testing.T) {
	infra, err := infracontainer.New(testConfig(t, true))
	if err != nil {
		t.Fatalf("failed to create container: %v", err)
	}
	defer infra.Close()

	points := []model.NavPoint{{Date: "2025-11-05", NAV: 30500}, {Date: "2025-11-06", NAV: 30687}}
	app := New(infra.Repository(), fixedExtractor{points: points}, 2, infra.EventSinks()...)
	ctx := context.Background()

	res := app.CrawlService().CrawlOne(ctx, "DCDS")
	if !res.OK {
		t.Fatalf("CrawlOne failed: %s", res.Error)
	}
	if res.TotalCount != 2 || !res.Durable {
		t.Errorf("unexpected result: %+v", res)
	}

	// both backends hold the series
	if rec, ok, err := infra.SQLiteRepo().Load(ctx, "DCDS"); err != nil || !ok || len(rec.Series) != 2 {
		t.Errorf("sqlite: ok=%v err=%v len=%d", ok, err, len(rec.Series))
	}
	if rec, ok, err := infra.JSONRepo().Load(ctx, "DCDS"); err != nil || !ok || len(rec.Series) != 2 {
		t.Errorf("jsonfile: ok=%v err=%v len=%d", ok, err, len(rec.Series))
	}

	stats, err := app.AnalyticsService().Stats(ctx, "DCDS")
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Latest != 30687 {
		t.Errorf("expected latest 30687, got %v", stats.Latest)
	}
}

func TestContainerReusesServices(t *testing.T) {
	infra, err := infracontainer.New(testConfig(t, false))
	if err != nil {
		t.Fatalf("failed to create container: %v", err)
	}
	defer infra.Close()

	app := New(infra.Repository(), fixedExtractor{}, 1)
	if app.HistoryService() != app.HistoryService() {
		t.Errorf("history service should be built once")
	}
	if app.CrawlService().Concurrency() != 1 {
		t.Errorf("expected concurrency 1, got %d", app.CrawlService().Concurrency())
	}
}
