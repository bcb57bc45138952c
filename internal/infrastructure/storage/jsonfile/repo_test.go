package jsonfile

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"navwatch/internal/domain/model"
)

func TestJSONFileRepoMissingFileIsEmpty(t *testing.T) {
	repo, err := New(filepath.Join(t.TempDir(), "data", "nav.json"))
	require.NoError(t, err)

	all, err := repo.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestJSONFileRepoSaveWritesDocumentLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nav.json")
	repo, err := New(path)
	require.NoError(t, err)

	ctx := context.Background()
	ret := 15.2
	ts := time.Date(2025, 11, 6, 9, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Save(ctx, "DCDS", model.FundRecord{
		Series:   model.FundSeries{{Date: "2025-11-06", NAV: 30687.5}},
		Metadata: model.FundMetadata{Return12M: &ret, Return12MUpdatedAt: &ts},
	}))
	require.NoError(t, repo.Save(ctx, "VESAF", model.FundRecord{
		Series: model.FundSeries{{Date: "2025-11-06", NAV: 21000}},
	}))

	b, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc map[string]struct {
		Data     []map[string]any `json:"data"`
		Metadata map[string]any   `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal(b, &doc))
	require.Contains(t, doc, "DCDS")
	require.Contains(t, doc, "VESAF")
	assert.Equal(t, "2025-11-06", doc["DCDS"].Data[0]["date"])
	assert.Equal(t, 30687.5, doc["DCDS"].Data[0]["nav"])
	assert.Equal(t, 15.2, doc["DCDS"].Metadata["return12M"])
	assert.Nil(t, doc["VESAF"].Metadata["return12M"])

	rec, found, err := repo.Load(ctx, "DCDS")
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, ts.Equal(*rec.Metadata.Return12MUpdatedAt))
}

func TestJSONFileRepoReadsLegacyShapes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nav.json")
	legacy := `{
  "OLD": [{"date":"2024-01-03","nav":11000},{"date":"2024-01-02","nav":10000}],
  "MID": {"data":[{"date":"2024-01-02","nav":20000}],"metadata":{"return12M":-4.5,"return12MUpdated":"2024-01-02T09:00:00Z"}}
}`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))

	repo, err := New(path)
	require.NoError(t, err)
	all, err := repo.LoadAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, model.FundSeries{
		{Date: "2024-01-02", NAV: 10000},
		{Date: "2024-01-03", NAV: 11000},
	}, all["OLD"].Series)
	assert.Nil(t, all["OLD"].Metadata.Return12M)

	require.NotNil(t, all["MID"].Metadata.Return12M)
	assert.Equal(t, -4.5, *all["MID"].Metadata.Return12M)
	require.NotNil(t, all["MID"].Metadata.Return12MUpdatedAt)
}

func TestJSONFileRepoCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nav.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	repo, err := New(path)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = repo.LoadAll(ctx)
	assert.ErrorIs(t, err, model.ErrStorageUnavailable)

	// a write replaces the corrupt document
	require.NoError(t, repo.Save(ctx, "DCDS", model.FundRecord{Series: model.FundSeries{{Date: "2025-11-06", NAV: 1000}}}))
	all, err := repo.LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
