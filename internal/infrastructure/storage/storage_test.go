package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"navwatch/internal/domain/model"
)

func TestInMemoryRepositoryReturnsCopies(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	rec := model.FundRecord{Series: model.FundSeries{{Date: "2025-11-06", NAV: 100}}}
	require.NoError(t, repo.Save(ctx, "DCDS", rec))
	rec.Series[0].NAV = 1

	got, found, err := repo.Load(ctx, "DCDS")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 100.0, got.Series[0].NAV)

	got.Series[0].NAV = 2
	all, err := repo.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 100.0, all["DCDS"].Series[0].NAV)

	_, found, err = repo.Load(ctx, "NONE")
	require.NoError(t, err)
	assert.False(t, found)
}
