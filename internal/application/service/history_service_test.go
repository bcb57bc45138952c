package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"navwatch/internal/domain/model"
	"navwatch/internal/infrastructure/storage"
)

// flakyRepo wraps the in-memory repository and fails on demand.
type flakyRepo struct {
	*storage.InMemoryRepository
	loadErr error
	saveErr error
}

func (r *flakyRepo) LoadAll(ctx context.Context) (map[model.FundCode]model.FundRecord, error) {
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	return r.InMemoryRepository.LoadAll(ctx)
}

func (r *flakyRepo) Load(ctx context.Context, code model.FundCode) (model.FundRecord, bool, error) {
	if r.loadErr != nil {
		return model.FundRecord{}, false, r.loadErr
	}
	return r.InMemoryRepository.Load(ctx, code)
}

func (r *flakyRepo) Save(ctx context.Context, code model.FundCode, rec model.FundRecord) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	return r.InMemoryRepository.Save(ctx, code, rec)
}

func newFlaky() *flakyRepo {
	return &flakyRepo{InMemoryRepository: storage.NewInMemoryRepository()}
}

var fixedNow = time.Date(2025, 11, 6, 9, 0, 0, 0, time.UTC)

func pts(pairs ...any) []model.NavPoint {
	out := make([]model.NavPoint, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, model.NavPoint{Date: pairs[i].(string), NAV: pairs[i+1].(float64)})
	}
	return out
}

func TestHistoryMergeOverlaysAndPersists(t *testing.T) {
	repo := newFlaky()
	h := NewHistoryService(repo, WithHistoryClock(func() time.Time { return fixedNow }))
	ctx := context.Background()

	_, err := h.Merge(ctx, "DCDS", pts("2025-11-04", 30100.0, "2025-11-05", 30200.0), nil)
	require.NoError(t, err)

	ret := 18.4
	res, err := h.MergeReport(ctx, "DCDS", pts("2025-11-05", 30250.0, "2025-11-06", 30300.0), &ret)
	require.NoError(t, err)
	assert.True(t, res.Durable)
	assert.Equal(t, 1, res.Added)
	assert.Equal(t, model.FundSeries(pts("2025-11-04", 30100.0, "2025-11-05", 30250.0, "2025-11-06", 30300.0)), res.Series)

	meta := h.Metadata(ctx, "DCDS")
	require.NotNil(t, meta.Return12M)
	assert.Equal(t, 18.4, *meta.Return12M)
	require.NotNil(t, meta.Return12MUpdatedAt)
	assert.True(t, fixedNow.Equal(*meta.Return12MUpdatedAt))
}

func TestHistoryMergeKeepsMetadataWhenReturnMissing(t *testing.T) {
	h := NewHistoryService(newFlaky())
	ctx := context.Background()

	ret := -3.5
	_, err := h.Merge(ctx, "DCDS", pts("2025-11-05", 30200.0), &ret)
	require.NoError(t, err)
	_, err = h.Merge(ctx, "DCDS", pts("2025-11-06", 30300.0), nil)
	require.NoError(t, err)

	got := h.Return12M(ctx, "DCDS")
	require.NotNil(t, got)
	assert.Equal(t, -3.5, *got)
}

func TestHistoryMergeIsIdempotent(t *testing.T) {
	h := NewHistoryService(newFlaky())
	ctx := context.Background()
	in := pts("2025-11-05", 30200.0, "2025-11-06", 30300.0)

	first, err := h.Merge(ctx, "DCDS", in, nil)
	require.NoError(t, err)
	res, err := h.MergeReport(ctx, "DCDS", in, nil)
	require.NoError(t, err)
	assert.Equal(t, first, res.Series)
	assert.Zero(t, res.Added)
}

func TestHistoryMergeSaveFailureReturnsSeries(t *testing.T) {
	repo := newFlaky()
	repo.saveErr = errors.New("disk full")
	h := NewHistoryService(repo)

	series, err := h.Merge(context.Background(), "DCDS", pts("2025-11-06", 30300.0), nil)
	require.ErrorIs(t, err, model.ErrStorageUnavailable)
	assert.Len(t, series, 1)
	assert.Empty(t, h.History(context.Background(), "DCDS"))
}

func TestHistoryMergeRejectsInvalidCode(t *testing.T) {
	h := NewHistoryService(newFlaky())
	_, err := h.Merge(context.Background(), "", pts("2025-11-06", 1.0), nil)
	assert.ErrorIs(t, err, model.ErrInvalidFundCode)
}

func TestHistoryLoadNeverFails(t *testing.T) {
	repo := newFlaky()
	repo.loadErr = model.ErrStorageUnavailable
	h := NewHistoryService(repo)

	all := h.Load(context.Background())
	assert.NotNil(t, all)
	assert.Empty(t, all)
	assert.Empty(t, h.History(context.Background(), "DCDS"))
	assert.Nil(t, h.Return12M(context.Background(), "DCDS"))
}

func TestHistoryMergeAfterLoadFailureStartsEmpty(t *testing.T) {
	repo := newFlaky()
	repo.loadErr = errors.New("unreadable")
	h := NewHistoryService(repo)

	series, err := h.Merge(context.Background(), "DCDS", pts("2025-11-06", 30300.0), nil)
	require.NoError(t, err)
	assert.Len(t, series, 1)
}

func TestHistoryReadsReturnCopies(t *testing.T) {
	h := NewHistoryService(newFlaky())
	ctx := context.Background()
	_, err := h.Merge(ctx, "DCDS", pts("2025-11-06", 30300.0), nil)
	require.NoError(t, err)

	s := h.History(ctx, "DCDS")
	s[0].NAV = 1
	assert.Equal(t, 30300.0, h.History(ctx, "DCDS")[0].NAV)
}

func TestHistoryFundsAndLastUpdated(t *testing.T) {
	h := NewHistoryService(newFlaky())
	ctx := context.Background()
	_, _ = h.Merge(ctx, "VESAF", pts("2025-11-04", 20000.0), nil)
	_, _ = h.Merge(ctx, "DCDS", pts("2025-11-06", 30300.0), nil)

	assert.Equal(t, []model.FundCode{"DCDS", "VESAF"}, h.Funds(ctx))
	assert.Equal(t, "2025-11-06", h.LastUpdated(ctx))
}
