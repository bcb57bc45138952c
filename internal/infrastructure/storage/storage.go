package storage

import (
	"context"
	"sync"

	"navwatch/internal/application/port"
	"navwatch/internal/domain/model"
)

// InMemoryRepository keeps records in process memory. Nothing survives a
// restart; it backs tests and the "memory" driver.
type InMemoryRepository struct {
	mu      sync.RWMutex
	records map[model.FundCode]model.FundRecord
}

// NewInMemoryRepository creates an empty repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		records: make(map[model.FundCode]model.FundRecord),
	}
}

func (r *InMemoryRepository) LoadAll(ctx context.Context) (map[model.FundCode]model.FundRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[model.FundCode]model.FundRecord, len(r.records))
	for code, rec := range r.records {
		out[code] = rec.Clone()
	}
	return out, nil
}

func (r *InMemoryRepository) Load(ctx context.Context, code model.FundCode) (model.FundRecord, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[code]
	if !ok {
		return model.FundRecord{}, false, nil
	}
	return rec.Clone(), true, nil
}

func (r *InMemoryRepository) Save(ctx context.Context, code model.FundCode, rec model.FundRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records[code] = rec.Clone()
	return nil
}

func (r *InMemoryRepository) Close() error {
	return nil
}

var _ port.HistoryRepository = (*InMemoryRepository)(nil)
