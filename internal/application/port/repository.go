package port

import (
	"context"

	"navwatch/internal/domain/model"
)

// HistoryRepository persists fund records. Implementations store whole
// records; merge semantics live above this port.
type HistoryRepository interface {
	// LoadAll returns every stored record. An empty store is not an error.
	LoadAll(ctx context.Context) (map[model.FundCode]model.FundRecord, error)
	// Load returns one record; found is false when nothing is stored.
	Load(ctx context.Context, code model.FundCode) (rec model.FundRecord, found bool, err error)
	// Save replaces the stored record for code.
	Save(ctx context.Context, code model.FundCode, rec model.FundRecord) error

	// Connection management
	Close() error
}
