package composite

import (
	"context"

	"github.com/rs/zerolog/log"

	"navwatch/internal/application/port"
	"navwatch/internal/domain/model"
)

// Repo fans writes out to every backend. LoadAll reads from the first one
// that answers; Load merges every backend's copy of a fund.
type Repo struct {
	repos []port.HistoryRepository
}

func New(repos ...port.HistoryRepository) *Repo {
	// nil repos are allowed; filter in constructor for safety
	out := make([]port.HistoryRepository, 0, len(repos))
	for _, r := range repos {
		if r != nil {
			out = append(out, r)
		}
	}
	return &Repo{repos: out}
}

func (r *Repo) LoadAll(ctx context.Context) (map[model.FundCode]model.FundRecord, error) {
	var firstErr error
	for i, repo := range r.repos {
		all, err := repo.LoadAll(ctx)
		if err == nil {
			return all, nil
		}
		log.Warn().Err(err).Int("backend", i).Msg("composite: load all failed, trying next backend")
		if firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return map[model.FundCode]model.FundRecord{}, nil
}

// Load unions the fund's series across every backend that answers, so a
// backend missing the fund or holding fewer dates never hides the others.
// Earlier backends win on conflicting dates and metadata.
func (r *Repo) Load(ctx context.Context, code model.FundCode) (model.FundRecord, bool, error) {
	var (
		out      model.FundRecord
		anyFound bool
		answered bool
		firstErr error
	)
	for i := len(r.repos) - 1; i >= 0; i-- {
		rec, found, err := r.repos[i].Load(ctx, code)
		if err != nil {
			log.Warn().Err(err).Int("backend", i).Str("fund", string(code)).Msg("composite: load failed, using other backends")
			firstErr = err
			continue
		}
		answered = true
		if !found {
			continue
		}
		anyFound = true
		out.Series = model.MergeSeries(out.Series, rec.Series)
		if rec.Metadata.Return12M != nil || out.Metadata.Return12M == nil {
			out.Metadata = rec.Metadata
		}
	}
	if !answered {
		return model.FundRecord{}, false, firstErr
	}
	return out, anyFound, nil
}

func (r *Repo) Save(ctx context.Context, code model.FundCode, rec model.FundRecord) error {
	var firstErr error
	for _, repo := range r.repos {
		if err := repo.Save(ctx, code, rec); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Repo) Close() error {
	var firstErr error
	for _, repo := range r.repos {
		if err := repo.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

var _ port.HistoryRepository = (*Repo)(nil)
