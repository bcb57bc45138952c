package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"navwatch/internal/application/port"
	"navwatch/internal/domain/model"
)

type Repo struct {
	db *sql.DB
}

func New(dsn string) (*Repo, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	r := &Repo{db: db}
	if err := r.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repo) Close() error { return r.db.Close() }

func (r *Repo) migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS nav_points (
  code TEXT NOT NULL,
  date DATE NOT NULL,
  nav DOUBLE PRECISION NOT NULL,
  PRIMARY KEY (code, date)
);

CREATE TABLE IF NOT EXISTS fund_metadata (
  code TEXT PRIMARY KEY,
  return_12m DOUBLE PRECISION,
  return_12m_updated_at TIMESTAMPTZ,
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`)
	return err
}

func (r *Repo) LoadAll(ctx context.Context) (map[model.FundCode]model.FundRecord, error) {
	out := make(map[model.FundCode]model.FundRecord)

	rows, err := r.db.QueryContext(ctx, `SELECT code, to_char(date, 'YYYY-MM-DD'), nav FROM nav_points ORDER BY code, date`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrStorageUnavailable, err)
	}
	defer rows.Close()
	for rows.Next() {
		var code string
		var p model.NavPoint
		if err := rows.Scan(&code, &p.Date, &p.NAV); err != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrStorageUnavailable, err)
		}
		rec := out[model.FundCode(code)]
		rec.Series = append(rec.Series, p)
		out[model.FundCode(code)] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrStorageUnavailable, err)
	}

	metaRows, err := r.db.QueryContext(ctx, `SELECT code, return_12m, return_12m_updated_at FROM fund_metadata`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrStorageUnavailable, err)
	}
	defer metaRows.Close()
	for metaRows.Next() {
		var code string
		var ret sql.NullFloat64
		var updated sql.NullTime
		if err := metaRows.Scan(&code, &ret, &updated); err != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrStorageUnavailable, err)
		}
		rec := out[model.FundCode(code)]
		rec.Metadata = toMetadata(ret, updated)
		out[model.FundCode(code)] = rec
	}
	if err := metaRows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrStorageUnavailable, err)
	}
	return out, nil
}

func (r *Repo) Load(ctx context.Context, code model.FundCode) (model.FundRecord, bool, error) {
	var rec model.FundRecord

	rows, err := r.db.QueryContext(ctx,
		`SELECT to_char(date, 'YYYY-MM-DD'), nav FROM nav_points WHERE code=$1 ORDER BY date`, string(code))
	if err != nil {
		return rec, false, fmt.Errorf("%w: %v", model.ErrStorageUnavailable, err)
	}
	defer rows.Close()
	for rows.Next() {
		var p model.NavPoint
		if err := rows.Scan(&p.Date, &p.NAV); err != nil {
			return rec, false, fmt.Errorf("%w: %v", model.ErrStorageUnavailable, err)
		}
		rec.Series = append(rec.Series, p)
	}
	if err := rows.Err(); err != nil {
		return rec, false, fmt.Errorf("%w: %v", model.ErrStorageUnavailable, err)
	}

	var ret sql.NullFloat64
	var updated sql.NullTime
	err = r.db.QueryRowContext(ctx,
		`SELECT return_12m, return_12m_updated_at FROM fund_metadata WHERE code=$1`, string(code)).
		Scan(&ret, &updated)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if len(rec.Series) == 0 {
			return rec, false, nil
		}
	case err != nil:
		return rec, false, fmt.Errorf("%w: %v", model.ErrStorageUnavailable, err)
	default:
		rec.Metadata = toMetadata(ret, updated)
	}
	return rec, true, nil
}

// Save upserts the fund's rows in one transaction. Dates already stored and
// absent from rec are kept.
func (r *Repo) Save(ctx context.Context, code model.FundCode, rec model.FundRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrStorageUnavailable, err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, p := range rec.Series {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO nav_points(code, date, nav) VALUES($1, $2::date, $3)
			 ON CONFLICT (code, date) DO UPDATE SET nav=EXCLUDED.nav`,
			string(code), p.Date, p.NAV); err != nil {
			return fmt.Errorf("%w: %v", model.ErrStorageUnavailable, err)
		}
	}

	var ret sql.NullFloat64
	var updated sql.NullTime
	if rec.Metadata.Return12M != nil {
		ret = sql.NullFloat64{Float64: *rec.Metadata.Return12M, Valid: true}
	}
	if rec.Metadata.Return12MUpdatedAt != nil {
		updated = sql.NullTime{Time: *rec.Metadata.Return12MUpdatedAt, Valid: true}
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO fund_metadata(code, return_12m, return_12m_updated_at, updated_at)
		VALUES($1, $2, $3, now())
		ON CONFLICT (code) DO UPDATE SET
		return_12m=EXCLUDED.return_12m, return_12m_updated_at=EXCLUDED.return_12m_updated_at, updated_at=now()
	`, string(code), ret, updated); err != nil {
		return fmt.Errorf("%w: %v", model.ErrStorageUnavailable, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", model.ErrStorageUnavailable, err)
	}
	return nil
}

func toMetadata(ret sql.NullFloat64, updated sql.NullTime) model.FundMetadata {
	var m model.FundMetadata
	if ret.Valid {
		v := ret.Float64
		m.Return12M = &v
	}
	if updated.Valid {
		t := updated.Time.UTC()
		m.Return12MUpdatedAt = &t
	}
	return m
}

var _ port.HistoryRepository = (*Repo)(nil)
