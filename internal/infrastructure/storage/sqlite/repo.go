package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"navwatch/internal/application/port"
	"navwatch/internal/domain/model"
)

type Repo struct {
	db *sql.DB
}

func New(path string) (*Repo, error) {
	// ensure directory exists
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	r := &Repo{db: db}
	if err := r.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repo) Close() error { return r.db.Close() }

func (r *Repo) GetDB() *sql.DB {
	return r.db
}

func (r *Repo) migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS nav_points (
  code TEXT NOT NULL,
  date TEXT NOT NULL,
  nav REAL NOT NULL,
  PRIMARY KEY(code, date)
);
CREATE INDEX IF NOT EXISTS idx_nav_points_code ON nav_points(code);

CREATE TABLE IF NOT EXISTS fund_metadata (
  code TEXT PRIMARY KEY,
  return_12m REAL,
  return_12m_updated_ms INTEGER,
  updated_at INTEGER NOT NULL
);
`)
	return err
}

func (r *Repo) LoadAll(ctx context.Context) (map[model.FundCode]model.FundRecord, error) {
	out := make(map[model.FundCode]model.FundRecord)

	rows, err := r.db.QueryContext(ctx, `SELECT code, date, nav FROM nav_points ORDER BY code, date`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	for rows.Next() {
		var code, date string
		var nav float64
		if err := rows.Scan(&code, &date, &nav); err != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrStorageUnavailable, err)
		}
		rec := out[model.FundCode(code)]
		rec.Series = append(rec.Series, model.NavPoint{Date: date, NAV: nav})
		out[model.FundCode(code)] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrStorageUnavailable, err)
	}

	metaRows, err := r.db.QueryContext(ctx, `SELECT code, return_12m, return_12m_updated_ms FROM fund_metadata`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrStorageUnavailable, err)
	}
	defer metaRows.Close()

	for metaRows.Next() {
		var code string
		var ret sql.NullFloat64
		var updated sql.NullInt64
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

	rows, err := r.db.QueryContext(ctx, `SELECT date, nav FROM nav_points WHERE code=? ORDER BY date`, string(code))
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
	var updated sql.NullInt64
	err = r.db.QueryRowContext(ctx, `SELECT return_12m, return_12m_updated_ms FROM fund_metadata WHERE code=?`, string(code)).
		Scan(&ret, &updated)
	switch {
	case err == sql.ErrNoRows:
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

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO nav_points(code, date, nav) VALUES(?, ?, ?)
		ON CONFLICT(code, date) DO UPDATE SET nav=excluded.nav`)
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrStorageUnavailable, err)
	}
	defer stmt.Close()

	for _, p := range rec.Series {
		if _, err := stmt.ExecContext(ctx, string(code), p.Date, p.NAV); err != nil {
			return fmt.Errorf("%w: %v", model.ErrStorageUnavailable, err)
		}
	}

	ret, updated := fromMetadata(rec.Metadata)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO fund_metadata(code, return_12m, return_12m_updated_ms, updated_at)
		VALUES(?, ?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET
		return_12m=excluded.return_12m, return_12m_updated_ms=excluded.return_12m_updated_ms, updated_at=excluded.updated_at
	`, string(code), ret, updated, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrStorageUnavailable, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", model.ErrStorageUnavailable, err)
	}
	return nil
}

func toMetadata(ret sql.NullFloat64, updated sql.NullInt64) model.FundMetadata {
	var m model.FundMetadata
	if ret.Valid {
		v := ret.Float64
		m.Return12M = &v
	}
	if updated.Valid {
		t := time.UnixMilli(updated.Int64).UTC()
		m.Return12MUpdatedAt = &t
	}
	return m
}

func fromMetadata(m model.FundMetadata) (sql.NullFloat64, sql.NullInt64) {
	var ret sql.NullFloat64
	var updated sql.NullInt64
	if m.Return12M != nil {
		ret = sql.NullFloat64{Float64: *m.Return12M, Valid: true}
	}
	if m.Return12MUpdatedAt != nil {
		updated = sql.NullInt64{Int64: m.Return12MUpdatedAt.UnixMilli(), Valid: true}
	}
	return ret, updated
}

var _ port.HistoryRepository = (*Repo)(nil)
