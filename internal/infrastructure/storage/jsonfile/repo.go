package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"navwatch/internal/application/port"
	"navwatch/internal/domain/model"
)

// Repo stores every fund in one JSON document:
//
//	{ "<code>": { "data": [{"date","nav"}...], "metadata": {...} } }
//
// Writes rewrite the whole file through a temp file and rename.
type Repo struct {
	path string
	mu   sync.Mutex
}

func New(path string) (*Repo, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("jsonfile: create dir: %w", err)
		}
	}
	return &Repo{path: path}, nil
}

func (r *Repo) Path() string { return r.path }

func (r *Repo) Close() error { return nil }

func (r *Repo) LoadAll(ctx context.Context) (map[model.FundCode]model.FundRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.read()
}

func (r *Repo) Load(ctx context.Context, code model.FundCode) (model.FundRecord, bool, error) {
	all, err := r.LoadAll(ctx)
	if err != nil {
		return model.FundRecord{}, false, err
	}
	rec, ok := all[code]
	return rec, ok, nil
}

func (r *Repo) Save(ctx context.Context, code model.FundCode, rec model.FundRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.read()
	if err != nil {
		// corrupt state is replaced rather than blocking every write
		log.Warn().Err(err).Str("path", r.path).Msg("jsonfile: unreadable store, starting fresh")
		all = make(map[model.FundCode]model.FundRecord)
	}
	all[code] = rec
	return r.write(all)
}

func (r *Repo) read() (map[model.FundCode]model.FundRecord, error) {
	b, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return make(map[model.FundCode]model.FundRecord), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", model.ErrStorageUnavailable, r.path, err)
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return make(map[model.FundCode]model.FundRecord), nil
	}
	out, err := Decode(b)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", model.ErrStorageUnavailable, r.path, err)
	}
	return out, nil
}

func (r *Repo) write(all map[model.FundCode]model.FundRecord) error {
	b, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode: %v", model.ErrStorageUnavailable, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrStorageUnavailable, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: write: %v", model.ErrStorageUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close: %v", model.ErrStorageUnavailable, err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		return fmt.Errorf("%w: rename: %v", model.ErrStorageUnavailable, err)
	}
	return nil
}

type storedMetadata struct {
	Return12M          *float64   `json:"return12M"`
	Return12MUpdatedAt *time.Time `json:"return12MUpdatedAt"`
	Return12MUpdated   *time.Time `json:"return12MUpdated"` // older files
}

type storedRecord struct {
	Data     model.FundSeries `json:"data"`
	Metadata storedMetadata   `json:"metadata"`
}

// Decode parses a store document. A fund value may be the current record
// object or a bare array of points as written by older versions.
func Decode(b []byte) (map[model.FundCode]model.FundRecord, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, err
	}

	out := make(map[model.FundCode]model.FundRecord, len(raw))
	for code, msg := range raw {
		msg = bytes.TrimSpace(msg)
		if len(msg) == 0 || bytes.Equal(msg, []byte("null")) {
			continue
		}

		var rec model.FundRecord
		if msg[0] == '[' {
			if err := json.Unmarshal(msg, &rec.Series); err != nil {
				return nil, fmt.Errorf("fund %s: %w", code, err)
			}
		} else {
			var sr storedRecord
			if err := json.Unmarshal(msg, &sr); err != nil {
				return nil, fmt.Errorf("fund %s: %w", code, err)
			}
			rec.Series = sr.Data
			rec.Metadata.Return12M = sr.Metadata.Return12M
			rec.Metadata.Return12MUpdatedAt = sr.Metadata.Return12MUpdatedAt
			if rec.Metadata.Return12MUpdatedAt == nil {
				rec.Metadata.Return12MUpdatedAt = sr.Metadata.Return12MUpdated
			}
		}
		rec.Series = model.Dedupe(rec.Series)
		out[model.FundCode(code)] = rec
	}
	return out, nil
}

var _ port.HistoryRepository = (*Repo)(nil)
