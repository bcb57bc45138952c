package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"navwatch/internal/application/port"
	"navwatch/internal/domain/model"
)

// Repo keeps one JSON record per fund in a hash and doubles as a crawl event
// sink (stream + pub/sub).
type Repo struct {
	rdb         *redis.Client
	prefix      string
	ttl         time.Duration
	keyFunds    string // prefix + ":funds"
	eventStream string
	eventChan   string
}

func New(rdb *redis.Client, prefix string, ttl time.Duration, eventStream, eventChan string) *Repo {
	if strings.TrimSpace(eventStream) == "" {
		eventStream = prefix + ":crawl"
	}
	if strings.TrimSpace(eventChan) == "" {
		eventChan = prefix + ":crawl:pub"
	}
	return &Repo{
		rdb:         rdb,
		prefix:      prefix,
		ttl:         ttl,
		keyFunds:    prefix + ":funds",
		eventStream: eventStream,
		eventChan:   eventChan,
	}
}

func (r *Repo) Close() error { return r.rdb.Close() }

func (r *Repo) LoadAll(ctx context.Context) (map[model.FundCode]model.FundRecord, error) {
	fields, err := r.rdb.HGetAll(ctx, r.keyFunds).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrStorageUnavailable, err)
	}
	out := make(map[model.FundCode]model.FundRecord, len(fields))
	for code, raw := range fields {
		var rec model.FundRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("%w: fund %s: %v", model.ErrStorageUnavailable, code, err)
		}
		out[model.FundCode(code)] = rec
	}
	return out, nil
}

func (r *Repo) Load(ctx context.Context, code model.FundCode) (model.FundRecord, bool, error) {
	var rec model.FundRecord
	raw, err := r.rdb.HGet(ctx, r.keyFunds, string(code)).Result()
	if errors.Is(err, redis.Nil) {
		return rec, false, nil
	}
	if err != nil {
		return rec, false, fmt.Errorf("%w: %v", model.ErrStorageUnavailable, err)
	}
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return rec, false, fmt.Errorf("%w: fund %s: %v", model.ErrStorageUnavailable, code, err)
	}
	return rec, true, nil
}

func (r *Repo) Save(ctx context.Context, code model.FundCode, rec model.FundRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrStorageUnavailable, err)
	}

	// Hash: field = "DCDS" -> json
	pipe := r.rdb.Pipeline()
	pipe.HSet(ctx, r.keyFunds, string(code), string(b))
	if r.ttl > 0 {
		pipe.Expire(ctx, r.keyFunds, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", model.ErrStorageUnavailable, err)
	}
	return nil
}

func (r *Repo) PublishCrawl(ctx context.Context, ev port.CrawlEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	// 1) Stream: XADD <stream> * run_id code ok ...
	_, err = r.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: r.eventStream,
		Values: map[string]any{
			"run_id":  ev.RunID,
			"code":    string(ev.Code),
			"ok":      ev.OK,
			"new":     ev.NewCount,
			"total":   ev.TotalCount,
			"ts_ms":   ev.Ts.UnixMilli(),
			"payload": string(payload),
		},
	}).Result()
	if err != nil {
		return err
	}

	// 2) PubSub: PUBLISH <channel> json
	return r.rdb.Publish(ctx, r.eventChan, payload).Err()
}

var (
	_ port.HistoryRepository = (*Repo)(nil)
	_ port.EventSink         = (*Repo)(nil)
)
