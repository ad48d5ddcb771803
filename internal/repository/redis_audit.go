package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mosaical/nftvault/internal/model"
)

// RedisAuditRepo keeps a bounded ring of recent audit entries in a redis
// list, for quick operator inspection without hitting postgres.
type RedisAuditRepo struct {
	client  *RedisClient
	listKey string
	listMax int64
}

func NewRedisAuditRepo(client *RedisClient, listKey string, listMax int64) *RedisAuditRepo {
	if listKey == "" {
		listKey = "audit_logs"
	}
	if listMax <= 0 {
		listMax = 10000
	}
	return &RedisAuditRepo{
		client:  client,
		listKey: listKey,
		listMax: listMax,
	}
}

func (r *RedisAuditRepo) Insert(ctx context.Context, entry *model.AuditLog) error {
	if entry == nil {
		return nil
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	pipe := r.client.Client.Pipeline()
	pipe.LPush(ctx, r.listKey, string(payload))
	pipe.LTrim(ctx, r.listKey, 0, r.listMax-1)
	_, err = pipe.Exec(ctx)
	return err
}

// Recent returns the newest entries, optionally filtered by account.
func (r *RedisAuditRepo) Recent(ctx context.Context, account string, limit int) ([]*model.AuditLog, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	raw, err := r.client.Client.LRange(ctx, r.listKey, 0, r.listMax-1).Result()
	if err != nil {
		return nil, err
	}
	entries := make([]*model.AuditLog, 0, limit)
	for _, item := range raw {
		var entry model.AuditLog
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			continue
		}
		if account != "" && entry.Account != account {
			continue
		}
		entries = append(entries, &entry)
		if len(entries) >= limit {
			break
		}
	}
	return entries, nil
}

func (r *RedisAuditRepo) Cleanup(ctx context.Context, olderThan time.Duration) error {
	// The list is bounded by LTRIM; time-based cleanup is a no-op here.
	return nil
}
