package model

import "time"

// IdempotencyRecord is a cached response for a replayed mutating request.
type IdempotencyRecord struct {
	Status     int
	Body       []byte
	CreatedAt  time.Time
	Processing bool // 正在处理中，用于防止并发竞争
}

// IdempotencyStore persists idempotency records. Implementations live in
// repository (Redis, Postgres) and middleware (in-memory).
type IdempotencyStore interface {
	// GetOrLock returns (record, true) if exists; (nil,false) if newly locked by caller.
	GetOrLock(key string) (*IdempotencyRecord, bool)
	Save(key string, status int, body []byte)
	Unlock(key string)
}
