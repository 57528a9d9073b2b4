// Package notify delivers periodic low-balance reminders. Dedup state lives
// in Redis so a restart mid-cycle cannot re-send the same reminder, while
// the durable audit trail stays in Postgres.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	coreconfig "github.com/lanbilling/lanbot/core/config"
)

// Ledger is the Redis-backed dedup marker store.
type Ledger struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewLedger connects to Redis and verifies the connection.
func NewLedger(ctx context.Context, cfg coreconfig.RedisConfig, ttl time.Duration) (*Ledger, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("notify: redis ping %s: %w", cfg.Addr, err)
	}
	return &Ledger{rdb: rdb, ttl: ttl}, nil
}

// NewLedgerWithClient wraps an existing client; used by tests.
func NewLedgerWithClient(rdb *redis.Client, ttl time.Duration) *Ledger {
	return &Ledger{rdb: rdb, ttl: ttl}
}

func (l *Ledger) key(tgID, agreementID int64) string {
	return fmt.Sprintf("notify:sent:%d:%d", tgID, agreementID)
}

// AlreadySent reports whether a reminder marker is still live for the pair.
func (l *Ledger) AlreadySent(ctx context.Context, tgID, agreementID int64) (bool, error) {
	n, err := l.rdb.Exists(ctx, l.key(tgID, agreementID)).Result()
	if err != nil {
		return false, fmt.Errorf("notify: exists: %w", err)
	}
	return n > 0, nil
}

// MarkSent installs a marker that expires after the dedup TTL.
func (l *Ledger) MarkSent(ctx context.Context, tgID, agreementID int64) error {
	if err := l.rdb.Set(ctx, l.key(tgID, agreementID), time.Now().Unix(), l.ttl).Err(); err != nil {
		return fmt.Errorf("notify: mark sent: %w", err)
	}
	return nil
}

// Close releases the Redis connection.
func (l *Ledger) Close() error {
	return l.rdb.Close()
}
