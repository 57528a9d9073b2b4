package notify

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func testLedger(t *testing.T, ttl time.Duration) (*Ledger, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewLedgerWithClient(rdb, ttl), mr
}

func TestLedgerMarkAndCheck(t *testing.T) {
	ctx := context.Background()
	l, _ := testLedger(t, time.Hour)

	sent, err := l.AlreadySent(ctx, 7, 10)
	if err != nil {
		t.Fatalf("AlreadySent: %v", err)
	}
	if sent {
		t.Fatalf("fresh ledger should have no markers")
	}

	if err := l.MarkSent(ctx, 7, 10); err != nil {
		t.Fatalf("MarkSent: %v", err)
	}
	sent, err = l.AlreadySent(ctx, 7, 10)
	if err != nil {
		t.Fatalf("AlreadySent: %v", err)
	}
	if !sent {
		t.Fatalf("marker should be visible after MarkSent")
	}

	// Markers are scoped to the user/agreement pair.
	if sent, _ = l.AlreadySent(ctx, 7, 11); sent {
		t.Fatalf("marker must be scoped per agreement")
	}
	if sent, _ = l.AlreadySent(ctx, 8, 10); sent {
		t.Fatalf("marker must be scoped per user")
	}
}

func TestLedgerMarkerExpires(t *testing.T) {
	ctx := context.Background()
	l, mr := testLedger(t, time.Minute)

	if err := l.MarkSent(ctx, 7, 10); err != nil {
		t.Fatalf("MarkSent: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	sent, err := l.AlreadySent(ctx, 7, 10)
	if err != nil {
		t.Fatalf("AlreadySent: %v", err)
	}
	if sent {
		t.Fatalf("marker should expire after the dedup TTL")
	}
}
