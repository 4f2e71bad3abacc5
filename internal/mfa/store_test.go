package mfa

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client)
}

func TestRedisStore_PutAndConsume(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	hash := HashOTP("123456")
	if err := store.Put(ctx, "u1", ProviderKeyPhone, hash, 10*time.Minute); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok, err := store.Consume(ctx, "u1", ProviderKeyPhone)
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if !ok || got != hash {
		t.Errorf("Consume = (%q, %v), want stored hash", got, ok)
	}

	// Consumed exactly once.
	_, ok, err = store.Consume(ctx, "u1", ProviderKeyPhone)
	if err != nil {
		t.Fatalf("second Consume: %v", err)
	}
	if ok {
		t.Error("code should not be consumable twice")
	}
}

func TestRedisStore_ConsumeMissing(t *testing.T) {
	store := newTestStore(t)
	_, ok, err := store.Consume(context.Background(), "u1", ProviderKeyEmail)
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if ok {
		t.Error("Consume with no stored code should return ok=false")
	}
}

func TestRedisStore_PutReplaces(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := HashOTP("111111")
	second := HashOTP("222222")
	if err := store.Put(ctx, "u1", ProviderKeyEmail, first, time.Minute); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := store.Put(ctx, "u1", ProviderKeyEmail, second, time.Minute); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := store.Consume(ctx, "u1", ProviderKeyEmail)
	if err != nil || !ok {
		t.Fatalf("Consume: ok=%v err=%v", ok, err)
	}
	if got != second {
		t.Error("resend should replace the previous code")
	}
}
