package redis

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCacheSetAndGet(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	cache := NewCache(client, "")
	ctx := context.Background()

	if err := cache.Set(ctx, "foo", []byte("bar"), time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	val, err := cache.Get(ctx, "foo")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}

	if string(val) != "bar" {
		t.Fatalf("expected bar, got %s", val)
	}

	if !mr.Exists("goposition:foo") {
		t.Fatalf("expected key to be stored under the default prefix")
	}
}

func TestCacheMiss(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	_, err := NewCache(client, "test:").Get(context.Background(), "absent")
	if !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected ErrCacheMiss, got %v", err)
	}
}

func TestCacheTTL(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	cache := NewCache(client, "test:")
	ctx := context.Background()

	if err := cache.Set(ctx, "short", []byte("v"), time.Second); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	mr.FastForward(2 * time.Second)

	if _, err := cache.Get(ctx, "short"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected expired key, got %v", err)
	}
}

func TestCacheDelete(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	cache := NewCache(client, "test:")
	ctx := context.Background()

	_ = cache.Set(ctx, "a", []byte("1"), time.Minute)
	_ = cache.Set(ctx, "b", []byte("2"), time.Minute)

	if err := cache.Delete(ctx, "a", "b"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if err := cache.Delete(ctx); err != nil {
		t.Fatalf("empty delete failed: %v", err)
	}

	if mr.Exists("test:a") || mr.Exists("test:b") {
		t.Fatalf("expected keys to be deleted")
	}
}

func TestCachePing(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer client.Close()

	cache := NewCache(client, "test:")
	if err := cache.Ping(context.Background()); err != nil {
		t.Fatalf("ping failed: %v", err)
	}

	mr.Close()
	if err := cache.Ping(context.Background()); err == nil {
		t.Fatalf("expected ping error after server shutdown")
	}
}
