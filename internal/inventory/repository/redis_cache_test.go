package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

func getRedisClient(t *testing.T) *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	return client
}

func TestRedisReportCache(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	cache := NewRedisReportCache(client)
	key := "test:" + time.Now().Format(time.RFC3339Nano)
	defer client.Del(ctx, reportCachePrefix+key)

	type snapshot struct {
		Total decimal.Decimal `json:"total"`
		Count int64           `json:"count"`
	}

	var miss snapshot
	found, err := cache.Get(ctx, key, &miss)
	if err != nil || found {
		t.Fatalf("expected miss, got found=%v err=%v", found, err)
	}

	if err := cache.Set(ctx, key, snapshot{Total: decimal.RequireFromString("66.00"), Count: 2}, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	var hit snapshot
	found, err = cache.Get(ctx, key, &hit)
	if err != nil || !found {
		t.Fatalf("expected hit, got found=%v err=%v", found, err)
	}
	if !hit.Total.Equal(decimal.RequireFromString("66")) || hit.Count != 2 {
		t.Errorf("unexpected cached value %+v", hit)
	}
}
