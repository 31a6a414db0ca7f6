package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type cachedRow struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

func newTestHelper(t *testing.T) (*CacheHelper, *miniredis.Miniredis) {
	t.Helper()

	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewCacheHelper(client, "test:"), srv
}

func TestCacheHelper_SetGetRoundTrip(t *testing.T) {
	helper, _ := newTestHelper(t)
	ctx := context.Background()

	want := cachedRow{ID: "q-1", Score: 0.75}
	if err := helper.Set(ctx, "row:q-1", want, time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	var got cachedRow
	if err := helper.Get(ctx, "row:q-1", &got); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != want {
		t.Errorf("Get() = %+v, want %+v", got, want)
	}
}

func TestCacheHelper_GetMissing(t *testing.T) {
	helper, _ := newTestHelper(t)

	var got cachedRow
	err := helper.Get(context.Background(), "row:absent", &got)
	if !errors.Is(err, ErrCacheNotFound) {
		t.Errorf("Get() error = %v, want ErrCacheNotFound", err)
	}
}

func TestCacheHelper_KeyPrefix(t *testing.T) {
	helper, srv := newTestHelper(t)

	if err := helper.Set(context.Background(), "row:q-1", cachedRow{ID: "q-1"}, time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if !srv.Exists("test:row:q-1") {
		t.Errorf("expected key test:row:q-1 in redis, keys = %v", srv.Keys())
	}
}

func TestCacheHelper_SetHonorsTTL(t *testing.T) {
	helper, srv := newTestHelper(t)
	ctx := context.Background()

	if err := helper.Set(ctx, "row:q-1", cachedRow{ID: "q-1"}, time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	srv.FastForward(2 * time.Minute)

	var got cachedRow
	if err := helper.Get(ctx, "row:q-1", &got); !errors.Is(err, ErrCacheNotFound) {
		t.Errorf("Get() after TTL error = %v, want ErrCacheNotFound", err)
	}
}

func TestCacheHelper_Delete(t *testing.T) {
	helper, _ := newTestHelper(t)
	ctx := context.Background()

	for _, key := range []string{"row:a", "row:b", "row:c"} {
		if err := helper.Set(ctx, key, cachedRow{ID: key}, time.Minute); err != nil {
			t.Fatalf("Set(%s) error = %v", key, err)
		}
	}

	if err := helper.Delete(ctx, "row:a", "row:b"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	var got cachedRow
	if err := helper.Get(ctx, "row:a", &got); !errors.Is(err, ErrCacheNotFound) {
		t.Errorf("Get(row:a) error = %v, want ErrCacheNotFound", err)
	}
	if err := helper.Get(ctx, "row:c", &got); err != nil {
		t.Errorf("Get(row:c) error = %v, want nil", err)
	}
}

func TestCacheHelper_InvalidatePattern(t *testing.T) {
	helper, _ := newTestHelper(t)
	ctx := context.Background()

	if err := helper.Set(ctx, "list:page:1", cachedRow{ID: "p1"}, time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := helper.Set(ctx, "list:page:2", cachedRow{ID: "p2"}, time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := helper.Set(ctx, "id:q-1", cachedRow{ID: "q-1"}, time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if err := helper.InvalidatePattern(ctx, "list:*"); err != nil {
		t.Fatalf("InvalidatePattern() error = %v", err)
	}

	var got cachedRow
	if err := helper.Get(ctx, "list:page:1", &got); !errors.Is(err, ErrCacheNotFound) {
		t.Errorf("Get(list:page:1) error = %v, want ErrCacheNotFound", err)
	}
	if err := helper.Get(ctx, "id:q-1", &got); err != nil {
		t.Errorf("Get(id:q-1) error = %v, want nil", err)
	}
}

func TestCacheHelper_CacheOrExecute(t *testing.T) {
	helper, _ := newTestHelper(t)
	ctx := context.Background()

	calls := 0
	fetch := func() (interface{}, error) {
		calls++
		return cachedRow{ID: "q-1", Score: 0.5}, nil
	}

	var got cachedRow
	if err := helper.CacheOrExecute(ctx, "row:q-1", &got, time.Minute, fetch); err != nil {
		t.Fatalf("CacheOrExecute() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("fetch calls = %d, want 1", calls)
	}
	if got.ID != "q-1" {
		t.Errorf("got.ID = %q, want q-1", got.ID)
	}

	// The async cache write races the second call, so seed the key directly
	// before asserting the cached path skips the fetch.
	if err := helper.Set(ctx, "row:q-1", got, time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	var second cachedRow
	if err := helper.CacheOrExecute(ctx, "row:q-1", &second, time.Minute, fetch); err != nil {
		t.Fatalf("CacheOrExecute() second call error = %v", err)
	}
	if calls != 1 {
		t.Errorf("fetch calls after cached read = %d, want 1", calls)
	}
}

func TestCacheHelper_NilClientDegradesGracefully(t *testing.T) {
	helper := NewCacheHelper(nil, "test:")
	ctx := context.Background()

	if err := helper.Set(ctx, "row:q-1", cachedRow{}, time.Minute); err != nil {
		t.Errorf("Set() with nil client error = %v, want nil", err)
	}

	var got cachedRow
	if err := helper.Get(ctx, "row:q-1", &got); !errors.Is(err, ErrCacheNotAvailable) {
		t.Errorf("Get() with nil client error = %v, want ErrCacheNotAvailable", err)
	}

	calls := 0
	err := helper.CacheOrExecute(ctx, "row:q-1", &got, time.Minute, func() (interface{}, error) {
		calls++
		return cachedRow{ID: "q-1"}, nil
	})
	if err != nil {
		t.Fatalf("CacheOrExecute() with nil client error = %v", err)
	}
	if calls != 1 || got.ID != "q-1" {
		t.Errorf("CacheOrExecute() fell through incorrectly, calls = %d, got = %+v", calls, got)
	}
}
