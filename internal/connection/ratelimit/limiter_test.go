package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vietddude/cloudlink/internal/infra/storage/memory"
)

func TestLimiter_CapEnforced(t *testing.T) {
	ctx := context.Background()
	limiter := NewLimiter(memory.NewCounterStore(), map[OperationClass]Limit{
		OpLiveValidation: {Max: 3, Window: time.Minute},
	})

	for i := 0; i < 3; i++ {
		ok, err := limiter.Allow(ctx, "u1", "drive", OpLiveValidation)
		if err != nil {
			t.Fatalf("Allow failed: %v", err)
		}
		if !ok {
			t.Errorf("attempt %d should be allowed", i+1)
		}
	}

	ok, err := limiter.Allow(ctx, "u1", "drive", OpLiveValidation)
	if err != nil {
		t.Fatalf("Allow failed: %v", err)
	}
	if ok {
		t.Error("attempt 4 should be denied")
	}
}

func TestLimiter_PairsIndependent(t *testing.T) {
	ctx := context.Background()
	limiter := NewLimiter(memory.NewCounterStore(), map[OperationClass]Limit{
		OpLiveValidation: {Max: 1, Window: time.Minute},
	})

	if ok, _ := limiter.Allow(ctx, "u1", "drive", OpLiveValidation); !ok {
		t.Error("first u1/drive attempt should be allowed")
	}
	if ok, _ := limiter.Allow(ctx, "u1", "drive", OpLiveValidation); ok {
		t.Error("second u1/drive attempt should be denied")
	}

	// Other users and providers keep their own windows.
	if ok, _ := limiter.Allow(ctx, "u2", "drive", OpLiveValidation); !ok {
		t.Error("u2/drive should be allowed")
	}
	if ok, _ := limiter.Allow(ctx, "u1", "s3", OpLiveValidation); !ok {
		t.Error("u1/s3 should be allowed")
	}
}

func TestLimiter_UnknownClassAlwaysAllowed(t *testing.T) {
	limiter := NewLimiter(memory.NewCounterStore(), map[OperationClass]Limit{})
	ok, err := limiter.Allow(context.Background(), "u1", "drive", OpTokenRefresh)
	if err != nil || !ok {
		t.Errorf("unlimited class should be allowed, got ok=%v err=%v", ok, err)
	}
}

func TestLimiter_ConcurrentNoOvercount(t *testing.T) {
	ctx := context.Background()
	limiter := NewLimiter(memory.NewCounterStore(), map[OperationClass]Limit{
		OpLiveValidation: {Max: 10, Window: time.Minute},
	})

	var allowed int64
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := limiter.Allow(ctx, "u1", "drive", OpLiveValidation)
			if err != nil {
				t.Errorf("Allow failed: %v", err)
				return
			}
			if ok {
				atomic.AddInt64(&allowed, 1)
			}
		}()
	}
	wg.Wait()

	if allowed != 10 {
		t.Errorf("Expected exactly 10 allowed, got %d", allowed)
	}
}

func TestLimiter_Remaining(t *testing.T) {
	ctx := context.Background()
	limiter := NewLimiter(memory.NewCounterStore(), map[OperationClass]Limit{
		OpLiveValidation: {Max: 6, Window: time.Minute},
	})

	if n, _ := limiter.Remaining(ctx, "u1", "drive", OpLiveValidation); n != 6 {
		t.Errorf("Expected 6 remaining, got %d", n)
	}
	limiter.Allow(ctx, "u1", "drive", OpLiveValidation)
	limiter.Allow(ctx, "u1", "drive", OpLiveValidation)
	if n, _ := limiter.Remaining(ctx, "u1", "drive", OpLiveValidation); n != 4 {
		t.Errorf("Expected 4 remaining, got %d", n)
	}
}
