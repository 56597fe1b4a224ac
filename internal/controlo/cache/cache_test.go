package cache

import (
	"context"
	"testing"
	"time"

	"leadboard_backend/internal/kpi"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T) (*ReportCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, time.Minute), mr
}

func TestReportCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)

	report := kpi.ProjectReport{ProjectID: "p-1", Overall: kpi.Report{Status: kpi.StatusWatch}}
	if err := c.Set(ctx, report); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, ok, err := c.Get(ctx, "p-1")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if got.Overall.Status != kpi.StatusWatch {
		t.Fatalf("expected VIGIAR, got %q", got.Overall.Status)
	}

	if err := c.Invalidate(ctx, "p-1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "p-1"); ok {
		t.Fatalf("expected miss after invalidate")
	}
}

func TestReportCacheExpires(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)

	if err := c.Set(ctx, kpi.ProjectReport{ProjectID: "p-2"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	if _, ok, _ := c.Get(ctx, "p-2"); ok {
		t.Fatalf("expected entry to expire")
	}
}

func TestDisabledCacheIsNoop(t *testing.T) {
	ctx := context.Background()
	c := New(nil, 0)

	if c.Enabled() {
		t.Fatalf("expected disabled cache")
	}
	if err := c.Set(ctx, kpi.ProjectReport{ProjectID: "p-3"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, ok, err := c.Get(ctx, "p-3"); ok || err != nil {
		t.Fatalf("expected silent miss, got ok=%v err=%v", ok, err)
	}
}
