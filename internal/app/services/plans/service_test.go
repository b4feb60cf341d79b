package plans

import (
	"context"
	"testing"
	"time"

	"github.com/flockhq/flock/internal/app/domain/plan"
	"github.com/flockhq/flock/internal/app/domain/tenant"
	"github.com/flockhq/flock/internal/app/storage/memory"
	apperrors "github.com/flockhq/flock/internal/errors"
)

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()
	tests := []struct {
		tier     plan.Tier
		ai       bool
		quota    int64
		maxUsers int
	}{
		{plan.TierCore, false, 0, 3},
		{plan.TierStarter, true, 50_000, 10},
		{plan.TierStandard, true, 200_000, 25},
		{plan.TierPlus, true, 1_000_000, 0},
	}
	for _, tt := range tests {
		p, ok := c.Lookup(tt.tier)
		if !ok {
			t.Fatalf("tier %s missing", tt.tier)
		}
		if p.AIEnabled != tt.ai || p.MonthlyTokenQuota != tt.quota || p.MaxUsers != tt.maxUsers {
			t.Errorf("%s = %+v", tt.tier, p)
		}
	}
	if got := len(c.Tiers()); got != 4 {
		t.Fatalf("tiers = %d", got)
	}
}

func TestParseCatalogRejectsDuplicates(t *testing.T) {
	_, err := ParseCatalog([]byte("plans:\n  - tier: core\n  - tier: CORE\n"))
	if err == nil {
		t.Fatal("expected duplicate tier error")
	}
}

func TestQuotaLifecycle(t *testing.T) {
	store := memory.New()
	svc := New(nil, store, nil)
	svc.now = func() time.Time { return time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC) }
	ctx := context.Background()
	tn := tenant.Tenant{ID: "t1", AIEnabled: true, AITokenQuota: 1000}

	if _, err := svc.Check(ctx, tn, 900); err != nil {
		t.Fatalf("check: %v", err)
	}
	q, err := svc.Consume(ctx, tn, 900)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if q.Remaining != 100 || q.Period != "2024-03" {
		t.Fatalf("quota = %+v", q)
	}
	if _, err := svc.Check(ctx, tn, 200); !apperrors.HasCode(err, apperrors.CodeQuotaExceeded) {
		t.Fatalf("expected quota exceeded, got %v", err)
	}
	if _, err := svc.Consume(ctx, tn, 200); !apperrors.HasCode(err, apperrors.CodeQuotaExceeded) {
		t.Fatalf("expected quota exceeded on consume, got %v", err)
	}

	svc.now = func() time.Time { return time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC) }
	q, _ = svc.Remaining(ctx, tn)
	if q.Used != 0 || q.Remaining != 1000 {
		t.Fatalf("new period should reset: %+v", q)
	}
}

func TestChargeSaturatesAtQuota(t *testing.T) {
	svc := New(nil, memory.New(), nil)
	ctx := context.Background()
	tn := tenant.Tenant{ID: "t1", AIEnabled: true, AITokenQuota: 1000}

	if _, err := svc.Consume(ctx, tn, 800); err != nil {
		t.Fatalf("consume: %v", err)
	}
	q, err := svc.Charge(ctx, tn, 500)
	if err != nil {
		t.Fatalf("charge: %v", err)
	}
	if q.Used != 1000 || q.Remaining != 0 {
		t.Fatalf("quota = %+v", q)
	}
	if _, err := svc.Charge(ctx, tn, -1); !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCheckDisabled(t *testing.T) {
	svc := New(nil, memory.New(), nil)
	_, err := svc.Check(context.Background(), tenant.Tenant{ID: "t"}, 1)
	if !apperrors.HasCode(err, apperrors.CodeFeatureDisabled) {
		t.Fatalf("expected feature disabled, got %v", err)
	}
}

func TestPruneBefore(t *testing.T) {
	store := memory.New()
	svc := New(nil, store, nil)
	svc.now = func() time.Time { return time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC) }
	ctx := context.Background()
	_, _ = store.ConsumeTokens(ctx, "t", "2023-05", 1, 10)
	_, _ = store.ConsumeTokens(ctx, "t", "2023-06", 1, 10)

	n, err := svc.PruneBefore(ctx, "t", 12)
	if err != nil || n != 1 {
		t.Fatalf("pruned = %d, err = %v", n, err)
	}
}
