package tenants

import (
	"context"
	"testing"

	"github.com/flockhq/flock/internal/app/domain/plan"
	"github.com/flockhq/flock/internal/app/domain/tenant"
	"github.com/flockhq/flock/internal/app/services/plans"
	"github.com/flockhq/flock/internal/app/storage/memory"
	apperrors "github.com/flockhq/flock/internal/errors"
	"github.com/flockhq/flock/pkg/logger"
)

func newService() *Service {
	store := memory.New()
	return New(store, plans.New(nil, store, logger.Discard()), logger.Discard())
}

func TestCreateAppliesPlanDefaults(t *testing.T) {
	svc := newService()
	tn, err := svc.Create(context.Background(), "Grace Chapel", "Grace-Chapel", plan.TierStarter)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if tn.Slug != "grace-chapel" || !tn.AIEnabled || tn.AITokenQuota != 50_000 {
		t.Fatalf("tenant = %+v", tn)
	}
}

func TestCreateValidation(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	tests := []struct {
		name, slug string
		tier       plan.Tier
		code       apperrors.Code
	}{
		{"", "ok-slug", plan.TierCore, apperrors.CodeValidation},
		{"X", "a", plan.TierCore, apperrors.CodeValidation},
		{"X", "bad slug", plan.TierCore, apperrors.CodeValidation},
		{"X", "fine-slug", plan.Tier("gold"), apperrors.CodeValidation},
	}
	for _, tt := range tests {
		if _, err := svc.Create(ctx, tt.name, tt.slug, tt.tier); !apperrors.HasCode(err, tt.code) {
			t.Errorf("Create(%q, %q, %q) err = %v", tt.name, tt.slug, tt.tier, err)
		}
	}

	if _, err := svc.Create(ctx, "A", "dup-slug", ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Create(ctx, "B", "dup-slug", ""); !apperrors.HasCode(err, apperrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestChangePlanRespectsOverride(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	tn, _ := svc.Create(ctx, "Hope", "hope", plan.TierCore)

	up, err := svc.ChangePlan(ctx, tn.ID, plan.TierStandard)
	if err != nil {
		t.Fatalf("change plan: %v", err)
	}
	if !up.AIEnabled || up.AITokenQuota != 200_000 {
		t.Fatalf("plan defaults not applied: %+v", up)
	}

	if _, err := svc.SetAIOverride(ctx, tn.ID, true, 5_000); err != nil {
		t.Fatalf("override: %v", err)
	}
	up, _ = svc.ChangePlan(ctx, tn.ID, plan.TierPlus)
	if up.Plan != "plus" || up.AITokenQuota != 5_000 || !up.AIQuotaOverride {
		t.Fatalf("override should survive plan change: %+v", up)
	}

	cleared, _ := svc.ClearAIOverride(ctx, tn.ID)
	if cleared.AIQuotaOverride || cleared.AITokenQuota != 1_000_000 {
		t.Fatalf("clear override = %+v", cleared)
	}
}

// interleavedStore runs before ahead of every tenant write, standing in for a
// concurrent admin request that lands between the service's call and the
// store's write.
type interleavedStore struct {
	*memory.Store
	before func()
}

func (s *interleavedStore) ChangeTenantPlan(ctx context.Context, id, tier string, aiEnabled bool, quota int64) (tenant.Tenant, error) {
	s.run()
	return s.Store.ChangeTenantPlan(ctx, id, tier, aiEnabled, quota)
}

func (s *interleavedStore) ClearTenantAIOverride(ctx context.Context, id string, defaults func(string) (bool, int64, error)) (tenant.Tenant, error) {
	s.run()
	return s.Store.ClearTenantAIOverride(ctx, id, defaults)
}

func (s *interleavedStore) run() {
	if s.before != nil {
		before := s.before
		s.before = nil
		before()
	}
}

func TestChangePlanKeepsConcurrentOverride(t *testing.T) {
	mem := memory.New()
	store := &interleavedStore{Store: mem}
	svc := New(store, plans.New(nil, mem, logger.Discard()), logger.Discard())
	ctx := context.Background()
	tn, err := svc.Create(ctx, "Hope", "hope", plan.TierCore)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	store.before = func() {
		if _, err := mem.SetTenantAIOverride(ctx, tn.ID, true, 7_500); err != nil {
			t.Fatalf("override: %v", err)
		}
	}
	up, err := svc.ChangePlan(ctx, tn.ID, plan.TierPlus)
	if err != nil {
		t.Fatalf("change plan: %v", err)
	}
	if up.Plan != "plus" || !up.AIQuotaOverride || up.AITokenQuota != 7_500 {
		t.Fatalf("override lost to plan change: %+v", up)
	}
	got, _ := svc.Get(ctx, tn.ID)
	if got.AITokenQuota != 7_500 || !got.AIQuotaOverride {
		t.Fatalf("stored tenant = %+v", got)
	}
}

func TestClearOverrideUsesPlanAtWriteTime(t *testing.T) {
	mem := memory.New()
	store := &interleavedStore{Store: mem}
	svc := New(store, plans.New(nil, mem, logger.Discard()), logger.Discard())
	ctx := context.Background()
	tn, _ := svc.Create(ctx, "Hope", "hope", plan.TierStarter)
	if _, err := svc.SetAIOverride(ctx, tn.ID, false, 0); err != nil {
		t.Fatalf("override: %v", err)
	}

	store.before = func() {
		if _, err := mem.ChangeTenantPlan(ctx, tn.ID, string(plan.TierPlus), true, 1_000_000); err != nil {
			t.Fatalf("change plan: %v", err)
		}
	}
	cleared, err := svc.ClearAIOverride(ctx, tn.ID)
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if cleared.Plan != "plus" || cleared.AIQuotaOverride || !cleared.AIEnabled || cleared.AITokenQuota != 1_000_000 {
		t.Fatalf("cleared = %+v", cleared)
	}
}

func TestGetMissing(t *testing.T) {
	svc := newService()
	if _, err := svc.Get(context.Background(), "nope"); !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
