package tenants

import (
	"context"
	"regexp"
	"strings"

	"github.com/flockhq/flock/internal/app/domain/plan"
	"github.com/flockhq/flock/internal/app/domain/tenant"
	"github.com/flockhq/flock/internal/app/services/plans"
	"github.com/flockhq/flock/internal/app/storage"
	apperrors "github.com/flockhq/flock/internal/errors"
	"github.com/flockhq/flock/pkg/logger"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,46}[a-z0-9]$`)

// Service manages tenant records and their plan-derived AI settings.
type Service struct {
	store storage.TenantStore
	plans *plans.Service
	log   *logger.Logger
}

// New constructs a tenant service.
func New(store storage.TenantStore, plans *plans.Service, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("tenants")
	}
	return &Service{store: store, plans: plans, log: log}
}

// Create registers a church and applies the tier's defaults.
func (s *Service) Create(ctx context.Context, name, slug string, tier plan.Tier) (tenant.Tenant, error) {
	name = strings.TrimSpace(name)
	slug = strings.ToLower(strings.TrimSpace(slug))
	if name == "" {
		return tenant.Tenant{}, apperrors.Validation("name is required")
	}
	if !slugPattern.MatchString(slug) {
		return tenant.Tenant{}, apperrors.Validation("slug must be 3-48 characters of a-z, 0-9 and '-'")
	}
	if tier == "" {
		tier = plan.TierCore
	}
	p, err := s.plans.Lookup(tier)
	if err != nil {
		return tenant.Tenant{}, err
	}

	t := tenant.Tenant{Name: name, Slug: slug}
	applyPlan(&t, p)
	created, err := s.store.CreateTenant(ctx, t)
	if err != nil {
		return tenant.Tenant{}, storage.Translate(err, "tenant", slug)
	}
	s.log.WithField("tenant_id", created.ID).
		WithField("slug", created.Slug).
		WithField("plan", created.Plan).
		Info("tenant created")
	return created, nil
}

// Get fetches a tenant by id.
func (s *Service) Get(ctx context.Context, id string) (tenant.Tenant, error) {
	t, err := s.store.GetTenant(ctx, id)
	return t, storage.Translate(err, "tenant", id)
}

// GetBySlug fetches a tenant by slug.
func (s *Service) GetBySlug(ctx context.Context, slug string) (tenant.Tenant, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	t, err := s.store.GetTenantBySlug(ctx, slug)
	return t, storage.Translate(err, "tenant", slug)
}

// List returns every tenant. Platform scope only.
func (s *Service) List(ctx context.Context) ([]tenant.Tenant, error) {
	return s.store.ListTenants(ctx)
}

// ChangePlan moves a tenant to tier. AI settings follow the new plan unless
// an override is in place.
func (s *Service) ChangePlan(ctx context.Context, id string, tier plan.Tier) (tenant.Tenant, error) {
	p, err := s.plans.Lookup(tier)
	if err != nil {
		return tenant.Tenant{}, err
	}
	updated, err := s.store.ChangeTenantPlan(ctx, id, string(p.Tier), p.AIEnabled, p.MonthlyTokenQuota)
	if err != nil {
		return tenant.Tenant{}, storage.Translate(err, "tenant", id)
	}
	s.log.WithField("tenant_id", id).
		WithField("plan", updated.Plan).
		WithField("override", updated.AIQuotaOverride).
		Info("tenant plan changed")
	return updated, nil
}

// SetAIOverride pins AI settings regardless of plan.
func (s *Service) SetAIOverride(ctx context.Context, id string, enabled bool, quota int64) (tenant.Tenant, error) {
	if quota < 0 {
		return tenant.Tenant{}, apperrors.Validation("quota must not be negative")
	}
	updated, err := s.store.SetTenantAIOverride(ctx, id, enabled, quota)
	if err != nil {
		return tenant.Tenant{}, storage.Translate(err, "tenant", id)
	}
	s.log.WithField("tenant_id", id).
		WithField("ai_enabled", enabled).
		WithField("quota", quota).
		Info("tenant ai override set")
	return updated, nil
}

// ClearAIOverride restores the AI defaults of the tenant's current plan.
func (s *Service) ClearAIOverride(ctx context.Context, id string) (tenant.Tenant, error) {
	updated, err := s.store.ClearTenantAIOverride(ctx, id, func(tier string) (bool, int64, error) {
		p, err := s.plans.Lookup(plan.Tier(tier))
		if err != nil {
			return false, 0, err
		}
		return p.AIEnabled, p.MonthlyTokenQuota, nil
	})
	if err != nil {
		return tenant.Tenant{}, storage.Translate(err, "tenant", id)
	}
	s.log.WithField("tenant_id", id).Info("tenant ai override cleared")
	return updated, nil
}

func applyPlan(t *tenant.Tenant, p plan.Plan) {
	t.Plan = string(p.Tier)
	t.AIEnabled = p.AIEnabled
	t.AITokenQuota = p.MonthlyTokenQuota
}
