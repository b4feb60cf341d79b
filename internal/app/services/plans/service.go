package plans

import (
	"context"
	"errors"
	"time"

	"github.com/flockhq/flock/internal/app/domain/plan"
	"github.com/flockhq/flock/internal/app/domain/tenant"
	"github.com/flockhq/flock/internal/app/storage"
	apperrors "github.com/flockhq/flock/internal/errors"
	"github.com/flockhq/flock/pkg/logger"
)

// Service exposes the plan catalog and enforces AI token quotas.
type Service struct {
	catalog *Catalog
	usage   storage.UsageStore
	log     *logger.Logger
	now     func() time.Time
}

// New constructs a plans service. A nil catalog uses the embedded one.
func New(catalog *Catalog, usage storage.UsageStore, log *logger.Logger) *Service {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	if log == nil {
		log = logger.NewDefault("plans")
	}
	return &Service{catalog: catalog, usage: usage, log: log, now: time.Now}
}

// Lookup returns the defaults for tier.
func (s *Service) Lookup(tier plan.Tier) (plan.Plan, error) {
	p, ok := s.catalog.Lookup(tier)
	if !ok {
		return plan.Plan{}, apperrors.Validationf("unknown plan tier %q", tier)
	}
	return p, nil
}

// Tiers lists every plan.
func (s *Service) Tiers() []plan.Plan {
	return s.catalog.Tiers()
}

// Period returns the quota period for the current time.
func (s *Service) Period() string {
	return plan.PeriodOf(s.now())
}

// Remaining reports the tenant's quota state for the current period.
func (s *Service) Remaining(ctx context.Context, t tenant.Tenant) (plan.Quota, error) {
	period := s.Period()
	q := plan.Quota{Period: period, Enabled: t.AIEnabled, Limit: t.AITokenQuota}
	usage, err := s.usage.GetUsage(ctx, t.ID, period)
	if err != nil {
		return plan.Quota{}, err
	}
	q.Used = usage.TokensUsed
	q.Remaining = q.Limit - q.Used
	if q.Remaining < 0 {
		q.Remaining = 0
	}
	return q, nil
}

// Check verifies that estimate tokens fit in the remaining quota without
// consuming them.
func (s *Service) Check(ctx context.Context, t tenant.Tenant, estimate int64) (plan.Quota, error) {
	if !t.AIEnabled {
		return plan.Quota{}, apperrors.FeatureDisabled("ai")
	}
	q, err := s.Remaining(ctx, t)
	if err != nil {
		return plan.Quota{}, err
	}
	if q.Used+estimate > q.Limit {
		return q, apperrors.QuotaExceeded(q.Used, q.Limit)
	}
	return q, nil
}

// Consume charges tokens against the tenant's quota atomically.
func (s *Service) Consume(ctx context.Context, t tenant.Tenant, tokens int64) (plan.Quota, error) {
	if !t.AIEnabled {
		return plan.Quota{}, apperrors.FeatureDisabled("ai")
	}
	if tokens < 0 {
		return plan.Quota{}, apperrors.Validation("tokens must not be negative")
	}
	period := s.Period()
	usage, err := s.usage.ConsumeTokens(ctx, t.ID, period, tokens, t.AITokenQuota)
	if errors.Is(err, storage.ErrQuotaExceeded) {
		s.log.WithField("tenant_id", t.ID).
			WithField("period", period).
			WithField("tokens", tokens).
			Warn("ai quota exceeded")
		return plan.Quota{}, apperrors.QuotaExceeded(usage.TokensUsed, t.AITokenQuota)
	}
	if err != nil {
		return plan.Quota{}, err
	}
	remaining := t.AITokenQuota - usage.TokensUsed
	if remaining < 0 {
		remaining = 0
	}
	return plan.Quota{Period: period, Enabled: true, Limit: t.AITokenQuota, Used: usage.TokensUsed, Remaining: remaining}, nil
}

// Charge records tokens that were already spent upstream. Usage saturates at
// the quota rather than failing, so overspend is still metered.
func (s *Service) Charge(ctx context.Context, t tenant.Tenant, tokens int64) (plan.Quota, error) {
	if tokens < 0 {
		return plan.Quota{}, apperrors.Validation("tokens must not be negative")
	}
	period := s.Period()
	usage, err := s.usage.ChargeTokens(ctx, t.ID, period, tokens, t.AITokenQuota)
	if err != nil {
		return plan.Quota{}, err
	}
	return plan.Quota{
		Period:    period,
		Enabled:   t.AIEnabled,
		Limit:     t.AITokenQuota,
		Used:      usage.TokensUsed,
		Remaining: max(t.AITokenQuota-usage.TokensUsed, 0),
	}, nil
}

// PruneBefore deletes usage rows for tenantID older than retentionMonths.
func (s *Service) PruneBefore(ctx context.Context, tenantID string, retentionMonths int) (int, error) {
	if retentionMonths <= 0 {
		retentionMonths = 12
	}
	cutoff := plan.PeriodOf(s.now().UTC().AddDate(0, -retentionMonths, 0))
	return s.usage.PruneUsageBefore(ctx, tenantID, cutoff)
}
