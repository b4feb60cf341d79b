// Package sermonhelper suggests scripture, outlines and hymns for sermon
// preparation, within the tenant's theology profile and AI token quota.
package sermonhelper

import (
	"context"
	"errors"
	"strings"

	"github.com/flockhq/flock/internal/app/domain/plan"
	"github.com/flockhq/flock/internal/app/domain/settings"
	"github.com/flockhq/flock/internal/app/domain/tenant"
	"github.com/flockhq/flock/internal/app/metrics"
	"github.com/flockhq/flock/internal/app/services/plans"
	"github.com/flockhq/flock/internal/app/storage"
	"github.com/flockhq/flock/internal/app/tenancy"
	apperrors "github.com/flockhq/flock/internal/errors"
	"github.com/flockhq/flock/pkg/logger"
)

// DefaultOutputBudget is the output token allowance added to every estimate.
const DefaultOutputBudget = 600

const maxInputRunes = 500

// Suggester produces raw suggestions for a prompt.
type Suggester interface {
	Suggest(ctx context.Context, p Prompt) (Suggestions, error)
}

// Service runs the guarded, metered suggestion flow.
type Service struct {
	suggester    Suggester
	plans        *plans.Service
	tenants      storage.TenantStore
	settings     storage.SettingsStore
	outputBudget int
	log          *logger.Logger
}

// New constructs the sermon helper.
func New(suggester Suggester, plans *plans.Service, tenants storage.TenantStore, settings storage.SettingsStore, outputBudget int, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("sermon-helper")
	}
	if outputBudget <= 0 {
		outputBudget = DefaultOutputBudget
	}
	return &Service{
		suggester:    suggester,
		plans:        plans,
		tenants:      tenants,
		settings:     settings,
		outputBudget: outputBudget,
		log:          log,
	}
}

// Suggest checks the input against excluded topics, reserves quota, calls the
// suggester, filters the output through the theology profile and consumes the
// tokens actually used.
func (s *Service) Suggest(ctx context.Context, req Request) (Result, error) {
	t, profile, err := s.load(ctx)
	if err != nil {
		return Result{}, err
	}
	prompt, err := s.prompt(req, profile)
	if err != nil {
		return Result{}, err
	}
	entry := s.log.WithField("tenant_id", t.ID)

	if term, blocked := matchTerm(prompt.Topic+" "+prompt.Passage, profile.ExcludedTopics); blocked {
		metrics.RecordSermonHelper("guardrail_blocked", 0)
		entry.WithField("term", term).Info("sermon helper request blocked by guardrail")
		return Result{}, apperrors.GuardrailBlocked("the request touches an excluded topic").WithDetails("term", term)
	}

	estimate := estimateTokens(prompt, s.outputBudget)
	if _, err := s.plans.Check(ctx, t, estimate); err != nil {
		metrics.RecordSermonHelper(outcomeOf(err), 0)
		return Result{}, err
	}

	raw, err := s.suggester.Suggest(ctx, prompt)
	if err != nil {
		metrics.RecordSermonHelper("upstream_error", 0)
		entry.WithError(err).Warn("sermon suggester failed")
		return Result{}, apperrors.Unavailable("sermon suggestions are unavailable", err)
	}

	res := filterOutput(raw, prompt, profile)
	tokens := raw.TokensUsed
	if tokens <= 0 {
		tokens = estimate
	}
	quota, err := s.plans.Consume(ctx, t, tokens)
	if apperrors.HasCode(err, apperrors.CodeQuotaExceeded) {
		// The upstream already spent the tokens; meter them up to the cap.
		if charged, chargeErr := s.plans.Charge(ctx, t, tokens); chargeErr != nil {
			entry.WithError(chargeErr).Error("charge overspent ai tokens")
		} else {
			entry.WithField("tokens", tokens).
				WithField("used", charged.Used).
				Warn("ai usage capped at quota")
		}
		metrics.RecordSermonHelper("quota_exceeded", 0)
		return Result{}, err
	}
	if err != nil {
		metrics.RecordSermonHelper(outcomeOf(err), 0)
		return Result{}, err
	}
	res.TokensUsed = tokens
	res.Quota = quota
	metrics.RecordSermonHelper("ok", tokens)
	entry.WithField("tokens", tokens).
		WithField("filtered", res.Filtered).
		Info("sermon suggestions served")
	return res, nil
}

// Quota reports the tenant's AI quota for the current period.
func (s *Service) Quota(ctx context.Context) (plan.Quota, error) {
	tenantID, err := tenancy.Require(ctx)
	if err != nil {
		return plan.Quota{}, err
	}
	t, err := s.tenants.GetTenant(ctx, tenantID)
	if err != nil {
		return plan.Quota{}, storage.Translate(err, "tenant", tenantID)
	}
	return s.plans.Remaining(ctx, t)
}

func (s *Service) load(ctx context.Context) (tenant.Tenant, settings.TheologyProfile, error) {
	tenantID, err := tenancy.Require(ctx)
	if err != nil {
		return tenant.Tenant{}, settings.TheologyProfile{}, err
	}
	t, err := s.tenants.GetTenant(ctx, tenantID)
	if err != nil {
		return tenant.Tenant{}, settings.TheologyProfile{}, storage.Translate(err, "tenant", tenantID)
	}
	st, err := s.settings.GetSettings(ctx)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		st = settings.Defaults(tenantID)
	case err != nil:
		return tenant.Tenant{}, settings.TheologyProfile{}, err
	}
	return t, st.Theology, nil
}

func (s *Service) prompt(req Request, profile settings.TheologyProfile) (Prompt, error) {
	p := Prompt{
		Topic:            strings.TrimSpace(req.Topic),
		Passage:          strings.TrimSpace(req.Passage),
		Tradition:        profile.Tradition,
		Translation:      profile.Translation,
		MaxOutlinePoints: profile.MaxOutlinePoints,
	}
	if p.Topic == "" && p.Passage == "" {
		return Prompt{}, apperrors.Validation("topic or passage is required")
	}
	if len([]rune(p.Topic))+len([]rune(p.Passage)) > maxInputRunes {
		return Prompt{}, apperrors.Validationf("topic and passage must total at most %d characters", maxInputRunes)
	}
	seen := make(map[Kind]bool)
	for _, k := range req.Kinds {
		if !k.Valid() {
			return Prompt{}, apperrors.Validationf("unknown suggestion kind %q", k)
		}
		if !seen[k] {
			seen[k] = true
			p.Kinds = append(p.Kinds, k)
		}
	}
	if len(p.Kinds) == 0 {
		p.Kinds = append([]Kind(nil), AllKinds...)
	}
	return p, nil
}

func outcomeOf(err error) string {
	switch {
	case apperrors.HasCode(err, apperrors.CodeFeatureDisabled):
		return "feature_disabled"
	case apperrors.HasCode(err, apperrors.CodeQuotaExceeded):
		return "quota_exceeded"
	}
	return "error"
}
