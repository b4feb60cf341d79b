package settings

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/language"

	domain "github.com/flockhq/flock/internal/app/domain/settings"
	"github.com/flockhq/flock/internal/app/storage"
	"github.com/flockhq/flock/internal/app/tenancy"
	apperrors "github.com/flockhq/flock/internal/errors"
	"github.com/flockhq/flock/pkg/logger"
)

const maxOutlinePointsLimit = 12

var hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// Service reads and updates per-tenant settings.
type Service struct {
	store storage.SettingsStore
	log   *logger.Logger
}

// New constructs a settings service.
func New(store storage.SettingsStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("settings")
	}
	return &Service{store: store, log: log}
}

// Get returns the tenant's settings, or defaults when none were saved.
func (s *Service) Get(ctx context.Context) (domain.Settings, error) {
	tenantID, err := tenancy.Require(ctx)
	if err != nil {
		return domain.Settings{}, err
	}
	st, err := s.store.GetSettings(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return domain.Defaults(tenantID), nil
	}
	return st, err
}

// UpdateBranding replaces the branding block.
func (s *Service) UpdateBranding(ctx context.Context, b domain.Branding) (domain.Settings, error) {
	b.ChurchName = strings.TrimSpace(b.ChurchName)
	if b.ChurchName == "" {
		return domain.Settings{}, apperrors.Validation("church_name is required")
	}
	for field, color := range map[string]*string{"primary_color": &b.PrimaryColor, "accent_color": &b.AccentColor} {
		*color = strings.TrimSpace(*color)
		if *color != "" && !hexColor.MatchString(*color) {
			return domain.Settings{}, apperrors.Validationf("%s must look like #RRGGBB", field)
		}
		*color = strings.ToUpper(*color)
	}
	return s.update(ctx, "branding", func(st *domain.Settings) { st.Branding = b })
}

// UpdateTheology replaces the theology profile used by the sermon helper.
func (s *Service) UpdateTheology(ctx context.Context, t domain.TheologyProfile) (domain.Settings, error) {
	t.Tradition = strings.ToLower(strings.TrimSpace(t.Tradition))
	if t.Tradition == "" {
		return domain.Settings{}, apperrors.Validation("tradition is required")
	}
	t.Translation = strings.ToUpper(strings.TrimSpace(t.Translation))
	if t.Translation == "" {
		return domain.Settings{}, apperrors.Validation("translation is required")
	}
	if t.MaxOutlinePoints < 1 || t.MaxOutlinePoints > maxOutlinePointsLimit {
		return domain.Settings{}, apperrors.Validationf("max_outline_points must be between 1 and %d", maxOutlinePointsLimit)
	}
	t.ExcludedTopics = cleanTerms(t.ExcludedTopics)
	t.AvoidTerms = cleanTerms(t.AvoidTerms)
	return s.update(ctx, "theology", func(st *domain.Settings) { st.Theology = t })
}

// General holds the non-branding, non-theology settings.
type General struct {
	Timezone         string `json:"timezone"`
	Locale           string `json:"locale"`
	PrayerExpiryDays int    `json:"prayer_expiry_days"`
}

// UpdateGeneral changes timezone, locale and prayer expiry.
func (s *Service) UpdateGeneral(ctx context.Context, g General) (domain.Settings, error) {
	g.Timezone = strings.TrimSpace(g.Timezone)
	if g.Timezone == "" {
		return domain.Settings{}, apperrors.Validation("timezone is required")
	}
	if _, err := time.LoadLocation(g.Timezone); err != nil {
		return domain.Settings{}, apperrors.Validationf("unknown timezone %q", g.Timezone)
	}
	if g.Locale != "" {
		tag, err := language.Parse(g.Locale)
		if err != nil {
			return domain.Settings{}, apperrors.Validationf("unknown locale %q", g.Locale)
		}
		g.Locale = tag.String()
	}
	if g.PrayerExpiryDays < 1 || g.PrayerExpiryDays > 3650 {
		return domain.Settings{}, apperrors.Validation("prayer_expiry_days must be between 1 and 3650")
	}
	return s.update(ctx, "general", func(st *domain.Settings) {
		st.Timezone = g.Timezone
		if g.Locale != "" {
			st.Locale = g.Locale
		}
		st.PrayerExpiryDays = g.PrayerExpiryDays
	})
}

func (s *Service) update(ctx context.Context, section string, mutate func(*domain.Settings)) (domain.Settings, error) {
	st, err := s.Get(ctx)
	if err != nil {
		return domain.Settings{}, err
	}
	mutate(&st)
	saved, err := s.store.SaveSettings(ctx, st)
	if err != nil {
		return domain.Settings{}, err
	}
	s.log.WithField("tenant_id", saved.TenantID).
		WithField("section", section).
		Info("settings updated")
	return saved, nil
}

func cleanTerms(terms []string) []string {
	out := make([]string, 0, len(terms))
	seen := make(map[string]bool, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
