package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/flockhq/flock/internal/app/domain/settings"
)

type settingsRow struct {
	TenantID         string         `db:"tenant_id"`
	Timezone         string         `db:"timezone"`
	Locale           string         `db:"locale"`
	PrayerExpiryDays int            `db:"prayer_expiry_days"`
	Tradition        string         `db:"tradition"`
	Translation      string         `db:"translation"`
	ExcludedTopics   pq.StringArray `db:"excluded_topics"`
	AvoidTerms       pq.StringArray `db:"avoid_terms"`
	MaxOutlinePoints int            `db:"max_outline_points"`
	UpdatedAt        time.Time      `db:"updated_at"`

	ChurchName     string `db:"church_name"`
	Tagline        string `db:"tagline"`
	LogoURL        string `db:"logo_url"`
	PrimaryColor   string `db:"primary_color"`
	AccentColor    string `db:"accent_color"`
	Address        string `db:"address"`
	Phone          string `db:"phone"`
	Email          string `db:"email"`
	Website        string `db:"website"`
	PastorName     string `db:"pastor_name"`
	WelcomeMessage string `db:"welcome_message"`
	GivingNote     string `db:"giving_note"`
}

func (r settingsRow) domain() settings.Settings {
	return settings.Settings{
		TenantID:         r.TenantID,
		Timezone:         r.Timezone,
		Locale:           r.Locale,
		PrayerExpiryDays: r.PrayerExpiryDays,
		Branding: settings.Branding{
			ChurchName: r.ChurchName, Tagline: r.Tagline, LogoURL: r.LogoURL,
			PrimaryColor: r.PrimaryColor, AccentColor: r.AccentColor, Address: r.Address,
			Phone: r.Phone, Email: r.Email, Website: r.Website, PastorName: r.PastorName,
			WelcomeMessage: r.WelcomeMessage, GivingNote: r.GivingNote,
		},
		Theology: settings.TheologyProfile{
			Tradition: r.Tradition, Translation: r.Translation,
			ExcludedTopics: fromArray(r.ExcludedTopics), AvoidTerms: fromArray(r.AvoidTerms),
			MaxOutlinePoints: r.MaxOutlinePoints,
		},
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

// --- SettingsStore ----------------------------------------------------------

func (s *Store) GetSettings(ctx context.Context) (settings.Settings, error) {
	var row settingsRow
	err := s.inTenant(ctx, func(tx *sqlx.Tx, _ string) error {
		return tx.GetContext(ctx, &row, `
			SELECT s.tenant_id, s.timezone, s.locale, s.prayer_expiry_days, s.tradition, s.translation,
			       s.excluded_topics, s.avoid_terms, s.max_outline_points, s.updated_at,
			       COALESCE(b.church_name, '') AS church_name, COALESCE(b.tagline, '') AS tagline,
			       COALESCE(b.logo_url, '') AS logo_url, COALESCE(b.primary_color, '') AS primary_color,
			       COALESCE(b.accent_color, '') AS accent_color, COALESCE(b.address, '') AS address,
			       COALESCE(b.phone, '') AS phone, COALESCE(b.email, '') AS email,
			       COALESCE(b.website, '') AS website, COALESCE(b.pastor_name, '') AS pastor_name,
			       COALESCE(b.welcome_message, '') AS welcome_message, COALESCE(b.giving_note, '') AS giving_note
			FROM tenant_settings s
			LEFT JOIN branding b ON b.tenant_id = s.tenant_id
		`)
	})
	if err != nil {
		return settings.Settings{}, err
	}
	return row.domain(), nil
}

func (s *Store) SaveSettings(ctx context.Context, st settings.Settings) (settings.Settings, error) {
	st.UpdatedAt = now()
	err := s.inTenant(ctx, func(tx *sqlx.Tx, tid string) error {
		st.TenantID = tid
		th := st.Theology
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO tenant_settings (tenant_id, timezone, locale, prayer_expiry_days, tradition, translation,
			                             excluded_topics, avoid_terms, max_outline_points, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (tenant_id) DO UPDATE
			SET timezone = EXCLUDED.timezone, locale = EXCLUDED.locale,
			    prayer_expiry_days = EXCLUDED.prayer_expiry_days, tradition = EXCLUDED.tradition,
			    translation = EXCLUDED.translation, excluded_topics = EXCLUDED.excluded_topics,
			    avoid_terms = EXCLUDED.avoid_terms, max_outline_points = EXCLUDED.max_outline_points,
			    updated_at = EXCLUDED.updated_at
		`, tid, st.Timezone, st.Locale, st.PrayerExpiryDays, th.Tradition, th.Translation,
			textArray(th.ExcludedTopics), textArray(th.AvoidTerms), th.MaxOutlinePoints, st.UpdatedAt); err != nil {
			return err
		}
		b := st.Branding
		_, err := tx.ExecContext(ctx, `
			INSERT INTO branding (tenant_id, church_name, tagline, logo_url, primary_color, accent_color, address,
			                      phone, email, website, pastor_name, welcome_message, giving_note)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			ON CONFLICT (tenant_id) DO UPDATE
			SET church_name = EXCLUDED.church_name, tagline = EXCLUDED.tagline, logo_url = EXCLUDED.logo_url,
			    primary_color = EXCLUDED.primary_color, accent_color = EXCLUDED.accent_color,
			    address = EXCLUDED.address, phone = EXCLUDED.phone, email = EXCLUDED.email,
			    website = EXCLUDED.website, pastor_name = EXCLUDED.pastor_name,
			    welcome_message = EXCLUDED.welcome_message, giving_note = EXCLUDED.giving_note
		`, tid, b.ChurchName, b.Tagline, b.LogoURL, b.PrimaryColor, b.AccentColor, b.Address,
			b.Phone, b.Email, b.Website, b.PastorName, b.WelcomeMessage, b.GivingNote)
		return err
	})
	if err != nil {
		return settings.Settings{}, err
	}
	return st, nil
}
