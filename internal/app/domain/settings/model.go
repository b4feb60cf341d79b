package settings

import "time"

// Branding drives the bulletin cover and back page.
type Branding struct {
	ChurchName     string `json:"church_name"`
	Tagline        string `json:"tagline,omitempty"`
	LogoURL        string `json:"logo_url,omitempty"`
	PrimaryColor   string `json:"primary_color,omitempty"`
	AccentColor    string `json:"accent_color,omitempty"`
	Address        string `json:"address,omitempty"`
	Phone          string `json:"phone,omitempty"`
	Email          string `json:"email,omitempty"`
	Website        string `json:"website,omitempty"`
	PastorName     string `json:"pastor_name,omitempty"`
	WelcomeMessage string `json:"welcome_message,omitempty"`
	GivingNote     string `json:"giving_note,omitempty"`
}

// TheologyProfile constrains sermon-helper suggestions.
type TheologyProfile struct {
	Tradition        string   `json:"tradition"`
	Translation      string   `json:"translation"`
	ExcludedTopics   []string `json:"excluded_topics"`
	AvoidTerms       []string `json:"avoid_terms"`
	MaxOutlinePoints int      `json:"max_outline_points"`
}

// Settings is the per-tenant administrative configuration.
type Settings struct {
	TenantID         string          `json:"tenant_id"`
	Timezone         string          `json:"timezone"`
	Locale           string          `json:"locale"`
	PrayerExpiryDays int             `json:"prayer_expiry_days"`
	Branding         Branding        `json:"branding"`
	Theology         TheologyProfile `json:"theology"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// Defaults returns settings for a tenant that has never saved any.
func Defaults(tenantID string) Settings {
	return Settings{
		TenantID:         tenantID,
		Timezone:         "America/New_York",
		Locale:           "en-US",
		PrayerExpiryDays: 90,
		Theology: TheologyProfile{
			Tradition:        "nondenominational",
			Translation:      "ESV",
			MaxOutlinePoints: 5,
		},
	}
}

// Location resolves Timezone, falling back to UTC.
func (s Settings) Location() *time.Location {
	if s.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
