package plan

import "time"

// Tier names a subscription plan.
type Tier string

const (
	TierCore     Tier = "core"
	TierStarter  Tier = "starter"
	TierStandard Tier = "standard"
	TierPlus     Tier = "plus"
)

// Plan holds the defaults a tier grants.
type Plan struct {
	Tier              Tier   `json:"tier" yaml:"tier"`
	DisplayName       string `json:"display_name" yaml:"display_name"`
	AIEnabled         bool   `json:"ai_enabled" yaml:"ai_enabled"`
	MonthlyTokenQuota int64  `json:"monthly_token_quota" yaml:"monthly_token_quota"`
	// MaxUsers of zero means unlimited.
	MaxUsers int `json:"max_users" yaml:"max_users"`
}

// Usage is AI token consumption for one tenant in one period.
type Usage struct {
	TenantID   string    `json:"tenant_id"`
	Period     string    `json:"period"`
	TokensUsed int64     `json:"tokens_used"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// PeriodOf returns the quota period ("YYYY-MM", UTC) containing t.
func PeriodOf(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// Quota is a point-in-time quota reading.
type Quota struct {
	Period    string `json:"period"`
	Enabled   bool   `json:"enabled"`
	Limit     int64  `json:"limit"`
	Used      int64  `json:"used"`
	Remaining int64  `json:"remaining"`
}
