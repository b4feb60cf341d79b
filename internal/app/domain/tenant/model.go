package tenant

import "time"

// Tenant is one church organisation. All church data is scoped by its ID.
type Tenant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
	Plan string `json:"plan"`

	// AIEnabled and AITokenQuota track the plan defaults unless
	// AIQuotaOverride is set, in which case plan changes leave them alone.
	AIEnabled       bool  `json:"ai_enabled"`
	AITokenQuota    int64 `json:"ai_token_quota"`
	AIQuotaOverride bool  `json:"ai_quota_override"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
