package sermon

import (
	"time"

	"github.com/flockhq/flock/internal/app/domain/civil"
)

type Status string

const (
	StatusDraft    Status = "draft"
	StatusReady    Status = "ready"
	StatusPreached Status = "preached"
)

func (s Status) Valid() bool {
	return s == StatusDraft || s == StatusReady || s == StatusPreached
}

type Sermon struct {
	ID         string     `json:"id"`
	TenantID   string     `json:"tenant_id"`
	Title      string     `json:"title"`
	Speaker    string     `json:"speaker"`
	PreachedOn civil.Date `json:"preached_on"`
	Series     string     `json:"series,omitempty"`
	Scripture  []string   `json:"scripture"`
	Outline    []string   `json:"outline"`
	Notes      string     `json:"notes,omitempty"`
	Status     Status     `json:"status"`
	MediaURL   string     `json:"media_url,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

type Filter struct {
	Series string
	Status Status
}

// SeriesCount is a distinct series name with its sermon count.
type SeriesCount struct {
	Series string `json:"series"`
	Count  int    `json:"count"`
}
