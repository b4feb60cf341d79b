package attendance

import (
	"time"

	"github.com/flockhq/flock/internal/app/domain/civil"
)

// Count is the headcount for one service. (ServiceDate, ServiceName) is
// unique per tenant.
type Count struct {
	ID          string     `json:"id"`
	TenantID    string     `json:"tenant_id"`
	ServiceDate civil.Date `json:"service_date"`
	ServiceName string     `json:"service_name"`
	Headcount   int        `json:"headcount"`
	Notes       string     `json:"notes,omitempty"`
	RecordedAt  time.Time  `json:"recorded_at"`
}

// CheckIn records an individual's presence. (PersonID, ServiceDate,
// ServiceName) is unique per tenant.
type CheckIn struct {
	ID          string     `json:"id"`
	TenantID    string     `json:"tenant_id"`
	PersonID    string     `json:"person_id"`
	ServiceDate civil.Date `json:"service_date"`
	ServiceName string     `json:"service_name"`
	CheckedInAt time.Time  `json:"checked_in_at"`
}

// Summary aggregates counts over a date range.
type Summary struct {
	From           civil.Date `json:"from"`
	To             civil.Date `json:"to"`
	Services       int        `json:"services"`
	TotalHeadcount int        `json:"total_headcount"`
	Average        float64    `json:"average"`
	Peak           int        `json:"peak"`
	PeakDate       civil.Date `json:"peak_date"`
	UniquePeople   int        `json:"unique_people"`
}
