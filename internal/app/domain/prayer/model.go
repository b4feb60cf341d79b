package prayer

import "time"

// Visibility controls who may read a request.
type Visibility string

const (
	VisibilityPublic   Visibility = "public"
	VisibilityStaff    Visibility = "staff"
	VisibilityPastoral Visibility = "pastoral"
)

func (v Visibility) Valid() bool {
	return v == VisibilityPublic || v == VisibilityStaff || v == VisibilityPastoral
}

type Status string

const (
	StatusOpen     Status = "open"
	StatusAnswered Status = "answered"
	StatusArchived Status = "archived"
)

type Request struct {
	ID            string     `json:"id"`
	TenantID      string     `json:"tenant_id"`
	PersonID      string     `json:"person_id,omitempty"`
	RequesterName string     `json:"requester_name,omitempty"`
	Body          string     `json:"body"`
	Visibility    Visibility `json:"visibility"`
	Status        Status     `json:"status"`
	AnsweredNote  string     `json:"answered_note,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Filter narrows List results.
type Filter struct {
	// Visibilities limits results to these levels; empty means all.
	Visibilities []Visibility
	Status       Status
}
