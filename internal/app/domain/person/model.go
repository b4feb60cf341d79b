package person

import (
	"time"

	"github.com/flockhq/flock/internal/app/domain/civil"
)

// Status is a person's relationship to the congregation.
type Status string

const (
	StatusVisitor  Status = "visitor"
	StatusRegular  Status = "regular"
	StatusMember   Status = "member"
	StatusInactive Status = "inactive"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusVisitor, StatusRegular, StatusMember, StatusInactive:
		return true
	}
	return false
}

// Person is a membership record.
type Person struct {
	ID        string     `json:"id"`
	TenantID  string     `json:"tenant_id"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Email     string     `json:"email,omitempty"`
	Phone     string     `json:"phone,omitempty"`
	Status    Status     `json:"status"`
	Household string     `json:"household,omitempty"`
	Birthday  civil.Date `json:"birthday"`
	JoinedOn  civil.Date `json:"joined_on"`
	Tags      []string   `json:"tags,omitempty"`
	Notes     string     `json:"notes,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// FullName joins first and last name.
func (p Person) FullName() string {
	switch {
	case p.FirstName == "":
		return p.LastName
	case p.LastName == "":
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// Filter narrows List results. Zero fields match everything.
type Filter struct {
	Status Status
	Query  string
	Tag    string
	Limit  int
	Offset int
}
