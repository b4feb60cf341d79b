package donation

import (
	"time"

	"github.com/flockhq/flock/internal/app/domain/civil"
)

type Method string

const (
	MethodCash   Method = "cash"
	MethodCheck  Method = "check"
	MethodCard   Method = "card"
	MethodACH    Method = "ach"
	MethodOnline Method = "online"
)

func (m Method) Valid() bool {
	switch m {
	case MethodCash, MethodCheck, MethodCard, MethodACH, MethodOnline:
		return true
	}
	return false
}

// Donation amounts are stored in minor units (cents).
type Donation struct {
	ID          string     `json:"id"`
	TenantID    string     `json:"tenant_id"`
	PersonID    string     `json:"person_id,omitempty"`
	AmountCents int64      `json:"amount_cents"`
	Currency    string     `json:"currency"`
	Fund        string     `json:"fund"`
	Method      Method     `json:"method"`
	ReceivedOn  civil.Date `json:"received_on"`
	Reference   string     `json:"reference,omitempty"`
	Note        string     `json:"note,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type Filter struct {
	From     civil.Date
	To       civil.Date
	Fund     string
	PersonID string
}

// FundTotal sums donations to one fund in one currency.
type FundTotal struct {
	Fund       string `json:"fund"`
	Currency   string `json:"currency"`
	TotalCents int64  `json:"total_cents"`
	Count      int    `json:"count"`
}
