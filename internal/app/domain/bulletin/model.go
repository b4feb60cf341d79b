package bulletin

import (
	"time"

	"github.com/flockhq/flock/internal/app/domain/civil"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

// ItemKind classifies an order-of-worship entry.
type ItemKind string

const (
	KindPrelude      ItemKind = "prelude"
	KindHymn         ItemKind = "hymn"
	KindScripture    ItemKind = "scripture"
	KindPrayer       ItemKind = "prayer"
	KindSermon       ItemKind = "sermon"
	KindOffering     ItemKind = "offering"
	KindAnnouncement ItemKind = "announcement"
	KindBenediction  ItemKind = "benediction"
	KindOther        ItemKind = "other"
)

var kindLabels = map[ItemKind]string{
	KindPrelude:      "Prelude",
	KindHymn:         "Hymn",
	KindScripture:    "Scripture Reading",
	KindPrayer:       "Prayer",
	KindSermon:       "Sermon",
	KindOffering:     "Offering",
	KindAnnouncement: "Announcements",
	KindBenediction:  "Benediction",
	KindOther:        "",
}

// Valid reports whether k is a known kind.
func (k ItemKind) Valid() bool {
	_, ok := kindLabels[k]
	return ok
}

// Label is the printed heading for the kind.
func (k ItemKind) Label() string { return kindLabels[k] }

// Item is one entry in the service plan.
type Item struct {
	Position int      `json:"position"`
	Kind     ItemKind `json:"kind"`
	Title    string   `json:"title"`
	Detail   string   `json:"detail,omitempty"`
	Leader   string   `json:"leader,omitempty"`
}

// Announcement is shown on the bulletin while StartsOn <= date <= EndsOn.
// Zero bounds are open.
type Announcement struct {
	Title    string     `json:"title"`
	Body     string     `json:"body"`
	Priority int        `json:"priority"`
	StartsOn civil.Date `json:"starts_on"`
	EndsOn   civil.Date `json:"ends_on"`
}

// ActiveOn reports whether a is displayed on day.
func (a Announcement) ActiveOn(day civil.Date) bool {
	if !a.StartsOn.IsZero() && day.Before(a.StartsOn) {
		return false
	}
	if !a.EndsOn.IsZero() && day.After(a.EndsOn) {
		return false
	}
	return true
}

// Bulletin is the weekly service programme.
type Bulletin struct {
	ID            string         `json:"id"`
	TenantID      string         `json:"tenant_id"`
	ServiceDate   civil.Date     `json:"service_date"`
	Title         string         `json:"title"`
	Theme         string         `json:"theme,omitempty"`
	ThemeVerse    string         `json:"theme_verse,omitempty"`
	Status        Status         `json:"status"`
	Items         []Item         `json:"items"`
	Announcements []Announcement `json:"announcements"`
	PublishedAt   *time.Time     `json:"published_at,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}
