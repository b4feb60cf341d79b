package bulletins

import (
	"context"
	"regexp"
	"sort"

	"github.com/flockhq/flock/internal/app/domain/bulletin"
	"github.com/flockhq/flock/internal/app/domain/civil"
	"github.com/flockhq/flock/internal/app/domain/settings"
)

const (
	// AnnouncementCapacity is how many announcements fit on page three.
	AnnouncementCapacity = 6
	// UpcomingWindowDays bounds the back page's upcoming list.
	UpcomingWindowDays = 28

	dateLine      = "Monday, January 2, 2006"
	shortDateLine = "Jan 2"

	defaultPrimary = "#1F3A5F"
	defaultAccent  = "#C9A227"
)

// Page numbers of the printed programme.
const (
	PageCover = iota + 1
	PageWorship
	PageAnnouncements
	PageBack
)

var hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// ViewModel is a bulletin reshaped for layout.
type ViewModel struct {
	BulletinID    string            `json:"bulletin_id"`
	ServiceDate   civil.Date        `json:"service_date"`
	Status        bulletin.Status   `json:"status"`
	Colors        Colors            `json:"colors"`
	Cover         Cover             `json:"cover"`
	Worship       []WorshipEntry    `json:"worship"`
	Announcements AnnouncementsPage `json:"announcements"`
	Back          BackPage          `json:"back"`
}

type Colors struct {
	Primary string `json:"primary"`
	Accent  string `json:"accent"`
}

type Cover struct {
	ChurchName     string `json:"church_name"`
	Tagline        string `json:"tagline,omitempty"`
	LogoURL        string `json:"logo_url,omitempty"`
	DateLine       string `json:"date_line"`
	Title          string `json:"title"`
	Theme          string `json:"theme,omitempty"`
	ThemeVerse     string `json:"theme_verse,omitempty"`
	WelcomeMessage string `json:"welcome_message,omitempty"`
}

type WorshipEntry struct {
	Position int    `json:"position"`
	Label    string `json:"label,omitempty"`
	Title    string `json:"title,omitempty"`
	Detail   string `json:"detail,omitempty"`
	Leader   string `json:"leader,omitempty"`
}

type AnnouncementsPage struct {
	Items []AnnouncementEntry `json:"items"`
	// Overflow counts active announcements that did not fit.
	Overflow int `json:"overflow"`
}

type AnnouncementEntry struct {
	Title    string `json:"title"`
	Body     string `json:"body,omitempty"`
	Priority int    `json:"priority"`
}

type BackPage struct {
	Address     string          `json:"address,omitempty"`
	Phone       string          `json:"phone,omitempty"`
	Email       string          `json:"email,omitempty"`
	Website     string          `json:"website,omitempty"`
	PastorName  string          `json:"pastor_name,omitempty"`
	GivingNote  string          `json:"giving_note,omitempty"`
	Upcoming    []UpcomingEntry `json:"upcoming"`
	PublishedOn string          `json:"published_on,omitempty"`
}

type UpcomingEntry struct {
	Date  string `json:"date"`
	Title string `json:"title"`
}

// BuildView assembles the view model for bulletin id.
func (s *Service) BuildView(ctx context.Context, id string) (ViewModel, error) {
	b, err := s.Get(ctx, id)
	if err != nil {
		return ViewModel{}, err
	}
	st, err := s.loadSettings(ctx)
	if err != nil {
		return ViewModel{}, err
	}
	upcoming, err := s.store.ListBulletins(ctx, b.ServiceDate.AddDays(1), b.ServiceDate.AddDays(UpcomingWindowDays))
	if err != nil {
		return ViewModel{}, err
	}
	return buildView(b, st, upcoming), nil
}

func buildView(b bulletin.Bulletin, st settings.Settings, upcoming []bulletin.Bulletin) ViewModel {
	br := st.Branding
	view := ViewModel{
		BulletinID:  b.ID,
		ServiceDate: b.ServiceDate,
		Status:      b.Status,
		Colors: Colors{
			Primary: colorOr(br.PrimaryColor, defaultPrimary),
			Accent:  colorOr(br.AccentColor, defaultAccent),
		},
		Cover: Cover{
			ChurchName:     br.ChurchName,
			Tagline:        br.Tagline,
			LogoURL:        br.LogoURL,
			DateLine:       b.ServiceDate.Time().Format(dateLine),
			Title:          b.Title,
			Theme:          b.Theme,
			ThemeVerse:     b.ThemeVerse,
			WelcomeMessage: br.WelcomeMessage,
		},
		Worship:       worshipEntries(b.Items),
		Announcements: announcementsPage(b.Announcements, b.ServiceDate),
		Back: BackPage{
			Address:    br.Address,
			Phone:      br.Phone,
			Email:      br.Email,
			Website:    br.Website,
			PastorName: br.PastorName,
			GivingNote: br.GivingNote,
			Upcoming:   upcomingEntries(b, upcoming),
		},
	}
	if b.PublishedAt != nil {
		view.Back.PublishedOn = b.PublishedAt.In(st.Location()).Format("Jan 2, 2006 3:04 PM MST")
	}
	return view
}

func worshipEntries(items []bulletin.Item) []WorshipEntry {
	sorted := append([]bulletin.Item(nil), items...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Position < sorted[j].Position })

	entries := make([]WorshipEntry, 0, len(sorted))
	for _, item := range sorted {
		entries = append(entries, WorshipEntry{
			Position: item.Position,
			Label:    item.Kind.Label(),
			Title:    item.Title,
			Detail:   item.Detail,
			Leader:   item.Leader,
		})
	}
	return entries
}

func announcementsPage(all []bulletin.Announcement, day civil.Date) AnnouncementsPage {
	active := make([]bulletin.Announcement, 0, len(all))
	for _, a := range all {
		if a.ActiveOn(day) {
			active = append(active, a)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		if active[i].Priority != active[j].Priority {
			return active[i].Priority > active[j].Priority
		}
		return active[i].Title < active[j].Title
	})

	page := AnnouncementsPage{Items: make([]AnnouncementEntry, 0, AnnouncementCapacity)}
	for i, a := range active {
		if i >= AnnouncementCapacity {
			page.Overflow = len(active) - AnnouncementCapacity
			break
		}
		page.Items = append(page.Items, AnnouncementEntry{Title: a.Title, Body: a.Body, Priority: a.Priority})
	}
	return page
}

func upcomingEntries(current bulletin.Bulletin, candidates []bulletin.Bulletin) []UpcomingEntry {
	last := current.ServiceDate.AddDays(UpcomingWindowDays)
	entries := make([]UpcomingEntry, 0)
	for _, c := range candidates {
		if c.ID == current.ID || !c.ServiceDate.After(current.ServiceDate) || c.ServiceDate.After(last) {
			continue
		}
		entries = append(entries, UpcomingEntry{
			Date:  c.ServiceDate.Time().Format(shortDateLine),
			Title: c.Title,
		})
	}
	return entries
}

func colorOr(value, fallback string) string {
	if hexColor.MatchString(value) {
		return value
	}
	return fallback
}

// rgb splits a #RRGGBB color. Callers pass validated colors.
func rgb(hex string) (int, int, int) {
	var v [3]int
	for i := range v {
		v[i] = hexNibble(hex[1+2*i])<<4 | hexNibble(hex[2+2*i])
	}
	return v[0], v[1], v[2]
}

func hexNibble(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	}
	return 0
}

// sheetSide lists the page numbers printed left then right on one side of a
// folded sheet.
type sheetSide [2]int

// bookletImposition places four pages on a single letter sheet folded in
// half: the front carries the back page and the cover, the inside carries
// pages two and three.
var bookletImposition = []sheetSide{{PageBack, PageCover}, {PageWorship, PageAnnouncements}}

// readingOrder is the page sequence for on-screen viewing.
var readingOrder = []int{PageCover, PageWorship, PageAnnouncements, PageBack}
