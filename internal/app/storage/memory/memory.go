package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/flockhq/flock/internal/app/domain/attendance"
	"github.com/flockhq/flock/internal/app/domain/audit"
	"github.com/flockhq/flock/internal/app/domain/bulletin"
	"github.com/flockhq/flock/internal/app/domain/civil"
	"github.com/flockhq/flock/internal/app/domain/donation"
	"github.com/flockhq/flock/internal/app/domain/person"
	"github.com/flockhq/flock/internal/app/domain/plan"
	"github.com/flockhq/flock/internal/app/domain/prayer"
	"github.com/flockhq/flock/internal/app/domain/sermon"
	"github.com/flockhq/flock/internal/app/domain/settings"
	"github.com/flockhq/flock/internal/app/domain/tenant"
	"github.com/flockhq/flock/internal/app/domain/user"
	"github.com/flockhq/flock/internal/app/storage"
	"github.com/flockhq/flock/internal/app/tenancy"
)

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use and is primarily intended for tests and local development.
type Store struct {
	mu         sync.RWMutex
	tenants    map[string]tenant.Tenant
	users      map[string]user.User
	people     map[string]person.Person
	bulletins  map[string]bulletin.Bulletin
	sermons    map[string]sermon.Sermon
	counts     map[string]attendance.Count
	checkIns   map[string]attendance.CheckIn
	prayers    map[string]prayer.Request
	donations  map[string]donation.Donation
	settings   map[string]settings.Settings
	usage      map[string]plan.Usage
	auditLog   []audit.Entry
	auditLimit int
}

var _ storage.TenantStore = (*Store)(nil)
var _ storage.UserStore = (*Store)(nil)
var _ storage.PersonStore = (*Store)(nil)
var _ storage.BulletinStore = (*Store)(nil)
var _ storage.SermonStore = (*Store)(nil)
var _ storage.AttendanceStore = (*Store)(nil)
var _ storage.PrayerStore = (*Store)(nil)
var _ storage.DonationStore = (*Store)(nil)
var _ storage.SettingsStore = (*Store)(nil)
var _ storage.UsageStore = (*Store)(nil)
var _ storage.AuditStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		tenants:    make(map[string]tenant.Tenant),
		users:      make(map[string]user.User),
		people:     make(map[string]person.Person),
		bulletins:  make(map[string]bulletin.Bulletin),
		sermons:    make(map[string]sermon.Sermon),
		counts:     make(map[string]attendance.Count),
		checkIns:   make(map[string]attendance.CheckIn),
		prayers:    make(map[string]prayer.Request),
		donations:  make(map[string]donation.Donation),
		settings:   make(map[string]settings.Settings),
		usage:      make(map[string]plan.Usage),
		auditLimit: 10000,
	}
}

func now() time.Time { return time.Now().UTC() }

func key(parts ...string) string { return strings.Join(parts, "\x00") }

func inRange(d, from, to civil.Date) bool {
	if !from.IsZero() && d.Before(from) {
		return false
	}
	if !to.IsZero() && d.After(to) {
		return false
	}
	return true
}

// TenantStore implementation -------------------------------------------------

func (s *Store) CreateTenant(_ context.Context, t tenant.Tenant) (tenant.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == "" {
		t.ID = uuid.NewString()
	} else if _, exists := s.tenants[t.ID]; exists {
		return tenant.Tenant{}, storage.ErrConflict
	}
	for _, existing := range s.tenants {
		if existing.Slug == t.Slug {
			return tenant.Tenant{}, storage.ErrConflict
		}
	}
	t.CreatedAt = now()
	t.UpdatedAt = t.CreatedAt
	s.tenants[t.ID] = t
	return t, nil
}

func (s *Store) ChangeTenantPlan(_ context.Context, id, tier string, aiEnabled bool, quota int64) (tenant.Tenant, error) {
	return s.mutateTenant(id, func(t *tenant.Tenant) error {
		t.Plan = tier
		if !t.AIQuotaOverride {
			t.AIEnabled = aiEnabled
			t.AITokenQuota = quota
		}
		return nil
	})
}

func (s *Store) SetTenantAIOverride(_ context.Context, id string, enabled bool, quota int64) (tenant.Tenant, error) {
	return s.mutateTenant(id, func(t *tenant.Tenant) error {
		t.AIEnabled = enabled
		t.AITokenQuota = quota
		t.AIQuotaOverride = true
		return nil
	})
}

func (s *Store) ClearTenantAIOverride(_ context.Context, id string, defaults func(tier string) (bool, int64, error)) (tenant.Tenant, error) {
	return s.mutateTenant(id, func(t *tenant.Tenant) error {
		enabled, quota, err := defaults(t.Plan)
		if err != nil {
			return err
		}
		t.AIEnabled = enabled
		t.AITokenQuota = quota
		t.AIQuotaOverride = false
		return nil
	})
}

func (s *Store) mutateTenant(id string, fn func(t *tenant.Tenant) error) (tenant.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tenants[id]
	if !ok {
		return tenant.Tenant{}, storage.ErrNotFound
	}
	if err := fn(&t); err != nil {
		return tenant.Tenant{}, err
	}
	t.UpdatedAt = now()
	s.tenants[id] = t
	return t, nil
}

func (s *Store) GetTenant(_ context.Context, id string) (tenant.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tenants[id]
	if !ok {
		return tenant.Tenant{}, storage.ErrNotFound
	}
	return t, nil
}

func (s *Store) GetTenantBySlug(_ context.Context, slug string) (tenant.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.tenants {
		if t.Slug == slug {
			return t, nil
		}
	}
	return tenant.Tenant{}, storage.ErrNotFound
}

func (s *Store) ListTenants(_ context.Context) ([]tenant.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]tenant.Tenant, 0, len(s.tenants))
	for _, t := range s.tenants {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Slug < result[j].Slug })
	return result, nil
}

// UserStore implementation ---------------------------------------------------

func (s *Store) CreateUser(ctx context.Context, u user.User, maxUsers int) (user.User, error) {
	tid, err := tenancy.Require(ctx)
	if err != nil {
		return user.User{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	seats := 0
	for _, existing := range s.users {
		if existing.TenantID != tid {
			continue
		}
		if strings.EqualFold(existing.Email, u.Email) {
			return user.User{}, storage.ErrConflict
		}
		seats++
	}
	if maxUsers > 0 && seats >= maxUsers {
		return user.User{}, storage.ErrLimitReached
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.TenantID = tid
	u.CreatedAt = now()
	u.UpdatedAt = u.CreatedAt
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) SetUserRole(ctx context.Context, id string, role user.Role) (user.User, error) {
	return s.mutateUser(ctx, id, func(u *user.User) { u.Role = role })
}

func (s *Store) SetUserDisabled(ctx context.Context, id string, disabled bool) (user.User, error) {
	return s.mutateUser(ctx, id, func(u *user.User) { u.Disabled = disabled })
}

func (s *Store) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	at = at.UTC()
	_, err := s.mutateUser(ctx, id, func(u *user.User) { u.LastLoginAt = &at })
	return err
}

func (s *Store) mutateUser(ctx context.Context, id string, fn func(u *user.User)) (user.User, error) {
	tid, err := tenancy.Require(ctx)
	if err != nil {
		return user.User{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok || u.TenantID != tid {
		return user.User{}, storage.ErrNotFound
	}
	fn(&u)
	u.UpdatedAt = now()
	s.users[id] = u
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (user.User, error) {
	tid, err := tenancy.Require(ctx)
	if err != nil {
		return user.User{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok || u.TenantID != tid {
		return user.User{}, storage.ErrNotFound
	}
	return u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	tid, err := tenancy.Require(ctx)
	if err != nil {
		return user.User{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.TenantID == tid && strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return user.User{}, storage.ErrNotFound
}

func (s *Store) ListUsers(ctx context.Context) ([]user.User, error) {
	tid, err := tenancy.Require(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]user.User, 0)
	for _, u := range s.users {
		if u.TenantID == tid {
			result = append(result, u)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Email < result[j].Email })
	return result, nil
}

// PersonStore implementation -------------------------------------------------

func (s *Store) CreatePerson(ctx context.Context, p person.Person) (person.Person, error) {
	tid, err := tenancy.Require(ctx)
	if err != nil {
		return person.Person{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.TenantID = tid
	p.CreatedAt = now()
	p.UpdatedAt = p.CreatedAt
	p.Tags = cloneStrings(p.Tags)
	s.people[p.ID] = p
	return clonePerson(p), nil
}

func (s *Store) UpdatePerson(ctx context.Context, p person.Person) (person.Person, error) {
	tid, err := tenancy.Require(ctx)
	if err != nil {
		return person.Person{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.people[p.ID]
	if !ok || original.TenantID != tid {
		return person.Person{}, storage.ErrNotFound
	}
	p.TenantID = tid
	p.CreatedAt = original.CreatedAt
	p.UpdatedAt = now()
	p.Tags = cloneStrings(p.Tags)
	s.people[p.ID] = p
	return clonePerson(p), nil
}

func (s *Store) GetPerson(ctx context.Context, id string) (person.Person, error) {
	tid, err := tenancy.Require(ctx)
	if err != nil {
		return person.Person{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.people[id]
	if !ok || p.TenantID != tid {
		return person.Person{}, storage.ErrNotFound
	}
	return clonePerson(p), nil
}

func (s *Store) DeletePerson(ctx context.Context, id string) error {
	tid, err := tenancy.Require(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.people[id]
	if !ok || p.TenantID != tid {
		return storage.ErrNotFound
	}
	delete(s.people, id)
	return nil
}

func (s *Store) ListPeople(ctx context.Context, filter person.Filter) ([]person.Person, error) {
	tid, err := tenancy.Require(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := strings.ToLower(strings.TrimSpace(filter.Query))
	result := make([]person.Person, 0)
	for _, p := range s.people {
		if p.TenantID != tid {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.Tag != "" && !containsFold(p.Tags, filter.Tag) {
			continue
		}
		if query != "" && !matchesPerson(p, query) {
			continue
		}
		result = append(result, clonePerson(p))
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].LastName != result[j].LastName {
			return result[i].LastName < result[j].LastName
		}
		if result[i].FirstName != result[j].FirstName {
			return result[i].FirstName < result[j].FirstName
		}
		return result[i].ID < result[j].ID
	})
	return paginate(result, filter.Offset, filter.Limit), nil
}

func (s *Store) CountPeopleByStatus(ctx context.Context) (map[person.Status]int, error) {
	tid, err := tenancy.Require(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[person.Status]int)
	for _, p := range s.people {
		if p.TenantID == tid {
			counts[p.Status]++
		}
	}
	return counts, nil
}

func matchesPerson(p person.Person, query string) bool {
	for _, field := range []string{p.FirstName, p.LastName, p.FullName(), p.Email} {
		if strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	return false
}

// BulletinStore implementation -----------------------------------------------

func (s *Store) CreateBulletin(ctx context.Context, b bulletin.Bulletin) (bulletin.Bulletin, error) {
	tid, err := tenancy.Require(ctx)
	if err != nil {
		return bulletin.Bulletin{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	b.TenantID = tid
	b.CreatedAt = now()
	b.UpdatedAt = b.CreatedAt
	b = cloneBulletin(b)
	s.bulletins[b.ID] = b
	return cloneBulletin(b), nil
}

func (s *Store) UpdateBulletin(ctx context.Context, b bulletin.Bulletin) (bulletin.Bulletin, error) {
	tid, err := tenancy.Require(ctx)
	if err != nil {
		return bulletin.Bulletin{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.bulletins[b.ID]
	if !ok || original.TenantID != tid {
		return bulletin.Bulletin{}, storage.ErrNotFound
	}
	b.TenantID = tid
	b.CreatedAt = original.CreatedAt
	b.UpdatedAt = now()
	if !b.UpdatedAt.After(original.UpdatedAt) {
		b.UpdatedAt = original.UpdatedAt.Add(time.Microsecond)
	}
	b = cloneBulletin(b)
	s.bulletins[b.ID] = b
	return cloneBulletin(b), nil
}

func (s *Store) GetBulletin(ctx context.Context, id string) (bulletin.Bulletin, error) {
	tid, err := tenancy.Require(ctx)
	if err != nil {
		return bulletin.Bulletin{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bulletins[id]
	if !ok || b.TenantID != tid {
		return bulletin.Bulletin{}, storage.ErrNotFound
	}
	return cloneBulletin(b), nil
}

func (s *Store) DeleteBulletin(ctx context.Context, id string) error {
	tid, err := tenancy.Require(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bulletins[id]
	if !ok || b.TenantID != tid {
		return storage.ErrNotFound
	}
	delete(s.bulletins, id)
	return nil
}

func (s *Store) ListBulletins(ctx context.Context, from, to civil.Date) ([]bulletin.Bulletin, error) {
	tid, err := tenancy.Require(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]bulletin.Bulletin, 0)
	for _, b := range s.bulletins {
		if b.TenantID == tid && inRange(b.ServiceDate, from, to) {
			result = append(result, cloneBulletin(b))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if c := result[i].ServiceDate.Compare(result[j].ServiceDate); c != 0 {
			return c < 0
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// SermonStore implementation -------------------------------------------------

func (s *Store) CreateSermon(ctx context.Context, sm sermon.Sermon) (sermon.Sermon, error) {
	tid, err := tenancy.Require(ctx)
	if err != nil {
		return sermon.Sermon{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if sm.ID == "" {
		sm.ID = uuid.NewString()
	}
	sm.TenantID = tid
	sm.CreatedAt = now()
	sm.UpdatedAt = sm.CreatedAt
	sm = cloneSermon(sm)
	s.sermons[sm.ID] = sm
	return cloneSermon(sm), nil
}

func (s *Store) UpdateSermon(ctx context.Context, sm sermon.Sermon) (sermon.Sermon, error) {
	tid, err := tenancy.Require(ctx)
	if err != nil {
		return sermon.Sermon{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.sermons[sm.ID]
	if !ok || original.TenantID != tid {
		return sermon.Sermon{}, storage.ErrNotFound
	}
	sm.TenantID = tid
	sm.CreatedAt = original.CreatedAt
	sm.UpdatedAt = now()
	sm = cloneSermon(sm)
	s.sermons[sm.ID] = sm
	return cloneSermon(sm), nil
}

func (s *Store) GetSermon(ctx context.Context, id string) (sermon.Sermon, error) {
	tid, err := tenancy.Require(ctx)
	if err != nil {
		return sermon.Sermon{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	sm, ok := s.sermons[id]
	if !ok || sm.TenantID != tid {
		return sermon.Sermon{}, storage.ErrNotFound
	}
	return cloneSermon(sm), nil
}

func (s *Store) DeleteSermon(ctx context.Context, id string) error {
	tid, err := tenancy.Require(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sm, ok := s.sermons[id]
	if !ok || sm.TenantID != tid {
		return storage.ErrNotFound
	}
	delete(s.sermons, id)
	return nil
}

func (s *Store) ListSermons(ctx context.Context, filter sermon.Filter) ([]sermon.Sermon, error) {
	tid, err := tenancy.Require(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]sermon.Sermon, 0)
	for _, sm := range s.sermons {
		if sm.TenantID != tid {
			continue
		}
		if filter.Series != "" && sm.Series != filter.Series {
			continue
		}
		if filter.Status != "" && sm.Status != filter.Status {
			continue
		}
		result = append(result, cloneSermon(sm))
	}
	sort.Slice(result, func(i, j int) bool {
		if c := result[i].PreachedOn.Compare(result[j].PreachedOn); c != 0 {
			return c > 0
		}
		return result[i].Title < result[j].Title
	})
	return result, nil
}

func (s *Store) ListSeries(ctx context.Context) ([]sermon.SeriesCount, error) {
	tid, err := tenancy.Require(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, sm := range s.sermons {
		if sm.TenantID == tid && sm.Series != "" {
			counts[sm.Series]++
		}
	}
	result := make([]sermon.SeriesCount, 0, len(counts))
	for name, n := range counts {
		result = append(result, sermon.SeriesCount{Series: name, Count: n})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Series < result[j].Series })
	return result, nil
}

// AttendanceStore implementation ---------------------------------------------

func (s *Store) UpsertCount(ctx context.Context, c attendance.Count) (attendance.Count, error) {
	tid, err := tenancy.Require(ctx)
	if err != nil {
		return attendance.Count{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(tid, c.ServiceDate.String(), c.ServiceName)
	if existing, ok := s.counts[k]; ok {
		c.ID = existing.ID
	} else if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.TenantID = tid
	c.RecordedAt = now()
	s.counts[k] = c
	return c, nil
}

func (s *Store) ListCounts(ctx context.Context, from, to civil.Date) ([]attendance.Count, error) {
	tid, err := tenancy.Require(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]attendance.Count, 0)
	for _, c := range s.counts {
		if c.TenantID == tid && inRange(c.ServiceDate, from, to) {
			result = append(result, c)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if c := result[i].ServiceDate.Compare(result[j].ServiceDate); c != 0 {
			return c < 0
		}
		return result[i].ServiceName < result[j].ServiceName
	})
	return result, nil
}

func (s *Store) RecordCheckIn(ctx context.Context, c attendance.CheckIn) (attendance.CheckIn, bool, error) {
	tid, err := tenancy.Require(ctx)
	if err != nil {
		return attendance.CheckIn{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(tid, c.PersonID, c.ServiceDate.String(), c.ServiceName)
	if existing, ok := s.checkIns[k]; ok {
		return existing, false, nil
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.TenantID = tid
	if c.CheckedInAt.IsZero() {
		c.CheckedInAt = now()
	}
	s.checkIns[k] = c
	return c, true, nil
}

func (s *Store) CountUniqueAttendees(ctx context.Context, from, to civil.Date) (int, error) {
	tid, err := tenancy.Require(ctx)
	if err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, c := range s.checkIns {
		if c.TenantID == tid && inRange(c.ServiceDate, from, to) {
			seen[c.PersonID] = struct{}{}
		}
	}
	return len(seen), nil
}

// PrayerStore implementation -------------------------------------------------

func (s *Store) CreatePrayer(ctx context.Context, r prayer.Request) (prayer.Request, error) {
	tid, err := tenancy.Require(ctx)
	if err != nil {
		return prayer.Request{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.TenantID = tid
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now()
	}
	r.UpdatedAt = r.CreatedAt
	s.prayers[r.ID] = r
	return r, nil
}

func (s *Store) UpdatePrayer(ctx context.Context, r prayer.Request) (prayer.Request, error) {
	tid, err := tenancy.Require(ctx)
	if err != nil {
		return prayer.Request{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.prayers[r.ID]
	if !ok || original.TenantID != tid {
		return prayer.Request{}, storage.ErrNotFound
	}
	r.TenantID = tid
	r.CreatedAt = original.CreatedAt
	r.UpdatedAt = now()
	s.prayers[r.ID] = r
	return r, nil
}

func (s *Store) GetPrayer(ctx context.Context, id string) (prayer.Request, error) {
	tid, err := tenancy.Require(ctx)
	if err != nil {
		return prayer.Request{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.prayers[id]
	if !ok || r.TenantID != tid {
		return prayer.Request{}, storage.ErrNotFound
	}
	return r, nil
}

func (s *Store) ListPrayers(ctx context.Context, filter prayer.Filter) ([]prayer.Request, error) {
	tid, err := tenancy.Require(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]prayer.Request, 0)
	for _, r := range s.prayers {
		if r.TenantID != tid {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		if len(filter.Visibilities) > 0 && !containsVisibility(filter.Visibilities, r.Visibility) {
			continue
		}
		result = append(result, r)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) ArchiveOpenBefore(ctx context.Context, cutoff time.Time) (int, error) {
	tid, err := tenancy.Require(ctx)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := 0
	ts := now()
	for id, r := range s.prayers {
		if r.TenantID == tid && r.Status == prayer.StatusOpen && r.CreatedAt.Before(cutoff) {
			r.Status = prayer.StatusArchived
			r.UpdatedAt = ts
			s.prayers[id] = r
			changed++
		}
	}
	return changed, nil
}

func containsVisibility(list []prayer.Visibility, v prayer.Visibility) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// DonationStore implementation -----------------------------------------------

func (s *Store) CreateDonation(ctx context.Context, d donation.Donation) (donation.Donation, error) {
	tid, err := tenancy.Require(ctx)
	if err != nil {
		return donation.Donation{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	d.TenantID = tid
	d.CreatedAt = now()
	s.donations[d.ID] = d
	return d, nil
}

func (s *Store) ListDonations(ctx context.Context, filter donation.Filter) ([]donation.Donation, error) {
	tid, err := tenancy.Require(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]donation.Donation, 0)
	for _, d := range s.donations {
		if d.TenantID != tid || !inRange(d.ReceivedOn, filter.From, filter.To) {
			continue
		}
		if filter.Fund != "" && d.Fund != filter.Fund {
			continue
		}
		if filter.PersonID != "" && d.PersonID != filter.PersonID {
			continue
		}
		result = append(result, d)
	}
	sort.Slice(result, func(i, j int) bool {
		if c := result[i].ReceivedOn.Compare(result[j].ReceivedOn); c != 0 {
			return c < 0
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (s *Store) FundTotals(ctx context.Context, from, to civil.Date) ([]donation.FundTotal, error) {
	donations, err := s.ListDonations(ctx, donation.Filter{From: from, To: to})
	if err != nil {
		return nil, err
	}
	totals := make(map[string]*donation.FundTotal)
	for _, d := range donations {
		k := key(d.Fund, d.Currency)
		ft, ok := totals[k]
		if !ok {
			ft = &donation.FundTotal{Fund: d.Fund, Currency: d.Currency}
			totals[k] = ft
		}
		ft.TotalCents += d.AmountCents
		ft.Count++
	}
	result := make([]donation.FundTotal, 0, len(totals))
	for _, ft := range totals {
		result = append(result, *ft)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Fund != result[j].Fund {
			return result[i].Fund < result[j].Fund
		}
		return result[i].Currency < result[j].Currency
	})
	return result, nil
}

// SettingsStore implementation -----------------------------------------------

func (s *Store) GetSettings(ctx context.Context) (settings.Settings, error) {
	tid, err := tenancy.Require(ctx)
	if err != nil {
		return settings.Settings{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.settings[tid]
	if !ok {
		return settings.Settings{}, storage.ErrNotFound
	}
	return cloneSettings(st), nil
}

func (s *Store) SaveSettings(ctx context.Context, st settings.Settings) (settings.Settings, error) {
	tid, err := tenancy.Require(ctx)
	if err != nil {
		return settings.Settings{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	st.TenantID = tid
	st.UpdatedAt = now()
	st = cloneSettings(st)
	s.settings[tid] = st
	return cloneSettings(st), nil
}

// UsageStore implementation --------------------------------------------------

func (s *Store) GetUsage(_ context.Context, tenantID, period string) (plan.Usage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.usage[key(tenantID, period)]
	if !ok {
		return plan.Usage{TenantID: tenantID, Period: period}, nil
	}
	return u, nil
}

func (s *Store) ConsumeTokens(_ context.Context, tenantID, period string, tokens, quota int64) (plan.Usage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(tenantID, period)
	u, ok := s.usage[k]
	if !ok {
		u = plan.Usage{TenantID: tenantID, Period: period}
	}
	if u.TokensUsed+tokens > quota {
		return u, storage.ErrQuotaExceeded
	}
	u.TokensUsed += tokens
	u.UpdatedAt = now()
	s.usage[k] = u
	return u, nil
}

func (s *Store) ChargeTokens(_ context.Context, tenantID, period string, tokens, quota int64) (plan.Usage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(tenantID, period)
	u, ok := s.usage[k]
	if !ok {
		u = plan.Usage{TenantID: tenantID, Period: period}
	}
	u.TokensUsed = min(u.TokensUsed+tokens, max(quota, u.TokensUsed))
	u.UpdatedAt = now()
	s.usage[k] = u
	return u, nil
}

func (s *Store) PruneUsageBefore(_ context.Context, tenantID, period string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for k, u := range s.usage {
		if u.TenantID == tenantID && u.Period < period {
			delete(s.usage, k)
			removed++
		}
	}
	return removed, nil
}

// AuditStore implementation --------------------------------------------------

func (s *Store) AppendAudit(_ context.Context, e audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.auditLog = append(s.auditLog, e)
	if over := len(s.auditLog) - s.auditLimit; over > 0 {
		s.auditLog = append([]audit.Entry(nil), s.auditLog[over:]...)
	}
	return nil
}

func (s *Store) ListAudit(ctx context.Context, limit int) ([]audit.Entry, error) {
	tid, err := tenancy.Require(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]audit.Entry, 0)
	for i := len(s.auditLog) - 1; i >= 0; i-- {
		if s.auditLog[i].TenantID != tid {
			continue
		}
		result = append(result, s.auditLog[i])
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

// helpers --------------------------------------------------------------------

func cloneStrings(src []string) []string {
	if src == nil {
		return nil
	}
	return append([]string(nil), src...)
}

func containsFold(list []string, v string) bool {
	for _, item := range list {
		if strings.EqualFold(item, v) {
			return true
		}
	}
	return false
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return items[:0]
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func clonePerson(p person.Person) person.Person {
	p.Tags = cloneStrings(p.Tags)
	return p
}

func cloneBulletin(b bulletin.Bulletin) bulletin.Bulletin {
	b.Items = append([]bulletin.Item(nil), b.Items...)
	b.Announcements = append([]bulletin.Announcement(nil), b.Announcements...)
	if b.PublishedAt != nil {
		ts := *b.PublishedAt
		b.PublishedAt = &ts
	}
	return b
}

func cloneSermon(sm sermon.Sermon) sermon.Sermon {
	sm.Scripture = cloneStrings(sm.Scripture)
	sm.Outline = cloneStrings(sm.Outline)
	return sm
}

func cloneSettings(st settings.Settings) settings.Settings {
	st.Theology.ExcludedTopics = cloneStrings(st.Theology.ExcludedTopics)
	st.Theology.AvoidTerms = cloneStrings(st.Theology.AvoidTerms)
	return st
}
