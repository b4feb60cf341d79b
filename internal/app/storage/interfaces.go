// Package storage declares the persistence contracts used by the services.
// Tenant-owned stores read the tenant from the context (see tenancy); a
// context without a tenant is an error, never a cross-tenant query.
package storage

import (
	"context"
	"errors"
	"time"

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
)

var (
	ErrNotFound      = errors.New("storage: not found")
	ErrConflict      = errors.New("storage: conflict")
	ErrQuotaExceeded = errors.New("storage: quota exceeded")
	ErrLimitReached  = errors.New("storage: limit reached")
)

// TenantStore persists tenants. It is platform scoped.
type TenantStore interface {
	CreateTenant(ctx context.Context, t tenant.Tenant) (tenant.Tenant, error)
	// ChangeTenantPlan sets the plan. aiEnabled and quota are applied only
	// when the tenant has no AI override, decided in the same write.
	ChangeTenantPlan(ctx context.Context, id, tier string, aiEnabled bool, quota int64) (tenant.Tenant, error)
	// SetTenantAIOverride pins the AI settings and raises the override flag.
	SetTenantAIOverride(ctx context.Context, id string, enabled bool, quota int64) (tenant.Tenant, error)
	// ClearTenantAIOverride drops the override and applies the defaults
	// returned for the tenant's current plan while the row is locked.
	ClearTenantAIOverride(ctx context.Context, id string, defaults func(tier string) (enabled bool, quota int64, err error)) (tenant.Tenant, error)
	GetTenant(ctx context.Context, id string) (tenant.Tenant, error)
	GetTenantBySlug(ctx context.Context, slug string) (tenant.Tenant, error)
	ListTenants(ctx context.Context) ([]tenant.Tenant, error)
}

// UserStore persists logins. Emails are unique per tenant.
type UserStore interface {
	// CreateUser inserts u unless the tenant already has maxUsers logins, in
	// which case it returns ErrLimitReached. The count and the insert are one
	// atomic step. maxUsers <= 0 means unlimited.
	CreateUser(ctx context.Context, u user.User, maxUsers int) (user.User, error)
	SetUserRole(ctx context.Context, id string, role user.Role) (user.User, error)
	SetUserDisabled(ctx context.Context, id string, disabled bool) (user.User, error)
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
	GetUser(ctx context.Context, id string) (user.User, error)
	GetUserByEmail(ctx context.Context, email string) (user.User, error)
	ListUsers(ctx context.Context) ([]user.User, error)
}

type PersonStore interface {
	CreatePerson(ctx context.Context, p person.Person) (person.Person, error)
	UpdatePerson(ctx context.Context, p person.Person) (person.Person, error)
	GetPerson(ctx context.Context, id string) (person.Person, error)
	DeletePerson(ctx context.Context, id string) error
	ListPeople(ctx context.Context, filter person.Filter) ([]person.Person, error)
	CountPeopleByStatus(ctx context.Context) (map[person.Status]int, error)
}

// BulletinStore persists bulletins together with their items and
// announcements.
type BulletinStore interface {
	CreateBulletin(ctx context.Context, b bulletin.Bulletin) (bulletin.Bulletin, error)
	UpdateBulletin(ctx context.Context, b bulletin.Bulletin) (bulletin.Bulletin, error)
	GetBulletin(ctx context.Context, id string) (bulletin.Bulletin, error)
	DeleteBulletin(ctx context.Context, id string) error
	// ListBulletins returns bulletins with from <= service date <= to,
	// ordered by service date. Zero bounds are open.
	ListBulletins(ctx context.Context, from, to civil.Date) ([]bulletin.Bulletin, error)
}

type SermonStore interface {
	CreateSermon(ctx context.Context, s sermon.Sermon) (sermon.Sermon, error)
	UpdateSermon(ctx context.Context, s sermon.Sermon) (sermon.Sermon, error)
	GetSermon(ctx context.Context, id string) (sermon.Sermon, error)
	DeleteSermon(ctx context.Context, id string) error
	ListSermons(ctx context.Context, filter sermon.Filter) ([]sermon.Sermon, error)
	ListSeries(ctx context.Context) ([]sermon.SeriesCount, error)
}

type AttendanceStore interface {
	// UpsertCount inserts or replaces the count for (date, service).
	UpsertCount(ctx context.Context, c attendance.Count) (attendance.Count, error)
	ListCounts(ctx context.Context, from, to civil.Date) ([]attendance.Count, error)
	// RecordCheckIn returns the existing check-in and false when the person
	// already checked in to that service.
	RecordCheckIn(ctx context.Context, c attendance.CheckIn) (attendance.CheckIn, bool, error)
	CountUniqueAttendees(ctx context.Context, from, to civil.Date) (int, error)
}

type PrayerStore interface {
	CreatePrayer(ctx context.Context, r prayer.Request) (prayer.Request, error)
	UpdatePrayer(ctx context.Context, r prayer.Request) (prayer.Request, error)
	GetPrayer(ctx context.Context, id string) (prayer.Request, error)
	ListPrayers(ctx context.Context, filter prayer.Filter) ([]prayer.Request, error)
	// ArchiveOpenBefore archives open requests created before cutoff and
	// returns how many changed.
	ArchiveOpenBefore(ctx context.Context, cutoff time.Time) (int, error)
}

type DonationStore interface {
	CreateDonation(ctx context.Context, d donation.Donation) (donation.Donation, error)
	ListDonations(ctx context.Context, filter donation.Filter) ([]donation.Donation, error)
	FundTotals(ctx context.Context, from, to civil.Date) ([]donation.FundTotal, error)
}

// SettingsStore returns ErrNotFound for a tenant that never saved settings.
type SettingsStore interface {
	GetSettings(ctx context.Context) (settings.Settings, error)
	SaveSettings(ctx context.Context, s settings.Settings) (settings.Settings, error)
}

// UsageStore tracks AI token usage per tenant and period.
type UsageStore interface {
	// GetUsage returns a zero usage row when nothing was consumed yet.
	GetUsage(ctx context.Context, tenantID, period string) (plan.Usage, error)
	// ConsumeTokens adds tokens only if the result stays within quota, as a
	// single atomic step. It returns ErrQuotaExceeded otherwise.
	ConsumeTokens(ctx context.Context, tenantID, period string, tokens, quota int64) (plan.Usage, error)
	// ChargeTokens records tokens that were already spent. Usage saturates
	// at quota instead of failing.
	ChargeTokens(ctx context.Context, tenantID, period string, tokens, quota int64) (plan.Usage, error)
	// PruneUsageBefore deletes periods older than period ("YYYY-MM").
	PruneUsageBefore(ctx context.Context, tenantID, period string) (int, error)
}

type AuditStore interface {
	AppendAudit(ctx context.Context, e audit.Entry) error
	// ListAudit returns the newest entries first.
	ListAudit(ctx context.Context, limit int) ([]audit.Entry, error)
}
