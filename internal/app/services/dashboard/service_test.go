package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flockhq/flock/internal/app/domain/attendance"
	"github.com/flockhq/flock/internal/app/domain/bulletin"
	"github.com/flockhq/flock/internal/app/domain/civil"
	"github.com/flockhq/flock/internal/app/domain/person"
	"github.com/flockhq/flock/internal/app/domain/plan"
	"github.com/flockhq/flock/internal/app/domain/settings"
	"github.com/flockhq/flock/internal/app/domain/user"
	"github.com/flockhq/flock/pkg/logger"
)

type fake struct {
	from, to     civil.Date
	prayerRole   user.Role
	donationHits int
	peopleErr    error
	quotaErr     error
}

func (f *fake) CountByStatus(context.Context) (map[person.Status]int, error) {
	if f.peopleErr != nil {
		return nil, f.peopleErr
	}
	return map[person.Status]int{person.StatusMember: 40, person.StatusVisitor: 7}, nil
}

func (f *fake) Summary(_ context.Context, from, to civil.Date) (attendance.Summary, error) {
	f.from, f.to = from, to
	return attendance.Summary{From: from, To: to, Services: 4, TotalHeadcount: 480, Average: 120}, nil
}

func (f *fake) CountOpen(_ context.Context, role user.Role) (int, error) {
	f.prayerRole = role
	return 3, nil
}

func (f *fake) MonthToDate(context.Context) (map[string]int64, error) {
	f.donationHits++
	return map[string]int64{"general": 125000}, nil
}

func (f *fake) List(_ context.Context, from, _ civil.Date) ([]bulletin.Bulletin, error) {
	return []bulletin.Bulletin{{ID: "b1", Title: "Lord's Day", ServiceDate: from.AddDays(3), Status: bulletin.StatusDraft}}, nil
}

func (f *fake) Quota(context.Context) (plan.Quota, error) {
	if f.quotaErr != nil {
		return plan.Quota{}, f.quotaErr
	}
	return plan.Quota{Period: "2024-03", Enabled: true, Limit: 1000, Used: 250, Remaining: 750}, nil
}

func (f *fake) Get(context.Context) (settings.Settings, error) {
	return settings.Defaults("tenant-a"), nil
}

func newService(f *fake) *Service {
	svc := New(Sources{People: f, Attendance: f, Prayer: f, Donations: f, Bulletins: f, AI: f, Settings: f}, logger.Discard())
	svc.now = func() time.Time { return time.Date(2024, 3, 10, 14, 0, 0, 0, time.UTC) }
	return svc
}

func TestSummaryForFinance(t *testing.T) {
	f := &fake{}
	sum, err := newService(f).Summary(context.Background(), user.RoleFinance)
	require.NoError(t, err)

	assert.Equal(t, 47, sum.PeopleTotal)
	assert.Equal(t, 3, sum.OpenPrayers)
	assert.Equal(t, user.RoleFinance, f.prayerRole)
	assert.Equal(t, int64(125000), sum.Giving["general"])
	require.NotNil(t, sum.NextBulletin)
	assert.Equal(t, "b1", sum.NextBulletin.ID)
	require.NotNil(t, sum.AIQuota)
	assert.Equal(t, int64(750), sum.AIQuota.Remaining)

	// 10:00 in New York; the window ends on the local date.
	assert.Equal(t, civil.MustParse("2024-03-10"), f.to)
	assert.Equal(t, civil.MustParse("2024-02-12"), f.from)
}

func TestSummaryHidesGivingFromVolunteers(t *testing.T) {
	f := &fake{}
	sum, err := newService(f).Summary(context.Background(), user.RoleVolunteer)
	require.NoError(t, err)
	assert.Nil(t, sum.Giving)
	assert.Zero(t, f.donationHits)
}

func TestSummaryToleratesMissingQuota(t *testing.T) {
	f := &fake{quotaErr: errors.New("tenant lookup failed")}
	sum, err := newService(f).Summary(context.Background(), user.RoleAdmin)
	require.NoError(t, err)
	assert.Nil(t, sum.AIQuota)
}

func TestSummaryPropagatesErrors(t *testing.T) {
	f := &fake{peopleErr: errors.New("db down")}
	_, err := newService(f).Summary(context.Background(), user.RoleAdmin)
	assert.EqualError(t, err, "db down")
}
