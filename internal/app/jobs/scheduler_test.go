package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flockhq/flock/internal/app/domain/prayer"
	"github.com/flockhq/flock/internal/app/domain/tenant"
	prayersvc "github.com/flockhq/flock/internal/app/services/prayer"
	settingssvc "github.com/flockhq/flock/internal/app/services/settings"
	"github.com/flockhq/flock/internal/app/storage/memory"
	"github.com/flockhq/flock/internal/app/tenancy"
	"github.com/flockhq/flock/pkg/logger"
)

type pruneRecorder struct {
	tenants []string
	months  int
	failFor string
}

func (p *pruneRecorder) PruneBefore(_ context.Context, tenantID string, months int) (int, error) {
	if tenantID == p.failFor {
		return 0, errors.New("usage table locked")
	}
	p.tenants = append(p.tenants, tenantID)
	p.months = months
	return 2, nil
}

func setup(t *testing.T, usage UsagePruner) (*Scheduler, *memory.Store) {
	t.Helper()
	store := memory.New()
	ctx := context.Background()
	for _, tn := range []tenant.Tenant{{ID: "t-a", Slug: "grace"}, {ID: "t-b", Slug: "hope"}} {
		_, err := store.CreateTenant(ctx, tn)
		require.NoError(t, err)
	}
	st := settingssvc.New(store, logger.Discard())
	sched := NewScheduler(Config{UsageRetentionMonths: 12}, store, st,
		prayersvc.New(store, store, logger.Discard()), usage, logger.Discard())
	return sched, store
}

func TestExpirePrayersUsesTenantWindow(t *testing.T) {
	sched, store := setup(t, &pruneRecorder{})
	old := time.Now().UTC().AddDate(0, 0, -60)

	for _, tid := range []string{"t-a", "t-b"} {
		ctx := tenancy.WithTenant(context.Background(), tid)
		_, err := store.CreatePrayer(ctx, prayer.Request{
			Body:       "for the harvest",
			Status:     prayer.StatusOpen,
			Visibility: prayer.VisibilityPublic,
			CreatedAt:  old,
		})
		require.NoError(t, err)
	}

	ctxB := tenancy.WithTenant(context.Background(), "t-b")
	_, err := settingssvc.New(store, logger.Discard()).UpdateGeneral(ctxB, settingssvc.General{
		Timezone: "America/Chicago", Locale: "en-US", PrayerExpiryDays: 30,
	})
	require.NoError(t, err)

	n, err := sched.ExpirePrayers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n, "only the tenant with a 30 day window expires a 60 day old request")

	open, err := store.ListPrayers(ctxB, prayer.Filter{Status: prayer.StatusOpen})
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestPruneUsageVisitsEveryTenant(t *testing.T) {
	rec := &pruneRecorder{failFor: "t-a"}
	sched, _ := setup(t, rec)

	n, err := sched.PruneUsage(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tenant grace")
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"t-b"}, rec.tenants)
	assert.Equal(t, 12, rec.months)
}

func TestStartRejectsBadSpec(t *testing.T) {
	sched, _ := setup(t, &pruneRecorder{})
	sched.cfg.PrayerExpirySpec = "every tuesday"
	assert.Error(t, sched.Start(context.Background()))
}

func TestStartStop(t *testing.T) {
	sched, _ := setup(t, &pruneRecorder{})
	sched.cfg.PrayerExpirySpec = "15 3 * * *"
	require.NoError(t, sched.Start(context.Background()))
	assert.Equal(t, "jobs", sched.Name())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, sched.Stop(ctx))
	assert.NoError(t, sched.Stop(ctx), "second stop is a no-op")
}
