// Package jobs runs the periodic maintenance tasks: archiving stale prayer
// requests and pruning old AI usage rows.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/flockhq/flock/internal/app/domain/settings"
	"github.com/flockhq/flock/internal/app/domain/tenant"
	"github.com/flockhq/flock/internal/app/metrics"
	"github.com/flockhq/flock/internal/app/tenancy"
	"github.com/flockhq/flock/pkg/logger"
)

const (
	jobPrayerExpiry = "prayer_expiry"
	jobUsagePrune   = "usage_prune"
)

// Tenants lists every tenant. storage.TenantStore satisfies it.
type Tenants interface {
	ListTenants(ctx context.Context) ([]tenant.Tenant, error)
}

// Settings loads tenant settings for the tenant on ctx.
type Settings interface {
	Get(ctx context.Context) (settings.Settings, error)
}

// PrayerExpirer archives open prayer requests for the tenant on ctx.
type PrayerExpirer interface {
	ExpireOlderThan(ctx context.Context, days int) (int, error)
}

// UsagePruner removes AI usage rows older than the retention window.
type UsagePruner interface {
	PruneBefore(ctx context.Context, tenantID string, retentionMonths int) (int, error)
}

// Config holds the cron specs (standard five-field syntax, UTC).
type Config struct {
	PrayerExpirySpec     string
	UsagePruneSpec       string
	UsageRetentionMonths int
}

// Scheduler is a system.Service wrapping a cron runner.
type Scheduler struct {
	cfg      Config
	tenants  Tenants
	settings Settings
	prayer   PrayerExpirer
	usage    UsagePruner
	log      *logger.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

// NewScheduler builds a scheduler. Empty specs disable the matching job.
func NewScheduler(cfg Config, tenants Tenants, st Settings, prayer PrayerExpirer, usage UsagePruner, log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.NewDefault("jobs")
	}
	return &Scheduler{cfg: cfg, tenants: tenants, settings: st, prayer: prayer, usage: usage, log: log}
}

func (s *Scheduler) Name() string { return "jobs" }

// Start validates the specs and starts the cron runner.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return nil
	}

	c := cron.New(cron.WithLocation(time.UTC), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	jobs := []struct {
		name string
		spec string
		run  func(context.Context) (int, error)
	}{
		{jobPrayerExpiry, s.cfg.PrayerExpirySpec, s.ExpirePrayers},
		{jobUsagePrune, s.cfg.UsagePruneSpec, s.PruneUsage},
	}
	for _, j := range jobs {
		if j.spec == "" {
			s.log.WithField("job", j.name).Info("job disabled")
			continue
		}
		if _, err := c.AddFunc(j.spec, func() { s.run(j.name, j.run) }); err != nil {
			return fmt.Errorf("schedule %s %q: %w", j.name, j.spec, err)
		}
		s.log.WithField("job", j.name).WithField("spec", j.spec).Info("job scheduled")
	}
	c.Start()
	s.cron = c
	return nil
}

// Stop halts the runner and waits for in-flight jobs or ctx, whichever
// comes first.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c == nil {
		return nil
	}
	select {
	case <-c.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) run(name string, fn func(context.Context) (int, error)) {
	start := time.Now()
	n, err := fn(context.Background())
	metrics.RecordJobRun(name, time.Since(start), err == nil)
	entry := s.log.WithField("job", name).WithField("affected", n).WithField("duration", time.Since(start).String())
	if err != nil {
		entry.WithError(err).Warn("job finished with errors")
		return
	}
	entry.Info("job finished")
}

// ExpirePrayers archives stale open requests for every tenant, using each
// tenant's PrayerExpiryDays. A failing tenant does not stop the others.
func (s *Scheduler) ExpirePrayers(ctx context.Context) (int, error) {
	return s.eachTenant(ctx, func(ctx context.Context, t tenant.Tenant) (int, error) {
		st, err := s.settings.Get(ctx)
		if err != nil {
			return 0, err
		}
		if st.PrayerExpiryDays <= 0 {
			return 0, nil
		}
		return s.prayer.ExpireOlderThan(ctx, st.PrayerExpiryDays)
	})
}

// PruneUsage deletes AI usage periods older than the retention window.
func (s *Scheduler) PruneUsage(ctx context.Context) (int, error) {
	return s.eachTenant(ctx, func(ctx context.Context, t tenant.Tenant) (int, error) {
		return s.usage.PruneBefore(ctx, t.ID, s.cfg.UsageRetentionMonths)
	})
}

func (s *Scheduler) eachTenant(ctx context.Context, fn func(context.Context, tenant.Tenant) (int, error)) (int, error) {
	tenants, err := s.tenants.ListTenants(ctx)
	if err != nil {
		return 0, fmt.Errorf("list tenants: %w", err)
	}
	var (
		total int
		errs  []error
	)
	for _, t := range tenants {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, err := fn(tenancy.WithTenant(ctx, t.ID), t)
		if err != nil {
			errs = append(errs, fmt.Errorf("tenant %s: %w", t.Slug, err))
			continue
		}
		total += n
	}
	return total, errors.Join(errs...)
}
