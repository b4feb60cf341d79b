package app

import (
	"context"
	"fmt"
	"time"

	"github.com/flockhq/flock/internal/app/cache"
	"github.com/flockhq/flock/internal/app/jobs"
	"github.com/flockhq/flock/internal/app/services/attendance"
	"github.com/flockhq/flock/internal/app/services/auth"
	"github.com/flockhq/flock/internal/app/services/bulletins"
	"github.com/flockhq/flock/internal/app/services/dashboard"
	"github.com/flockhq/flock/internal/app/services/donations"
	"github.com/flockhq/flock/internal/app/services/people"
	"github.com/flockhq/flock/internal/app/services/plans"
	"github.com/flockhq/flock/internal/app/services/prayer"
	"github.com/flockhq/flock/internal/app/services/sermonhelper"
	"github.com/flockhq/flock/internal/app/services/sermons"
	"github.com/flockhq/flock/internal/app/services/settings"
	"github.com/flockhq/flock/internal/app/services/tenants"
	"github.com/flockhq/flock/internal/app/storage"
	"github.com/flockhq/flock/internal/app/storage/memory"
	"github.com/flockhq/flock/internal/app/system"
	"github.com/flockhq/flock/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Tenants    storage.TenantStore
	Users      storage.UserStore
	People     storage.PersonStore
	Bulletins  storage.BulletinStore
	Sermons    storage.SermonStore
	Attendance storage.AttendanceStore
	Prayer     storage.PrayerStore
	Donations  storage.DonationStore
	Settings   storage.SettingsStore
	Usage      storage.UsageStore
	Audit      storage.AuditStore
}

// Options carries the non-store dependencies. Zero values give a working
// in-process application: memory cache, catalog suggester, jobs disabled.
type Options struct {
	Auth         auth.Config
	Plans        *plans.Catalog
	Cache        cache.Cache
	CacheTTL     time.Duration
	Suggester    sermonhelper.Suggester
	OutputBudget int
	Jobs         jobs.Config
	JobsEnabled  bool
}

// Application ties domain services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Stores       Stores
	Plans        *plans.Service
	Tenants      *tenants.Service
	Auth         *auth.Service
	People       *people.Service
	Bulletins    *bulletins.Service
	Sermons      *sermons.Service
	Attendance   *attendance.Service
	Prayer       *prayer.Service
	Donations    *donations.Service
	Settings     *settings.Service
	SermonHelper *sermonhelper.Service
	Dashboard    *dashboard.Service
	Jobs         *jobs.Scheduler
}

// New builds a fully initialised application with the provided stores.
func New(stores Stores, opts Options, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}

	mem := memory.New()
	if stores.Tenants == nil {
		stores.Tenants = mem
	}
	if stores.Users == nil {
		stores.Users = mem
	}
	if stores.People == nil {
		stores.People = mem
	}
	if stores.Bulletins == nil {
		stores.Bulletins = mem
	}
	if stores.Sermons == nil {
		stores.Sermons = mem
	}
	if stores.Attendance == nil {
		stores.Attendance = mem
	}
	if stores.Prayer == nil {
		stores.Prayer = mem
	}
	if stores.Donations == nil {
		stores.Donations = mem
	}
	if stores.Settings == nil {
		stores.Settings = mem
	}
	if stores.Usage == nil {
		stores.Usage = mem
	}
	if stores.Audit == nil {
		stores.Audit = mem
	}

	if opts.Cache == nil {
		opts.Cache = cache.NewMemory(256)
	}
	if opts.Suggester == nil {
		catalog, err := sermonhelper.NewCatalogSuggester()
		if err != nil {
			return nil, fmt.Errorf("load sermon catalog: %w", err)
		}
		opts.Suggester = catalog
	}

	manager := system.NewManager()

	planService := plans.New(opts.Plans, stores.Usage, log)
	tenantService := tenants.New(stores.Tenants, planService, log)
	authService := auth.New(opts.Auth, stores.Tenants, stores.Users, planService, log)
	peopleService := people.New(stores.People, log)
	bulletinService := bulletins.New(stores.Bulletins, stores.Settings, opts.Cache, opts.CacheTTL, log)
	sermonService := sermons.New(stores.Sermons, log)
	attendanceService := attendance.New(stores.Attendance, stores.People, log)
	prayerService := prayer.New(stores.Prayer, stores.People, log)
	donationService := donations.New(stores.Donations, stores.People, stores.Settings, log)
	settingsService := settings.New(stores.Settings, log)
	helperService := sermonhelper.New(opts.Suggester, planService, stores.Tenants, stores.Settings, opts.OutputBudget, log)
	dashboardService := dashboard.New(dashboard.Sources{
		People:     peopleService,
		Attendance: attendanceService,
		Prayer:     prayerService,
		Donations:  donationService,
		Bulletins:  bulletinService,
		AI:         helperService,
		Settings:   settingsService,
	}, log)
	scheduler := jobs.NewScheduler(opts.Jobs, stores.Tenants, settingsService, prayerService, planService, log)

	if opts.JobsEnabled {
		if err := manager.Register(scheduler); err != nil {
			return nil, fmt.Errorf("register %s: %w", scheduler.Name(), err)
		}
	}

	return &Application{
		manager:      manager,
		log:          log,
		Stores:       stores,
		Plans:        planService,
		Tenants:      tenantService,
		Auth:         authService,
		People:       peopleService,
		Bulletins:    bulletinService,
		Sermons:      sermonService,
		Attendance:   attendanceService,
		Prayer:       prayerService,
		Donations:    donationService,
		Settings:     settingsService,
		SermonHelper: helperService,
		Dashboard:    dashboardService,
		Jobs:         scheduler,
	}, nil
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
