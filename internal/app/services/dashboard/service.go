// Package dashboard assembles the home-screen summary for a signed-in user.
package dashboard

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/flockhq/flock/internal/app/domain/attendance"
	"github.com/flockhq/flock/internal/app/domain/bulletin"
	"github.com/flockhq/flock/internal/app/domain/civil"
	"github.com/flockhq/flock/internal/app/domain/person"
	"github.com/flockhq/flock/internal/app/domain/plan"
	"github.com/flockhq/flock/internal/app/domain/settings"
	"github.com/flockhq/flock/internal/app/domain/user"
	"github.com/flockhq/flock/pkg/logger"
)

const (
	attendanceWindowDays  = 28
	bulletinLookaheadDays = 60
)

// Sources are the services the dashboard reads from.
type Sources struct {
	People interface {
		CountByStatus(ctx context.Context) (map[person.Status]int, error)
	}
	Attendance interface {
		Summary(ctx context.Context, from, to civil.Date) (attendance.Summary, error)
	}
	Prayer interface {
		CountOpen(ctx context.Context, role user.Role) (int, error)
	}
	Donations interface {
		MonthToDate(ctx context.Context) (map[string]int64, error)
	}
	Bulletins interface {
		List(ctx context.Context, from, to civil.Date) ([]bulletin.Bulletin, error)
	}
	AI interface {
		Quota(ctx context.Context) (plan.Quota, error)
	}
	Settings interface {
		Get(ctx context.Context) (settings.Settings, error)
	}
}

// Summary is the dashboard payload.
type Summary struct {
	People       map[person.Status]int `json:"people"`
	PeopleTotal  int                   `json:"people_total"`
	Attendance   attendance.Summary    `json:"attendance"`
	OpenPrayers  int                   `json:"open_prayers"`
	Giving       map[string]int64      `json:"giving_month_to_date,omitempty"`
	NextBulletin *BulletinRef          `json:"next_bulletin,omitempty"`
	AIQuota      *plan.Quota           `json:"ai_quota,omitempty"`
}

// BulletinRef points at the next scheduled bulletin.
type BulletinRef struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	ServiceDate civil.Date      `json:"service_date"`
	Status      bulletin.Status `json:"status"`
}

// Service builds dashboard summaries.
type Service struct {
	src Sources
	log *logger.Logger
	now func() time.Time
}

// New constructs a dashboard service.
func New(src Sources, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("dashboard")
	}
	return &Service{src: src, log: log, now: time.Now}
}

// Summary gathers every section concurrently. Giving is included only for
// roles that may read donations.
func (s *Service) Summary(ctx context.Context, role user.Role) (Summary, error) {
	st, err := s.src.Settings.Get(ctx)
	if err != nil {
		return Summary{}, err
	}
	today := civil.DateOf(s.now().In(st.Location()))

	var (
		out Summary
		mu  sync.Mutex
	)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		counts, err := s.src.People.CountByStatus(gctx)
		if err != nil {
			return err
		}
		total := 0
		for _, n := range counts {
			total += n
		}
		mu.Lock()
		out.People, out.PeopleTotal = counts, total
		mu.Unlock()
		return nil
	})
	g.Go(func() error {
		sum, err := s.src.Attendance.Summary(gctx, today.AddDays(-(attendanceWindowDays - 1)), today)
		if err != nil {
			return err
		}
		mu.Lock()
		out.Attendance = sum
		mu.Unlock()
		return nil
	})
	g.Go(func() error {
		n, err := s.src.Prayer.CountOpen(gctx, role)
		if err != nil {
			return err
		}
		mu.Lock()
		out.OpenPrayers = n
		mu.Unlock()
		return nil
	})
	if role.Can(user.PermDonationsRead) {
		g.Go(func() error {
			totals, err := s.src.Donations.MonthToDate(gctx)
			if err != nil {
				return err
			}
			mu.Lock()
			out.Giving = totals
			mu.Unlock()
			return nil
		})
	}
	g.Go(func() error {
		upcoming, err := s.src.Bulletins.List(gctx, today, today.AddDays(bulletinLookaheadDays))
		if err != nil || len(upcoming) == 0 {
			return err
		}
		b := upcoming[0]
		mu.Lock()
		out.NextBulletin = &BulletinRef{ID: b.ID, Title: b.Title, ServiceDate: b.ServiceDate, Status: b.Status}
		mu.Unlock()
		return nil
	})
	g.Go(func() error {
		q, err := s.src.AI.Quota(gctx)
		if err != nil {
			s.log.WithError(err).Warn("dashboard ai quota unavailable")
			return nil
		}
		mu.Lock()
		out.AIQuota = &q
		mu.Unlock()
		return nil
	})

	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	return out, nil
}
