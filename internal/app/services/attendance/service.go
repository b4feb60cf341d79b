package attendance

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/flockhq/flock/internal/app/domain/attendance"
	"github.com/flockhq/flock/internal/app/domain/civil"
	"github.com/flockhq/flock/internal/app/storage"
	apperrors "github.com/flockhq/flock/internal/errors"
	"github.com/flockhq/flock/pkg/logger"
)

// Service records headcounts and individual check-ins.
type Service struct {
	store  storage.AttendanceStore
	people storage.PersonStore
	log    *logger.Logger
	now    func() time.Time
}

// New constructs an attendance service.
func New(store storage.AttendanceStore, people storage.PersonStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("attendance")
	}
	return &Service{store: store, people: people, log: log, now: time.Now}
}

// RecordCount stores the headcount for a service, replacing any earlier count
// for the same date and service name.
func (s *Service) RecordCount(ctx context.Context, c attendance.Count) (attendance.Count, error) {
	if c.ServiceDate.IsZero() {
		return attendance.Count{}, apperrors.Validation("service_date is required")
	}
	c.ServiceName = strings.TrimSpace(c.ServiceName)
	if c.ServiceName == "" {
		return attendance.Count{}, apperrors.Validation("service_name is required")
	}
	if c.Headcount < 0 {
		return attendance.Count{}, apperrors.Validation("headcount must not be negative")
	}
	saved, err := s.store.UpsertCount(ctx, c)
	if err != nil {
		return attendance.Count{}, storage.Translate(err, "attendance count", c.ServiceDate.String())
	}
	s.log.WithField("service_date", saved.ServiceDate.String()).
		WithField("service", saved.ServiceName).
		WithField("headcount", saved.Headcount).
		Info("attendance recorded")
	return saved, nil
}

// CheckIn records a person at a service. Repeating a check-in returns the
// original record and created=false.
func (s *Service) CheckIn(ctx context.Context, personID string, date civil.Date, serviceName string) (attendance.CheckIn, bool, error) {
	serviceName = strings.TrimSpace(serviceName)
	switch {
	case personID == "":
		return attendance.CheckIn{}, false, apperrors.Validation("person_id is required")
	case serviceName == "":
		return attendance.CheckIn{}, false, apperrors.Validation("service_name is required")
	}
	if date.IsZero() {
		date = civil.DateOf(s.now())
	}
	if _, err := s.people.GetPerson(ctx, personID); err != nil {
		return attendance.CheckIn{}, false, storage.Translate(err, "person", personID)
	}
	c, created, err := s.store.RecordCheckIn(ctx, attendance.CheckIn{
		PersonID:    personID,
		ServiceDate: date,
		ServiceName: serviceName,
	})
	if err != nil {
		return attendance.CheckIn{}, false, err
	}
	if created {
		s.log.WithField("person_id", personID).
			WithField("service_date", date.String()).
			WithField("service", serviceName).
			Info("checked in")
	}
	return c, created, nil
}

// ListCounts returns headcounts in [from, to].
func (s *Service) ListCounts(ctx context.Context, from, to civil.Date) ([]attendance.Count, error) {
	if err := checkRange(from, to); err != nil {
		return nil, err
	}
	return s.store.ListCounts(ctx, from, to)
}

// Summary aggregates headcounts and unique check-ins over [from, to].
func (s *Service) Summary(ctx context.Context, from, to civil.Date) (attendance.Summary, error) {
	if from.IsZero() || to.IsZero() {
		return attendance.Summary{}, apperrors.Validation("from and to are required")
	}
	if err := checkRange(from, to); err != nil {
		return attendance.Summary{}, err
	}
	counts, err := s.store.ListCounts(ctx, from, to)
	if err != nil {
		return attendance.Summary{}, err
	}
	unique, err := s.store.CountUniqueAttendees(ctx, from, to)
	if err != nil {
		return attendance.Summary{}, err
	}
	return summarize(from, to, counts, unique), nil
}

func summarize(from, to civil.Date, counts []attendance.Count, unique int) attendance.Summary {
	sum := attendance.Summary{From: from, To: to, Services: len(counts), UniquePeople: unique}
	for _, c := range counts {
		sum.TotalHeadcount += c.Headcount
		if c.Headcount > sum.Peak || (c.Headcount == sum.Peak && sum.PeakDate.IsZero()) {
			sum.Peak = c.Headcount
			sum.PeakDate = c.ServiceDate
		}
	}
	if sum.Services > 0 {
		avg := float64(sum.TotalHeadcount) / float64(sum.Services)
		sum.Average = math.Round(avg*10) / 10
	}
	return sum
}

func checkRange(from, to civil.Date) error {
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return apperrors.Validation("to must not be before from")
	}
	return nil
}
