package prayer

import (
	"context"
	"strings"
	"time"

	"github.com/flockhq/flock/internal/app/domain/prayer"
	"github.com/flockhq/flock/internal/app/domain/user"
	"github.com/flockhq/flock/internal/app/storage"
	"github.com/flockhq/flock/internal/app/tenancy"
	apperrors "github.com/flockhq/flock/internal/errors"
	"github.com/flockhq/flock/pkg/logger"
)

const maxBodyRunes = 4000

// Service manages the prayer list.
type Service struct {
	store  storage.PrayerStore
	people storage.PersonStore
	log    *logger.Logger
	now    func() time.Time
}

// New constructs a prayer service.
func New(store storage.PrayerStore, people storage.PersonStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("prayer")
	}
	return &Service{store: store, people: people, log: log, now: time.Now}
}

// VisibleTo returns the visibility levels role may read.
func VisibleTo(role user.Role) []prayer.Visibility {
	switch role {
	case user.RoleAdmin, user.RolePastor:
		return []prayer.Visibility{prayer.VisibilityPublic, prayer.VisibilityStaff, prayer.VisibilityPastoral}
	case user.RoleStaff, user.RoleFinance:
		return []prayer.Visibility{prayer.VisibilityPublic, prayer.VisibilityStaff}
	default:
		return []prayer.Visibility{prayer.VisibilityPublic}
	}
}

// Submit adds an open request. Visibility defaults to staff.
func (s *Service) Submit(ctx context.Context, r prayer.Request) (prayer.Request, error) {
	r.Body = strings.TrimSpace(r.Body)
	if r.Body == "" {
		return prayer.Request{}, apperrors.Validation("body is required")
	}
	if len([]rune(r.Body)) > maxBodyRunes {
		return prayer.Request{}, apperrors.Validationf("body must be at most %d characters", maxBodyRunes)
	}
	if r.Visibility == "" {
		r.Visibility = prayer.VisibilityStaff
	}
	if !r.Visibility.Valid() {
		return prayer.Request{}, apperrors.Validationf("unknown visibility %q", r.Visibility)
	}
	if r.PersonID != "" {
		p, err := s.people.GetPerson(ctx, r.PersonID)
		if err != nil {
			return prayer.Request{}, storage.Translate(err, "person", r.PersonID)
		}
		if strings.TrimSpace(r.RequesterName) == "" {
			r.RequesterName = p.FullName()
		}
	}
	r.RequesterName = strings.TrimSpace(r.RequesterName)
	r.Status = prayer.StatusOpen
	r.AnsweredNote = ""
	r.CreatedAt = time.Time{}

	created, err := s.store.CreatePrayer(ctx, r)
	if err != nil {
		return prayer.Request{}, storage.Translate(err, "prayer request", r.ID)
	}
	tenantID, _ := tenancy.FromContext(ctx)
	s.log.WithField("tenant_id", tenantID).
		WithField("prayer_id", created.ID).
		WithField("visibility", created.Visibility).
		Info("prayer request submitted")
	return created, nil
}

// List returns requests the role may see, optionally narrowed by status.
func (s *Service) List(ctx context.Context, role user.Role, status prayer.Status) ([]prayer.Request, error) {
	switch status {
	case "", prayer.StatusOpen, prayer.StatusAnswered, prayer.StatusArchived:
	default:
		return nil, apperrors.Validationf("unknown status %q", status)
	}
	return s.store.ListPrayers(ctx, prayer.Filter{Visibilities: VisibleTo(role), Status: status})
}

// Get returns a request if role may see it.
func (s *Service) Get(ctx context.Context, role user.Role, id string) (prayer.Request, error) {
	r, err := s.store.GetPrayer(ctx, id)
	if err != nil {
		return prayer.Request{}, storage.Translate(err, "prayer request", id)
	}
	for _, v := range VisibleTo(role) {
		if v == r.Visibility {
			return r, nil
		}
	}
	return prayer.Request{}, apperrors.NotFound("prayer request", id)
}

// MarkAnswered closes a request with a praise note.
func (s *Service) MarkAnswered(ctx context.Context, id, note string) (prayer.Request, error) {
	return s.transition(ctx, id, func(r *prayer.Request) error {
		if r.Status == prayer.StatusArchived {
			return apperrors.Conflict("archived requests cannot be answered")
		}
		r.Status = prayer.StatusAnswered
		r.AnsweredNote = strings.TrimSpace(note)
		return nil
	})
}

// Archive removes a request from the active list.
func (s *Service) Archive(ctx context.Context, id string) (prayer.Request, error) {
	return s.transition(ctx, id, func(r *prayer.Request) error {
		r.Status = prayer.StatusArchived
		return nil
	})
}

// ExpireOlderThan archives open requests created more than days ago.
func (s *Service) ExpireOlderThan(ctx context.Context, days int) (int, error) {
	if days <= 0 {
		return 0, apperrors.Validation("days must be positive")
	}
	cutoff := s.now().UTC().AddDate(0, 0, -days)
	n, err := s.store.ArchiveOpenBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		tenantID, _ := tenancy.FromContext(ctx)
		s.log.WithField("tenant_id", tenantID).
			WithField("archived", n).
			WithField("cutoff", cutoff.Format(time.RFC3339)).
			Info("expired prayer requests")
	}
	return n, nil
}

// CountOpen reports open requests visible to role.
func (s *Service) CountOpen(ctx context.Context, role user.Role) (int, error) {
	open, err := s.List(ctx, role, prayer.StatusOpen)
	if err != nil {
		return 0, err
	}
	return len(open), nil
}

func (s *Service) transition(ctx context.Context, id string, mutate func(*prayer.Request) error) (prayer.Request, error) {
	r, err := s.store.GetPrayer(ctx, id)
	if err != nil {
		return prayer.Request{}, storage.Translate(err, "prayer request", id)
	}
	if err := mutate(&r); err != nil {
		return prayer.Request{}, err
	}
	updated, err := s.store.UpdatePrayer(ctx, r)
	if err != nil {
		return prayer.Request{}, storage.Translate(err, "prayer request", id)
	}
	s.log.WithField("prayer_id", id).WithField("status", updated.Status).Info("prayer request updated")
	return updated, nil
}
