package people

import (
	"context"
	"net/mail"
	"sort"
	"strings"
	"time"

	"github.com/flockhq/flock/internal/app/domain/person"
	"github.com/flockhq/flock/internal/app/storage"
	"github.com/flockhq/flock/internal/app/tenancy"
	apperrors "github.com/flockhq/flock/internal/errors"
	"github.com/flockhq/flock/pkg/logger"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// Service manages membership records.
type Service struct {
	store storage.PersonStore
	log   *logger.Logger
}

// New constructs a people service.
func New(store storage.PersonStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("people")
	}
	return &Service{store: store, log: log}
}

// Create adds a person. Status defaults to visitor.
func (s *Service) Create(ctx context.Context, p person.Person) (person.Person, error) {
	if err := normalize(&p); err != nil {
		return person.Person{}, err
	}
	created, err := s.store.CreatePerson(ctx, p)
	if err != nil {
		return person.Person{}, storage.Translate(err, "person", p.ID)
	}
	tenantID, _ := tenancy.FromContext(ctx)
	s.log.WithField("tenant_id", tenantID).
		WithField("person_id", created.ID).
		WithField("status", created.Status).
		Info("person created")
	return created, nil
}

// Update replaces a person's editable fields.
func (s *Service) Update(ctx context.Context, p person.Person) (person.Person, error) {
	if p.ID == "" {
		return person.Person{}, apperrors.Validation("id is required")
	}
	if err := normalize(&p); err != nil {
		return person.Person{}, err
	}
	updated, err := s.store.UpdatePerson(ctx, p)
	if err != nil {
		return person.Person{}, storage.Translate(err, "person", p.ID)
	}
	s.log.WithField("person_id", updated.ID).Info("person updated")
	return updated, nil
}

// Get fetches a person by id.
func (s *Service) Get(ctx context.Context, id string) (person.Person, error) {
	p, err := s.store.GetPerson(ctx, id)
	return p, storage.Translate(err, "person", id)
}

// Delete removes a person.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.DeletePerson(ctx, id); err != nil {
		return storage.Translate(err, "person", id)
	}
	s.log.WithField("person_id", id).Info("person deleted")
	return nil
}

// List returns people matching filter. Limit defaults to 50 and is capped at
// 500.
func (s *Service) List(ctx context.Context, filter person.Filter) ([]person.Person, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperrors.Validationf("unknown status %q", filter.Status)
	}
	if filter.Offset < 0 {
		return nil, apperrors.Validation("offset must not be negative")
	}
	switch {
	case filter.Limit <= 0:
		filter.Limit = defaultLimit
	case filter.Limit > maxLimit:
		filter.Limit = maxLimit
	}
	filter.Query = strings.TrimSpace(filter.Query)
	return s.store.ListPeople(ctx, filter)
}

// Birthdays returns people whose birthday falls in month, ordered by day.
func (s *Service) Birthdays(ctx context.Context, month time.Month) ([]person.Person, error) {
	if month < time.January || month > time.December {
		return nil, apperrors.Validationf("month %d out of range", month)
	}
	all, err := s.store.ListPeople(ctx, person.Filter{})
	if err != nil {
		return nil, err
	}
	result := make([]person.Person, 0)
	for _, p := range all {
		if !p.Birthday.IsZero() && p.Birthday.Month == month && p.Status != person.StatusInactive {
			result = append(result, p)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Birthday.Day < result[j].Birthday.Day
	})
	return result, nil
}

// CountByStatus reports how many people hold each status.
func (s *Service) CountByStatus(ctx context.Context) (map[person.Status]int, error) {
	return s.store.CountPeopleByStatus(ctx)
}

func normalize(p *person.Person) error {
	p.FirstName = strings.TrimSpace(p.FirstName)
	p.LastName = strings.TrimSpace(p.LastName)
	if p.FirstName == "" || p.LastName == "" {
		return apperrors.Validation("first and last name are required")
	}
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	if p.Email != "" {
		addr, err := mail.ParseAddress(p.Email)
		if err != nil || addr.Address != p.Email {
			return apperrors.Validationf("invalid email %q", p.Email)
		}
	}
	if p.Status == "" {
		p.Status = person.StatusVisitor
	}
	if !p.Status.Valid() {
		return apperrors.Validationf("unknown status %q", p.Status)
	}
	tags := p.Tags[:0:0]
	seen := make(map[string]bool, len(p.Tags))
	for _, tag := range p.Tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	p.Tags = tags
	return nil
}
