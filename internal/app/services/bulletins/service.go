// Package bulletins manages weekly service bulletins and renders them as
// printable four-page programmes.
package bulletins

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/flockhq/flock/internal/app/cache"
	"github.com/flockhq/flock/internal/app/domain/bulletin"
	"github.com/flockhq/flock/internal/app/domain/civil"
	"github.com/flockhq/flock/internal/app/domain/settings"
	"github.com/flockhq/flock/internal/app/storage"
	"github.com/flockhq/flock/internal/app/tenancy"
	apperrors "github.com/flockhq/flock/internal/errors"
	"github.com/flockhq/flock/pkg/logger"
)

// Service manages bulletins and their rendered output.
type Service struct {
	store    storage.BulletinStore
	settings storage.SettingsStore
	cache    cache.Cache
	cacheTTL time.Duration
	log      *logger.Logger
	now      func() time.Time
}

// New constructs a bulletin service. A nil cache disables render caching.
func New(store storage.BulletinStore, settings storage.SettingsStore, c cache.Cache, cacheTTL time.Duration, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("bulletins")
	}
	return &Service{
		store:    store,
		settings: settings,
		cache:    c,
		cacheTTL: cacheTTL,
		log:      log,
		now:      time.Now,
	}
}

// Create stores a new draft bulletin.
func (s *Service) Create(ctx context.Context, b bulletin.Bulletin) (bulletin.Bulletin, error) {
	if err := normalize(&b); err != nil {
		return bulletin.Bulletin{}, err
	}
	b.Status = bulletin.StatusDraft
	b.PublishedAt = nil
	created, err := s.store.CreateBulletin(ctx, b)
	if err != nil {
		return bulletin.Bulletin{}, storage.Translate(err, "bulletin", b.ID)
	}
	tenantID, _ := tenancy.FromContext(ctx)
	s.log.WithField("tenant_id", tenantID).
		WithField("bulletin_id", created.ID).
		WithField("service_date", created.ServiceDate.String()).
		Info("bulletin created")
	return created, nil
}

// Update replaces a draft bulletin's content. Published bulletins must be
// unpublished first.
func (s *Service) Update(ctx context.Context, b bulletin.Bulletin) (bulletin.Bulletin, error) {
	existing, err := s.Get(ctx, b.ID)
	if err != nil {
		return bulletin.Bulletin{}, err
	}
	if existing.Status == bulletin.StatusPublished {
		return bulletin.Bulletin{}, errPublished(b.ID)
	}
	if err := normalize(&b); err != nil {
		return bulletin.Bulletin{}, err
	}
	b.Status = existing.Status
	b.PublishedAt = existing.PublishedAt
	updated, err := s.store.UpdateBulletin(ctx, b)
	if err != nil {
		return bulletin.Bulletin{}, storage.Translate(err, "bulletin", b.ID)
	}
	s.log.WithField("bulletin_id", updated.ID).Info("bulletin updated")
	return updated, nil
}

// Get fetches a bulletin with its items and announcements.
func (s *Service) Get(ctx context.Context, id string) (bulletin.Bulletin, error) {
	b, err := s.store.GetBulletin(ctx, id)
	return b, storage.Translate(err, "bulletin", id)
}

// Delete removes a draft bulletin.
func (s *Service) Delete(ctx context.Context, id string) error {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if existing.Status == bulletin.StatusPublished {
		return errPublished(id)
	}
	if err := s.store.DeleteBulletin(ctx, id); err != nil {
		return storage.Translate(err, "bulletin", id)
	}
	s.log.WithField("bulletin_id", id).Info("bulletin deleted")
	return nil
}

// List returns bulletins dated within [from, to]. Zero bounds are open.
func (s *Service) List(ctx context.Context, from, to civil.Date) ([]bulletin.Bulletin, error) {
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return nil, apperrors.Validation("to must not be before from")
	}
	return s.store.ListBulletins(ctx, from, to)
}

// Publish freezes a bulletin for distribution.
func (s *Service) Publish(ctx context.Context, id string) (bulletin.Bulletin, error) {
	b, err := s.Get(ctx, id)
	if err != nil {
		return bulletin.Bulletin{}, err
	}
	if b.Status == bulletin.StatusPublished {
		return b, nil
	}
	if len(b.Items) == 0 {
		return bulletin.Bulletin{}, apperrors.Validation("a bulletin needs an order of worship before it can be published")
	}
	now := s.now().UTC()
	b.Status = bulletin.StatusPublished
	b.PublishedAt = &now
	return s.saveStatus(ctx, b)
}

// Unpublish returns a bulletin to draft so it can be edited.
func (s *Service) Unpublish(ctx context.Context, id string) (bulletin.Bulletin, error) {
	b, err := s.Get(ctx, id)
	if err != nil {
		return bulletin.Bulletin{}, err
	}
	if b.Status == bulletin.StatusDraft {
		return b, nil
	}
	b.Status = bulletin.StatusDraft
	b.PublishedAt = nil
	return s.saveStatus(ctx, b)
}

func (s *Service) saveStatus(ctx context.Context, b bulletin.Bulletin) (bulletin.Bulletin, error) {
	updated, err := s.store.UpdateBulletin(ctx, b)
	if err != nil {
		return bulletin.Bulletin{}, storage.Translate(err, "bulletin", b.ID)
	}
	s.log.WithField("bulletin_id", updated.ID).
		WithField("status", updated.Status).
		Info("bulletin status changed")
	return updated, nil
}

func (s *Service) loadSettings(ctx context.Context) (settings.Settings, error) {
	st, err := s.settings.GetSettings(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		tenantID, _ := tenancy.FromContext(ctx)
		return settings.Defaults(tenantID), nil
	}
	return st, err
}

func errPublished(id string) error {
	return apperrors.Conflict("published bulletins must be unpublished before editing").
		WithDetails("bulletin_id", id)
}

func normalize(b *bulletin.Bulletin) error {
	if b.ServiceDate.IsZero() {
		return apperrors.Validation("service_date is required")
	}
	b.Title = strings.TrimSpace(b.Title)
	if b.Title == "" {
		return apperrors.Validation("title is required")
	}
	b.Theme = strings.TrimSpace(b.Theme)
	b.ThemeVerse = strings.TrimSpace(b.ThemeVerse)

	items := make([]bulletin.Item, 0, len(b.Items))
	for i, item := range b.Items {
		item.Title = strings.TrimSpace(item.Title)
		if item.Kind == "" {
			item.Kind = bulletin.KindOther
		}
		if !item.Kind.Valid() {
			return apperrors.Validationf("item %d: unknown kind %q", i+1, item.Kind)
		}
		if item.Title == "" && item.Kind.Label() == "" {
			return apperrors.Validationf("item %d: title is required", i+1)
		}
		item.Position = len(items) + 1
		items = append(items, item)
	}
	b.Items = items

	announcements := make([]bulletin.Announcement, 0, len(b.Announcements))
	for i, a := range b.Announcements {
		a.Title = strings.TrimSpace(a.Title)
		if a.Title == "" {
			return apperrors.Validationf("announcement %d: title is required", i+1)
		}
		if !a.StartsOn.IsZero() && !a.EndsOn.IsZero() && a.EndsOn.Before(a.StartsOn) {
			return apperrors.Validationf("announcement %d: ends_on is before starts_on", i+1)
		}
		announcements = append(announcements, a)
	}
	b.Announcements = announcements
	return nil
}
