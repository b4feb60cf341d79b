package sermons

import (
	"context"
	"net/url"
	"strings"

	"github.com/flockhq/flock/internal/app/domain/civil"
	"github.com/flockhq/flock/internal/app/domain/sermon"
	"github.com/flockhq/flock/internal/app/storage"
	apperrors "github.com/flockhq/flock/internal/errors"
	"github.com/flockhq/flock/pkg/logger"
)

// Service manages the sermon archive.
type Service struct {
	store storage.SermonStore
	log   *logger.Logger
}

// New constructs a sermon service.
func New(store storage.SermonStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("sermons")
	}
	return &Service{store: store, log: log}
}

func (s *Service) Create(ctx context.Context, sm sermon.Sermon) (sermon.Sermon, error) {
	if err := normalize(&sm); err != nil {
		return sermon.Sermon{}, err
	}
	created, err := s.store.CreateSermon(ctx, sm)
	if err != nil {
		return sermon.Sermon{}, storage.Translate(err, "sermon", sm.ID)
	}
	s.log.WithField("sermon_id", created.ID).
		WithField("series", created.Series).
		Info("sermon created")
	return created, nil
}

func (s *Service) Update(ctx context.Context, sm sermon.Sermon) (sermon.Sermon, error) {
	if sm.ID == "" {
		return sermon.Sermon{}, apperrors.Validation("id is required")
	}
	if err := normalize(&sm); err != nil {
		return sermon.Sermon{}, err
	}
	updated, err := s.store.UpdateSermon(ctx, sm)
	if err != nil {
		return sermon.Sermon{}, storage.Translate(err, "sermon", sm.ID)
	}
	s.log.WithField("sermon_id", updated.ID).Info("sermon updated")
	return updated, nil
}

func (s *Service) Get(ctx context.Context, id string) (sermon.Sermon, error) {
	sm, err := s.store.GetSermon(ctx, id)
	return sm, storage.Translate(err, "sermon", id)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteSermon(ctx, id); err != nil {
		return storage.Translate(err, "sermon", id)
	}
	s.log.WithField("sermon_id", id).Info("sermon deleted")
	return nil
}

// List returns sermons filtered by series and status.
func (s *Service) List(ctx context.Context, filter sermon.Filter) ([]sermon.Sermon, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperrors.Validationf("unknown status %q", filter.Status)
	}
	filter.Series = strings.TrimSpace(filter.Series)
	return s.store.ListSermons(ctx, filter)
}

// MarkPreached records that a sermon was delivered on date.
func (s *Service) MarkPreached(ctx context.Context, id string, date civil.Date) (sermon.Sermon, error) {
	if date.IsZero() {
		return sermon.Sermon{}, apperrors.Validation("date is required")
	}
	sm, err := s.Get(ctx, id)
	if err != nil {
		return sermon.Sermon{}, err
	}
	sm.Status = sermon.StatusPreached
	sm.PreachedOn = date
	updated, err := s.store.UpdateSermon(ctx, sm)
	if err != nil {
		return sermon.Sermon{}, storage.Translate(err, "sermon", id)
	}
	s.log.WithField("sermon_id", id).
		WithField("preached_on", date.String()).
		Info("sermon preached")
	return updated, nil
}

// Series lists distinct series names with sermon counts.
func (s *Service) Series(ctx context.Context) ([]sermon.SeriesCount, error) {
	return s.store.ListSeries(ctx)
}

func normalize(sm *sermon.Sermon) error {
	sm.Title = strings.TrimSpace(sm.Title)
	if sm.Title == "" {
		return apperrors.Validation("title is required")
	}
	sm.Speaker = strings.TrimSpace(sm.Speaker)
	sm.Series = strings.TrimSpace(sm.Series)
	if sm.Status == "" {
		sm.Status = sermon.StatusDraft
	}
	if !sm.Status.Valid() {
		return apperrors.Validationf("unknown status %q", sm.Status)
	}
	if sm.Status == sermon.StatusPreached && sm.PreachedOn.IsZero() {
		return apperrors.Validation("preached sermons need preached_on")
	}
	if sm.MediaURL != "" {
		u, err := url.Parse(sm.MediaURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return apperrors.Validation("media_url must be an http(s) URL")
		}
	}
	sm.Scripture = compact(sm.Scripture)
	sm.Outline = compact(sm.Outline)
	return nil
}

func compact(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
