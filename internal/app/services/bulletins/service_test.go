package bulletins

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flockhq/flock/internal/app/cache"
	"github.com/flockhq/flock/internal/app/domain/bulletin"
	"github.com/flockhq/flock/internal/app/domain/civil"
	"github.com/flockhq/flock/internal/app/storage/memory"
	"github.com/flockhq/flock/internal/app/tenancy"
	apperrors "github.com/flockhq/flock/internal/errors"
	"github.com/flockhq/flock/pkg/logger"
)

func newService(t *testing.T) (*Service, *memory.Store, context.Context) {
	t.Helper()
	store := memory.New()
	svc := New(store, store, cache.NewMemory(16), time.Hour, logger.Discard())
	return svc, store, tenancy.WithTenant(context.Background(), "tenant-a")
}

func sampleBulletin(date string) bulletin.Bulletin {
	return bulletin.Bulletin{
		ServiceDate: civil.MustParse(date),
		Title:       "Lord's Day Worship",
		Theme:       "Abiding",
		ThemeVerse:  "John 15:5",
		Items: []bulletin.Item{
			{Position: 9, Kind: bulletin.KindPrelude, Title: "Be Thou My Vision"},
			{Position: 3, Kind: bulletin.KindScripture, Title: "John 15:1-11", Leader: "Deacon Mark"},
			{Position: 1, Kind: bulletin.KindSermon, Title: "The True Vine", Leader: "Pastor Ann"},
		},
		Announcements: []bulletin.Announcement{{Title: "Potluck", Body: "Bring a dish", Priority: 1}},
	}
}

func TestCreateRenumbersItems(t *testing.T) {
	svc, _, ctx := newService(t)
	b, err := svc.Create(ctx, sampleBulletin("2024-03-03"))
	require.NoError(t, err)
	assert.Equal(t, bulletin.StatusDraft, b.Status)
	require.Len(t, b.Items, 3)
	for i, item := range b.Items {
		assert.Equal(t, i+1, item.Position)
	}
	assert.Equal(t, bulletin.KindPrelude, b.Items[0].Kind, "input order is kept")
}

func TestCreateValidation(t *testing.T) {
	svc, _, ctx := newService(t)

	missingDate := sampleBulletin("2024-03-03")
	missingDate.ServiceDate = civil.Date{}
	badKind := sampleBulletin("2024-03-03")
	badKind.Items = append(badKind.Items, bulletin.Item{Kind: "dance", Title: "x"})
	badWindow := sampleBulletin("2024-03-03")
	badWindow.Announcements = []bulletin.Announcement{{
		Title:    "Retreat",
		StartsOn: civil.MustParse("2024-03-10"),
		EndsOn:   civil.MustParse("2024-03-01"),
	}}

	for name, b := range map[string]bulletin.Bulletin{"date": missingDate, "kind": badKind, "window": badWindow} {
		_, err := svc.Create(ctx, b)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation), "%s: %v", name, err)
	}
}

func TestPublishedBulletinIsFrozen(t *testing.T) {
	svc, _, ctx := newService(t)
	b, err := svc.Create(ctx, sampleBulletin("2024-03-03"))
	require.NoError(t, err)

	published, err := svc.Publish(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, bulletin.StatusPublished, published.Status)
	require.NotNil(t, published.PublishedAt)

	published.Title = "Changed"
	_, err = svc.Update(ctx, published)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict), "update: %v", err)
	assert.True(t, apperrors.HasCode(svc.Delete(ctx, b.ID), apperrors.CodeConflict))

	draft, err := svc.Unpublish(ctx, b.ID)
	require.NoError(t, err)
	assert.Nil(t, draft.PublishedAt)

	draft.Title = "Changed"
	updated, err := svc.Update(ctx, draft)
	require.NoError(t, err)
	assert.Equal(t, "Changed", updated.Title)
	assert.Equal(t, bulletin.StatusDraft, updated.Status)
	require.NoError(t, svc.Delete(ctx, b.ID))
}

func TestPublishRequiresItems(t *testing.T) {
	svc, _, ctx := newService(t)
	b := sampleBulletin("2024-03-03")
	b.Items = nil
	created, err := svc.Create(ctx, b)
	require.NoError(t, err)
	_, err = svc.Publish(ctx, created.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

func TestListRange(t *testing.T) {
	svc, _, ctx := newService(t)
	for _, d := range []string{"2024-03-03", "2024-03-10", "2024-04-07"} {
		_, err := svc.Create(ctx, sampleBulletin(d))
		require.NoError(t, err)
	}
	march, err := svc.List(ctx, civil.MustParse("2024-03-01"), civil.MustParse("2024-03-31"))
	require.NoError(t, err)
	assert.Len(t, march, 2)

	_, err = svc.List(ctx, civil.MustParse("2024-03-31"), civil.MustParse("2024-03-01"))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}
