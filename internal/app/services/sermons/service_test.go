package sermons

import (
	"context"
	"testing"

	"github.com/flockhq/flock/internal/app/domain/civil"
	"github.com/flockhq/flock/internal/app/domain/sermon"
	"github.com/flockhq/flock/internal/app/storage/memory"
	"github.com/flockhq/flock/internal/app/tenancy"
	apperrors "github.com/flockhq/flock/internal/errors"
	"github.com/flockhq/flock/pkg/logger"
)

func TestSermonLifecycle(t *testing.T) {
	svc := New(memory.New(), logger.Discard())
	ctx := tenancy.WithTenant(context.Background(), "tenant-a")

	sm, err := svc.Create(ctx, sermon.Sermon{
		Title:     "The Good Shepherd",
		Speaker:   "Pastor Ann",
		Series:    " John ",
		Scripture: []string{"John 10:1-18", " "},
		Outline:   []string{"Voice", "Gate", "Life"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if sm.Status != sermon.StatusDraft || sm.Series != "John" || len(sm.Scripture) != 1 {
		t.Fatalf("unexpected sermon: %+v", sm)
	}

	preached, err := svc.MarkPreached(ctx, sm.ID, civil.MustParse("2024-04-21"))
	if err != nil {
		t.Fatalf("mark preached: %v", err)
	}
	if preached.Status != sermon.StatusPreached || preached.PreachedOn.String() != "2024-04-21" {
		t.Fatalf("unexpected preached sermon: %+v", preached)
	}

	if _, err := svc.Create(ctx, sermon.Sermon{Title: "Vine", Series: "John"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Create(ctx, sermon.Sermon{Title: "Psalm 23"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	series, err := svc.Series(ctx)
	if err != nil {
		t.Fatalf("series: %v", err)
	}
	if len(series) != 1 || series[0].Series != "John" || series[0].Count != 2 {
		t.Fatalf("series = %+v", series)
	}

	drafts, err := svc.List(ctx, sermon.Filter{Status: sermon.StatusDraft})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(drafts) != 2 {
		t.Fatalf("expected 2 drafts, got %d", len(drafts))
	}
}

func TestSermonValidation(t *testing.T) {
	svc := New(memory.New(), logger.Discard())
	ctx := tenancy.WithTenant(context.Background(), "tenant-a")

	cases := []sermon.Sermon{
		{Title: ""},
		{Title: "x", Status: "someday"},
		{Title: "x", Status: sermon.StatusPreached},
		{Title: "x", MediaURL: "javascript:alert(1)"},
	}
	for _, sm := range cases {
		if _, err := svc.Create(ctx, sm); !apperrors.HasCode(err, apperrors.CodeValidation) {
			t.Errorf("Create(%+v) err = %v", sm, err)
		}
	}
	if _, err := svc.MarkPreached(ctx, "missing", civil.MustParse("2024-01-07")); !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Errorf("MarkPreached missing err = %v", err)
	}
}
