package postgres

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/flockhq/flock/internal/app/domain/person"
	"github.com/flockhq/flock/internal/app/domain/tenant"
	"github.com/flockhq/flock/internal/app/storage"
	"github.com/flockhq/flock/internal/app/tenancy"
	"github.com/flockhq/flock/internal/platform/migrations"
	"github.com/flockhq/flock/pkg/logger"
)

func TestStoreIntegration(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set; skipping postgres integration test")
	}

	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := migrations.Apply(ctx, db.DB, logger.Discard()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	store := New(db)

	suffix := uuid.NewString()[:8]
	a, err := store.CreateTenant(ctx, tenant.Tenant{Name: "A", Slug: "a-" + suffix, Plan: "core"})
	if err != nil {
		t.Fatalf("create tenant a: %v", err)
	}
	b, err := store.CreateTenant(ctx, tenant.Tenant{Name: "B", Slug: "b-" + suffix, Plan: "core"})
	if err != nil {
		t.Fatalf("create tenant b: %v", err)
	}

	ctxA := tenancy.WithTenant(ctx, a.ID)
	ctxB := tenancy.WithTenant(ctx, b.ID)

	p, err := store.CreatePerson(ctxA, person.Person{FirstName: "Phoebe", LastName: "Cenchreae", Status: person.StatusMember})
	if err != nil {
		t.Fatalf("create person: %v", err)
	}
	if _, err := store.GetPerson(ctxB, p.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("row-level security leaked person to tenant b: %v", err)
	}

	if _, err := store.ConsumeTokens(ctx, a.ID, "2024-03", 60, 100); err != nil {
		t.Fatalf("consume: %v", err)
	}
	if _, err := store.ConsumeTokens(ctx, a.ID, "2024-03", 60, 100); !errors.Is(err, storage.ErrQuotaExceeded) {
		t.Fatalf("expected quota exceeded, got %v", err)
	}
}
