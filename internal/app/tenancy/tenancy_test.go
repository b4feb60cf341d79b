package tenancy

import (
	"context"
	"testing"
)

func TestWithTenantRoundTrip(t *testing.T) {
	ctx := WithTenant(context.Background(), "t-1")
	id, ok := FromContext(ctx)
	if !ok || id != "t-1" {
		t.Fatalf("FromContext = %q, %v", id, ok)
	}
	if got, err := Require(ctx); err != nil || got != "t-1" {
		t.Fatalf("Require = %q, %v", got, err)
	}
}

func TestRequireWithoutTenant(t *testing.T) {
	if _, err := Require(WithTenant(context.Background(), "")); err == nil {
		t.Fatal("expected error without tenant")
	}
}
