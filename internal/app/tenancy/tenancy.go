// Package tenancy carries the active church (tenant) id on a context. Every
// tenant-owned read or write resolves its scope from here; there is no
// implicit "all tenants" scope.
package tenancy

import (
	"context"

	apperrors "github.com/flockhq/flock/internal/errors"
)

type ctxKey struct{}

// WithTenant returns a copy of ctx scoped to tenantID. An empty id leaves ctx
// unchanged.
func WithTenant(ctx context.Context, tenantID string) context.Context {
	if tenantID == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, tenantID)
}

// FromContext returns the tenant id stored on ctx.
func FromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}

// Require returns the tenant id or an Unauthorized error when none is set.
func Require(ctx context.Context) (string, error) {
	id, ok := FromContext(ctx)
	if !ok {
		return "", apperrors.Unauthorized("tenant context required")
	}
	return id, nil
}
