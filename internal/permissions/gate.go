package permissions

import (
	"context"
	"fmt"
)

// ContextResolver builds the resource context for the entity a request targets.
type ContextResolver[R any] func(ctx context.Context, req R) (*ResourceContext, error)

// Gate admits a request when its principal satisfies the configured checks.
type Gate[R any] struct {
	authz      Authorizer
	checks     []Check
	requireAll bool
	resolve    ContextResolver[R]
}

// RequireAll admits a request only when every check is authorized.
func RequireAll[R any](authz Authorizer, checks []Check, resolve ContextResolver[R]) *Gate[R] {
	return newGate(authz, checks, true, resolve)
}

// RequireAny admits a request when at least one check is authorized.
func RequireAny[R any](authz Authorizer, checks []Check, resolve ContextResolver[R]) *Gate[R] {
	return newGate(authz, checks, false, resolve)
}

func newGate[R any](authz Authorizer, checks []Check, requireAll bool, resolve ContextResolver[R]) *Gate[R] {
	return &Gate[R]{
		authz:      authz,
		checks:     append([]Check(nil), checks...),
		requireAll: requireAll,
		resolve:    resolve,
	}
}

// Checks returns the checks the gate evaluates.
func (g *Gate[R]) Checks() []Check {
	return append([]Check(nil), g.checks...)
}

// Evaluate returns nil when the request may proceed. Denials are ErrUnauthenticated or
// ErrForbidden; any other error means the outcome could not be determined and must be treated
// as a denial.
func (g *Gate[R]) Evaluate(ctx context.Context, principal *Principal, req R) error {
	ctx = ensureContext(ctx)

	if principal == nil || principal.ID == "" {
		return ErrUnauthenticated
	}
	if g.authz == nil {
		return fmt.Errorf("permission gate: authorizer is not configured")
	}
	// A gate with no checks is a wiring mistake; it admits nobody.
	if len(g.checks) == 0 {
		return ErrForbidden
	}

	var rc *ResourceContext
	if g.resolve != nil {
		resolved, err := g.resolve(ctx, req)
		if err != nil {
			return fmt.Errorf("permission gate: resolve resource context: %w", err)
		}
		rc = resolved
	}

	for _, check := range g.checks {
		allowed, err := g.authz.IsAuthorized(ctx, principal, check, rc)
		if err != nil {
			return fmt.Errorf("permission gate: %s: %w", check, err)
		}
		if allowed && !g.requireAll {
			return nil
		}
		if !allowed && g.requireAll {
			return ErrForbidden
		}
	}

	if g.requireAll {
		return nil
	}
	return ErrForbidden
}
