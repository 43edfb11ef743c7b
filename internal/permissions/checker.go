package permissions

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/storefront/storefront/internal/models"
	"github.com/storefront/storefront/pkg/logger"
	"github.com/storefront/storefront/pkg/metrics"
)

// Source supplies a principal's effective permissions.
type Source interface {
	ResolveEffectivePermissions(ctx context.Context, userID string) ([]models.Permission, error)
}

// Authorizer decides whether a principal may perform a check.
type Authorizer interface {
	IsAuthorized(ctx context.Context, principal *Principal, check Check, rc *ResourceContext) (bool, error)
}

// Decision explains the outcome of an authorization check. Reason and MatchedBy are for logs
// and operators; clients only ever see Allowed.
type Decision struct {
	Allowed   bool   `json:"allowed"`
	Reason    string `json:"reason"`
	MatchedBy string `json:"matched_by,omitempty"`
}

// Checker evaluates checks against a principal's effective permissions.
type Checker struct {
	source Source
	log    *zap.Logger
}

// NewChecker constructs a permission checker reading from the provided source.
func NewChecker(source Source) (*Checker, error) {
	if source == nil {
		return nil, errors.New("permission checker: permission source is required")
	}
	return &Checker{source: source, log: logger.WithModule("permissions")}, nil
}

// IsAuthorized reports whether principal may perform check on the resource described by rc.
// Any error means the decision is deny.
func (c *Checker) IsAuthorized(ctx context.Context, principal *Principal, check Check, rc *ResourceContext) (bool, error) {
	decision, err := c.Decide(ctx, principal, check, rc)
	return decision.Allowed, err
}

// Decide runs the decision procedure and reports which grant, if any, admitted the check.
func (c *Checker) Decide(ctx context.Context, principal *Principal, check Check, rc *ResourceContext) (Decision, error) {
	decision, err := c.decide(ensureContext(ctx), principal, check, rc)

	result := "denied"
	switch {
	case err != nil:
		result = "error"
	case decision.Allowed:
		result = "allowed"
	}
	metrics.PermissionChecks.WithLabelValues(check.String(), result).Inc()

	fields := []zap.Field{
		zap.String("check", check.String()),
		zap.Bool("allowed", decision.Allowed),
		zap.String("reason", decision.Reason),
	}
	if principal != nil {
		fields = append(fields, zap.String("principal_id", principal.ID))
	}
	if decision.MatchedBy != "" {
		fields = append(fields, zap.String("matched_by", decision.MatchedBy))
	}
	if err != nil {
		c.log.Warn("authorization check failed", append(fields, zap.Error(err))...)
	} else {
		c.log.Debug("authorization decision", fields...)
	}

	return decision, err
}

func (c *Checker) decide(ctx context.Context, principal *Principal, check Check, rc *ResourceContext) (Decision, error) {
	if principal == nil || principal.ID == "" {
		return Decision{Reason: "no principal"}, ErrUnauthenticated
	}
	if len(principal.RoleIDs) == 0 {
		return Decision{Reason: "principal holds no roles"}, nil
	}

	perms, err := c.source.ResolveEffectivePermissions(ctx, principal.ID)
	if err != nil {
		return Decision{Reason: "permissions unavailable"}, fmt.Errorf("permission checker: resolve permissions: %w", err)
	}

	var matching []models.Permission
	for _, perm := range perms {
		if perm.Resource != check.Resource {
			continue
		}
		if perm.Action == check.Action || perm.Action == models.ActionSuper {
			matching = append(matching, perm)
		}
	}
	if len(matching) == 0 {
		return Decision{Reason: "no matching permission"}, nil
	}

	type conditioned struct {
		perm models.Permission
		cond *models.Conditions
	}
	var withConditions []conditioned

	for _, perm := range matching {
		if !perm.HasConditions() {
			return Decision{Allowed: true, Reason: "unconditioned grant", MatchedBy: perm.Name}, nil
		}
		cond, err := perm.ParsedConditions()
		if err != nil {
			c.log.Warn("ignoring permission with unreadable conditions",
				zap.String("permission", perm.Name), zap.Error(err))
			continue
		}
		withConditions = append(withConditions, conditioned{perm: perm, cond: cond})
	}

	for _, entry := range withConditions {
		if entry.perm.Action != models.ActionManage || !entry.cond.OwnerOnly {
			continue
		}
		if CheckCondition(entry.cond, principal.ID, rc) {
			return Decision{Allowed: true, Reason: "owner manage grant", MatchedBy: entry.perm.Name}, nil
		}
	}

	for _, entry := range withConditions {
		if CheckCondition(entry.cond, principal.ID, rc) {
			return Decision{Allowed: true, Reason: "conditions satisfied", MatchedBy: entry.perm.Name}, nil
		}
	}

	return Decision{Reason: "conditions not satisfied"}, nil
}
