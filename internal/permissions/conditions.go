package permissions

import (
	"github.com/storefront/storefront/internal/models"
)

// ResourceContext describes the concrete entity a request acts upon. Empty fields are absent.
type ResourceContext struct {
	OwnerID    string `json:"owner_id,omitempty"`
	Status     string `json:"status,omitempty"`
	Department string `json:"department,omitempty"`
}

// CheckCondition evaluates cond for the principal against the resource context. Every present
// condition must hold; a condition whose context field is missing fails closed. Empty department
// or status lists are absent, matching how they are stored.
func CheckCondition(cond *models.Conditions, principalID string, rc *ResourceContext) bool {
	if cond == nil {
		return true
	}

	if cond.OwnerOnly {
		if rc == nil || rc.OwnerID == "" {
			return false
		}
		if principalID == "" || rc.OwnerID != principalID {
			return false
		}
	}

	if len(cond.Department) > 0 {
		if rc == nil || rc.Department == "" {
			return false
		}
		if !contains(cond.Department, rc.Department) {
			return false
		}
	}

	if len(cond.Status) > 0 {
		if rc == nil || rc.Status == "" {
			return false
		}
		if !contains(cond.Status, rc.Status) {
			return false
		}
	}

	return true
}

func contains(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}
