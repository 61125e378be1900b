package services

import (
	"fmt"
	"time"

	"sweetshop/internal/models"
)

var timeNow = time.Now

// Authorize is the access check applied before every purchase and admin mutation. An absent
// or expired principal is Unauthenticated; an admin requirement not met is Forbidden. Any
// other required role only demands authentication.
func Authorize(principal *models.Principal, required models.Role) error {
	if principal == nil || principal.UserID == "" {
		return models.ErrUnauthenticated
	}
	if !principal.ExpiresAt.IsZero() && timeNow().After(principal.ExpiresAt) {
		return fmt.Errorf("credential expired: %w", models.ErrUnauthenticated)
	}
	if required == models.RoleAdmin && !principal.IsAdmin() {
		return fmt.Errorf("role '%s' may not perform admin operations: %w", principal.Role, models.ErrForbidden)
	}
	return nil
}
