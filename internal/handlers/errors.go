package handlers

import (
	"errors"

	"github.com/elevatespaces/staging-api/internal/services"
	"github.com/m1z23r/drift/pkg/drift"
)

// respondServiceError maps ledger and invite errors to HTTP responses so
// every handler reports the same failure the same way.
func respondServiceError(c *drift.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidAmount),
		errors.Is(err, services.ErrMissingPaymentRef),
		errors.Is(err, services.ErrAlreadyMember),
		errors.Is(err, services.ErrInvalidToken),
		errors.Is(err, services.ErrInviteExpired):
		c.BadRequest(err.Error())
	case errors.Is(err, services.ErrInsufficientCredits),
		errors.Is(err, services.ErrNotTeamOwner),
		errors.Is(err, services.ErrNotAMember),
		errors.Is(err, services.ErrForbiddenRole):
		c.Forbidden(err.Error())
	case errors.Is(err, services.ErrAccountNotFound),
		errors.Is(err, services.ErrTeamDeleted):
		c.NotFound(err.Error())
	default:
		c.InternalServerError("internal error")
	}
}
