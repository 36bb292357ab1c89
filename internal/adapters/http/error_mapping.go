package httpadapter

import (
	"errors"
	"net/http"

	"github.com/kirillkom/manuscript-review/internal/core/domain"
)

// statusClientClosedRequest is the nginx convention for a caller that went away.
const statusClientClosedRequest = 499

// Collaborator failures that are also Temporary map to 503, so Temporary is
// checked first. Cancelled precedes Collaborator for the same reason.
func mapErrorToHTTPStatus(err error) int {
	switch {
	case isBodyTooLarge(err):
		return http.StatusRequestEntityTooLarge
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case domain.IsKind(err, domain.ErrNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrCancelled):
		return statusClientClosedRequest
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	case domain.IsKind(err, domain.ErrCollaborator):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func isBodyTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	return errors.As(err, &tooLarge)
}
