package httpserver

import (
	"errors"
	"net/http"

	authdomain "identity/backend/internal/domain/auth"
)

var (
	errMissingBearer   = errors.New("no token provided")
	errMalformedBearer = errors.New("invalid token format")
	errInvalidJSON     = errors.New("invalid JSON payload")
)

// errorKinds maps every error the transport expects to a client status.
// Errors not listed are internal failures.
var errorKinds = []struct {
	err    error
	kind   string
	status int
}{
	{authdomain.ErrInvalidInput, "invalid_input", http.StatusBadRequest},
	{errInvalidJSON, "invalid_input", http.StatusBadRequest},
	{authdomain.ErrEmailExists, "duplicate_identity", http.StatusBadRequest},
	{authdomain.ErrInvalidCredentials, "invalid_credentials", http.StatusBadRequest},
	{authdomain.ErrTokenInvalid, "invalid_token", http.StatusUnauthorized},
	{errMissingBearer, "invalid_token", http.StatusUnauthorized},
	{errMalformedBearer, "invalid_token", http.StatusUnauthorized},
}

func classify(err error) (kind string, status int) {
	for _, entry := range errorKinds {
		if errors.Is(err, entry.err) {
			return entry.kind, entry.status
		}
	}
	return "internal", http.StatusInternalServerError
}

func statusFor(err error) int {
	_, status := classify(err)
	return status
}

func outcomeFor(err error) string {
	if err == nil {
		return "success"
	}
	kind, _ := classify(err)
	return kind
}

// writeServiceError renders err using the kind table. Internal failures are
// logged and answered with a generic message.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeError(w, status, "internal server error")
		return
	}
	writeError(w, status, err.Error())
}
