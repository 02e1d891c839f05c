package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/juju/errors"

	"github.com/vanshika/nftgateway/internal/upstream"
)

// errorEnvelope is the body of every JSON error response.
type errorEnvelope struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// detailer is implemented by errors that carry a structured payload for clients.
type detailer interface {
	Details() any
}

// classify maps an error onto an HTTP status and a short title.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, errors.BadRequest), errors.Is(err, errors.NotValid):
		return http.StatusBadRequest, "Bad Request"
	case errors.Is(err, errors.Unauthorized):
		return http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, errors.Forbidden):
		return http.StatusForbidden, "Forbidden"
	case errors.Is(err, errors.NotFound):
		return http.StatusNotFound, "Not Found"
	case errors.Is(err, errors.MethodNotAllowed):
		return http.StatusMethodNotAllowed, "Method Not Allowed"
	}

	if uerr, ok := upstream.AsError(err); ok {
		switch uerr.Kind {
		case upstream.KindTimeout:
			return http.StatusGatewayTimeout, "Upstream Timeout"
		case upstream.KindDecode, upstream.KindGraphQL:
			return http.StatusBadGateway, "Upstream Protocol Error"
		default:
			return http.StatusBadGateway, "Upstream Unavailable"
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, "Upstream Timeout"
	}
	return http.StatusInternalServerError, "Internal Server Error"
}

// writeError renders err in the envelope. A non-empty resource names the
// missing thing in 404 titles, e.g. "Profile Not Found".
func writeError(w http.ResponseWriter, err error, resource string) int {
	status, title := classify(err)
	if status == http.StatusNotFound && resource != "" {
		title = resource + " Not Found"
	}
	env := errorEnvelope{Error: title, Message: err.Error()}
	var d detailer
	if errors.As(err, &d) {
		env.Details = d.Details()
	}
	respondJSON(w, status, env)
	return status
}

func writeStatus(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorEnvelope{Error: http.StatusText(status), Message: message})
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeStatus(w, http.StatusMethodNotAllowed, "method not allowed")
}
