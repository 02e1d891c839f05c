package upstream

import (
	"fmt"
	"net/http"

	"github.com/juju/errors"
)

// ErrorKind classifies an upstream failure.
type ErrorKind string

const (
	KindTimeout    ErrorKind = "timeout"
	KindNetwork    ErrorKind = "network"
	KindHTTPStatus ErrorKind = "httpStatus"
	KindDecode     ErrorKind = "decode"
	KindGraphQL    ErrorKind = "graphql"
)

// maxErrorBody bounds the body excerpt kept on an Error.
const maxErrorBody = 2048

// Error is a structured upstream failure. It matches errors.NotFound for
// HTTP 404 and not-found GraphQL messages, and errors.Timeout for timeouts.
type Error struct {
	Kind       ErrorKind
	Provider   string
	URL        string
	StatusCode int
	Body       []byte
	Message    string
	Err        error

	notFound bool
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindHTTPStatus:
		return fmt.Sprintf("%s: upstream returned %d %s", e.Provider, e.StatusCode, http.StatusText(e.StatusCode))
	case KindGraphQL:
		return fmt.Sprintf("%s: graphql error: %s", e.Provider, e.Message)
	}
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("%s: %s error: %s", e.Provider, e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match the juju error taxonomy.
func (e *Error) Is(target error) bool {
	switch target {
	case errors.NotFound:
		return e.NotFound()
	case errors.Timeout:
		return e.Kind == KindTimeout
	}
	return false
}

// NotFound reports whether the upstream definitively said the target does not exist.
func (e *Error) NotFound() bool {
	return e.notFound || (e.Kind == KindHTTPStatus && e.StatusCode == http.StatusNotFound)
}

// ClientError reports a 4xx status.
func (e *Error) ClientError() bool {
	return e.Kind == KindHTTPStatus && e.StatusCode >= 400 && e.StatusCode < 500
}

// AsError unwraps err to an *Error.
func AsError(err error) (*Error, bool) {
	var ue *Error
	if errors.As(err, &ue) {
		return ue, true
	}
	return nil, false
}

// IsNotFound reports whether err is a not-found outcome from any layer.
func IsNotFound(err error) bool {
	return err != nil && errors.Is(err, errors.NotFound)
}

// IsStatus reports whether err is an HTTP status error (any code).
func IsStatus(err error) bool {
	ue, ok := AsError(err)
	return ok && ue.Kind == KindHTTPStatus
}

func excerpt(body []byte) []byte {
	if len(body) > maxErrorBody {
		return append([]byte(nil), body[:maxErrorBody]...)
	}
	return body
}

// outcome is the metrics label for err.
func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	ue, ok := AsError(err)
	if !ok {
		return "error"
	}
	switch {
	case ue.Kind == KindHTTPStatus && ue.StatusCode >= 500:
		return "http_5xx"
	case ue.Kind == KindHTTPStatus:
		return "http_4xx"
	}
	return string(ue.Kind)
}
