package fallback

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rotisserie/eris"
)

var (
	// ErrNotConfigured marks a tier or step that was skipped because its
	// credential or endpoint is missing. Never fatal.
	ErrNotConfigured = eris.New("not configured")

	// ErrMalformed marks a collaborator response that could not be used
	// (unparseable JSON, missing audio payload, empty text). It is handled
	// exactly like a transport failure.
	ErrMalformed = eris.New("malformed response")
)

// StatusError is a non-success status returned by a collaborator.
type StatusError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: status %d", e.Service, e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Service, e.StatusCode, e.Body)
}

// CheckResponse returns a *StatusError when resp carries a non-2xx status.
// Up to 2KB of the body is kept for diagnostics.
func CheckResponse(service string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return &StatusError{Service: service, StatusCode: resp.StatusCode, Body: string(body)}
}

// Malformed wraps ErrMalformed with a description.
func Malformed(format string, args ...any) error {
	return eris.Wrapf(ErrMalformed, format, args...)
}

// NotConfigured wraps ErrNotConfigured with a description.
func NotConfigured(format string, args ...any) error {
	return eris.Wrapf(ErrNotConfigured, format, args...)
}

// IsSkippable reports whether err only means "this tier is not set up".
func IsSkippable(err error) bool {
	return errors.Is(err, ErrNotConfigured)
}

// StatusCode extracts the collaborator status from err, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}
