package shared

import "errors"

var (
	// ErrSessionMissing occurs when a handler runs without the session middleware.
	ErrSessionMissing = errors.New("browser session missing")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)
