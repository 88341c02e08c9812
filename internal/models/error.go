package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")
	ErrUnavailable    = errors.New("storage unavailable")

	// Registration and login errors
	ErrPolicyViolation    = errors.New("registration number not allowed")
	ErrHandleCollision    = errors.New("anonymous handle already assigned")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrLoginThrottled     = errors.New("too many login attempts")

	// Message errors
	ErrContentInvalid    = errors.New("message content invalid")
	ErrAlreadyReported   = errors.New("message already reported")
	ErrDecryptionFailure = errors.New("message decryption failed")
)

// RateLimitError carries a machine-readable retry interval for throttled
// operations. Err, when set, names the sentinel the error wraps so callers
// can still branch with errors.Is.
type RateLimitError struct {
	RetryAfterSeconds int
	Err               error
}

func (e *RateLimitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return "rate limit exceeded"
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}
