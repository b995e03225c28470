// Package dialog holds the shared error taxonomy and token estimation
// primitives for the dialogue orchestration service.
package dialog

import "errors"

// Closed set of error kinds every service operation maps into. Transport
// handlers translate these into stable wire codes; nothing else crosses
// the boundary.
var (
	ErrInvalidCredential = errors.New("invalid credential")
	ErrExpiredCredential = errors.New("expired credential")
	ErrStoreUnavailable  = errors.New("session store unavailable")
	ErrUpstreamTimeout   = errors.New("upstream timeout")
	ErrPromptTooLarge    = errors.New("prompt too large")
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
)

// Coded maps an error to a stable code and a safe, human-readable message.
// Internal error text is never forwarded to callers; anything outside the
// taxonomy collapses to "internal".
func Coded(err error) (code, message string) {
	switch {
	case errors.Is(err, ErrInvalidCredential):
		return "invalid_credential", "the session credential is invalid"
	case errors.Is(err, ErrExpiredCredential):
		return "expired_credential", "the session credential has expired"
	case errors.Is(err, ErrStoreUnavailable):
		return "store_unavailable", "the session store is unavailable, try again later"
	case errors.Is(err, ErrUpstreamTimeout):
		return "upstream_timeout", "an upstream call timed out, try again"
	case errors.Is(err, ErrPromptTooLarge):
		return "prompt_too_large", "the request does not fit the model context window"
	case errors.Is(err, ErrValidation):
		return "validation_error", "the request payload is invalid"
	case errors.Is(err, ErrNotFound):
		return "not_found", "the requested resource does not exist"
	default:
		return "internal", "internal error"
	}
}
