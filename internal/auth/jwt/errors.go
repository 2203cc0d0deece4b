package jwt

import (
	"errors"
	"fmt"
)

// Sentinel errors for token validation. Each validation gate fails with
// exactly one of these; callers map them to an opaque signal before
// anything crosses the trust boundary.
var (
	// ErrMalformedToken indicates the token is not structurally valid.
	ErrMalformedToken = errors.New("token is malformed")

	// ErrInvalidIssuer indicates the token issuer does not match the
	// configured issuer.
	ErrInvalidIssuer = errors.New("token issuer is invalid")

	// ErrWrongTokenPurpose indicates the token is not an access token.
	ErrWrongTokenPurpose = errors.New("token is not an access token")

	// ErrUnknownSigningKey indicates the token's key ID is not in the
	// cached key set.
	ErrUnknownSigningKey = errors.New("signing key not found")

	// ErrSignatureOrClaim indicates the signature, expiry, or audience
	// check failed.
	ErrSignatureOrClaim = errors.New("token signature or claims are invalid")

	// ErrKeyFetch indicates the key set could not be fetched or parsed.
	ErrKeyFetch = errors.New("failed to fetch key set")

	// ErrMissingBearerScheme indicates the authorization header does not
	// use the Bearer scheme.
	ErrMissingBearerScheme = errors.New("authorization header is not a bearer token")
)

// ValidationError carries diagnostic detail for a validation failure. The
// detail is for internal logging only; the sentinel cause is what callers
// match on.
type ValidationError struct {
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("jwt validation error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("jwt validation error: %s", e.Message)
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.Cause
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string, cause error) *ValidationError {
	return &ValidationError{
		Message: message,
		Cause:   cause,
	}
}
