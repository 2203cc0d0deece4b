package jwt

import (
	"strings"
)

// bearerPrefix is the required authorization scheme.
const bearerPrefix = "Bearer "

// BearerToken extracts the token from an authorization header value. The
// header must use the Bearer scheme; anything else fails with
// ErrMissingBearerScheme. This check is cheap and runs before any key set
// fetch is attempted.
func BearerToken(headerValue string) (string, error) {
	if headerValue == "" {
		return "", ErrMissingBearerScheme
	}

	if len(headerValue) <= len(bearerPrefix) ||
		!strings.EqualFold(headerValue[:len(bearerPrefix)], bearerPrefix) {
		return "", ErrMissingBearerScheme
	}

	token := strings.TrimSpace(headerValue[len(bearerPrefix):])
	if token == "" {
		return "", ErrMissingBearerScheme
	}

	return token, nil
}
