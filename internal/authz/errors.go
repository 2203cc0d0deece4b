package authz

import "errors"

// ErrUnauthorized is the only error surfaced to the enforcement layer.
// Internal distinctions (expired vs. malformed vs. unknown key) are logged
// for diagnostics but never revealed to an unauthenticated caller.
var ErrUnauthorized = errors.New("Unauthorized")

// ErrMalformedMethodARN indicates the method ARN could not be parsed. It
// is enforcement-layer input, so it is still mapped to ErrUnauthorized at
// the boundary rather than crashing the request.
var ErrMalformedMethodARN = errors.New("method ARN is malformed")
