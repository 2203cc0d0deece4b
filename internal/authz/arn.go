package authz

import (
	"fmt"
	"strings"
)

// MethodARN identifies the method a request targets, in the form
// arn:partition:service:region:account:apiId/stage/VERB/resource/path.
type MethodARN struct {
	Partition    string
	Service      string
	Region       string
	AccountID    string
	APIID        string
	Stage        string
	Verb         string
	ResourcePath string
}

// ParseMethodARN parses a raw method ARN string.
func ParseMethodARN(raw string) (*MethodARN, error) {
	parts := strings.SplitN(raw, ":", 6)
	if len(parts) != 6 || parts[0] != "arn" {
		return nil, fmt.Errorf("%w: %q", ErrMalformedMethodARN, raw)
	}

	for _, p := range parts[1:] {
		if p == "" {
			return nil, fmt.Errorf("%w: %q", ErrMalformedMethodARN, raw)
		}
	}

	// apiId/stage/VERB/resource/path...
	resourceParts := strings.SplitN(parts[5], "/", 4)
	if len(resourceParts) < 3 {
		return nil, fmt.Errorf("%w: %q", ErrMalformedMethodARN, raw)
	}
	for _, p := range resourceParts[:3] {
		if p == "" {
			return nil, fmt.Errorf("%w: %q", ErrMalformedMethodARN, raw)
		}
	}

	arn := &MethodARN{
		Partition: parts[1],
		Service:   parts[2],
		Region:    parts[3],
		AccountID: parts[4],
		APIID:     resourceParts[0],
		Stage:     resourceParts[1],
		Verb:      resourceParts[2],
	}
	if len(resourceParts) == 4 {
		arn.ResourcePath = resourceParts[3]
	}

	return arn, nil
}
