package jwt

import (
	"context"
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/recipestack/authgate/internal/observability"
)

// AlgRS256 is the only signing algorithm the identity provider uses.
const AlgRS256 = "RS256"

// Validator validates access tokens.
type Validator interface {
	// Validate validates a token and returns the verified claims.
	Validate(ctx context.Context, token string) (*Claims, error)
}

// Config holds validator configuration.
type Config struct {
	// Issuer is the exact expected iss value.
	Issuer string

	// Audience is the client ID the token must be issued for.
	Audience string

	// ClockSkew is the allowed clock skew for expiry checks.
	ClockSkew time.Duration
}

// validator implements the Validator interface.
type validator struct {
	config  *Config
	keys    *KeySetCache
	logger  observability.Logger
	metrics *Metrics
	now     func() time.Time
}

// ValidatorOption is a functional option for the validator.
type ValidatorOption func(*validator)

// WithValidatorLogger sets the logger.
func WithValidatorLogger(logger observability.Logger) ValidatorOption {
	return func(v *validator) {
		v.logger = logger
	}
}

// WithValidatorMetrics sets the metrics.
func WithValidatorMetrics(metrics *Metrics) ValidatorOption {
	return func(v *validator) {
		v.metrics = metrics
	}
}

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) ValidatorOption {
	return func(v *validator) {
		v.now = now
	}
}

// NewValidator creates a new token validator backed by the given key set
// cache.
func NewValidator(config *Config, keys *KeySetCache, opts ...ValidatorOption) (Validator, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if config.Issuer == "" {
		return nil, errors.New("issuer is required")
	}
	if config.Audience == "" {
		return nil, errors.New("audience is required")
	}
	if keys == nil {
		return nil, errors.New("key set cache is required")
	}

	v := &validator{
		config: config,
		keys:   keys,
		logger: observability.NopLogger(),
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(v)
	}

	if v.metrics == nil {
		v.metrics = NewMetrics("authgate")
	}

	return v, nil
}

// tokenHeader represents the token header section.
type tokenHeader struct {
	Algorithm string `json:"alg"`
	Type      string `json:"typ"`
	KeyID     string `json:"kid"`
}

// Validate runs the validation gates in order. The first failing gate
// wins; claims are only returned after every gate passes.
func (v *validator) Validate(ctx context.Context, token string) (*Claims, error) {
	start := time.Now()

	claims, err := v.validate(ctx, token)
	if err != nil {
		v.metrics.RecordValidation("error", failureReason(err), time.Since(start))
		v.logger.WithContext(ctx).Debug("token rejected", observability.Error(err))
		return nil, err
	}

	v.metrics.RecordValidation("success", "", time.Since(start))
	v.logger.WithContext(ctx).Debug("token validated",
		observability.String("subject", claims.Subject),
	)

	return claims, nil
}

func (v *validator) validate(ctx context.Context, token string) (*Claims, error) {
	// Gate 1: structural validity.
	header, claims, parts, err := v.parse(token)
	if err != nil {
		return nil, err
	}

	// Gate 2: issuer.
	if claims.Issuer != v.config.Issuer {
		return nil, NewValidationError(
			fmt.Sprintf("issuer %q is not the configured issuer", claims.Issuer),
			ErrInvalidIssuer,
		)
	}

	// Gate 3: token purpose.
	if claims.TokenUse != TokenUseAccess {
		return nil, NewValidationError(
			fmt.Sprintf("token_use %q is not an access token", claims.TokenUse),
			ErrWrongTokenPurpose,
		)
	}

	// Gate 4: signing key lookup (cold fetch happens here).
	key, err := v.keys.Key(ctx, header.KeyID)
	if err != nil {
		return nil, err
	}

	// Gate 5: signature, expiry, audience.
	if err := v.verifySignature(header, key, parts[0]+"."+parts[1], parts[2]); err != nil {
		return nil, err
	}
	if err := v.verifyTimeAndAudience(claims); err != nil {
		return nil, err
	}

	return claims, nil
}

// parse decodes the three token sections. Any structural defect fails with
// ErrMalformedToken.
func (v *validator) parse(token string) (*tokenHeader, *Claims, []string, error) {
	if token == "" {
		return nil, nil, nil, NewValidationError("token is empty", ErrMalformedToken)
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, nil, nil, NewValidationError("token does not have three sections", ErrMalformedToken)
	}

	headerData, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, nil, nil, NewValidationError("failed to decode header", ErrMalformedToken)
	}
	var header tokenHeader
	if err := json.Unmarshal(headerData, &header); err != nil {
		return nil, nil, nil, NewValidationError("failed to parse header", ErrMalformedToken)
	}

	payloadData, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, nil, nil, NewValidationError("failed to decode payload", ErrMalformedToken)
	}
	var claims Claims
	if err := json.Unmarshal(payloadData, &claims); err != nil {
		return nil, nil, nil, NewValidationError("failed to parse payload", ErrMalformedToken)
	}

	return &header, &claims, parts, nil
}

// verifySignature verifies the RS256 signature over the signing input.
func (v *validator) verifySignature(header *tokenHeader, key SigningKey, signingInput, signature string) error {
	if header.Algorithm != AlgRS256 {
		return NewValidationError(
			fmt.Sprintf("algorithm %q is not supported", header.Algorithm),
			ErrSignatureOrClaim,
		)
	}

	sigBytes, err := base64.RawURLEncoding.DecodeString(signature)
	if err != nil {
		return NewValidationError("failed to decode signature", ErrSignatureOrClaim)
	}

	hashed := sha256.Sum256([]byte(signingInput))
	if err := rsa.VerifyPKCS1v15(key.PublicKey, crypto.SHA256, hashed[:], sigBytes); err != nil {
		return NewValidationError("signature verification failed", ErrSignatureOrClaim)
	}

	return nil
}

// verifyTimeAndAudience checks expiry with clock skew and the audience.
// Cognito access tokens carry the client ID in client_id rather than aud,
// so both are accepted.
func (v *validator) verifyTimeAndAudience(claims *Claims) error {
	if claims.ExpiredAt(v.now(), v.config.ClockSkew) {
		return NewValidationError("token has expired", ErrSignatureOrClaim)
	}

	if !claims.Audience.Contains(v.config.Audience) && claims.ClientID != v.config.Audience {
		return NewValidationError("token audience does not match", ErrSignatureOrClaim)
	}

	return nil
}

// failureReason maps a validation error to a stable metrics label.
func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrMalformedToken):
		return "malformed"
	case errors.Is(err, ErrInvalidIssuer):
		return "invalid_issuer"
	case errors.Is(err, ErrWrongTokenPurpose):
		return "wrong_token_use"
	case errors.Is(err, ErrUnknownSigningKey):
		return "unknown_key"
	case errors.Is(err, ErrKeyFetch):
		return "key_fetch"
	case errors.Is(err, ErrSignatureOrClaim):
		return "signature_or_claim"
	default:
		return "other"
	}
}

// Ensure validator implements Validator.
var _ Validator = (*validator)(nil)
