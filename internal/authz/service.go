package authz

import (
	"context"
	"errors"
	"time"

	"github.com/recipestack/authgate/internal/auth/jwt"
	"github.com/recipestack/authgate/internal/authz/policy"
	"github.com/recipestack/authgate/internal/observability"
)

// Service decides whether a request may proceed and under what scope.
type Service interface {
	// Authorize validates the bearer token from the authorization header
	// and returns the decision for the method the ARN targets.
	Authorize(ctx context.Context, methodARN, authorizationHeader string) (*policy.Decision, error)
}

// service implements the Service interface.
type service struct {
	validator  jwt.Validator
	adminGroup string
	logger     observability.Logger
	metrics    *Metrics
}

// ServiceOption is a functional option for the service.
type ServiceOption func(*service)

// WithServiceLogger sets the logger.
func WithServiceLogger(logger observability.Logger) ServiceOption {
	return func(s *service) {
		s.logger = logger
	}
}

// WithServiceMetrics sets the metrics.
func WithServiceMetrics(metrics *Metrics) ServiceOption {
	return func(s *service) {
		s.metrics = metrics
	}
}

// New creates a new authorization service.
func New(validator jwt.Validator, adminGroup string, opts ...ServiceOption) (Service, error) {
	if validator == nil {
		return nil, errors.New("validator is required")
	}
	if adminGroup == "" {
		return nil, errors.New("admin group is required")
	}

	s := &service{
		validator:  validator,
		adminGroup: adminGroup,
		logger:     observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.metrics == nil {
		s.metrics = NewMetrics("authgate")
	}

	return s, nil
}

// Authorize runs the decision pipeline. Every validation failure maps to
// the opaque ErrUnauthorized; builder failures indicate a defect and
// propagate as-is so they fail loudly instead of masquerading as an
// authorization outcome.
func (s *service) Authorize(ctx context.Context, methodARN, authorizationHeader string) (*policy.Decision, error) {
	start := time.Now()
	logger := s.logger.WithContext(ctx)

	arn, err := ParseMethodARN(methodARN)
	if err != nil {
		logger.Warn("rejecting request", observability.Error(err))
		s.metrics.RecordDecision("unauthorized", time.Since(start))
		return nil, ErrUnauthorized
	}

	// The scheme check runs before any validator call, so a missing
	// scheme never triggers a key set fetch.
	token, err := jwt.BearerToken(authorizationHeader)
	if err != nil {
		logger.Warn("rejecting request",
			observability.String("method", arn.Verb),
			observability.String("resource", arn.ResourcePath),
			observability.Error(err),
		)
		s.metrics.RecordDecision("unauthorized", time.Since(start))
		return nil, ErrUnauthorized
	}

	claims, err := s.validator.Validate(ctx, token)
	if err != nil {
		// Internal detail stays in the logs.
		logger.Warn("rejecting request",
			observability.String("method", arn.Verb),
			observability.String("resource", arn.ResourcePath),
			observability.Error(err),
		)
		s.metrics.RecordDecision("unauthorized", time.Since(start))
		return nil, ErrUnauthorized
	}

	builder := policy.NewBuilder(claims.Subject, policy.Scope{
		Partition: arn.Partition,
		Region:    arn.Region,
		AccountID: arn.AccountID,
		APIID:     arn.APIID,
		Stage:     arn.Stage,
	})

	outcome := "deny"
	if claims.InGroup(s.adminGroup) {
		if err := builder.AllowAll(); err != nil {
			return nil, err
		}
		outcome = "allow"
	} else if err := builder.DenyAll(); err != nil {
		return nil, err
	}

	decision, err := builder.Build()
	if err != nil {
		return nil, err
	}

	s.metrics.RecordDecision(outcome, time.Since(start))
	logger.Info("authorization decision",
		observability.String("principal", claims.Subject),
		observability.String("outcome", outcome),
		observability.String("method", arn.Verb),
		observability.String("resource", arn.ResourcePath),
	)

	return decision, nil
}

// Ensure service implements Service.
var _ Service = (*service)(nil)
