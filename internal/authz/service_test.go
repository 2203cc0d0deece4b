package authz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recipestack/authgate/internal/auth/jwt"
)

const testMethodARN = "arn:aws:execute-api:us-east-1:123456789012:abc123/prod/GET/recipes"

// stubValidator implements jwt.Validator for service tests.
type stubValidator struct {
	claims *jwt.Claims
	err    error
	calls  int
}

func (s *stubValidator) Validate(_ context.Context, _ string) (*jwt.Claims, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.claims, nil
}

func adminClaims() *jwt.Claims {
	return &jwt.Claims{
		Subject: "user-123",
		Groups:  []string{"admin", "editors"},
	}
}

func memberClaims() *jwt.Claims {
	return &jwt.Claims{
		Subject: "user-456",
		Groups:  []string{"editors"},
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		validator  jwt.Validator
		adminGroup string
		wantErr    bool
	}{
		{name: "Valid", validator: &stubValidator{}, adminGroup: "admin"},
		{name: "Nil validator", validator: nil, adminGroup: "admin", wantErr: true},
		{name: "Empty admin group", validator: &stubValidator{}, adminGroup: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc, err := New(tt.validator, tt.adminGroup)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, svc)
		})
	}
}

func TestAuthorize_AdminGetsAllowAll(t *testing.T) {
	t.Parallel()

	svc, err := New(&stubValidator{claims: adminClaims()}, "admin")
	require.NoError(t, err)

	decision, err := svc.Authorize(context.Background(), testMethodARN, "Bearer sometoken")
	require.NoError(t, err)

	assert.Equal(t, "user-123", decision.PrincipalID)
	require.Len(t, decision.PolicyDocument.Statement, 1)

	stmt := decision.PolicyDocument.Statement[0]
	assert.Equal(t, "Allow", stmt.Effect)
	require.Len(t, stmt.Resource, 1)
	// Wildcard verb and path scoped to the ARN's stage.
	assert.Equal(t, "arn:aws:execute-api:us-east-1:123456789012:abc123/prod/*/*", stmt.Resource[0])
}

func TestAuthorize_NonAdminGetsDenyOnly(t *testing.T) {
	t.Parallel()

	svc, err := New(&stubValidator{claims: memberClaims()}, "admin")
	require.NoError(t, err)

	decision, err := svc.Authorize(context.Background(), testMethodARN, "Bearer sometoken")
	require.NoError(t, err)

	assert.Equal(t, "user-456", decision.PrincipalID)
	// Never an empty statement list: the decision carries an explicit deny.
	require.Len(t, decision.PolicyDocument.Statement, 1)
	assert.Equal(t, "Deny", decision.PolicyDocument.Statement[0].Effect)
}

func TestAuthorize_NoGroupsGetsDenyOnly(t *testing.T) {
	t.Parallel()

	svc, err := New(&stubValidator{claims: &jwt.Claims{Subject: "user-789"}}, "admin")
	require.NoError(t, err)

	decision, err := svc.Authorize(context.Background(), testMethodARN, "Bearer sometoken")
	require.NoError(t, err)

	require.Len(t, decision.PolicyDocument.Statement, 1)
	assert.Equal(t, "Deny", decision.PolicyDocument.Statement[0].Effect)
}

func TestAuthorize_MissingBearerScheme(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		header string
	}{
		{name: "Empty", header: ""},
		{name: "No scheme", header: "sometoken"},
		{name: "Wrong scheme", header: "Basic dXNlcjpwYXNz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			stub := &stubValidator{claims: adminClaims()}
			svc, err := New(stub, "admin")
			require.NoError(t, err)

			_, err = svc.Authorize(context.Background(), testMethodARN, tt.header)
			require.ErrorIs(t, err, ErrUnauthorized)

			// The scheme check runs first, so validation (and any key set
			// fetch behind it) never happens.
			assert.Zero(t, stub.calls)
		})
	}
}

func TestAuthorize_ValidationFailuresAreOpaque(t *testing.T) {
	t.Parallel()

	// Every internal validation error kind maps to the same opaque signal.
	internalErrors := []error{
		jwt.ErrMalformedToken,
		jwt.ErrInvalidIssuer,
		jwt.ErrWrongTokenPurpose,
		jwt.ErrUnknownSigningKey,
		jwt.ErrSignatureOrClaim,
		jwt.ErrKeyFetch,
	}

	for _, internal := range internalErrors {
		t.Run(internal.Error(), func(t *testing.T) {
			t.Parallel()

			svc, err := New(&stubValidator{err: internal}, "admin")
			require.NoError(t, err)

			_, authErr := svc.Authorize(context.Background(), testMethodARN, "Bearer sometoken")
			require.ErrorIs(t, authErr, ErrUnauthorized)

			// The internal kind never leaks through the returned error.
			assert.NotContains(t, authErr.Error(), internal.Error())
			assert.Equal(t, "Unauthorized", authErr.Error())
		})
	}
}

func TestAuthorize_MalformedMethodARN(t *testing.T) {
	t.Parallel()

	svc, err := New(&stubValidator{claims: adminClaims()}, "admin")
	require.NoError(t, err)

	_, err = svc.Authorize(context.Background(), "not-an-arn", "Bearer sometoken")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestAuthorize_ScopeFollowsMethodARN(t *testing.T) {
	t.Parallel()

	svc, err := New(&stubValidator{claims: adminClaims()}, "admin")
	require.NoError(t, err)

	decision, err := svc.Authorize(context.Background(),
		"arn:aws-cn:execute-api:cn-north-1:999:xyz/staging/POST/orders", "Bearer sometoken")
	require.NoError(t, err)

	require.Len(t, decision.PolicyDocument.Statement, 1)
	assert.Equal(t,
		"arn:aws-cn:execute-api:cn-north-1:999:xyz/staging/*/*",
		decision.PolicyDocument.Statement[0].Resource[0])
}
