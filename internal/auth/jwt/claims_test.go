package jwt

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAudience_UnmarshalJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data string
		want Audience
	}{
		{name: "Single string", data: `"client-a"`, want: Audience{"client-a"}},
		{name: "Array", data: `["client-a","client-b"]`, want: Audience{"client-a", "client-b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var aud Audience
			require.NoError(t, json.Unmarshal([]byte(tt.data), &aud))
			assert.Equal(t, tt.want, aud)
		})
	}
}

func TestAudience_Contains(t *testing.T) {
	t.Parallel()

	aud := Audience{"client-a", "client-b"}
	assert.True(t, aud.Contains("client-a"))
	assert.False(t, aud.Contains("client-c"))
}

func TestClaims_Unmarshal(t *testing.T) {
	t.Parallel()

	data := `{
		"iss": "https://issuer.example",
		"sub": "user-1",
		"token_use": "access",
		"client_id": "client-a",
		"cognito:groups": ["admin"],
		"exp": 1700000000
	}`

	var claims Claims
	require.NoError(t, json.Unmarshal([]byte(data), &claims))

	assert.Equal(t, "https://issuer.example", claims.Issuer)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, TokenUseAccess, claims.TokenUse)
	assert.Equal(t, []string{"admin"}, claims.Groups)
	require.NotNil(t, claims.ExpiresAt)
	assert.Equal(t, int64(1700000000), claims.ExpiresAt.Unix())
}

func TestClaims_InGroup(t *testing.T) {
	t.Parallel()

	claims := &Claims{Groups: []string{"editors", "admin"}}
	assert.True(t, claims.InGroup("admin"))
	assert.False(t, claims.InGroup("viewers"))

	empty := &Claims{}
	assert.False(t, empty.InGroup("admin"))
}

func TestClaims_ExpiredAt(t *testing.T) {
	t.Parallel()

	now := time.Now()
	skew := time.Minute

	expired := &Claims{ExpiresAt: &Time{now.Add(-2 * time.Minute)}}
	assert.True(t, expired.ExpiredAt(now, skew))

	withinSkew := &Claims{ExpiresAt: &Time{now.Add(-30 * time.Second)}}
	assert.False(t, withinSkew.ExpiredAt(now, skew))

	noExpiry := &Claims{}
	assert.False(t, noExpiry.ExpiredAt(now, skew))
}
