package jwt

import (
	"encoding/json"
	"time"
)

// TokenUseAccess is the token_use marker carried by access tokens.
const TokenUseAccess = "access"

// groupsClaim is the claim carrying the principal's group memberships.
const groupsClaim = "cognito:groups"

// Claims represents the verified payload of an access token.
type Claims struct {
	Issuer    string   `json:"iss,omitempty"`
	Subject   string   `json:"sub,omitempty"`
	Audience  Audience `json:"aud,omitempty"`
	ClientID  string   `json:"client_id,omitempty"`
	TokenUse  string   `json:"token_use,omitempty"`
	Groups    []string `json:"cognito:groups,omitempty"`
	Username  string   `json:"username,omitempty"`
	ExpiresAt *Time    `json:"exp,omitempty"`
	IssuedAt  *Time    `json:"iat,omitempty"`
	JWTID     string   `json:"jti,omitempty"`
}

// Time wraps time.Time for numeric-date JSON claims.
type Time struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Time) UnmarshalJSON(data []byte) error {
	var timestamp float64
	if err := json.Unmarshal(data, &timestamp); err != nil {
		return err
	}
	t.Time = time.Unix(int64(timestamp), 0)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (t Time) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Unix())
}

// Audience represents the aud claim, which can be a string or an array.
type Audience []string

// UnmarshalJSON implements json.Unmarshaler.
func (a *Audience) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*a = Audience{single}
		return nil
	}

	var multiple []string
	if err := json.Unmarshal(data, &multiple); err != nil {
		return err
	}
	*a = Audience(multiple)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (a Audience) MarshalJSON() ([]byte, error) {
	if len(a) == 1 {
		return json.Marshal(a[0])
	}
	return json.Marshal([]string(a))
}

// Contains checks if the audience contains a specific value.
func (a Audience) Contains(aud string) bool {
	for _, v := range a {
		if v == aud {
			return true
		}
	}
	return false
}

// InGroup reports whether the claims carry the given group membership.
func (c *Claims) InGroup(group string) bool {
	for _, g := range c.Groups {
		if g == group {
			return true
		}
	}
	return false
}

// ExpiredAt reports whether the token is expired at the given instant,
// allowing the given clock skew.
func (c *Claims) ExpiredAt(now time.Time, skew time.Duration) bool {
	if c.ExpiresAt == nil {
		return false
	}
	return now.After(c.ExpiresAt.Time.Add(skew))
}
