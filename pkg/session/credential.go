package session

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"
)

// Credential is the bearer token used by both the HTTP API and the push channel.
type Credential struct {
	Token string `json:"token" yaml:"token"`
	// ExpireTime is the explicit expiry in milliseconds since the Unix epoch.
	// Zero means the server did not report one.
	ExpireTime int64 `json:"expire_time,omitempty" yaml:"expire_time,omitempty"`
}

// claims holds the registered JWT claims the client reads.
type claims struct {
	ExpiresAt int64 `json:"exp,omitempty"`
}

// Present reports whether the credential carries a token.
func (c Credential) Present() bool {
	return c.Token != ""
}

// ExpiresAt returns the instant the credential stops being valid.
// The explicit expiry wins over the embedded claim. ok is false when neither
// is available, in which case the credential never expires on its own.
func (c Credential) ExpiresAt() (time.Time, bool) {
	if c.ExpireTime > 0 {
		return time.UnixMilli(c.ExpireTime), true
	}
	exp, ok := embeddedExpiry(c.Token)
	if !ok {
		return time.Time{}, false
	}
	return time.Unix(exp, 0), true
}

// Valid reports whether the credential can be used at now.
// A token whose expiry cannot be determined is treated as valid.
func (c Credential) Valid(now time.Time) bool {
	if !c.Present() {
		return false
	}
	exp, ok := c.ExpiresAt()
	if !ok {
		return true
	}
	return exp.After(now)
}

// Equal reports whether two credentials carry the same token and expiry.
func (c Credential) Equal(other Credential) bool {
	return c.Token == other.Token && c.ExpireTime == other.ExpireTime
}

// embeddedExpiry reads the exp claim from the payload segment of a JWT.
// The signature is not checked: the client only needs a hint of when the
// server will start rejecting the token.
func embeddedExpiry(token string) (int64, bool) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return 0, false
	}

	payload, err := base64URLDecode(parts[1])
	if err != nil {
		return 0, false
	}

	var cl claims
	if err := json.Unmarshal(payload, &cl); err != nil {
		return 0, false
	}
	if cl.ExpiresAt <= 0 {
		return 0, false
	}
	return cl.ExpiresAt, true
}

// base64URLDecode decodes base64url-encoded data, restoring padding as needed.
// JWT tokens omit padding per RFC 7515, but Go's decoder requires it.
func base64URLDecode(s string) ([]byte, error) {
	switch len(s) % 4 {
	case 2:
		s += strings.Repeat("=", 2)
	case 3:
		s += strings.Repeat("=", 1)
	}

	return base64.URLEncoding.DecodeString(s)
}
