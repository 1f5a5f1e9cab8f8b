package session_test

import (
	"encoding/base64"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/notifysync/pkg/session"
)

func jwtWithPayload(payload string) string {
	enc := base64.RawURLEncoding
	return enc.EncodeToString([]byte(`{"alg":"RS256","typ":"JWT"}`)) + "." +
		enc.EncodeToString([]byte(payload)) + ".sig"
}

func TestCredential_Valid(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	tests := []struct {
		name string
		cred session.Credential
		want bool
	}{
		{"empty token", session.Credential{}, false},
		{"empty token with expiry", session.Credential{ExpireTime: future.UnixMilli()}, false},
		{"explicit expiry in future", session.Credential{Token: "abc", ExpireTime: future.UnixMilli()}, true},
		{"explicit expiry in past", session.Credential{Token: "abc", ExpireTime: past.UnixMilli()}, false},
		{
			"explicit expiry wins over claim",
			session.Credential{Token: jwtWithPayload(fmt.Sprintf(`{"exp":%d}`, past.Unix())), ExpireTime: future.UnixMilli()},
			true,
		},
		{"claim in future", session.Credential{Token: jwtWithPayload(fmt.Sprintf(`{"exp":%d}`, future.Unix()))}, true},
		{"claim in past", session.Credential{Token: jwtWithPayload(fmt.Sprintf(`{"exp":%d}`, past.Unix()))}, false},
		{"claim equal to now", session.Credential{Token: jwtWithPayload(fmt.Sprintf(`{"exp":%d}`, now.Unix()))}, false},
		{"opaque token", session.Credential{Token: "abc"}, true},
		{"undecodable payload", session.Credential{Token: "a.!!!.c"}, true},
		{"payload not json", session.Credential{Token: jwtWithPayload("nope")}, true},
		{"no exp claim", session.Credential{Token: jwtWithPayload(`{"sub":"1"}`)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cred.Valid(now))
		})
	}
}

func TestCredential_ExpiresAt_PaddedPayload(t *testing.T) {
	t.Parallel()

	// payloads needing zero, two and one padding characters
	for _, payload := range []string{`{"exp":1700000000}`, `{"exp":1700000000,"ab":1}`, `{"exp":1700000000, "ab":1}`} {
		cred := session.Credential{Token: jwtWithPayload(payload)}
		exp, ok := cred.ExpiresAt()
		assert.True(t, ok, payload)
		assert.Equal(t, int64(1700000000), exp.Unix(), payload)
	}
}

func TestCredential_Equal(t *testing.T) {
	t.Parallel()

	a := session.Credential{Token: "abc", ExpireTime: 1}
	assert.True(t, a.Equal(session.Credential{Token: "abc", ExpireTime: 1}))
	assert.False(t, a.Equal(session.Credential{Token: "abc", ExpireTime: 2}))
	assert.False(t, a.Equal(session.Credential{Token: "abd", ExpireTime: 1}))
}

func TestNewTenant(t *testing.T) {
	t.Parallel()

	host, err := session.NewTenant("  ", "")
	assert.NoError(t, err)
	assert.True(t, host.IsZero())

	tenant, err := session.NewTenant("3A0F7C3E-1B2C-4D5E-8F90-ABCDEF012345", "acme")
	assert.NoError(t, err)
	assert.Equal(t, "3a0f7c3e-1b2c-4d5e-8f90-abcdef012345", tenant.ID)
	assert.Equal(t, "acme", tenant.Name)

	_, err = session.NewTenant("acme", "acme")
	assert.ErrorIs(t, err, session.ErrInvalidTenantID)
}
