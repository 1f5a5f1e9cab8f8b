package session

import (
	"strings"

	"github.com/google/uuid"
)

// Tenant is the multi-tenancy context attached to every outbound call.
type Tenant struct {
	ID   string `json:"id,omitempty" yaml:"id,omitempty"`
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
}

// IsZero reports whether no tenant is selected (host side).
func (t Tenant) IsZero() bool {
	return t.ID == ""
}

// NewTenant validates id and returns the tenant.
// An empty id selects the host and is accepted.
func NewTenant(id, name string) (Tenant, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Tenant{}, nil
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return Tenant{}, ErrInvalidTenantID
	}
	return Tenant{ID: parsed.String(), Name: name}, nil
}

// Session is everything the client keeps between runs: the credential and
// the tenant and language context sent with each request.
type Session struct {
	Credential Credential `json:"credential" yaml:"credential"`
	Tenant     Tenant     `json:"tenant" yaml:"tenant"`
	Language   string     `json:"language,omitempty" yaml:"language,omitempty"`
}

// Change is published whenever the stored credential changes.
type Change struct {
	Credential Credential
	Present    bool
	// SignOuts counts how often a present credential was removed. A watcher
	// that sees it move without having seen the absent change missed a
	// sign-out.
	SignOuts uint64
}
