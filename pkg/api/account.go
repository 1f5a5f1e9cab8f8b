package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// LoginResult is the response of the account login endpoint.
type LoginResult struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	UserName string   `json:"userName"`
	Token    string   `json:"token"`
	Roles    []string `json:"roles"`
}

// TenantResult is the response of the tenant lookup endpoint.
type TenantResult struct {
	Success  bool   `json:"success"`
	TenantID string `json:"tenantId"`
	Name     string `json:"name"`
	IsActive bool   `json:"isActive"`
}

// Login signs in with user name and password against the issuer.
func (c *Client) Login(ctx context.Context, name, password string) (LoginResult, error) {
	r, err := c.jsonRequest(http.MethodPost, "api/app/account/login", map[string]string{
		"name":     name,
		"password": password,
	})
	if err != nil {
		return LoginResult{}, err
	}
	r.base = c.issuer

	var out LoginResult
	if err := c.do(ctx, r, &out); err != nil {
		return LoginResult{}, err
	}
	return out, nil
}

// Revoke invalidates token on the issuer. clientID may be empty.
func (c *Client) Revoke(ctx context.Context, token, clientID string) error {
	form := url.Values{}
	form.Set("token", token)
	form.Set("token_type_hint", "access_token")
	if clientID != "" {
		form.Set("client_id", clientID)
	}

	r := request{
		method: http.MethodPost,
		base:   c.issuer,
		path:   "connect/revocation",
		body:   strings.NewReader(form.Encode()),
		ctype:  "application/x-www-form-urlencoded",
		bearer: token,
	}
	return c.do(ctx, r, nil)
}

// TenantByName resolves a tenant name. An unknown or inactive tenant yields
// ErrTenantUnavailable.
func (c *Client) TenantByName(ctx context.Context, name string) (TenantResult, error) {
	r := request{
		method: http.MethodGet,
		base:   c.base,
		path:   "api/abp/multi-tenancy/tenants/by-name/" + url.PathEscape(name),
	}

	var out TenantResult
	if err := c.do(ctx, r, &out); err != nil {
		return TenantResult{}, err
	}
	if !out.Success {
		return out, fmt.Errorf("%w: %s", ErrTenantUnavailable, name)
	}
	return out, nil
}
