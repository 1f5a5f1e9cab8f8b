package session

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
)

// OAuthConfig describes the identity server used for password sign-in.
type OAuthConfig struct {
	Issuer       string   `env:"OAUTH_ISSUER"`
	ClientID     string   `env:"OAUTH_CLIENT_ID" envDefault:"notifysync_App"`
	ClientSecret string   `env:"OAUTH_CLIENT_SECRET"`
	Scopes       []string `env:"OAUTH_SCOPES" envSeparator:"," envDefault:"offline_access,notifysync"`
}

// Enabled reports whether an issuer is configured.
func (c OAuthConfig) Enabled() bool {
	return c.Issuer != ""
}

// TokenURL is the OpenIddict token endpoint of the issuer.
func (c OAuthConfig) TokenURL() string {
	return strings.TrimRight(c.Issuer, "/") + "/connect/token"
}

// PasswordGrant exchanges user credentials for a bearer token using the
// resource owner password flow. When tenant is set it is sent as the
// __tenant header so the identity server signs the user into that tenant.
func PasswordGrant(ctx context.Context, cfg OAuthConfig, tenant Tenant, username, password string) (Credential, error) {
	conf := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       cfg.Scopes,
		Endpoint: oauth2.Endpoint{
			TokenURL:  cfg.TokenURL(),
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	if !tenant.IsZero() {
		base := http.DefaultClient
		if c, ok := ctx.Value(oauth2.HTTPClient).(*http.Client); ok && c != nil {
			base = c
		}
		client := *base
		client.Transport = tenantTransport{tenantID: tenant.ID, next: transportOf(base)}
		ctx = context.WithValue(ctx, oauth2.HTTPClient, &client)
	}

	tok, err := conf.PasswordCredentialsToken(ctx, username, password)
	if err != nil {
		return Credential{}, errors.Join(ErrPasswordGrant, err)
	}

	cred := Credential{Token: tok.AccessToken}
	if !tok.Expiry.IsZero() {
		cred.ExpireTime = tok.Expiry.UnixMilli()
	}
	return cred, nil
}

type tenantTransport struct {
	tenantID string
	next     http.RoundTripper
}

func (t tenantTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("__tenant", t.tenantID)
	return t.next.RoundTrip(req)
}

func transportOf(c *http.Client) http.RoundTripper {
	if c.Transport != nil {
		return c.Transport
	}
	return http.DefaultTransport
}
