package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/dmitrymomot/notifysync/pkg/logger"
)

// maxErrorBody caps how much of a failed response is read.
const maxErrorBody = 64 * 1024

// SessionContext supplies the per-request authentication and locale values.
// session.Store implements it.
type SessionContext interface {
	Token() string
	TenantID() string
	Language() string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout bounds every request. Zero keeps the transport default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			hc := *c.http
			hc.Timeout = d
			c.http = &hc
		}
	}
}

// WithIssuer sets the identity server base URL used by the account calls.
// It defaults to the API base URL.
func WithIssuer(issuer string) Option {
	return func(c *Client) {
		if u, err := parseBase(issuer); err == nil {
			c.issuer = u
		}
	}
}

// WithUnauthorized registers the hook run when the backend reports an
// expired token. It is where the stored credential gets cleared.
func WithUnauthorized(fn func(ctx context.Context)) Option {
	return func(c *Client) {
		c.onUnauthorized = fn
	}
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// Client talks to the notification backend over HTTP.
type Client struct {
	base           *url.URL
	issuer         *url.URL
	http           *http.Client
	sess           SessionContext
	onUnauthorized func(ctx context.Context)
	log            *slog.Logger
}

// New creates a client for the backend at baseURL.
// sess may be nil for anonymous calls.
func New(baseURL string, sess SessionContext, opts ...Option) (*Client, error) {
	base, err := parseBase(baseURL)
	if err != nil {
		return nil, err
	}

	c := &Client{
		base:   base,
		issuer: base,
		http:   &http.Client{},
		sess:   sess,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the API base URL.
func (c *Client) BaseURL() *url.URL {
	u := *c.base
	return &u
}

func parseBase(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, errors.Join(ErrInvalidBaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, raw)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u, nil
}

// request describes one call.
type request struct {
	method string
	base   *url.URL
	path   string
	query  url.Values
	body   io.Reader
	ctype  string
	// bearer overrides the session token when set.
	bearer string
}

func (c *Client) jsonRequest(method, path string, payload any) (request, error) {
	r := request{method: method, base: c.base, path: path, ctype: "application/json"}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return r, fmt.Errorf("encode %s body: %w", path, err)
		}
		r.body = bytes.NewReader(data)
	}
	return r, nil
}

// do sends r and decodes a successful JSON response into out (if non-nil).
func (c *Client) do(ctx context.Context, r request, out any) error {
	ref, err := url.Parse(strings.TrimPrefix(r.path, "/"))
	if err != nil {
		return fmt.Errorf("build request path: %w", err)
	}
	if len(r.query) > 0 {
		ref.RawQuery = r.query.Encode()
	}
	target := r.base.ResolveReference(ref)

	req, err := http.NewRequestWithContext(ctx, r.method, target.String(), r.body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	c.decorate(req, r)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.LogAttrs(ctx, slog.LevelWarn, "backend request failed",
			logger.Component("api"),
			slog.String("method", r.method),
			slog.String("path", target.Path),
			logger.Error(err),
		)
		return fmt.Errorf("%w: %s %s: %w", ErrRequestFailed, r.method, target.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.log.LogAttrs(ctx, slog.LevelDebug, "backend request",
		logger.Component("api"),
		slog.String("method", r.method),
		slog.String("path", target.Path),
		slog.Int("status", resp.StatusCode),
		logger.Duration(time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := decodeError(resp.StatusCode, body)
		if resp.StatusCode == http.StatusUnauthorized && resp.Header.Get("_abperrorformat") != "" {
			apiErr.Err = ErrAuthExpired
			if c.onUnauthorized != nil {
				c.onUnauthorized(ctx)
			}
		}
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", target.Path, err)
	}
	return nil
}

func (c *Client) decorate(req *http.Request, r request) {
	req.Header.Set("Accept", "application/json")
	if r.ctype != "" {
		req.Header.Set("Content-Type", r.ctype)
	}

	token := r.bearer
	if token == "" && c.sess != nil {
		token = c.sess.Token()
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	if c.sess == nil {
		return
	}
	if lang := canonicalLanguage(c.sess.Language()); lang != "" {
		req.Header.Set("Accept-Language", lang)
	}
	if tenant := c.sess.TenantID(); tenant != "" {
		req.Header.Set("__tenant", tenant)
	}
}

// canonicalLanguage normalizes a BCP 47 tag, e.g. "zh_hans" to "zh-Hans".
// Unparsable values are dropped rather than sent.
func canonicalLanguage(raw string) string {
	raw = strings.TrimSpace(strings.ReplaceAll(raw, "_", "-"))
	if raw == "" {
		return ""
	}
	tag, err := language.Parse(raw)
	if err != nil {
		return ""
	}
	return tag.String()
}
