package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jrsteele09/go-medapp/internal/errors"
	"golang.org/x/oauth2"
)

const (
	defaultTimeout   = 15 * time.Second
	defaultUserAgent = "go-medapp"
	maxErrorBody     = 1 << 20
)

// Client is the single request issuer shared by every MedApp component.
// It attaches the bearer token supplied by its TokenSource to each request
// and never changes the token itself.
type Client struct {
	baseURL   string
	assetBase string
	userAgent string
	timeout   time.Duration
	source    oauth2.TokenSource
	transport *bearerTransport
	http      *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithTokenSource sets where the bearer token is read from before each request.
// A source returning a nil token (and no error) sends the request unauthenticated.
func WithTokenSource(source oauth2.TokenSource) Option {
	return func(c *Client) {
		c.source = source
	}
}

// WithAssetBaseURL sets the base URL used by ResolveAssetURL
func WithAssetBaseURL(base string) Option {
	return func(c *Client) {
		c.assetBase = strings.TrimRight(base, "/")
	}
}

// WithHTTPClient replaces the underlying http.Client (primarily for testing)
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// New creates a Client for the backend rooted at baseURL, e.g. "http://localhost:8080/api".
func New(baseURL string, options ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidConfig, "[api.New] base url %q", baseURL)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, errors.Wrapf(errors.ErrInvalidConfig, "[api.New] base url %q must be absolute http(s)", baseURL)
	}

	c := &Client{
		baseURL:   strings.TrimRight(u.String(), "/"),
		assetBase: u.Scheme + "://" + u.Host,
		userAgent: defaultUserAgent,
		http:      &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range options {
		opt(c)
	}

	hc := *c.http
	if c.timeout > 0 {
		hc.Timeout = c.timeout
	}
	base := hc.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	c.transport = &bearerTransport{source: c.source, base: base}
	hc.Transport = c.transport
	c.http = &hc

	return c, nil
}

// UseTokenSource replaces the token source read before each request.
func (c *Client) UseTokenSource(source oauth2.TokenSource) {
	c.transport.mu.Lock()
	defer c.transport.mu.Unlock()
	c.transport.source = source
}

// BaseURL returns the backend base URL without a trailing slash
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ResolveAssetURL turns a backend file path into an absolute URL.
// Absolute URLs are returned unchanged.
func (c *Client) ResolveAssetURL(path string) string {
	if path == "" || strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.assetBase + path
}

func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, "", out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.doJSON(ctx, http.MethodPost, path, body, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.doJSON(ctx, http.MethodPut, path, body, out)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	contentType := ""
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return errors.Wrapf(err, "[api] encoding %s %s", method, path)
		}
		reader = bytes.NewReader(payload)
		contentType = "application/json"
	}
	return c.do(ctx, method, path, nil, reader, contentType, out)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string, out any) error {
	op := method + " " + path
	target := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return errors.Wrapf(err, "[api] building %s", op)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &errors.NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if err == io.EOF {
			return nil
		}
		return errors.Wrapf(errors.ErrServer, "[api] decoding %s response: %v", op, err)
	}
	return nil
}

type errorBody struct {
	Error   string          `json:"error"`
	Message string          `json:"message"`
	Errors  json.RawMessage `json:"errors"`
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var body errorBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return errors.NewAPIError(resp.StatusCode, strings.TrimSpace(string(raw)), nil)
	}

	message := body.Error
	if message == "" {
		message = body.Message
	}

	var fields map[string]string
	if len(body.Errors) > 0 {
		if err := json.Unmarshal(body.Errors, &fields); err != nil {
			fields = nil
		}
	}
	return errors.NewAPIError(resp.StatusCode, message, fields)
}

// bearerTransport sets the Authorization header from source on a copy of each request
type bearerTransport struct {
	mu     sync.RWMutex
	source oauth2.TokenSource
	base   http.RoundTripper
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.mu.RLock()
	source := t.source
	t.mu.RUnlock()
	if source == nil {
		return t.base.RoundTrip(req)
	}

	tok, err := source.Token()
	if err != nil {
		if req.Body != nil {
			req.Body.Close()
		}
		return nil, fmt.Errorf("reading bearer token: %w", err)
	}
	if tok == nil || tok.AccessToken == "" {
		return t.base.RoundTrip(req)
	}

	authed := req.Clone(req.Context())
	tok.SetAuthHeader(authed)
	return t.base.RoundTrip(authed)
}
