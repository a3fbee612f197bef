package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/nerrad567/scale-registry/internal/device"
	"github.com/nerrad567/scale-registry/internal/registry"
)

// DefaultTimeout bounds every request made by a Client.
const DefaultTimeout = 60 * time.Second

// TokenEnv is the environment variable NewFromEnv reads the bearer token from.
const TokenEnv = "SCALEREG_BACKEND_TOKEN"

// maxResponseBytes caps how much of a response body is decoded.
const maxResponseBytes = 1 << 20

// Logger defines the logging interface used by the Client.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Client talks to the remote registry mirror.
//
// Each call is one HTTP request with the configured timeout. Nothing is
// retried; transport failures and non-success statuses are returned to the
// caller, who owns retry policy. Two concurrent updates to the same identity
// race at the server.
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout replaces DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithHTTPClient replaces the underlying HTTP client. Its Timeout is used
// as-is.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(logger Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a client for the registry API rooted at baseURL
// (for example "https://registry.example.com/mise").
//
// Parameters:
//   - baseURL: API root; a trailing slash is ignored
//   - token: bearer credential sent with every request
//   - opts: optional timeout, HTTP client and logger overrides
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     noopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFromEnv creates a client with the token read from TokenEnv.
// Returns registry.ErrEnvMissing if the variable is unset or empty.
func NewFromEnv(baseURL string, opts ...Option) (*Client, error) {
	token := os.Getenv(TokenEnv)
	if token == "" {
		return nil, fmt.Errorf("%w: %s", registry.ErrEnvMissing, TokenEnv)
	}
	return New(baseURL, token, opts...), nil
}

// BaseURL returns the API root the client targets.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// addressBody is the JSON shape of the address sub-resource.
type addressBody struct {
	Address string `json:"address"`
}

// CreateDevice registers a new device of the given model with cfg and returns
// the identity the server assigned.
//
// Returns:
//   - device.Identity: the new identity (server answered 201 Created)
//   - error: *registry.BackendError for any other status, ErrTransport,
//     ErrDecode, or ErrEncode
func (c *Client) CreateDevice(ctx context.Context, model device.Model, cfg device.Config) (device.Identity, error) {
	if !model.IsValid() {
		return device.Identity{}, fmt.Errorf("%w: %q", device.ErrUnknownModel, string(model))
	}

	var id device.Identity
	if err := c.do(ctx, http.MethodPost, c.modelURL(model), true, cfg, http.StatusCreated, &id); err != nil {
		return device.Identity{}, err
	}
	if err := id.Validate(); err != nil {
		return device.Identity{}, fmt.Errorf("%w: created identity: %w", registry.ErrDecode, err)
	}
	return id, nil
}

// GetConfig fetches the config stored for id. Success is 200 OK.
func (c *Client) GetConfig(ctx context.Context, id device.Identity) (device.Config, error) {
	var cfg device.Config
	if err := c.do(ctx, http.MethodGet, c.deviceURL(id), true, nil, http.StatusOK, &cfg); err != nil {
		return device.Config{}, err
	}
	return cfg, nil
}

// UpdateConfig replaces the config stored for id. Success is 200 OK.
func (c *Client) UpdateConfig(ctx context.Context, id device.Identity, cfg device.Config) error {
	return c.do(ctx, http.MethodPut, c.deviceURL(id), true, cfg, http.StatusOK, nil)
}

// GetAddress fetches the network address recorded for id.
func (c *Client) GetAddress(ctx context.Context, id device.Identity) (string, error) {
	var body addressBody
	if err := c.do(ctx, http.MethodGet, c.addressURL(id), true, nil, http.StatusOK, &body); err != nil {
		return "", err
	}
	return body.Address, nil
}

// SetAddress records the network address of id.
func (c *Client) SetAddress(ctx context.Context, id device.Identity, address string) error {
	return c.do(ctx, http.MethodPut, c.addressURL(id), true, addressBody{Address: address}, http.StatusOK, nil)
}

// RemoveDevice is not offered by the remote API.
// It always returns registry.ErrUnimplemented.
func (c *Client) RemoveDevice(_ context.Context, id device.Identity) error {
	return fmt.Errorf("%w: remote removal of %s", registry.ErrUnimplemented, id)
}

func (c *Client) modelURL(model device.Model) string {
	return c.baseURL + "/" + url.PathEscape(model.String())
}

func (c *Client) deviceURL(id device.Identity) string {
	return c.modelURL(id.Model) + "/" + url.PathEscape(id.Serial)
}

func (c *Client) addressURL(id device.Identity) string {
	return c.baseURL + "/address/" + url.PathEscape(id.Model.String()) + "/" + url.PathEscape(id.Serial)
}

// do performs one request/response cycle.
//
// in is JSON-encoded as the request body when non-nil; out receives the
// decoded response body when non-nil. Any status other than want is a
// *registry.BackendError.
func (c *Client) do(ctx context.Context, method, target string, auth bool, in any, want int, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%w: request body: %w", registry.ErrEncode, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("%w: building request: %w", registry.ErrTransport, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("registry request failed", "method", method, "url", target, "error", err)
		return fmt.Errorf("%w: %s %s: %w", registry.ErrTransport, method, target, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("registry request",
		"method", method,
		"url", target,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode != want {
		// Drain body to allow connection reuse
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return &registry.BackendError{Status: resp.StatusCode}
	}

	// A timeout while the body is still arriving is a transport failure,
	// not a malformed response.
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: %s %s reading response: %w", registry.ErrTransport, method, target, err)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %s %s response: %w", registry.ErrDecode, method, target, err)
	}
	return nil
}
