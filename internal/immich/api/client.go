package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"
)

// maxBodySize bounds how much of a response is read into memory. Preview
// thumbnails are well below this.
const maxBodySize = 64 << 20

// Client provides a raw HTTP client for accessing the immich API. All requests
// get rewritten to the API endpoint of the configured server, so only the path
// is required for requests.
//
// Example:
//
// ```
// client, err := NewClient(Config{ServerURL: "https://photos.example.com"})
// resp, err := client.do(ctx, http.MethodGet, "/server/ping", "", nil)
// ```
type Client struct {
	*http.Client
}

// Config holds configuration values for configuring the immich client.
//
// It is organized to take advantage of TOML parsing, however this package does
// not handle parsing and has no expectation on how it will be initialized.
type Config struct {
	// ServerURL is the base URL of the immich server, without the "/api"
	// suffix. One trailing slash is tolerated.
	ServerURL string `toml:"server-url"`
	// Email and Password are exchanged for a bearer token on login.
	Email    string `toml:"email"`
	Password string `toml:"password"`
	// PasswordKeyring makes the app look the password up in the OS keyring
	// when Password is empty.
	PasswordKeyring bool `toml:"password-keyring"`

	// UserAgent is sent with every request when non-empty.
	UserAgent string `toml:"-"`
	// Timeout bounds a single request. Zero means no timeout.
	Timeout time.Duration `toml:"-"`
	// Transport performs the round trips. nil means http.DefaultTransport.
	Transport http.RoundTripper `toml:"-"`
}

// HydrateFromEnv overwrites any values in Config with their associated
// environment variable value. Environment variables take precedence.
func (c *Config) HydrateFromEnv() {
	if v, ok := os.LookupEnv("IMMICH_SERVER_URL"); ok {
		c.ServerURL = v
	}
	if v, ok := os.LookupEnv("IMMICH_EMAIL"); ok {
		c.Email = v
	}
	if v, ok := os.LookupEnv("IMMICH_PASSWORD"); ok {
		c.Password = v
	}
}

// Credentials returns the login body for this configuration.
func (c Config) Credentials() Credentials {
	return Credentials{Email: c.Email, Password: c.Password}
}

// Complete reports whether the server URL, email and password are all set.
func (c Config) Complete() bool {
	return c.ServerURL != "" && c.Email != "" && c.Password != ""
}

// NormalizeServerURL strips one trailing slash from the server URL.
func NormalizeServerURL(serverURL string) string {
	return strings.TrimSuffix(serverURL, "/")
}

// immichTransport is a custom http.RoundTripper that rewrites the
// http.Request via transformF before handing it to base.
type immichTransport struct {
	base       http.RoundTripper
	transformF func(*http.Request)
}

func (i immichTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	i.transformF(req)
	return i.base.RoundTrip(req)
}

// NewClient initializes a Client for the configured server. An error is
// returned if the server URL is not an absolute http(s) URL.
func NewClient(conf Config) (Client, error) {
	endpoint, err := url.Parse(NormalizeServerURL(conf.ServerURL))
	if err != nil {
		return Client{}, fmt.Errorf("invalid server url %q: %w", conf.ServerURL, err)
	}
	if (endpoint.Scheme != "http" && endpoint.Scheme != "https") || endpoint.Host == "" {
		return Client{}, fmt.Errorf("invalid server url %q: expected http(s)://host", conf.ServerURL)
	}
	apiPath := path.Join("/", endpoint.Path, "api")

	base := conf.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	transport := immichTransport{
		base: base,
		transformF: func(r *http.Request) {
			if conf.UserAgent != "" {
				r.Header.Set("User-Agent", conf.UserAgent)
			}
			// Prefix the API endpoint in the new URL.
			immichAPI := *endpoint
			immichAPI.Path = path.Join(apiPath, r.URL.Path)
			immichAPI.RawQuery = r.URL.RawQuery
			r.URL = &immichAPI
			r.Host = immichAPI.Host
		},
	}
	return Client{&http.Client{Transport: transport, Timeout: conf.Timeout}}, nil
}

// Response is the status and raw body of an API call.
type Response struct {
	StatusCode int
	Body       []byte
}

// do issues a request against the API. body, when non-nil, is sent as JSON
// and token, when non-empty, as a bearer credential. Any failure to get a
// response is reported as ErrUnreachable.
func (c Client) do(ctx context.Context, method, p, token string, body any) (*Response, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, p, reqBody)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %w", ErrUnreachable, err)
	}
	return &Response{StatusCode: resp.StatusCode, Body: data}, nil
}

// Ping performs a sanity check API request to /server/ping to verify the
// Client is configured correctly and the immich server is responsive.
//
// See: https://api.immich.app/endpoints/server/pingServer
func (c Client) Ping(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/server/ping", "", nil)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return &ServerError{Op: "ping", Status: resp.StatusCode}
	}
	var m struct {
		Res string `json:"res"`
	}
	if err := json.Unmarshal(resp.Body, &m); err != nil || m.Res != "pong" {
		return errors.Join(ErrMalformedResponse, err)
	}
	return nil
}

// bodyPrefix returns at most the first 200 bytes of a response body for use
// in error messages.
func bodyPrefix(body []byte) string {
	const n = 200
	if len(body) > n {
		body = body[:n]
	}
	return string(body)
}
