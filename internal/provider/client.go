package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxBody bounds how much of an upstream body is buffered before relaying it.
const maxBody = 8 << 20

// ErrNotFound is returned when upstream has no movie with the requested id.
var ErrNotFound = errors.New("provider: not found")

// StatusError reports a non-success status from the metadata provider.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("TMDB API error: %s", e.Status)
}

// Client defines the contract for querying the upstream movie metadata API.
// Every method returns the provider's JSON body untouched.
type Client interface {
	Discover(ctx context.Context) (json.RawMessage, error)
	Search(ctx context.Context, query string) (json.RawMessage, error)
	Movie(ctx context.Context, id string) (json.RawMessage, error)
}

// HTTPClient implements Client over HTTP using a bearer credential.
type HTTPClient struct {
	baseURL *url.URL
	apiKey  string
	client  *http.Client
	logger  *log.Logger
}

// NewHTTPClient constructs a new HTTP-backed provider client.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration, logger *log.Logger) (*HTTPClient, error) {
	if logger == nil {
		logger = log.Default()
	}
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse provider url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("parse provider url: %q is not absolute", baseURL)
	}
	return &HTTPClient{
		baseURL: parsed,
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   timeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   timeout,
				ResponseHeaderTimeout: timeout,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
		logger: logger,
	}, nil
}

// Discover lists popular movies.
func (c *HTTPClient) Discover(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, "/discover/movie", "sort_by=popularity.desc")
}

// Search looks movies up by free text.
func (c *HTTPClient) Search(ctx context.Context, query string) (json.RawMessage, error) {
	return c.get(ctx, "/search/movie", "query="+EncodeQueryComponent(query))
}

// Movie fetches the details of one movie.
func (c *HTTPClient) Movie(ctx context.Context, id string) (json.RawMessage, error) {
	return c.get(ctx, "/movie/"+url.PathEscape(id), "")
}

func (c *HTTPClient) endpoint(path, rawQuery string) string {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	u.RawPath = ""
	u.RawQuery = rawQuery
	return u.String()
}

func (c *HTTPClient) get(ctx context.Context, path, rawQuery string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path, rawQuery), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
		if err != nil {
			return nil, fmt.Errorf("read provider response: %w", err)
		}
		if !json.Valid(body) {
			return nil, fmt.Errorf("provider returned invalid JSON for %s", path)
		}
		return body, nil
	case resp.StatusCode == http.StatusNotFound && strings.HasPrefix(path, "/movie/"):
		return nil, ErrNotFound
	default:
		c.logger.Printf("provider: unexpected status %d for %s", resp.StatusCode, path)
		return nil, &StatusError{StatusCode: resp.StatusCode, Status: statusLine(resp)}
	}
}

func statusLine(resp *http.Response) string {
	if resp.Status != "" {
		return resp.Status
	}
	return fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
}

// EncodeQueryComponent escapes s for use as a query value, spelling spaces as %20.
func EncodeQueryComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
