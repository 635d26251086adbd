package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Clark-Hu/moviefinder/internal/domain"
	"github.com/Clark-Hu/moviefinder/internal/provider"
)

// StatusError reports a non-success response from the proxy.
type StatusError struct {
	Op         string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Status)
}

// ErrEmptyID is returned by FetchDetails when no movie id is given.
var ErrEmptyID = errors.New("gateway: movie id is required")

// Client translates searches into proxy requests. Each call makes exactly one
// request; nothing is cached or retried.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *log.Logger
}

// New builds a gateway for the proxy rooted at baseURL (for example
// http://localhost:3001/api).
func New(baseURL string, timeout time.Duration, logger *log.Logger) (*Client, error) {
	if logger == nil {
		logger = log.Default()
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse proxy url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("parse proxy url: %q is not absolute", baseURL)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}, nil
}

// Fetch returns popular movies when query is empty and search results otherwise.
func (c *Client) Fetch(ctx context.Context, query string) ([]domain.Movie, error) {
	endpoint := c.baseURL + "/movies/discover"
	if query != "" {
		endpoint = c.baseURL + "/movies/search?query=" + provider.EncodeQueryComponent(query)
	}

	var list domain.MovieList
	if err := c.get(ctx, endpoint, "Failed to fetch movies", &list); err != nil {
		return nil, err
	}
	return list.Results, nil
}

// FetchDetails returns the full record of one movie.
func (c *Client) FetchDetails(ctx context.Context, id string) (domain.MovieDetails, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.MovieDetails{}, ErrEmptyID
	}

	var details domain.MovieDetails
	endpoint := c.baseURL + "/movies/" + url.PathEscape(id)
	if err := c.get(ctx, endpoint, "Failed to fetch movie details", &details); err != nil {
		return domain.MovieDetails{}, err
	}
	return details, nil
}

func (c *Client) get(ctx context.Context, endpoint, op string, dst interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		status := resp.Status
		if status == "" {
			status = fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
		}
		c.logger.Printf("gateway: %s returned %d", endpoint, resp.StatusCode)
		return &StatusError{Op: op, StatusCode: resp.StatusCode, Status: status}
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}
