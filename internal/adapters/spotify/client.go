package spotify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/ewilliams-labs/moodgraph/internal/core/ports"
)

// DefaultBaseURL is the Spotify Web API root.
const DefaultBaseURL = "https://api.spotify.com/v1"

// Client is an HTTP client for the Spotify adapter. Authentication is the
// job of httpClient; see NewAppHTTPClient and NewUserHTTPClient.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	maxRetries  int
	baseBackoff time.Duration
	breaker     *gobreaker.CircuitBreaker[*http.Response]
	log         logrus.FieldLogger
}

// compile-time interface assertions
var (
	_ ports.CatalogProvider = (*Client)(nil)
	_ ports.PlaylistSink    = (*Client)(nil)
)

// Options tunes retries and the circuit breaker. Zero values select defaults.
type Options struct {
	MaxRetries  int
	BaseBackoff time.Duration
	// BreakerFailures consecutive failed requests open the breaker for
	// BreakerTimeout. Zero disables the breaker.
	BreakerFailures uint32
	BreakerTimeout  time.Duration
	Logger          logrus.FieldLogger
}

// NewClient constructs a new Spotify client.
func NewClient(httpClient *http.Client, baseURL string, opts Options) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	c := &Client{
		httpClient:  httpClient,
		baseURL:     strings.TrimRight(baseURL, "/"),
		maxRetries:  opts.MaxRetries,
		baseBackoff: opts.BaseBackoff,
		log:         log.WithField("adapter", "spotify"),
	}
	if opts.BreakerFailures > 0 {
		c.breaker = gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
			Name:    "spotify",
			Timeout: opts.BreakerTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= opts.BreakerFailures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				c.log.WithFields(logrus.Fields{"from": from.String(), "to": to.String()}).Warn("spotify circuit breaker state changed")
			},
		})
	}
	return c
}

// getJSON issues a GET against path (relative to baseURL) and decodes a 200
// response into out. Other statuses are returned as *StatusError.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("spotify adapter: failed to create request: %w", err)
	}
	return c.do(req, out, http.StatusOK)
}

func (c *Client) do(req *http.Request, out any, okStatuses ...int) error {
	resp, err := c.doRequestWithRetry(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	ok := false
	for _, s := range okStatuses {
		if resp.StatusCode == s {
			ok = true
			break
		}
	}
	if !ok {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Method: req.Method, Path: req.URL.Path, Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("spotify adapter: decode %s: %w", req.URL.Path, err)
	}
	return nil
}

// StatusError reports an unexpected HTTP status from the Spotify API.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("spotify adapter: %s %s: status %d", e.Method, e.Path, e.Code)
	}
	return fmt.Sprintf("spotify adapter: %s %s: status %d: %s", e.Method, e.Path, e.Code, e.Body)
}
