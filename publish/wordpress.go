// Package publish posts enriched sermons to a WordPress site through the
// REST API.
package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/poiesic/homily/core"
)

var (
	// ErrSiteURLRequired is returned when no WordPress site is configured.
	ErrSiteURLRequired = errors.New("wordpress site url required")

	// ErrCredentialsRequired is returned when the username or application
	// password is missing.
	ErrCredentialsRequired = errors.New("wordpress credentials required")

	// ErrMissingPostID is returned when WordPress accepts a post but the
	// response carries no ID.
	ErrMissingPostID = errors.New("wordpress response has no post id")
)

// APIError is a non-2xx response from the WordPress REST API.
type APIError struct {
	Endpoint   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("WordPress API error (%d) at %s: %s", e.StatusCode, e.Endpoint, e.Message)
}

// Temporary reports whether the request may succeed if repeated.
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Config holds WordPress connection settings.
type Config struct {
	SiteURL     string
	Username    string
	AppPassword string

	// Status of created posts: "publish" or "draft".
	Status     string
	Categories []int
	Author     int

	Timeout     time.Duration
	MaxAttempts uint
	RetryDelay  time.Duration
}

const (
	DefaultStatus      = "publish"
	DefaultTimeout     = 120 * time.Second
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = 2 * time.Second
)

// Client creates and updates sermon posts.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient validates cfg, applies defaults and returns a Client.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	cfg.SiteURL = strings.TrimRight(cfg.SiteURL, "/")
	if cfg.SiteURL == "" {
		return nil, ErrSiteURLRequired
	}
	if cfg.Username == "" || cfg.AppPassword == "" {
		return nil, ErrCredentialsRequired
	}
	if cfg.Status == "" {
		cfg.Status = DefaultStatus
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}

	c := &Client{cfg: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: cfg.Timeout}
	}
	c.logger = c.logger.With("component", "wordpress")
	return c, nil
}

type postRequest struct {
	Title      string `json:"title"`
	Content    string `json:"content"`
	Excerpt    string `json:"excerpt"`
	Status     string `json:"status"`
	Categories []int  `json:"categories,omitempty"`
	Author     int    `json:"author,omitempty"`
}

type postResponse struct {
	ID   int64  `json:"id"`
	Link string `json:"link"`
}

// Publish creates a post for item, or updates the existing one when the
// item already records a post ID.
func (c *Client) Publish(ctx context.Context, item *core.Item) (core.Publication, error) {
	content, err := renderContent(item)
	if err != nil {
		return core.Publication{}, fmt.Errorf("render post: %w", err)
	}
	body, err := json.Marshal(postRequest{
		Title:      item.Title,
		Content:    content,
		Excerpt:    excerpt(item),
		Status:     c.cfg.Status,
		Categories: c.cfg.Categories,
		Author:     c.cfg.Author,
	})
	if err != nil {
		return core.Publication{}, err
	}

	endpoint := c.cfg.SiteURL + "/wp-json/wp/v2/posts"
	if id := item.Publication.PostID; id != 0 {
		endpoint = fmt.Sprintf("%s/%d", endpoint, id)
	}

	resp, err := retry.DoWithData(
		func() (*postResponse, error) { return c.post(ctx, endpoint, body) },
		retry.Context(ctx),
		retry.Attempts(c.cfg.MaxAttempts),
		retry.Delay(c.cfg.RetryDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Warn("retrying post", "item", item.ID, "attempt", n+1, "err", err)
		}),
	)
	if err != nil {
		return core.Publication{}, err
	}
	if resp.ID == 0 {
		return core.Publication{}, ErrMissingPostID
	}

	c.logger.Info("post published", "item", item.ID, "post_id", resp.ID, "updated", item.Publication.PostID != 0)
	return core.Publication{PostID: resp.ID, PostURL: resp.Link}, nil
}

func (c *Client) post(ctx context.Context, endpoint string, body []byte) (*postResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, retry.Unrecoverable(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.cfg.Username, c.cfg.AppPassword)

	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if err != nil {
		return nil, err
	}
	if res.StatusCode/100 != 2 {
		apiErr := &APIError{Endpoint: endpoint, StatusCode: res.StatusCode, Message: errorMessage(data)}
		if !apiErr.Temporary() {
			return nil, retry.Unrecoverable(apiErr)
		}
		return nil, apiErr
	}

	var out postResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, retry.Unrecoverable(fmt.Errorf("decode wordpress response: %w", err))
	}
	return &out, nil
}

// errorMessage extracts the "message" field of a WordPress error body,
// falling back to the raw body.
func errorMessage(data []byte) string {
	var body struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &body) == nil && body.Message != "" {
		return body.Message
	}
	msg := strings.TrimSpace(string(data))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}
