// Package transport posts submission payloads to the answers endpoint.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/goliatone/go-formsync/pkg/model"
)

const (
	// HeaderRequestID carries a per-send identifier.
	HeaderRequestID = "X-Request-ID"
	// HeaderSchema advertises the answers wire format version.
	HeaderSchema = "X-Answers-Schema"

	defaultTimeout = 15 * time.Second
	maxErrorBody   = 64 << 10
)

// Mode distinguishes draft saves from the final submission.
type Mode int

const (
	Draft Mode = iota
	Final
)

func (m Mode) String() string {
	if m == Final {
		return "final"
	}
	return "draft"
}

// ModeFor maps the finalize flag onto a Mode.
func ModeFor(finalize bool) Mode {
	if finalize {
		return Final
	}
	return Draft
}

// Result describes a successful send.
type Result struct {
	Status    int
	Final     bool
	RequestID string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client. Callers relying on the CSRF
// double-submit cookie must configure a cookie jar themselves.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithBaseURL resolves relative endpoints against base.
func WithBaseURL(base *url.URL) Option {
	return func(c *Client) {
		c.base = base
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTimeout sets the timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// Client sends answers over HTTP. It is safe for concurrent use.
type Client struct {
	http      *http.Client
	base      *url.URL
	logger    *zap.Logger
	timeout   time.Duration
	sanitizer *bluemonday.Policy
}

// New constructs a Client. The default HTTP client keeps cookies so the
// token cookie issued with the page travels with the answers.
func New(options ...Option) *Client {
	c := &Client{
		logger:    zap.NewNop(),
		timeout:   defaultTimeout,
		sanitizer: bluemonday.StrictPolicy(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: c.timeout}
		jar, err := cookiejar.New(nil)
		if err != nil {
			c.logger.Warn("cookie jar unavailable, token cookies will not be sent", zap.Error(err))
		} else {
			c.http.Jar = jar
		}
	}
	return c
}

// SetBaseURL replaces the base used for relative endpoints.
func (c *Client) SetBaseURL(base *url.URL) {
	c.base = base
}

// Send posts payload to endpoint.
func (c *Client) Send(ctx context.Context, endpoint string, payload model.SubmissionPayload, mode Mode) (Result, error) {
	target, err := BuildURL(c.base, endpoint, mode)
	if err != nil {
		return Result{}, err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, fmt.Errorf("transport: encode payload: %w", err)
	}

	requestID := uuid.NewString()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("transport: request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(HeaderRequestID, requestID)
	req.Header.Set(HeaderSchema, strconv.Itoa(model.SchemaVersion))

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("answers request failed",
			zap.String("request_id", requestID),
			zap.String("mode", mode.String()),
			zap.Error(err))
		return Result{}, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug("answers sent",
		zap.String("request_id", requestID),
		zap.String("mode", mode.String()),
		zap.Int("answers", len(payload.Answers)),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return Result{}, &ServerError{
			Status:    resp.StatusCode,
			Detail:    c.detail(raw),
			RequestID: requestID,
		}
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))

	return Result{
		Status:    resp.StatusCode,
		Final:     mode == Final,
		RequestID: requestID,
	}, nil
}

// FetchPage downloads a rendered form page through the same cookie jar used
// for sends. It returns the body and the final URL after redirects.
func (c *Client) FetchPage(ctx context.Context, pageURL string) ([]byte, *url.URL, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("transport: request: %w", err)
	}
	req.Header.Set("Accept", "text/html")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, &NetworkError{Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, nil, &ServerError{Status: resp.StatusCode, Detail: c.detail(raw)}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, &NetworkError{Err: err}
	}
	return body, resp.Request.URL, nil
}

// BuildURL resolves endpoint against base and appends the mode flag
// (final=true or draft=true) to its query.
func BuildURL(base *url.URL, endpoint string, mode Mode) (string, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return "", ErrNoEndpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("transport: parse endpoint: %w", err)
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if !u.IsAbs() {
		return "", fmt.Errorf("transport: endpoint %q is relative and no base URL is set", endpoint)
	}
	q := u.Query()
	switch mode {
	case Final:
		q.Set("final", "true")
	default:
		q.Set("draft", "true")
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}

// detail extracts the `detail` message from an error body. Validation
// errors shaped as a list of {msg} objects are joined.
func (c *Client) detail(raw []byte) string {
	var body errorBody
	if err := json.Unmarshal(raw, &body); err != nil || len(body.Detail) == 0 {
		return ""
	}

	var text string
	if err := json.Unmarshal(body.Detail, &text); err != nil {
		var items []struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(body.Detail, &items); err != nil {
			return ""
		}
		parts := make([]string, 0, len(items))
		for _, item := range items {
			if msg := strings.TrimSpace(item.Msg); msg != "" {
				parts = append(parts, msg)
			}
		}
		text = strings.Join(parts, "; ")
	}

	return strings.TrimSpace(html.UnescapeString(c.sanitizer.Sanitize(text)))
}
