// Package gateway is the single path by which the marketplace client reaches
// the backend. It attaches the current credential, shapes every endpoint's
// request and response, and translates failures into a small set of error
// kinds carrying user-facing messages.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// DefaultTimeout bounds a request when the caller supplies no client.
	DefaultTimeout = 30 * time.Second

	// MaxResponseSize caps JSON response bodies.
	MaxResponseSize = 10 << 20
	// MaxDownloadSize caps file downloads.
	MaxDownloadSize = 100 << 20
)

// Credentials supplies the bearer token for each request and is told when
// the backend rejected it.
type Credentials interface {
	// Token returns the current credential, or "" when logged out.
	Token() string
	// Invalidate drops the session if token is still the current credential.
	Invalidate(token string)
}

// Client issues every backend call.
type Client struct {
	baseURL    string
	httpClient *http.Client
	creds      Credentials
	log        *zap.Logger
}

// NewClient returns a Client for the API rooted at baseURL
// (e.g. http://localhost:5000/api).
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		log:        zap.NewNop(),
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	c.httpClient = h
	return c
}

// WithLogger sets the logger.
func (c *Client) WithLogger(log *zap.Logger) *Client {
	if log != nil {
		c.log = log
	}
	return c
}

// WithCredentials sets the credential source. It must be called before the
// first request.
func (c *Client) WithCredentials(creds Credentials) *Client {
	c.creds = creds
	return c
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// request describes one backend call.
type request struct {
	method string
	path   string

	// jsonBody is sent as application/json when non-nil.
	jsonBody any
	// rawBody and contentType are used for multipart uploads.
	rawBody     io.Reader
	contentType string

	// public marks auth endpoints: a 401 there means bad input, not a stale
	// session, and must not invalidate anything.
	public bool
	// requireAuth refuses to send the request without a credential.
	requireAuth bool

	// fallback is the message used when the backend gives no detail.
	fallback string
	// statusMessages override the message for specific statuses.
	statusMessages map[int]string
	// limit caps the response body; zero means MaxResponseSize.
	limit int64
}

// response is a successful reply.
type response struct {
	status int
	header http.Header
	body   []byte
}

// do sends req and returns the body of a 2xx reply, or an *APIError.
func (c *Client) do(ctx context.Context, req request) (*response, error) {
	fallback := req.fallback
	if fallback == "" {
		fallback = msgRequestFailed
	}

	var token string
	if c.creds != nil {
		token = c.creds.Token()
	}
	if req.requireAuth && token == "" {
		return nil, &APIError{Message: msgNotAuthenticated, Kind: ErrNotAuthenticated}
	}

	var body io.Reader
	contentType := req.contentType
	switch {
	case req.jsonBody != nil:
		b, err := json.Marshal(req.jsonBody)
		if err != nil {
			return nil, &APIError{Message: fallback, Kind: ErrRequestFailed, Cause: fmt.Errorf("encode request: %w", err)}
		}
		body = bytes.NewReader(b)
		contentType = "application/json"
	case req.rawBody != nil:
		body = req.rawBody
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, body)
	if err != nil {
		return nil, &APIError{Message: fallback, Kind: ErrRequestFailed, Cause: err}
	}
	requestID := uuid.NewString()
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	log := c.log.With(
		zap.String("method", req.method),
		zap.String("path", req.path),
		zap.String("request_id", requestID),
	)
	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		log.Warn("backend request failed", zap.Error(err))
		return nil, &APIError{Message: fallback, Kind: ErrRequestFailed, Cause: err}
	}
	defer resp.Body.Close()

	limit := req.limit
	if limit == 0 {
		limit = MaxResponseSize
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err == nil && int64(len(data)) > limit {
		err = fmt.Errorf("response larger than %d bytes", limit)
	}
	log.Debug("backend request",
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("bytes", len(data)),
	)
	if err != nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil, &APIError{Status: resp.StatusCode, Message: fallback, Kind: ErrRequestFailed, Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp.StatusCode == http.StatusUnauthorized && !req.public && c.creds != nil && token != "" {
			log.Info("backend rejected credential, invalidating session")
			c.creds.Invalidate(token)
		}
		msg := req.statusMessages[resp.StatusCode]
		if msg == "" {
			msg = errorDetail(data)
		}
		if msg == "" {
			msg = fallback
		}
		return nil, &APIError{Status: resp.StatusCode, Message: msg, Kind: kindFor(resp.StatusCode)}
	}

	return &response{status: resp.StatusCode, header: resp.Header, body: data}, nil
}

// doJSON sends req and decodes a 2xx JSON reply into out.
func (c *Client) doJSON(ctx context.Context, req request, out any) error {
	resp, err := c.do(ctx, req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		fallback := req.fallback
		if fallback == "" {
			fallback = msgRequestFailed
		}
		return &APIError{Status: resp.status, Message: fallback, Kind: ErrRequestFailed, Cause: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// errorDetail extracts a message from a structured error body. It
// understands {"detail": "..."}, FastAPI's {"detail": [{"msg": "..."}]},
// {"message": "..."} and {"error": "..."}; anything else yields "".
func errorDetail(body []byte) string {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	for _, key := range []string{"detail", "message", "error"} {
		raw, ok := payload[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && strings.TrimSpace(s) != "" {
			return s
		}
		var items []struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(raw, &items); err == nil {
			msgs := make([]string, 0, len(items))
			for _, it := range items {
				if it.Msg != "" {
					msgs = append(msgs, it.Msg)
				}
			}
			if len(msgs) > 0 {
				return strings.Join(msgs, "; ")
			}
		}
		var nested struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(raw, &nested); err == nil && nested.Message != "" {
			return nested.Message
		}
	}
	return ""
}

// IsUnauthorized reports whether err means the user has to log in again.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrNotAuthenticated)
}
