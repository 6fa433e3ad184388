// Package relay forwards accepted contact submissions to the mail relay.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/formguard/formguard/internal/core"
)

// ContactPath is appended to the relay base URL.
const ContactPath = "/mail/contact"

const maxResponseBytes = 64 << 10

// Client posts contact messages to the relay.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	UserAgent  string
	Clock      func() time.Time
}

// Response is a successful relay reply.
type Response struct {
	StatusCode int
	Message    string
	RequestID  string
	Duration   time.Duration
}

// Error is a non-2xx relay reply.
type Error struct {
	StatusCode int
	Message    string
	// RetryAfter is the relay's Retry-After hint; sessions log it with the failure.
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("relay returned %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("relay returned %d", e.StatusCode)
}

// TransportError means the relay could not be reached or its reply could not be read.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "relay transport failed: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

type replyBody struct {
	Message string
}

// Send posts msg as JSON. It never retries.
func (c *Client) Send(ctx context.Context, msg core.ContactMessage) (*Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode contact message: %w", err)
	}

	requestID := uuid.New().String()
	started := c.now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint(), bytes.NewReader(payload))
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	reply, err := decodeReply(resp.Body)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{
			StatusCode: resp.StatusCode,
			Message:    reply.Message,
			RetryAfter: retryAfter(resp),
		}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Message:    reply.Message,
		RequestID:  requestID,
		Duration:   c.now().Sub(started),
	}, nil
}

// Endpoint returns the full contact URL. An empty base yields a relative URL
// that fails at the transport layer.
func (c *Client) Endpoint() string {
	return strings.TrimSuffix(c.BaseURL, "/") + ContactPath
}

// UserMessage resolves the banner text for a failed Send.
func UserMessage(err error) string {
	var relayErr *Error
	if errors.As(err, &relayErr) {
		if relayErr.Message != "" {
			return relayErr.Message
		}
		return core.ReasonGenericFailure
	}
	return core.ReasonTransportFailed
}

// decodeReply reads an optional {"message": "..."} body. Empty bodies and
// JSON values without a string message decode to an empty reply.
func decodeReply(body io.Reader) (replyBody, error) {
	var reply replyBody
	data, err := io.ReadAll(io.LimitReader(body, maxResponseBytes))
	if err != nil {
		return reply, fmt.Errorf("read relay response: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return reply, nil
	}
	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return reply, fmt.Errorf("decode relay response: %w", err)
	}
	if object, ok := decoded.(map[string]any); ok {
		reply.Message, _ = object["message"].(string)
	}
	return reply, nil
}

// retryAfter reads Retry-After as delta-seconds or an HTTP date. Malformed
// or negative values and dates in the past yield 0.
func retryAfter(resp *http.Response) time.Duration {
	value := strings.TrimSpace(resp.Header.Get("Retry-After"))
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}
	if parsed, err := http.ParseTime(value); err == nil {
		return max(time.Until(parsed), 0)
	}
	return 0
}

func (c *Client) httpClient() *http.Client {
	if c != nil && c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) now() time.Time {
	if c != nil && c.Clock != nil {
		return c.Clock()
	}
	return time.Now().UTC()
}
