package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"
)

const defaultTimeout = 15 * time.Second

// ForwardedForHeader carries the address of the browser a request is made
// on behalf of.
const ForwardedForHeader = "X-Forwarded-For"

type ctxKey struct{}

// WithClientIP returns a context whose API calls are attributed to ip.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ctxKey{}, ip)
}

func clientIP(ctx context.Context) string {
	ip, _ := ctx.Value(ctxKey{}).(string)
	return ip
}

// Body is a decoded JSON object response.
type Body map[string]any

// String returns the string at key, or "".
func (b Body) String(key string) string {
	s, _ := b[key].(string)
	return s
}

// Int returns the number at key truncated to an int, or 0.
func (b Body) Int(key string) int {
	switch v := b[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

// Result is the outcome of one API call. Data is never nil.
type Result struct {
	OK     bool
	Status int
	Data   Body
}

// Client posts JSON to the auth API. Cookies persist across calls, so a
// login session carries over to later requests.
type Client struct {
	baseURL   string
	http      *http.Client
	userAgent string
}

type Option func(*Client)

// WithHTTPClient sends requests with a copy of hc, so clients can share one
// transport. A copy without a jar keeps the Client's own jar.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		cp := *hc
		if cp.Jar == nil {
			cp.Jar = c.http.Jar
		}
		c.http = &cp
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// New creates a Client for the API at baseURL.
func New(baseURL string, opts ...Option) *Client {
	jar, _ := cookiejar.New(nil)
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{Timeout: defaultTimeout, Jar: jar},
		userAgent: "authcode-client",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Post sends payload as JSON to path. Any HTTP status yields a Result; an
// unparsable body yields empty Data. Transport failures are returned.
// A client IP set with WithClientIP is sent in ForwardedForHeader.
func (c *Client) Post(ctx context.Context, path string, payload any) (Result, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if ip := clientIP(ctx); ip != "" {
		req.Header.Set(ForwardedForHeader, ip)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()

	return Result{
		OK:     resp.StatusCode >= 200 && resp.StatusCode <= 299,
		Status: resp.StatusCode,
		Data:   decodeBody(resp.Body),
	}, nil
}

func decodeBody(r io.Reader) Body {
	var data Body
	if err := json.NewDecoder(r).Decode(&data); err != nil || data == nil {
		return Body{}
	}
	return data
}
