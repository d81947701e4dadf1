package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/5w1tchy/library-client/internal/api/apperr"
	"github.com/5w1tchy/library-client/internal/models"
)

const (
	DefaultBaseURL = "http://localhost:9192/api/"
	DefaultTimeout = 10 * time.Second

	maxBody = 8 << 20
)

// ErrTooLarge is returned when a response body exceeds the client's read limit.
var ErrTooLarge = errors.New("client: response too large")

// TokenSource yields the current bearer token, or "" when signed out.
type TokenSource interface {
	Token() string
}

type tokenKey struct{}

// WithToken pins the bearer token for requests made with ctx, overriding the
// client's TokenSource. Login uses it before the session is committed.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func() string

func (f TokenFunc) Token() string { return f() }

type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Tokens     TokenSource
	// OnUnauthorized runs after a 401 on a request that carried a token.
	OnUnauthorized func()
	UserAgent      string
}

type Client struct {
	base           *url.URL
	hc             *http.Client
	tokens         TokenSource
	onUnauthorized func()
	userAgent      string
}

func New(opts Options) (*Client, error) {
	raw := strings.TrimSpace(opts.BaseURL)
	if raw == "" {
		raw = DefaultBaseURL
	}
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("client: base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("client: base url %q must be http or https", raw)
	}
	hc := opts.HTTPClient
	if hc == nil {
		to := opts.Timeout
		if to <= 0 {
			to = DefaultTimeout
		}
		hc = &http.Client{Timeout: to}
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = "libctl"
	}
	return &Client{
		base:           base,
		hc:             hc,
		tokens:         opts.Tokens,
		onUnauthorized: opts.OnUnauthorized,
		userAgent:      ua,
	}, nil
}

// BaseURL returns the resolved base URL with a trailing slash.
func (c *Client) BaseURL() string { return c.base.String() }

// Do sends a JSON request and decodes the envelope's result into out (when non-nil).
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("client: encode %s %s: %w", method, path, err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := c.newRequest(ctx, method, path, query, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	u := c.base.ResolveReference(&url.URL{Path: strings.TrimPrefix(path, "/")})
	u.RawQuery = Clean(query).Encode()
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("client: build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if tok, ok := ctx.Value(tokenKey{}).(string); ok {
		if tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	} else if c.tokens != nil {
		if tok := c.tokens.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}
	return req, nil
}

func (c *Client) send(req *http.Request, out any) error {
	res, err := c.hc.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("client: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxBody+1))
	if err != nil {
		return fmt.Errorf("client: read %s %s: %w", req.Method, req.URL.Path, err)
	}
	if len(raw) > maxBody {
		return fmt.Errorf("%w: %s %s over %d bytes", ErrTooLarge, req.Method, req.URL.Path, maxBody)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		re := apperr.Parse(res.StatusCode, raw)
		re.Method = req.Method
		re.Path = req.URL.Path
		re.RequestID = req.Header.Get("X-Request-ID")
		if res.StatusCode == http.StatusUnauthorized && req.Header.Get("Authorization") != "" && c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return re
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	var env models.Envelope[json.RawMessage]
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("client: decode %s %s: %w", req.Method, req.URL.Path, err)
	}
	if len(env.Result) == 0 || string(env.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("client: decode result %s %s: %w", req.Method, req.URL.Path, err)
	}
	return nil
}

// Clean drops keys whose values are all blank, so unset optional filters
// never reach the query string.
func Clean(q url.Values) url.Values {
	out := url.Values{}
	for k, vs := range q {
		for _, v := range vs {
			if strings.TrimSpace(v) != "" {
				out.Add(k, v)
			}
		}
	}
	return out
}

// IsCanceled reports whether err came from the caller abandoning the request.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
