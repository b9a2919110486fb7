package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/napassornsp/restbase-go/internal/httpx"
	"github.com/napassornsp/restbase-go/internal/restapi"
)

// DefaultPollInterval is the session poll cadence used unless overridden.
const DefaultPollInterval = 5 * time.Second

// Option configures a Client.
type Option func(*Client)

// WithPollInterval overrides the session poll cadence.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithLogger overrides the logger used for swallowed poll errors.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// Client wraps the auth endpoints. It owns one process-wide cached session
// and one shared poll timer fanning out to all subscribers.
type Client struct {
	transport    *httpx.Client
	logger       *slog.Logger
	pollInterval time.Duration

	mu       sync.Mutex
	session  *Session
	subs     map[string]*Subscription
	pollStop chan struct{}
	closed   bool
}

// New constructs a Client bound to the provided base URL.
func New(baseURL string, opts ...Option) (*Client, error) {
	cl, err := httpx.NewClient(baseURL)
	if err != nil {
		return nil, err
	}
	return NewWithHTTPClient(cl, opts...), nil
}

// NewWithHTTPClient wraps an existing httpx.Client, typically shared with the
// db client so both ride the same cookie jar.
func NewWithHTTPClient(httpClient *httpx.Client, opts ...Option) *Client {
	c := &Client{
		transport:    httpClient,
		logger:       slog.Default(),
		pollInterval: DefaultPollInterval,
		subs:         make(map[string]*Subscription),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Session returns the cached session without touching the network.
func (c *Client) Session() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// GetSession performs one immediate session fetch, updates the cache and
// returns the result. It never notifies subscribers by itself.
func (c *Client) GetSession(ctx context.Context) (*Session, error) {
	sess, err := c.fetchSession(ctx)
	if err != nil {
		return nil, err
	}
	c.setSession(sess)
	return sess, nil
}

// GetUser fetches the current session and returns its user, or nil when
// signed out.
func (c *Client) GetUser(ctx context.Context) (*User, error) {
	sess, err := c.GetSession(ctx)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, nil
	}
	return sess.User, nil
}

// SignInWithPassword issues the sign-in request. On success the cached
// session is updated immediately, without waiting for the next poll tick; on
// failure the cache is left untouched and the error is surfaced.
func (c *Client) SignInWithPassword(ctx context.Context, creds Credentials) (*User, error) {
	user, err := c.postUser(ctx, "auth/signin", creds)
	if err != nil {
		return nil, err
	}
	c.setSession(&Session{User: user})
	return user, nil
}

// SignUp registers a new account and signs it in.
func (c *Client) SignUp(ctx context.Context, creds Credentials) (*User, error) {
	user, err := c.postUser(ctx, "auth/signup", creds)
	if err != nil {
		return nil, err
	}
	c.setSession(&Session{User: user})
	return user, nil
}

// SignOut issues the sign-out request. The cached session is cleared on
// completion whether or not the request succeeded; a failure is still
// reported to the caller.
func (c *Client) SignOut(ctx context.Context) error {
	defer c.setSession(nil)

	resp, err := c.transport.Do(ctx, &httpx.Request{
		Method: http.MethodPost,
		Path:   "auth/signout",
	})
	out := restapi.Normalize(resp, err)
	return out.AsError()
}

// UpdateUser modifies the signed-in account and refreshes the cached session
// on success.
func (c *Client) UpdateUser(ctx context.Context, attrs UserAttributes) (*User, error) {
	user, err := c.postUser(ctx, "auth/update_user", attrs)
	if err != nil {
		return nil, err
	}
	c.setSession(&Session{User: user})
	return user, nil
}

// Close tears the façade down: the poll timer is cancelled and every
// subscription is dropped. Unsubscribing after Close is a no-op.
func (c *Client) Close() {
	c.mu.Lock()
	c.closed = true
	if c.pollStop != nil {
		close(c.pollStop)
		c.pollStop = nil
	}
	subs := c.subs
	c.subs = make(map[string]*Subscription)
	c.mu.Unlock()

	for _, sub := range subs {
		sub.markRemoved()
	}
}

func (c *Client) setSession(sess *Session) {
	c.mu.Lock()
	c.session = sess
	c.mu.Unlock()
}

func (c *Client) fetchSession(ctx context.Context) (*Session, error) {
	resp, err := c.transport.Do(ctx, &httpx.Request{
		Method: http.MethodGet,
		Path:   "auth/session",
	})
	out := restapi.Normalize(resp, err)
	if !out.OK() {
		return nil, out.AsError()
	}

	var payload Session
	if err := out.Decode(&payload); err != nil {
		return nil, fmt.Errorf("auth: decode session: %w", err)
	}
	if payload.User == nil {
		return nil, nil
	}
	return &Session{User: payload.User}, nil
}

func (c *Client) postUser(ctx context.Context, path string, body any) (*User, error) {
	reqBody, contentType, err := httpx.WithJSONBody(body)
	if err != nil {
		return nil, fmt.Errorf("auth: encode request: %w", err)
	}

	resp, err := c.transport.Do(ctx, &httpx.Request{
		Method: http.MethodPost,
		Path:   path,
		Header: http.Header{"Content-Type": []string{contentType}},
		Body:   reqBody,
	})
	out := restapi.Normalize(resp, err)
	if !out.OK() {
		return nil, out.AsError()
	}

	var payload Session
	if err := out.Decode(&payload); err != nil {
		return nil, fmt.Errorf("auth: decode user: %w", err)
	}
	if payload.User == nil {
		return nil, fmt.Errorf("auth: response missing user")
	}
	return payload.User, nil
}
