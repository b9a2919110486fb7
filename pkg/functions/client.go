// Package functions invokes deployed edge functions via POST
// /functions/{name}, resolving to the same data/error result shape the query
// builder uses.
package functions

import (
	"context"
	"net/http"
	"net/url"

	"github.com/napassornsp/restbase-go/internal/httpx"
	"github.com/napassornsp/restbase-go/internal/restapi"
	"github.com/napassornsp/restbase-go/pkg/db"
)

// Result mirrors the builder's normalized result shape.
type Result = db.Result

// Client provides access to the /functions endpoints.
type Client struct {
	transport *httpx.Client
}

// New constructs a Client bound to the provided base URL.
func New(baseURL string, opts ...httpx.Option) (*Client, error) {
	cl, err := httpx.NewClient(baseURL, opts...)
	if err != nil {
		return nil, err
	}
	return NewWithHTTPClient(cl), nil
}

// NewWithHTTPClient wraps an existing httpx.Client.
func NewWithHTTPClient(httpClient *httpx.Client) *Client {
	return &Client{transport: httpClient}
}

// Invoke calls the named function with a JSON-encoded body.
func (c *Client) Invoke(ctx context.Context, name string, payload any) Result {
	if c == nil || c.transport == nil {
		return Result{Error: "functions: client is nil"}
	}

	body, contentType, err := httpx.WithJSONBody(payload)
	if err != nil {
		return Result{Error: err.Error()}
	}

	resp, err := c.transport.Do(ctx, &httpx.Request{
		Method: http.MethodPost,
		Path:   "functions/" + url.PathEscape(name),
		Header: http.Header{"Content-Type": []string{contentType}},
		Body:   body,
	})
	out := restapi.Normalize(resp, err)
	return Result{Data: out.Data, Error: out.ErrValue()}
}
