// Package rpc invokes named server-side procedures via POST /rpc/{name},
// resolving to the same data/error result shape the query builder uses.
package rpc

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

// Client provides access to the /rpc endpoints.
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

// Call invokes the named procedure with a JSON-encoded params body.
func (c *Client) Call(ctx context.Context, name string, params any) Result {
	if c == nil || c.transport == nil {
		return Result{Error: "rpc: client is nil"}
	}

	body, contentType, err := httpx.WithJSONBody(params)
	if err != nil {
		return Result{Error: err.Error()}
	}

	resp, err := c.transport.Do(ctx, &httpx.Request{
		Method: http.MethodPost,
		Path:   "rpc/" + url.PathEscape(name),
		Header: http.Header{"Content-Type": []string{contentType}},
		Body:   body,
	})
	out := restapi.Normalize(resp, err)
	return Result{Data: out.Data, Error: out.ErrValue()}
}
