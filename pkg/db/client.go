package db

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/napassornsp/restbase-go/internal/httpx"
	"github.com/napassornsp/restbase-go/internal/restapi"
)

// Client provides access to the /db resource API.
type Client struct {
	backend Backend
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
	return &Client{backend: &httpBackend{client: httpClient}}
}

// NewWithBackend allows callers to supply a custom backend (e.g., mocks).
func NewWithBackend(b Backend) *Client {
	return &Client{backend: b}
}

// From starts a new chain against the named collection. Each builder owns its
// request state exclusively and is consumed by exactly one logical request.
func (c *Client) From(collection string) *Builder {
	var backend Backend
	if c != nil {
		backend = c.backend
	}
	return &Builder{
		backend: backend,
		req: Request{
			Collection: collection,
			Method:     MethodRead,
			Filters:    make(map[string]string),
		},
	}
}

// Backend executes a serialized chain. The HTTP backend is the production
// implementation; pkg/db/mock supplies an in-memory one.
type Backend interface {
	Execute(ctx context.Context, req *Request) Result
}

type httpBackend struct {
	client *httpx.Client
}

var methodNames = map[Method]string{
	MethodRead:   http.MethodGet,
	MethodCreate: http.MethodPost,
	MethodUpdate: http.MethodPatch,
	MethodDelete: http.MethodDelete,
}

func (b *httpBackend) Execute(ctx context.Context, req *Request) Result {
	if b == nil || b.client == nil {
		return Result{Error: ErrNilClient.Error()}
	}

	httpReq := &httpx.Request{
		Method: methodNames[req.Method],
		Path:   "db/" + url.PathEscape(req.Collection),
		Query:  encodeQuery(req),
	}

	if req.Method == MethodCreate || req.Method == MethodUpdate {
		body, contentType, err := httpx.WithJSONBody(req.Payload)
		if err != nil {
			return Result{Error: err.Error()}
		}
		httpReq.Body = body
		httpReq.Header = http.Header{"Content-Type": []string{contentType}}
	}

	resp, err := b.client.Do(ctx, httpReq)
	out := restapi.Normalize(resp, err)
	return Result{Data: out.Data, Error: out.ErrValue()}
}

// encodeQuery serializes filters, order and pagination into the wire query:
// one eq.<col>=<val> parameter per filter, order=<col>.<asc|desc>, and an
// inclusive from/to pair.
func encodeQuery(req *Request) url.Values {
	q := url.Values{}
	for col, val := range req.Filters {
		q.Set("eq."+col, val)
	}
	if req.Order != nil {
		dir := "asc"
		if !req.Order.Ascending {
			dir = "desc"
		}
		q.Set("order", req.Order.Column+"."+dir)
	}
	if req.Bounds != nil {
		q.Set("from", strconv.Itoa(req.Bounds.From))
		q.Set("to", strconv.Itoa(req.Bounds.To))
	}
	return q
}
