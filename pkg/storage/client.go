package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/napassornsp/restbase-go/internal/httpx"
	"github.com/napassornsp/restbase-go/internal/restapi"
)

// Client provides access to the /storage bucket API.
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

// From scopes operations to the named bucket.
func (c *Client) From(bucket string) *Bucket {
	return &Bucket{client: c, name: bucket}
}

// Bucket is a named storage target.
type Bucket struct {
	client *Client
	name   string
}

// Upload posts the file contents as a multipart body with "file" and "path"
// fields and returns the stored path plus its public URL.
func (b *Bucket) Upload(ctx context.Context, path string, data io.Reader, opts *UploadOptions) (*UploadResult, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage: path is required")
	}
	if b == nil || b.client == nil || b.client.transport == nil {
		return nil, fmt.Errorf("storage: client is nil")
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := createFilePart(writer, filepath.Base(path), opts)
	if err != nil {
		return nil, fmt.Errorf("storage: build multipart body: %w", err)
	}
	if _, err := io.Copy(part, data); err != nil {
		return nil, fmt.Errorf("storage: read upload payload: %w", err)
	}
	if err := writer.WriteField("path", path); err != nil {
		return nil, fmt.Errorf("storage: build multipart body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("storage: build multipart body: %w", err)
	}

	resp, err := b.client.transport.Do(ctx, &httpx.Request{
		Method: http.MethodPost,
		Path:   "storage/" + url.PathEscape(b.name) + "/upload",
		Header: http.Header{"Content-Type": []string{writer.FormDataContentType()}},
		Body:   body,
	})
	out := restapi.Normalize(resp, err)
	if !out.OK() {
		return nil, out.AsError()
	}

	var result UploadResult
	if err := out.Decode(&result); err != nil {
		return nil, fmt.Errorf("storage: decode upload response: %w", err)
	}
	if strings.TrimSpace(result.Path) == "" {
		return nil, fmt.Errorf("storage: missing path in response")
	}
	return &result, nil
}

// Download retrieves a stored object and streams its bytes into w.
func (b *Bucket) Download(ctx context.Context, path string, w io.Writer) (int64, error) {
	if strings.TrimSpace(path) == "" {
		return 0, fmt.Errorf("storage: path is required")
	}
	if b == nil || b.client == nil || b.client.transport == nil {
		return 0, fmt.Errorf("storage: client is nil")
	}

	resp, err := b.client.transport.Do(ctx, &httpx.Request{
		Method: http.MethodGet,
		Path:   b.objectPath(path),
	})
	if err != nil {
		if httpErr, ok := err.(*httpx.HTTPError); ok && httpErr.StatusCode == http.StatusNotFound {
			return 0, ErrNotFound
		}
		return 0, err
	}

	data, err := httpx.ReadAllAndClose(resp.Body)
	if err != nil {
		return 0, err
	}
	n, err := w.Write(data)
	return int64(n), err
}

// PublicURL resolves the public URL of a stored object without a request.
func (b *Bucket) PublicURL(path string) string {
	return strings.TrimRight(b.client.transport.BaseURL(), "/") + b.objectPath(path)
}

func (b *Bucket) objectPath(path string) string {
	return "/storage/" + url.PathEscape(b.name) + "/" + strings.TrimPrefix(path, "/")
}

func createFilePart(writer *multipart.Writer, filename string, opts *UploadOptions) (io.Writer, error) {
	if opts == nil || opts.ContentType == "" {
		return writer.CreateFormFile("file", filename)
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	header.Set("Content-Type", opts.ContentType)
	return writer.CreatePart(header)
}
