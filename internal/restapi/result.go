package restapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/napassornsp/restbase-go/internal/httpx"
)

// Outcome is the normalized shape every client call resolves to: exactly one
// of Data/Err is set on success/failure. Both may be unset for an
// empty-but-successful response.
type Outcome struct {
	Data json.RawMessage
	Err  any
}

// OK reports whether the outcome carries no error.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Normalize converts a transport result into an Outcome. Expected failure
// modes (offline, non-2xx) become error values, never panics or raw errors
// leaking past the SDK boundary:
//
//   - transport failure: Err is the underlying error.
//   - non-2xx response: Err is the parsed body's "error" field when present,
//     else the whole decoded body, else the raw body text, else the status.
//   - 2xx with a JSON content type: Data is the body as raw JSON.
//   - 2xx otherwise: Data is the body text encoded as a JSON string.
func Normalize(resp *http.Response, err error) Outcome {
	if err != nil {
		return Outcome{Err: errorValue(err)}
	}
	if resp == nil {
		return Outcome{}
	}

	body, readErr := httpx.ReadAllAndClose(resp.Body)
	if readErr != nil {
		return Outcome{Err: readErr}
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return Outcome{}
	}

	if httpx.IsJSON(resp.Header.Get("Content-Type")) {
		return Outcome{Data: append(json.RawMessage(nil), trimmed...)}
	}

	quoted, qErr := json.Marshal(string(body))
	if qErr != nil {
		return Outcome{Err: qErr}
	}
	return Outcome{Data: quoted}
}

// Decode unmarshals the outcome's data into out. Empty data decodes as null.
func (o Outcome) Decode(out any) error {
	payload := o.Data
	if len(payload) == 0 {
		payload = []byte("null")
	}
	return json.Unmarshal(payload, out)
}

// Error wraps a normalized API error value behind the error interface so
// one-shot operations can surface it to callers.
type Error struct {
	Status int
	Value  any
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprint(e.Value)
}

// AsError converts an outcome's error side into a Go error, or nil.
func (o Outcome) AsError() error {
	switch v := o.Err.(type) {
	case nil:
		return nil
	case error:
		return v
	default:
		return &Error{Value: v}
	}
}

// errorValue extracts the most specific error representation available.
func errorValue(err error) any {
	httpErr, ok := err.(*httpx.HTTPError)
	if !ok {
		return err
	}

	if obj, ok := httpErr.JSON.(map[string]any); ok {
		if v, present := obj["error"]; present && v != nil {
			return wrapAPIError(httpErr.StatusCode, v)
		}
	}
	if httpErr.JSON != nil {
		return wrapAPIError(httpErr.StatusCode, httpErr.JSON)
	}
	if len(bytes.TrimSpace(httpErr.Body)) > 0 {
		return wrapAPIError(httpErr.StatusCode, string(httpErr.Body))
	}
	return wrapAPIError(httpErr.StatusCode, httpErr.Status)
}

func wrapAPIError(status int, value any) *Error {
	return &Error{Status: status, Value: value}
}

// ErrValue unwraps the raw error value carried by an outcome, flattening the
// Error wrapper so result consumers see the upstream value directly.
func (o Outcome) ErrValue() any {
	if apiErr, ok := o.Err.(*Error); ok {
		return apiErr.Value
	}
	if err, ok := o.Err.(error); ok {
		return err.Error()
	}
	return o.Err
}
