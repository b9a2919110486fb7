package db

import (
	"encoding/json"
	"errors"
)

// Method identifies the kind of request a chain resolves to. A chain defaults
// to MethodRead until Insert, Update or Delete is called.
type Method int

const (
	MethodRead Method = iota
	MethodCreate
	MethodUpdate
	MethodDelete
)

// OrderSpec is the single sort key a chain may carry.
type OrderSpec struct {
	Column    string
	Ascending bool
}

// Bounds is an inclusive pagination window.
type Bounds struct {
	From int
	To   int
}

// Request is the fully serialized form of one chain, handed to a Backend at
// terminal time. Filters map column names to their string-converted equality
// values; last write per column wins.
type Request struct {
	Collection string
	Method     Method
	Filters    map[string]string
	Order      *OrderSpec
	Bounds     *Bounds
	Payload    any
}

// Result is the normalized outcome of a terminal call: exactly one of
// Data/Error is set on success/failure. Both may be unset for an
// empty-but-successful response.
type Result struct {
	Data  json.RawMessage `json:"data"`
	Error any             `json:"error"`
}

// Decode unmarshals the result's data into out. Empty data decodes as null.
func (r Result) Decode(out any) error {
	payload := r.Data
	if len(payload) == 0 {
		payload = []byte("null")
	}
	return json.Unmarshal(payload, out)
}

// OrderOptions controls the direction of an Order call. A nil Ascending
// defaults to ascending, mirroring the upstream client contract.
type OrderOptions struct {
	Ascending *bool
}

// Bool returns a pointer to v, for use in OrderOptions literals.
func Bool(v bool) *bool {
	return &v
}

// ErrNilClient is returned when a builder is created from a zero Client.
var ErrNilClient = errors.New("db: client is nil")
