package storage

import "errors"

// UploadOptions controls upload behaviour.
type UploadOptions struct {
	ContentType string
}

// UploadResult reports where an uploaded file landed.
type UploadResult struct {
	Path      string `json:"path"`
	PublicURL string `json:"publicUrl"`
}

var (
	// ErrNotFound is returned when a stored object is missing.
	ErrNotFound = errors.New("storage: not found")
)
