// Package storage uploads and retrieves files from named buckets over the
// /storage endpoints. Uploads are multipart form posts carrying the file
// contents plus the target path; the service answers with the stored path and
// its public URL.
package storage
