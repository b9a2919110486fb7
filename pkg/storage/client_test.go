package storage_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/napassornsp/restbase-go/pkg/storage"
)

func TestUploadMultipart(t *testing.T) {
	var gotPath, gotFile string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/storage/scans/upload" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		gotPath = r.FormValue("path")
		file, _, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		gotFile = string(data)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"path":      gotPath,
			"publicUrl": "http://cdn.local/scans/" + gotPath,
		})
	}))
	defer srv.Close()

	client, err := storage.New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	res, err := client.From("scans").Upload(context.Background(), "pages/p1.png",
		strings.NewReader("png-bytes"), &storage.UploadOptions{ContentType: "image/png"})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if gotPath != "pages/p1.png" || gotFile != "png-bytes" {
		t.Fatalf("multipart fields mismatch: path=%q file=%q", gotPath, gotFile)
	}
	if res.Path != "pages/p1.png" || res.PublicURL == "" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestDownloadAndNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/storage/scans/pages/p1.png" {
			io.WriteString(w, "png-bytes")
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	client, err := storage.New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	bucket := client.From("scans")
	ctx := context.Background()

	var buf bytes.Buffer
	n, err := bucket.Download(ctx, "pages/p1.png", &buf)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if n != int64(len("png-bytes")) || buf.String() != "png-bytes" {
		t.Fatalf("unexpected download: n=%d body=%q", n, buf.String())
	}

	if _, err := bucket.Download(ctx, "missing.png", io.Discard); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPublicURL(t *testing.T) {
	client, err := storage.New("http://api.local/")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got := client.From("scans").PublicURL("pages/p1.png")
	if got != "http://api.local/storage/scans/pages/p1.png" {
		t.Fatalf("unexpected public URL: %q", got)
	}
}
