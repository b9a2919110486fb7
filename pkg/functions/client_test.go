package functions_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/napassornsp/restbase-go/pkg/functions"
)

func TestInvoke(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/functions/extract_text" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"text": "scanned page"})
	}))
	defer srv.Close()

	client, err := functions.New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	res := client.Invoke(context.Background(), "extract_text", map[string]string{"path": "scans/p1.png"})
	if res.Error != nil {
		t.Fatalf("unexpected error: %v", res.Error)
	}
	var payload struct {
		Text string `json:"text"`
	}
	if err := res.Decode(&payload); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if payload.Text != "scanned page" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}
