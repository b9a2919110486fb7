package restbase_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/napassornsp/restbase-go/pkg/restbase"
)

func TestNewFromEnvHTTPMode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	t.Setenv("RESTBASE_RUNTIME_MODE", "http")
	t.Setenv("RESTBASE_API_URL", srv.URL)

	rt, err := restbase.NewFromEnv()
	if err != nil {
		t.Fatalf("NewFromEnv: %v", err)
	}
	defer rt.Close()

	if rt.Mode != restbase.ModeHTTP {
		t.Fatalf("expected http mode, got %q", rt.Mode)
	}
	res := rt.DB.From("chats").Exec(context.Background())
	if res.Error != nil {
		t.Fatalf("Exec: %v", res.Error)
	}
}

func TestNewFromEnvHTTPModeRequiresURL(t *testing.T) {
	t.Setenv("RESTBASE_RUNTIME_MODE", "http")
	t.Setenv("RESTBASE_API_URL", "")

	if _, err := restbase.NewFromEnv(); err == nil {
		t.Fatal("expected error for http mode without URL")
	}
}

func TestNewFromEnvMockAutoFallback(t *testing.T) {
	t.Setenv("RESTBASE_RUNTIME_MODE", "")
	t.Setenv("RESTBASE_API_URL", "")

	rt, err := restbase.NewFromEnv()
	if err != nil {
		t.Fatalf("NewFromEnv: %v", err)
	}
	defer rt.Close()

	if rt.Mode != restbase.ModeMock {
		t.Fatalf("expected mock mode, got %q", rt.Mode)
	}

	ctx := context.Background()
	res := rt.DB.From("chats").Insert(map[string]any{"title": "hello"}).Single(ctx)
	if res.Error != nil {
		t.Fatalf("Insert: %v", res.Error)
	}
	var row map[string]any
	if err := res.Decode(&row); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if row["title"] != "hello" || row["id"] == nil {
		t.Fatalf("unexpected row: %+v", row)
	}

	ping := rt.RPC.Call(ctx, "ping", nil)
	if ping.Error != nil {
		t.Fatalf("ping: %v", ping.Error)
	}
}

func TestNewFromEnvMockSeed(t *testing.T) {
	seed := `{"chats":[{"id":"c1","title":"seeded"}]}`
	path := filepath.Join(t.TempDir(), "seed.json")
	if err := os.WriteFile(path, []byte(seed), 0o600); err != nil {
		t.Fatalf("write seed file: %v", err)
	}

	t.Setenv("RESTBASE_RUNTIME_MODE", "mock")
	t.Setenv("RESTBASE_MOCK_SEED", path)

	rt, err := restbase.NewFromEnv()
	if err != nil {
		t.Fatalf("NewFromEnv: %v", err)
	}
	defer rt.Close()

	res := rt.DB.From("chats").Eq("id", "c1").Single(context.Background())
	if res.Error != nil {
		t.Fatalf("select: %v", res.Error)
	}
	var row map[string]any
	if err := res.Decode(&row); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if row["title"] != "seeded" {
		t.Fatalf("unexpected seeded row: %+v", row)
	}
}

func TestNewFromEnvRejectsUnknownMode(t *testing.T) {
	t.Setenv("RESTBASE_RUNTIME_MODE", "bogus")

	if _, err := restbase.NewFromEnv(); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}
