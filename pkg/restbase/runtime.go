package restbase

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"

	"github.com/napassornsp/restbase-go/internal/httpx"
	"github.com/napassornsp/restbase-go/internal/sandbox"
	"github.com/napassornsp/restbase-go/pkg/auth"
	"github.com/napassornsp/restbase-go/pkg/db"
	"github.com/napassornsp/restbase-go/pkg/functions"
	"github.com/napassornsp/restbase-go/pkg/rpc"
	"github.com/napassornsp/restbase-go/pkg/storage"
)

const (
	envMode     = "RESTBASE_RUNTIME_MODE"
	envAPIURL   = "RESTBASE_API_URL"
	envMockSeed = "RESTBASE_MOCK_SEED"

	// ModeHTTP and ModeMock are the resolved runtime modes.
	ModeHTTP = "http"
	ModeMock = "mock"

	modeAuto = "auto"
)

// Runtime bundles one client per API surface, all sharing a single transport
// and cookie jar so a sign-in on Auth authenticates DB and Storage calls too.
type Runtime struct {
	DB        *db.Client
	Auth      *auth.Client
	RPC       *rpc.Client
	Functions *functions.Client
	Storage   *storage.Client

	// Mode is the resolved runtime mode, ModeHTTP or ModeMock.
	Mode string

	sandboxSrv *http.Server
}

// NewFromEnv builds a Runtime from RESTBASE_RUNTIME_MODE (auto, http or mock)
// and RESTBASE_API_URL. Auto picks HTTP when a URL is configured and falls
// back to mock otherwise. In mock mode RESTBASE_MOCK_SEED may name a JSON
// seed file for the collection store.
func NewFromEnv(opts ...auth.Option) (*Runtime, error) {
	mode := strings.ToLower(strings.TrimSpace(os.Getenv(envMode)))
	apiURL := strings.TrimSpace(os.Getenv(envAPIURL))

	switch mode {
	case modeAuto, "":
		if apiURL != "" {
			return New(apiURL, opts...)
		}
		return newMockRuntime(opts...)
	case ModeHTTP:
		if apiURL == "" {
			return nil, fmt.Errorf("restbase: HTTP mode requires %s", envAPIURL)
		}
		return New(apiURL, opts...)
	case ModeMock:
		return newMockRuntime(opts...)
	default:
		return nil, fmt.Errorf("restbase: unsupported %s value %q", envMode, mode)
	}
}

// New builds an HTTP-mode Runtime against the given base URL.
func New(baseURL string, opts ...auth.Option) (*Runtime, error) {
	transport, err := httpx.NewClient(baseURL)
	if err != nil {
		return nil, fmt.Errorf("restbase: init transport: %w", err)
	}
	return &Runtime{
		DB:        db.NewWithHTTPClient(transport),
		Auth:      auth.NewWithHTTPClient(transport, opts...),
		RPC:       rpc.NewWithHTTPClient(transport),
		Functions: functions.NewWithHTTPClient(transport),
		Storage:   storage.NewWithHTTPClient(transport),
		Mode:      ModeHTTP,
	}, nil
}

// Close releases runtime resources: the auth poller is stopped and, in mock
// mode, the embedded sandbox server is shut down.
func (r *Runtime) Close() error {
	if r == nil {
		return nil
	}
	if r.Auth != nil {
		r.Auth.Close()
	}
	if r.sandboxSrv != nil {
		return r.sandboxSrv.Close()
	}
	return nil
}

func newMockRuntime(opts ...auth.Option) (*Runtime, error) {
	srv := sandbox.New(sandbox.Config{})
	if path := strings.TrimSpace(os.Getenv(envMockSeed)); path != "" {
		if err := srv.Store().LoadSeedFile(path); err != nil {
			return nil, fmt.Errorf("restbase: apply mock seed: %w", err)
		}
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("restbase: start mock listener: %w", err)
	}
	httpSrv := &http.Server{Handler: srv.Handler()}
	go func() {
		_ = httpSrv.Serve(ln)
	}()

	rt, err := New("http://"+ln.Addr().String(), opts...)
	if err != nil {
		_ = httpSrv.Close()
		return nil, err
	}
	rt.Mode = ModeMock
	rt.sandboxSrv = httpSrv
	return rt, nil
}
