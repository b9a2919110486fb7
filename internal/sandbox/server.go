// Package sandbox implements an in-memory restbase API server for local
// development, tests and the SDK's mock runtime mode. It serves the same
// HTTP contract the SDK clients speak: /db collections, cookie-based auth,
// /rpc and /functions invocation, and /storage buckets.
package sandbox

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/napassornsp/restbase-go/pkg/db"
	dbmock "github.com/napassornsp/restbase-go/pkg/db/mock"
)

// Config controls sandbox behaviour.
type Config struct {
	// Latency is injected before every request is handled.
	Latency time.Duration
	// FailRate is the probability (0..1) of answering with FailCode instead.
	FailRate float64
	FailCode int
	// JWTSecret signs session cookies. A random secret is generated when empty.
	JWTSecret string
}

// Procedure handles one /rpc or /functions invocation.
type Procedure func(params json.RawMessage) (any, error)

// Server holds the in-memory state behind the sandbox API.
type Server struct {
	cfg    Config
	store  *dbmock.Store
	engine *gin.Engine

	mu         sync.RWMutex
	users      map[string]*userRecord
	objects    map[string]map[string][]byte
	procedures map[string]Procedure
	functions  map[string]Procedure
}

// New constructs a sandbox server with the built-in procedures registered.
func New(cfg Config) *Server {
	if cfg.FailCode == 0 {
		cfg.FailCode = http.StatusInternalServerError
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = uuid.NewString()
	}

	s := &Server{
		cfg:        cfg,
		store:      dbmock.New(),
		users:      make(map[string]*userRecord),
		objects:    make(map[string]map[string][]byte),
		procedures: make(map[string]Procedure),
		functions:  make(map[string]Procedure),
	}
	s.registerBuiltins()

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.inject())

	r.GET("/db/:collection", s.handleDBSelect)
	r.POST("/db/:collection", s.handleDBInsert)
	r.PATCH("/db/:collection", s.handleDBUpdate)
	r.DELETE("/db/:collection", s.handleDBDelete)

	r.POST("/auth/signup", s.handleSignUp)
	r.POST("/auth/signin", s.handleSignIn)
	r.POST("/auth/signout", s.handleSignOut)
	r.GET("/auth/session", s.handleSession)
	r.POST("/auth/update_user", s.handleUpdateUser)

	r.POST("/rpc/:name", s.handleRPC)
	r.POST("/functions/:name", s.handleFunction)

	r.POST("/storage/:bucket/upload", s.handleUpload)
	r.GET("/storage/:bucket/*path", s.handleObject)

	s.engine = r
	return s
}

// Handler exposes the sandbox as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Store exposes the collection store for seeding.
func (s *Server) Store() *dbmock.Store {
	return s.store
}

// RegisterProcedure installs (or replaces) an /rpc procedure.
func (s *Server) RegisterProcedure(name string, fn Procedure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.procedures[name] = fn
}

// RegisterFunction installs (or replaces) a /functions handler.
func (s *Server) RegisterFunction(name string, fn Procedure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.functions[name] = fn
}

// inject applies the configured latency and failure rate, mirroring the
// knobs a flaky upstream would expose.
func (s *Server) inject() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.cfg.Latency > 0 {
			time.Sleep(s.cfg.Latency)
		}
		if s.cfg.FailRate > 0 && rand.Float64() < s.cfg.FailRate {
			c.AbortWithStatusJSON(s.cfg.FailCode, gin.H{"error": "failure injected"})
			return
		}
		c.Next()
	}
}

func (s *Server) handleDBSelect(c *gin.Context) {
	filters, order, bounds, err := parseQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rows, err := s.store.Select(c.Request.Context(), c.Param("collection"), filters, order, bounds)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (s *Server) handleDBInsert(c *gin.Context) {
	rows, err := decodeRows(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	inserted, err := s.store.Insert(c.Request.Context(), c.Param("collection"), rows)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, inserted)
}

func (s *Server) handleDBUpdate(c *gin.Context) {
	filters, _, _, err := parseQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var patch map[string]any
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "update payload must be an object"})
		return
	}
	updated, err := s.store.Update(c.Request.Context(), c.Param("collection"), filters, patch)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (s *Server) handleDBDelete(c *gin.Context) {
	filters, _, _, err := parseQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	removed, err := s.store.Delete(c.Request.Context(), c.Param("collection"), filters)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, removed)
}

// parseQuery translates the wire query back into store terms: eq.<col>
// filters, an order=<col>.<asc|desc> token and an inclusive from/to pair.
func parseQuery(c *gin.Context) (map[string]string, *db.OrderSpec, *db.Bounds, error) {
	filters := make(map[string]string)
	var order *db.OrderSpec
	var bounds *db.Bounds

	query := c.Request.URL.Query()
	for key, values := range query {
		if !strings.HasPrefix(key, "eq.") || len(values) == 0 {
			continue
		}
		filters[strings.TrimPrefix(key, "eq.")] = values[len(values)-1]
	}

	if token := query.Get("order"); token != "" {
		idx := strings.LastIndex(token, ".")
		if idx <= 0 {
			return nil, nil, nil, fmt.Errorf("invalid order token %q", token)
		}
		col, dir := token[:idx], token[idx+1:]
		switch dir {
		case "asc":
			order = &db.OrderSpec{Column: col, Ascending: true}
		case "desc":
			order = &db.OrderSpec{Column: col, Ascending: false}
		default:
			return nil, nil, nil, fmt.Errorf("invalid order direction %q", dir)
		}
	}

	fromStr, toStr := query.Get("from"), query.Get("to")
	if fromStr != "" || toStr != "" {
		from, err := strconv.Atoi(fromStr)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("invalid from %q", fromStr)
		}
		to, err := strconv.Atoi(toStr)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("invalid to %q", toStr)
		}
		bounds = &db.Bounds{From: from, To: to}
	}

	return filters, order, bounds, nil
}

// decodeRows accepts a single JSON object or an array of objects.
func decodeRows(c *gin.Context) ([]map[string]any, error) {
	var raw json.RawMessage
	if err := c.ShouldBindJSON(&raw); err != nil {
		return nil, fmt.Errorf("invalid JSON body")
	}
	var many []map[string]any
	if err := json.Unmarshal(raw, &many); err == nil {
		return many, nil
	}
	var one map[string]any
	if err := json.Unmarshal(raw, &one); err != nil {
		return nil, fmt.Errorf("body must be an object or array of objects")
	}
	return []map[string]any{one}, nil
}
