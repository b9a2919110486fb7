package sandbox

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleRPC(c *gin.Context) {
	s.invoke(c, s.lookupProcedure, "unknown procedure")
}

func (s *Server) handleFunction(c *gin.Context) {
	s.invoke(c, s.lookupFunction, "unknown function")
}

func (s *Server) lookupProcedure(name string) Procedure {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.procedures[name]
}

func (s *Server) lookupFunction(name string) Procedure {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.functions[name]
}

func (s *Server) invoke(c *gin.Context, lookup func(string) Procedure, missing string) {
	fn := lookup(c.Param("name"))
	if fn == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": missing})
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := fn(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// registerBuiltins installs the procedures and functions the chat/OCR flows
// rely on out of the box.
func (s *Server) registerBuiltins() {
	s.RegisterProcedure("ping", func(json.RawMessage) (any, error) {
		return "pong", nil
	})

	s.RegisterProcedure("word_count", func(params json.RawMessage) (any, error) {
		var req struct {
			Text string `json:"text"`
		}
		if len(params) > 0 {
			if err := json.Unmarshal(params, &req); err != nil {
				return nil, fmt.Errorf("word_count: invalid params")
			}
		}
		return map[string]int{"count": len(strings.Fields(req.Text))}, nil
	})

	s.RegisterFunction("echo", func(params json.RawMessage) (any, error) {
		if len(params) == 0 {
			return nil, nil
		}
		var payload any
		if err := json.Unmarshal(params, &payload); err != nil {
			return nil, fmt.Errorf("echo: invalid body")
		}
		return payload, nil
	})

	// extract_text stands in for the OCR pipeline: it resolves a previously
	// uploaded object and reports a deterministic extraction stub.
	s.RegisterFunction("extract_text", func(params json.RawMessage) (any, error) {
		var req struct {
			Bucket string `json:"bucket"`
			Path   string `json:"path"`
		}
		if err := json.Unmarshal(params, &req); err != nil {
			return nil, fmt.Errorf("extract_text: invalid body")
		}

		s.mu.RLock()
		data, ok := s.objects[req.Bucket][strings.TrimPrefix(req.Path, "/")]
		s.mu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("extract_text: object %s/%s not found", req.Bucket, req.Path)
		}
		return map[string]any{
			"path":  req.Path,
			"text":  fmt.Sprintf("extracted %d bytes", len(data)),
			"bytes": len(data),
		}, nil
	})
}
