package sandbox

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleUpload(c *gin.Context) {
	bucket := c.Param("bucket")

	file, _, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field file is required"})
		return
	}
	defer file.Close()

	path := strings.TrimPrefix(c.Request.FormValue("path"), "/")
	if path == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field path is required"})
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.mu.Lock()
	if s.objects[bucket] == nil {
		s.objects[bucket] = make(map[string][]byte)
	}
	s.objects[bucket][path] = data
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{
		"path":      path,
		"publicUrl": publicURL(c.Request, bucket, path),
	})
}

func (s *Server) handleObject(c *gin.Context) {
	bucket := c.Param("bucket")
	path := strings.TrimPrefix(c.Param("path"), "/")

	s.mu.RLock()
	data, ok := s.objects[bucket][path]
	s.mu.RUnlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "object not found"})
		return
	}
	c.Data(http.StatusOK, http.DetectContentType(data), data)
}

func publicURL(r *http.Request, bucket, path string) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host + "/storage/" + bucket + "/" + path
}
