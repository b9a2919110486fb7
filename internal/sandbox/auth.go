package sandbox

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const sessionCookie = "rb_session"

type userRecord struct {
	id    string
	email string
	hash  []byte
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleSignUp(c *gin.Context) {
	var creds credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	email := strings.ToLower(strings.TrimSpace(creds.Email))
	if email == "" || creds.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	s.mu.Lock()
	if _, exists := s.users[email]; exists {
		s.mu.Unlock()
		c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
		return
	}
	user := &userRecord{id: uuid.NewString(), email: email, hash: hash}
	s.users[email] = user
	s.mu.Unlock()

	s.issueSession(c, user)
	c.JSON(http.StatusOK, sessionBody(user))
}

func (s *Server) handleSignIn(c *gin.Context) {
	var creds credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	email := strings.ToLower(strings.TrimSpace(creds.Email))

	s.mu.RLock()
	user := s.users[email]
	s.mu.RUnlock()

	if user == nil || bcrypt.CompareHashAndPassword(user.hash, []byte(creds.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	s.issueSession(c, user)
	c.JSON(http.StatusOK, sessionBody(user))
}

func (s *Server) handleSignOut(c *gin.Context) {
	c.SetCookie(sessionCookie, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{})
}

func (s *Server) handleSession(c *gin.Context) {
	user := s.currentUser(c)
	if user == nil {
		c.JSON(http.StatusOK, gin.H{"user": nil})
		return
	}
	c.JSON(http.StatusOK, sessionBody(user))
}

func (s *Server) handleUpdateUser(c *gin.Context) {
	user := s.currentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not signed in"})
		return
	}

	var attrs struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&attrs); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	s.mu.Lock()
	if attrs.Email != "" {
		email := strings.ToLower(strings.TrimSpace(attrs.Email))
		if other, exists := s.users[email]; exists && other != user {
			s.mu.Unlock()
			c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
			return
		}
		delete(s.users, user.email)
		user.email = email
		s.users[email] = user
	}
	if attrs.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(attrs.Password), bcrypt.DefaultCost)
		if err != nil {
			s.mu.Unlock()
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		user.hash = hash
	}
	s.mu.Unlock()

	s.issueSession(c, user)
	c.JSON(http.StatusOK, sessionBody(user))
}

// issueSession signs a JWT for the user and sets it as the session cookie.
func (s *Server) issueSession(c *gin.Context, user *userRecord) {
	claims := jwt.MapClaims{
		"sub":   user.id,
		"email": user.email,
		"exp":   time.Now().Add(24 * time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.SetCookie(sessionCookie, token, int((24 * time.Hour).Seconds()), "/", "", false, true)
}

// currentUser resolves the session cookie back to a registered user.
func (s *Server) currentUser(c *gin.Context) *userRecord {
	raw, err := c.Cookie(sessionCookie)
	if err != nil || raw == "" {
		return nil
	}

	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil
	}
	email, _ := claims["email"].(string)

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users[email]
}

func sessionBody(user *userRecord) gin.H {
	return gin.H{"user": gin.H{"id": user.id, "email": user.email}}
}
