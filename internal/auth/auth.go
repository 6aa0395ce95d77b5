// Package auth guards the inbound API with a static API key or an HS256 JWT.
package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/rmitchellscott/pdfgateway/internal/config"
)

const tokenCookie = "auth_token"

var ErrNoSecret = errors.New("AUTH_JWT_SECRET is not configured")

// Middleware checks inbound credentials. The zero value allows everything.
type Middleware struct {
	apiKey    []byte
	jwtSecret []byte
}

func New(cfg config.Auth) *Middleware {
	m := &Middleware{}
	if cfg.APIKey != "" {
		m.apiKey = []byte(cfg.APIKey)
	}
	if cfg.JWTSecret != "" {
		m.jwtSecret = []byte(cfg.JWTSecret)
	}
	return m
}

// Enabled reports whether any credential is configured.
func (m *Middleware) Enabled() bool {
	return len(m.apiKey) > 0 || len(m.jwtSecret) > 0
}

// ApiKeyOrJWTMiddleware accepts either a valid API key or a valid JWT. With
// nothing configured every request passes.
func (m *Middleware) ApiKeyOrJWTMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.Enabled() {
			c.Next()
			return
		}

		// Check API key first
		if m.isValidApiKey(c) {
			c.Next()
			return
		}

		if m.isValidJWT(c) {
			c.Next()
			return
		}

		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Authentication required"})
	}
}

// isValidApiKey checks the Authorization bearer and X-Gateway-Key headers.
func (m *Middleware) isValidApiKey(c *gin.Context) bool {
	if len(m.apiKey) == 0 {
		return false
	}

	if token := bearer(c); token != "" {
		if subtle.ConstantTimeCompare([]byte(token), m.apiKey) == 1 {
			return true
		}
	}

	if key := c.GetHeader("X-Gateway-Key"); key != "" {
		if subtle.ConstantTimeCompare([]byte(key), m.apiKey) == 1 {
			return true
		}
	}

	return false
}

func (m *Middleware) isValidJWT(c *gin.Context) bool {
	if len(m.jwtSecret) == 0 {
		return false
	}

	tokenString := bearer(c)
	if tokenString == "" {
		var err error
		if tokenString, err = c.Cookie(tokenCookie); err != nil {
			return false
		}
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return m.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	if err != nil || !token.Valid {
		return false
	}

	if sub, err := token.Claims.GetSubject(); err == nil && sub != "" {
		c.Set("subject", sub)
	}
	return true
}

// IssueToken signs an HS256 token for subject valid for ttl.
func (m *Middleware) IssueToken(subject string, ttl time.Duration) (string, error) {
	if len(m.jwtSecret) == 0 {
		return "", ErrNoSecret
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})
	return token.SignedString(m.jwtSecret)
}

func bearer(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
}
