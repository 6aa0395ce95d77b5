// Package handlers wires the HTTP surface of the gateway.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rmitchellscott/pdfgateway/internal/auth"
	"github.com/rmitchellscott/pdfgateway/internal/config"
	"github.com/rmitchellscott/pdfgateway/internal/gateway"
	"github.com/rmitchellscott/pdfgateway/internal/staging"
)

// Deps are the long-lived components the router hands requests to.
type Deps struct {
	Config  *config.Gateway
	Gateway *gateway.Gateway
	Stager  *staging.Stager
	Auth    *auth.Middleware
}

func NewRouter(d Deps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(CORS(d.Config.CORSOrigins))

	router.GET("/api/health", HealthHandler)
	router.GET("/api/version", VersionHandler)
	router.GET("/api/config", ConfigHandler(d.Config, d.Auth, d.Stager.Backend().Kind()))

	// Protected API endpoints (require auth if configured)
	protected := router.Group("/api")
	protected.Use(d.Auth.ApiKeyOrJWTMiddleware())

	ops := NewOperationHandler(d.Gateway, d.Stager)
	for _, s := range gateway.Operations() {
		protected.POST("/"+string(s.Op), ops.Handle(s.Op))
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Not found"})
	})

	return router
}

// CORS answers preflight requests and echoes allowed origins.
func CORS(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, o := range allowedOrigins {
			if o == "*" || strings.EqualFold(o, origin) {
				allowed = true
				break
			}
		}

		if allowed && origin != "" {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Gateway-Key, X-Request-ID")
			c.Header("Access-Control-Expose-Headers", "X-Request-ID")
			c.Header("Access-Control-Max-Age", "86400")
		}

		// Handle preflight
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
