package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rmitchellscott/pdfgateway/internal/auth"
	"github.com/rmitchellscott/pdfgateway/internal/config"
	"github.com/rmitchellscott/pdfgateway/internal/gateway"
	"github.com/rmitchellscott/pdfgateway/internal/version"
)

type operationInfo struct {
	Name          string   `json:"name"`
	Path          string   `json:"path"`
	Field         string   `json:"field"`
	Options       []string `json:"options"`
	MinFiles      int      `json:"minFiles"`
	MaxFiles      int      `json:"maxFiles"`
	MaxTotalBytes int64    `json:"maxTotalBytes,omitempty"`
	MaxFileBytes  int64    `json:"maxFileBytes"`
}

// ConfigHandler returns the public parts of the running configuration.
// Secrets are reported only as present or absent.
func ConfigHandler(cfg *config.Gateway, am *auth.Middleware, stagingKind string) gin.HandlerFunc {
	ops := make([]operationInfo, 0, len(gateway.Operations()))
	for _, s := range gateway.Operations() {
		options := s.Fields
		if options == nil {
			options = []string{}
		}
		ops = append(ops, operationInfo{
			Name:          string(s.Op),
			Path:          "/api/" + string(s.Op),
			Field:         s.PartName,
			Options:       options,
			MinFiles:      s.Limits.MinFiles,
			MaxFiles:      s.Limits.MaxFiles,
			MaxTotalBytes: s.Limits.MaxTotalBytes,
			MaxFileBytes:  s.Limits.UploadCap,
		})
	}

	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"apiUrl":             "/api/",
			"authEnabled":        am.Enabled(),
			"apiKeyEnabled":      cfg.Auth.APIKey != "",
			"jwtEnabled":         cfg.Auth.JWTSecret != "",
			"upstreamConfigured": cfg.Upstream.HasCredentials(),
			"stagingBackend":     stagingKind,
			"operations":         ops,
		})
	}
}

// HealthHandler reports liveness only; it never calls RobotPDF.
func HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func VersionHandler(c *gin.Context) {
	c.JSON(http.StatusOK, version.Get())
}
