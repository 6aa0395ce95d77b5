package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultBaseURL     = "https://api.robotpdf.com"
	DefaultTimeout     = 120 * time.Second
	DefaultLongTimeout = 180 * time.Second
	DefaultPort        = "5000"
	DefaultStagingDir  = "./uploads"
)

// Gateway is the process-wide configuration. It is loaded once at startup
// and passed by pointer into the components that need it; nothing reads the
// environment after Load returns.
type Gateway struct {
	Port        string   `yaml:"port"`
	GinMode     string   `yaml:"gin_mode"`
	CORSOrigins []string `yaml:"cors_origins"`
	Upstream    Upstream `yaml:"upstream"`
	Staging     Staging  `yaml:"staging"`
	Auth        Auth     `yaml:"auth"`
	Log         Log      `yaml:"log"`
}

// Upstream describes the RobotPDF API.
type Upstream struct {
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	APISecret   string        `yaml:"api_secret"`
	Timeout     time.Duration `yaml:"timeout"`
	LongTimeout time.Duration `yaml:"long_timeout"`
}

// Staging selects where uploads are held while a request is in flight.
type Staging struct {
	Backend          string `yaml:"backend"` // filesystem or s3
	Dir              string `yaml:"dir"`
	S3Bucket         string `yaml:"s3_bucket"`
	S3Region         string `yaml:"s3_region"`
	S3Endpoint       string `yaml:"s3_endpoint"`
	S3AccessKeyID    string `yaml:"s3_access_key_id"`
	S3SecretKey      string `yaml:"s3_secret_access_key"`
	S3ForcePathStyle bool   `yaml:"s3_force_path_style"`
	S3Prefix         string `yaml:"s3_prefix"`
}

// Auth guards the inbound API. Both fields empty disables it.
type Auth struct {
	APIKey    string `yaml:"api_key"`
	JWTSecret string `yaml:"jwt_secret"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
}

// Enabled reports whether inbound requests must authenticate.
func (a Auth) Enabled() bool {
	return a.APIKey != "" || a.JWTSecret != ""
}

// HasCredentials reports whether both upstream secrets are present.
func (u Upstream) HasCredentials() bool {
	return u.APIKey != "" && u.APISecret != ""
}

// Defaults returns the configuration used when neither a file nor the
// environment says otherwise.
func Defaults() *Gateway {
	return &Gateway{
		Port:        DefaultPort,
		GinMode:     "release",
		CORSOrigins: []string{"*"},
		Upstream: Upstream{
			BaseURL:     DefaultBaseURL,
			Timeout:     DefaultTimeout,
			LongTimeout: DefaultLongTimeout,
		},
		Staging: Staging{
			Backend: "filesystem",
			Dir:     DefaultStagingDir,
		},
		Log: Log{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, then the optional YAML file at
// path, then environment variables. Later sources win.
func Load(path string) (*Gateway, error) {
	cfg := Defaults()

	if path == "" {
		path = Get("GATEWAY_CONFIG", "")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Gateway) applyEnv() {
	c.Port = Get("PORT", c.Port)
	c.GinMode = Get("GIN_MODE", c.GinMode)
	c.CORSOrigins = GetList("CORS_ORIGINS", c.CORSOrigins)

	c.Upstream.BaseURL = Get("ROBOTPDF_BASE_URL", c.Upstream.BaseURL)
	c.Upstream.APIKey = Get("API_KEY", c.Upstream.APIKey)
	c.Upstream.APISecret = Get("API_SECRET", c.Upstream.APISecret)
	c.Upstream.Timeout = GetDuration("GATEWAY_TIMEOUT", c.Upstream.Timeout)
	c.Upstream.LongTimeout = GetDuration("GATEWAY_LONG_TIMEOUT", c.Upstream.LongTimeout)

	c.Staging.Backend = Get("STAGING_BACKEND", c.Staging.Backend)
	c.Staging.Dir = Get("STAGING_DIR", c.Staging.Dir)
	c.Staging.S3Bucket = Get("S3_BUCKET", c.Staging.S3Bucket)
	c.Staging.S3Region = Get("S3_REGION", c.Staging.S3Region)
	c.Staging.S3Endpoint = Get("S3_ENDPOINT", c.Staging.S3Endpoint)
	c.Staging.S3AccessKeyID = Get("S3_ACCESS_KEY_ID", c.Staging.S3AccessKeyID)
	c.Staging.S3SecretKey = Get("S3_SECRET_ACCESS_KEY", c.Staging.S3SecretKey)
	c.Staging.S3ForcePathStyle = GetBool("S3_FORCE_PATH_STYLE", c.Staging.S3ForcePathStyle)
	c.Staging.S3Prefix = Get("S3_PREFIX", c.Staging.S3Prefix)

	c.Auth.APIKey = Get("AUTH_API_KEY", c.Auth.APIKey)
	c.Auth.JWTSecret = Get("AUTH_JWT_SECRET", c.Auth.JWTSecret)

	c.Log.Level = Get("LOG_LEVEL", c.Log.Level)
	c.Log.Format = Get("LOG_FORMAT", c.Log.Format)
}

// Validate checks the settings that would otherwise fail on first use.
func (c *Gateway) Validate() error {
	u, err := url.Parse(c.Upstream.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid ROBOTPDF_BASE_URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid ROBOTPDF_BASE_URL %q: scheme must be http or https", c.Upstream.BaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid ROBOTPDF_BASE_URL %q: missing host", c.Upstream.BaseURL)
	}
	if c.Upstream.Timeout <= 0 || c.Upstream.LongTimeout <= 0 {
		return fmt.Errorf("gateway timeouts must be positive")
	}

	switch c.Staging.Backend {
	case "filesystem":
		if c.Staging.Dir == "" {
			return fmt.Errorf("STAGING_DIR is required for filesystem staging")
		}
	case "s3":
		if c.Staging.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required for S3 staging")
		}
		if c.Staging.S3Region == "" {
			return fmt.Errorf("S3_REGION is required for S3 staging")
		}
	default:
		return fmt.Errorf("unknown staging backend: %s (valid options: filesystem, s3)", c.Staging.Backend)
	}
	return nil
}
