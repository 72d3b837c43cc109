/*
Package configs is responsible for loading and parsing the application's configuration settings.

Every value comes from operating system environment variables: the running environment,
HTTP port, CORS origins, operator token secret, upload rate limits, and the
S3-compatible object store connection. Credentials are never compiled in.
*/
package configs

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// AppConfig contains all configuration parameters required for the application to run.
// All configuration values are loaded from environment variables.
type AppConfig struct {
	// General Server Settings
	Environment string
	Port        int

	// Security Settings
	AllowedOrigins []string
	JWTSecret      string

	// Upload Settings
	UploadRate  float64
	UploadBurst int

	// S3 Storage Settings
	S3BucketName      string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3Region          string
	S3Timeout         time.Duration
}

// IsDevelopment reports whether the service runs in the development environment.
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// LoadConfig reads and parses the application configuration from environment variables.
// It provides default values where safe and returns an error naming the first invalid
// or missing variable. Secret values never appear in the returned errors.
func LoadConfig() (*AppConfig, error) {
	return loadFrom(os.Getenv)
}

// LoadTokenConfig reads only the settings needed to mint operator tokens:
// ENVIRONMENT and JWT_SECRET. Storage and server variables may be unset.
func LoadTokenConfig() (*AppConfig, error) {
	return loadTokenFrom(os.Getenv)
}

func loadTokenFrom(getenv func(string) string) (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := loadIdentity(getenv, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadIdentity fills the environment name and the token signing secret.
func loadIdentity(getenv func(string) string, cfg *AppConfig) error {
	cfg.Environment = getenv("ENVIRONMENT")
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	cfg.JWTSecret = getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		if !cfg.IsDevelopment() {
			return fmt.Errorf("JWT_SECRET environment variable is required in %s environment for security", cfg.Environment)
		}
		cfg.JWTSecret = "development_only_insecure_secret_change_me"
	}
	return nil
}

func loadFrom(getenv func(string) string) (*AppConfig, error) {
	cfg := &AppConfig{}

	// --- General Server Settings ---
	if err := loadIdentity(getenv, cfg); err != nil {
		return nil, err
	}

	portStr := getenv("PORT")
	if portStr == "" {
		portStr = "8080"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT environment variable: %w", err)
	}
	if port < 1024 || port > 65535 {
		return nil, fmt.Errorf("port number %d is outside the recommended range (%d-%d) to avoid privileged ports", port, 1024, 65535)
	}
	cfg.Port = port

	// --- Security Settings ---
	cfg.AllowedOrigins = []string{}
	for _, origin := range strings.Split(getenv("ALLOWED_ORIGINS"), ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, trimmed)
		}
	}

	// --- Upload Settings ---
	rateStr := getenv("UPLOAD_RATE")
	if rateStr == "" {
		rateStr = "1"
	}
	cfg.UploadRate, err = strconv.ParseFloat(rateStr, 64)
	if err != nil || cfg.UploadRate <= 0 {
		return nil, fmt.Errorf("invalid UPLOAD_RATE environment variable %q: must be a positive number", rateStr)
	}

	burstStr := getenv("UPLOAD_BURST")
	if burstStr == "" {
		burstStr = "10"
	}
	cfg.UploadBurst, err = strconv.Atoi(burstStr)
	if err != nil || cfg.UploadBurst < 1 {
		return nil, fmt.Errorf("invalid UPLOAD_BURST environment variable %q: must be a positive integer", burstStr)
	}

	// --- S3 Storage Settings ---
	cfg.S3BucketName = getenv("S3_BUCKET_NAME")
	if cfg.S3BucketName == "" {
		return nil, fmt.Errorf("S3_BUCKET_NAME environment variable is required for S3 storage connection")
	}

	cfg.S3Endpoint = getenv("S3_ENDPOINT")
	if cfg.S3Endpoint == "" {
		return nil, fmt.Errorf("S3_ENDPOINT environment variable is required for S3 storage connection")
	}
	if u, err := url.Parse(cfg.S3Endpoint); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("S3_ENDPOINT must be an absolute http(s) URL")
	}

	cfg.S3AccessKeyID = getenv("S3_ACCESS_KEY_ID")
	if cfg.S3AccessKeyID == "" {
		return nil, fmt.Errorf("S3_ACCESS_KEY_ID environment variable is required for S3 authentication")
	}

	cfg.S3SecretAccessKey = getenv("S3_SECRET_ACCESS_KEY")
	if cfg.S3SecretAccessKey == "" {
		return nil, fmt.Errorf("S3_SECRET_ACCESS_KEY environment variable is required for S3 authentication")
	}

	cfg.S3Region = getenv("S3_REGION")
	if cfg.S3Region == "" {
		cfg.S3Region = "us-east-1"
	}

	timeoutStr := getenv("S3_TIMEOUT")
	if timeoutStr == "" {
		timeoutStr = "30s"
	}
	cfg.S3Timeout, err = time.ParseDuration(timeoutStr)
	if err != nil || cfg.S3Timeout <= 0 {
		return nil, fmt.Errorf("invalid S3_TIMEOUT environment variable %q: must be a positive duration", timeoutStr)
	}

	return cfg, nil
}
