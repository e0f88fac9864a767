// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrAccessTokenWithoutAccount is returned when an access token is set
	// without a business account ID (or vice versa).
	ErrAccessTokenWithoutAccount = errors.New("config: IG_BUSINESS_ACCOUNT_ID and IG_ACCESS_TOKEN must be set together")
	// ErrS3PartialConfig is returned when only one of S3_BUCKET / S3_REGION is set.
	ErrS3PartialConfig = errors.New("config: S3_BUCKET and S3_REGION must be set together")
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port int `env:"PORT, default=8080" json:"port"`

	// File handling
	UploadDir      string `env:"UPLOAD_DIR, default=/tmp/reelstack/uploads" json:"upload_dir"`
	OutputDir      string `env:"OUTPUT_DIR, default=/tmp/reelstack/outputs" json:"output_dir"`
	PublicVideoURL string `env:"PUBLIC_VIDEO_URL, default=http://localhost:8080/videos/" json:"public_video_url"`
	MaxUploadMB    int64  `env:"MAX_UPLOAD_MB, default=100" json:"max_upload_mb"`

	// Composition settings
	FFmpegPath  string `env:"FFMPEG_PATH, default=ffmpeg" json:"ffmpeg_path"`
	FFprobePath string `env:"FFPROBE_PATH, default=ffprobe" json:"ffprobe_path"`

	// Instagram publish settings. Both empty disables publishing.
	IGBusinessAccountID string `env:"IG_BUSINESS_ACCOUNT_ID" json:"ig_business_account_id,omitempty"`
	IGAccessToken       string `env:"IG_ACCESS_TOKEN" json:"-"` // Masked in JSON
	GraphAPIVersion     string `env:"GRAPH_API_VERSION, default=v21.0" json:"graph_api_version"`

	PublishPollInterval    time.Duration `env:"PUBLISH_POLL_INTERVAL, default=10s" json:"publish_poll_interval"`
	PublishMaxPollAttempts int           `env:"PUBLISH_MAX_POLL_ATTEMPTS, default=60" json:"publish_max_poll_attempts"`

	// Job retention. Zero retention disables eviction.
	JobRetention       time.Duration `env:"JOB_RETENTION, default=1h" json:"job_retention"`
	JobCleanupInterval time.Duration `env:"JOB_CLEANUP_INTERVAL, default=1h" json:"job_cleanup_interval"`

	// Optional S3 settings for output storage
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"` // S3-compatible endpoints
	S3KeyPrefix        string `env:"S3_KEY_PREFIX, default=reels" json:"s3_key_prefix,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// PublishEnabled returns true if Instagram credentials are provided.
func (c *Config) PublishEnabled() bool {
	return c.IGBusinessAccountID != "" && c.IGAccessToken != ""
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// Load reads configuration from environment variables using go-envconfig
// and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := envconfig.Process(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if (c.IGBusinessAccountID == "") != (c.IGAccessToken == "") {
		return ErrAccessTokenWithoutAccount
	}
	if (c.S3Bucket == "") != (c.S3Region == "") {
		return ErrS3PartialConfig
	}
	return nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, UploadDir: %s, OutputDir: %s, PublicVideoURL: %s, PublishEnabled: %t, PollInterval: %s, MaxPollAttempts: %d, JobRetention: %s, S3Bucket: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.UploadDir,
		c.OutputDir,
		c.PublicVideoURL,
		c.PublishEnabled(),
		c.PublishPollInterval,
		c.PublishMaxPollAttempts,
		c.JobRetention,
		c.S3Bucket,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
