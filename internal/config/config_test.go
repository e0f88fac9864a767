package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "/tmp/reelstack/uploads", cfg.UploadDir)
	assert.Equal(t, "/tmp/reelstack/outputs", cfg.OutputDir)
	assert.Equal(t, "http://localhost:8080/videos/", cfg.PublicVideoURL)
	assert.Equal(t, int64(100), cfg.MaxUploadMB)
	assert.Equal(t, "ffmpeg", cfg.FFmpegPath)
	assert.Equal(t, "ffprobe", cfg.FFprobePath)
	assert.Equal(t, "v21.0", cfg.GraphAPIVersion)
	assert.Equal(t, 10*time.Second, cfg.PublishPollInterval)
	assert.Equal(t, 60, cfg.PublishMaxPollAttempts)
	assert.Equal(t, time.Hour, cfg.JobRetention)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)

	assert.False(t, cfg.PublishEnabled())
	assert.False(t, cfg.S3Enabled())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("IG_BUSINESS_ACCOUNT_ID", "1784400001")
	t.Setenv("IG_ACCESS_TOKEN", "token-abc")
	t.Setenv("PUBLISH_POLL_INTERVAL", "5s")
	t.Setenv("PUBLISH_MAX_POLL_ATTEMPTS", "30")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.True(t, cfg.PublishEnabled())
	assert.Equal(t, 5*time.Second, cfg.PublishPollInterval)
	assert.Equal(t, 30, cfg.PublishMaxPollAttempts)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestValidatePublishCredentialsPaired(t *testing.T) {
	t.Setenv("IG_ACCESS_TOKEN", "token-without-account")

	_, err := Load()
	assert.ErrorIs(t, err, ErrAccessTokenWithoutAccount)
}

func TestValidateAccountWithoutToken(t *testing.T) {
	t.Setenv("IG_BUSINESS_ACCOUNT_ID", "1784400001")

	_, err := Load()
	assert.ErrorIs(t, err, ErrAccessTokenWithoutAccount)
}

func TestValidateS3Paired(t *testing.T) {
	t.Setenv("S3_BUCKET", "my-reels")

	_, err := Load()
	assert.ErrorIs(t, err, ErrS3PartialConfig)
}

func TestS3Enabled(t *testing.T) {
	t.Setenv("S3_BUCKET", "my-reels")
	t.Setenv("S3_REGION", "eu-west-1")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.S3Enabled())
}

func TestStringMasksSecrets(t *testing.T) {
	cfg := &Config{
		Port:          8080,
		IGAccessToken: "super-secret-token",
	}

	s := cfg.String()
	assert.NotContains(t, s, "super-secret-token")
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLogLevel(tt.input), "level %q", tt.input)
	}
}

func TestNewLogger(t *testing.T) {
	cfg := &Config{LogFormat: "json", LogLevel: "debug"}
	logger := cfg.NewLogger()
	require.NotNil(t, logger)

	cfg = &Config{LogFormat: "text", LogLevel: "info"}
	logger = cfg.NewLogger()
	require.NotNil(t, logger)
}
