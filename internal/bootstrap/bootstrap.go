// Package bootstrap provides dependency initialization for the reelstack API.
package bootstrap

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/reelstack/reelstack-api/internal/compose"
	"github.com/reelstack/reelstack-api/internal/config"
	"github.com/reelstack/reelstack-api/internal/instagram"
	"github.com/reelstack/reelstack-api/internal/job"
	"github.com/reelstack/reelstack-api/internal/publisher"
	"github.com/reelstack/reelstack-api/internal/storage"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	Service *job.Service
	Store   storage.Store
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	store, err := initStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.OutputDir, 0750); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	composer := compose.NewFFmpegComposer(cfg.FFmpegPath, cfg.FFprobePath)
	repo := job.NewMemoryRepository()

	opts := []job.ServiceOption{
		job.WithRetention(cfg.JobRetention, cfg.JobCleanupInterval),
	}

	if cfg.PublishEnabled() {
		client, err := instagram.NewClient(
			cfg.IGBusinessAccountID,
			cfg.IGAccessToken,
			instagram.WithAPIVersion(cfg.GraphAPIVersion),
		)
		if err != nil {
			return nil, fmt.Errorf("create Instagram client: %w", err)
		}
		pub := publisher.New(client,
			publisher.WithPollPolicy(publisher.PollPolicy{
				Interval:    cfg.PublishPollInterval,
				MaxAttempts: cfg.PublishMaxPollAttempts,
			}),
			publisher.WithLogger(logger),
		)
		opts = append(opts, job.WithPublisher(pub))
		logger.Info("publishing configured",
			slog.String("account_id", cfg.IGBusinessAccountID),
			slog.String("api_version", cfg.GraphAPIVersion),
		)
	} else {
		logger.Info("publishing disabled: no Instagram credentials")
	}

	svc := job.NewService(repo, composer, store, cfg.OutputDir, logger, opts...)

	return &Dependencies{
		Service: svc,
		Store:   store,
	}, nil
}

// initStorage creates the appropriate storage backend based on configuration.
func initStorage(cfg *config.Config, logger *slog.Logger) (storage.Store, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
			KeyPrefix:       cfg.S3KeyPrefix,
		}
		s3Store, err := storage.NewS3Store(cfg.UploadDir, s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 output storage configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Store, nil
	}

	localStore, err := storage.NewLocalStore(cfg.UploadDir, cfg.PublicVideoURL)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("upload_dir", cfg.UploadDir),
		slog.String("public_video_url", cfg.PublicVideoURL),
	)
	return localStore, nil
}
