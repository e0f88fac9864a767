package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/reelstack/reelstack-api/internal/compose"
	"github.com/reelstack/reelstack-api/internal/publisher"
	"github.com/reelstack/reelstack-api/internal/storage"
)

// ErrPublishNotConfigured is returned when a publish is requested but no
// publish credentials were configured.
var ErrPublishNotConfigured = errors.New("publishing is not configured")

// categoryInternal marks publish failures that happened before the remote
// protocol started (e.g. resolving the output URL).
const categoryInternal = "internal"

// minOutputBytes is the floor below which a composed output is treated as
// corrupted rather than successful.
const defaultMinOutputBytes = 1000

// ReelPublisher runs one publish attempt and returns the public reel URL.
// Satisfied by publisher.Publisher.
type ReelPublisher interface {
	Run(ctx context.Context, videoURL, caption string, onContainer func(containerID string)) (string, error)
}

// SubmitInput contains the input parameters for a composition job.
type SubmitInput struct {
	// TopPath is the saved upload path of the top (meme) clip.
	TopPath string
	// BottomPath is the saved upload path of the bottom (gameplay) clip.
	BottomPath string
	// Caption is the caption captured at submission.
	Caption string
}

// PublishInput contains the parameters for a publish request.
type PublishInput struct {
	// Caption is the publish caption. Required.
	Caption string
	// Hashtags are appended to the caption, separated by a blank line.
	Hashtags string
}

// Service orchestrates the reel pipeline: it creates job records, launches
// one composition worker per job, relays engine progress into the
// registry, verifies outputs, and drives publish attempts through their
// own workers. All worker mutations go through the registry's Update, so
// the composition worker and a concurrent publish worker each touch only
// their own fields of the single stored record.
type Service struct {
	repo      Repository
	composer  compose.Composer
	store     storage.Store
	publisher ReelPublisher
	logger    *slog.Logger

	outputDir      string
	minOutputBytes int64

	retention       time.Duration
	cleanupInterval time.Duration
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithPublisher enables publishing through the given publisher.
func WithPublisher(p ReelPublisher) ServiceOption {
	return func(s *Service) {
		s.publisher = p
	}
}

// WithMinOutputBytes overrides the corrupted-output size floor.
func WithMinOutputBytes(n int64) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.minOutputBytes = n
		}
	}
}

// WithRetention configures terminal-job eviction. A zero retention
// disables the janitor.
func WithRetention(retention, interval time.Duration) ServiceOption {
	return func(s *Service) {
		s.retention = retention
		s.cleanupInterval = interval
	}
}

// NewService creates a new Service.
func NewService(repo Repository, composer compose.Composer, store storage.Store, outputDir string, logger *slog.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		repo:            repo,
		composer:        composer,
		store:           store,
		logger:          logger,
		outputDir:       outputDir,
		minOutputBytes:  defaultMinOutputBytes,
		cleanupInterval: time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PublishEnabled returns true if a publisher is configured.
func (s *Service) PublishEnabled() bool {
	return s.publisher != nil
}

// Submit creates a job for the given inputs and starts its composition
// worker. It returns as soon as the job record exists; composition runs in
// the background and is observed through GetJob.
func (s *Service) Submit(ctx context.Context, input SubmitInput) (*Job, error) {
	if input.TopPath == "" || input.BottomPath == "" {
		return nil, errors.New("both input clips are required")
	}

	j := New()
	j.TopPath = input.TopPath
	j.BottomPath = input.BottomPath
	j.Caption = input.Caption

	s.logger.Info("job submitted",
		slog.String("job_id", j.ID),
	)

	if err := s.repo.Save(ctx, j); err != nil {
		return nil, fmt.Errorf("save job: %w", err)
	}

	outputName := fmt.Sprintf("output_%s.mp4", j.ID)
	outputPath := filepath.Join(s.outputDir, outputName)

	// The worker outlives the request; detach its context.
	go s.runComposition(context.WithoutCancel(ctx), j.ID, input, outputPath, outputName)

	return j.Clone(), nil
}

// GetJob retrieves a snapshot of a job by ID. It is a pure read: it never
// blocks on in-flight work and never triggers side effects.
func (s *Service) GetJob(ctx context.Context, jobID string) (*Job, error) {
	return s.repo.FindByID(ctx, jobID)
}

// runComposition is the per-job composition worker. It is the single
// writer of the job's composition fields.
func (s *Service) runComposition(ctx context.Context, jobID string, input SubmitInput, outputPath, outputName string) {
	if err := s.repo.Update(ctx, jobID, func(j *Job) error { return j.Start() }); err != nil {
		s.logger.Error("job start failed",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		return
	}

	onProgress := func(percent int, message string) {
		s.apply(ctx, jobID, func(j *Job) { j.UpdateProgress(percent, message) })
	}

	err := s.composer.Compose(ctx, input.TopPath, input.BottomPath, input.Caption, outputPath, onProgress)
	if err == nil {
		err = s.verifyOutput(outputPath)
	}

	if err != nil {
		s.logger.Error("composition failed",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		s.apply(ctx, jobID, func(j *Job) {
			if failErr := j.Fail(err.Error()); failErr != nil {
				s.logger.Error("job fail transition rejected",
					slog.String("job_id", jobID),
					slog.String("error", failErr.Error()),
				)
			}
		})
	} else {
		s.apply(ctx, jobID, func(j *Job) {
			if doneErr := j.Complete(outputPath, outputName); doneErr != nil {
				s.logger.Error("job done transition rejected",
					slog.String("job_id", jobID),
					slog.String("error", doneErr.Error()),
				)
				return
			}
			s.logger.Info("job completed",
				slog.String("job_id", jobID),
				slog.String("output", outputPath),
			)
		})
	}

	s.cleanupInputs(ctx, jobID, input)
}

// verifyOutput confirms the composed file exists and is non-trivially
// sized. The engine's word is not trusted on this.
func (s *Service) verifyOutput(outputPath string) error {
	info, err := os.Stat(outputPath)
	if err != nil {
		return errors.New("output file was not created")
	}
	if info.Size() < s.minOutputBytes {
		return errors.New("output file is too small (likely corrupted)")
	}
	return nil
}

// cleanupInputs removes the job's input artifacts once it is terminal.
// Best effort: failures are logged and never flip the job's state.
func (s *Service) cleanupInputs(ctx context.Context, jobID string, input SubmitInput) {
	paths := make([]string, 0, 2)
	if input.TopPath != "" {
		paths = append(paths, input.TopPath)
	}
	if input.BottomPath != "" {
		paths = append(paths, input.BottomPath)
	}
	if len(paths) == 0 {
		return
	}

	if err := s.store.Cleanup(ctx, paths); err != nil {
		s.logger.Warn("input cleanup failed",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		return
	}
	s.apply(ctx, jobID, func(j *Job) { j.ClearInputs() })
}

// Publish starts a publish attempt for a completed job. The job must be
// in the done state; otherwise ErrNotDone is returned and the job is left
// untouched. The attempt runs in its own worker, independent of any
// composition work.
func (s *Service) Publish(ctx context.Context, jobID string, input PublishInput) (*Job, error) {
	if s.publisher == nil {
		return nil, ErrPublishNotConfigured
	}

	// BeginPublish runs against the registry's own record under the job's
	// mutex, so two concurrent triggers cannot both pass the precondition.
	if err := s.repo.Update(ctx, jobID, func(j *Job) error { return j.BeginPublish() }); err != nil {
		return nil, err
	}

	snapshot, err := s.repo.FindByID(ctx, jobID)
	if err != nil {
		return nil, err
	}

	caption := input.Caption
	if hashtags := strings.TrimSpace(input.Hashtags); hashtags != "" {
		caption = caption + "\n\n" + hashtags
	}

	s.logger.Info("publish started",
		slog.String("job_id", jobID),
	)

	go s.runPublish(context.WithoutCancel(ctx), jobID, snapshot.OutputPath, snapshot.OutputName, caption)

	return snapshot, nil
}

// runPublish is the per-attempt publish worker. It is the single writer
// of the job's publish sub-record.
func (s *Service) runPublish(ctx context.Context, jobID, outputPath, outputName, caption string) {
	videoURL, err := s.store.OutputURL(ctx, outputPath, outputName)
	if err != nil {
		s.logger.Error("resolving output URL failed",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		s.apply(ctx, jobID, func(j *Job) { j.FinishPublishFailure(categoryInternal, err.Error()) })
		return
	}

	url, err := s.publisher.Run(ctx, videoURL, caption, func(containerID string) {
		s.apply(ctx, jobID, func(j *Job) { j.SetPublishContainer(containerID) })
	})
	if err != nil {
		category, message := classifyPublishError(err)
		s.logger.Error("publish failed",
			slog.String("job_id", jobID),
			slog.String("category", category),
			slog.String("error", message),
		)
		s.apply(ctx, jobID, func(j *Job) { j.FinishPublishFailure(category, message) })
		return
	}

	s.logger.Info("publish succeeded",
		slog.String("job_id", jobID),
		slog.String("url", url),
	)
	s.apply(ctx, jobID, func(j *Job) { j.FinishPublishSuccess(url) })
}

// classifyPublishError extracts the failure category and message from a
// publisher error.
func classifyPublishError(err error) (category, message string) {
	var failure *publisher.Failure
	if errors.As(err, &failure) {
		return string(failure.Category), failure.Message
	}
	return categoryInternal, err.Error()
}

// StartJanitor launches the retention janitor, which evicts terminal jobs
// past the retention window. Jobs with an in-flight publish attempt are
// skipped. A no-op when retention is zero. Stops when ctx is cancelled.
func (s *Service) StartJanitor(ctx context.Context) {
	if s.retention <= 0 {
		return
	}
	interval := s.cleanupInterval
	if interval <= 0 {
		interval = time.Hour
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.evictExpired(ctx)
			}
		}
	}()
}

// evictExpired removes expired terminal jobs and their output artifacts.
func (s *Service) evictExpired(ctx context.Context) {
	jobs, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Warn("janitor list failed",
			slog.String("error", err.Error()),
		)
		return
	}

	cutoff := time.Now().Add(-s.retention)
	for _, j := range jobs {
		if !j.IsTerminal() || j.PublishActive() {
			continue
		}
		if j.CompletedAt.After(cutoff) {
			continue
		}

		if j.OutputPath != "" {
			if err := s.store.Cleanup(ctx, []string{j.OutputPath}); err != nil {
				s.logger.Warn("janitor output cleanup failed",
					slog.String("job_id", j.ID),
					slog.String("error", err.Error()),
				)
			}
		}
		if err := s.repo.Delete(ctx, j.ID); err != nil && !errors.Is(err, ErrJobNotFound) {
			s.logger.Warn("janitor delete failed",
				slog.String("job_id", j.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		s.logger.Info("job evicted",
			slog.String("job_id", j.ID),
		)
	}
}

// apply runs an infallible mutation against the registry's record for
// jobID. A missing record (evicted mid-flight) is logged and otherwise
// ignored; a worker must never crash because its job disappeared.
func (s *Service) apply(ctx context.Context, jobID string, fn func(*Job)) {
	err := s.repo.Update(ctx, jobID, func(j *Job) error {
		fn(j)
		return nil
	})
	if err != nil {
		s.logger.Warn("job update failed",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
	}
}
