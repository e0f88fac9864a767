// Package publisher drives the three-phase remote publish protocol for a
// composed reel: create container, poll processing status, publish. Each
// phase has a distinct failure class so callers can tell a remote
// rejection from a processing failure, a poll timeout, or a network fault.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/reelstack/reelstack-api/internal/instagram"
)

// Category classifies a publish failure.
type Category string

// Failure categories, surfaced through the job's publish sub-record.
const (
	// CategoryRemoteRejected: the platform rejected the container create or
	// publish call (phase 1 or 3).
	CategoryRemoteRejected Category = "remote_rejected"
	// CategoryRemoteProcessing: the platform reported ERROR while
	// processing the container (phase 2).
	CategoryRemoteProcessing Category = "remote_processing"
	// CategoryTimeout: the poll attempt ceiling was exceeded without the
	// container finishing (phase 2).
	CategoryTimeout Category = "remote_timeout"
	// CategoryNetwork: a transport-level fault at any phase.
	CategoryNetwork Category = "network"
)

// Failure is a classified publish error. The message of a remote rejection
// is the platform's own, preserved verbatim.
type Failure struct {
	Category Category
	Message  string
	Err      error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("publish failed (%s): %s", f.Category, f.Message)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// PollPolicy bounds the phase-2 status poll loop.
type PollPolicy struct {
	// Interval is the delay between status polls.
	Interval time.Duration
	// MaxAttempts is the poll ceiling; exceeding it fails with CategoryTimeout.
	MaxAttempts int
}

// DefaultPollPolicy returns the reference policy: 60 polls, 10 seconds
// apart, a 10-minute ceiling.
func DefaultPollPolicy() PollPolicy {
	return PollPolicy{
		Interval:    10 * time.Second,
		MaxAttempts: 60,
	}
}

// SleepFunc waits for the given duration or until the context is done.
// Injectable so tests can run the poll loop without real delays.
type SleepFunc func(ctx context.Context, d time.Duration) error

func defaultSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Publisher runs publish attempts against a Graph API client.
type Publisher struct {
	client instagram.Client
	policy PollPolicy
	sleep  SleepFunc
	logger *slog.Logger
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithPollPolicy overrides the phase-2 poll policy.
func WithPollPolicy(policy PollPolicy) Option {
	return func(p *Publisher) {
		if policy.Interval > 0 && policy.MaxAttempts > 0 {
			p.policy = policy
		}
	}
}

// WithSleep overrides the inter-poll sleep, for tests.
func WithSleep(sleep SleepFunc) Option {
	return func(p *Publisher) {
		p.sleep = sleep
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// New creates a Publisher with the default poll policy.
func New(client instagram.Client, opts ...Option) *Publisher {
	p := &Publisher{
		client: client,
		policy: DefaultPollPolicy(),
		sleep:  defaultSleep,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes one publish attempt for the video reachable at videoURL.
// onContainer, if non-nil, is invoked with the container ID as soon as
// phase 1 succeeds. On success the public reel URL is returned; on failure
// the error is always a *Failure.
func (p *Publisher) Run(ctx context.Context, videoURL, caption string, onContainer func(containerID string)) (string, error) {
	// Phase 1: create the media container. Any rejection here is final.
	containerID, err := p.client.CreateContainer(ctx, videoURL, caption)
	if err != nil {
		return "", classify(err)
	}
	if onContainer != nil {
		onContainer(containerID)
	}
	p.logger.Info("publish container created",
		slog.String("container_id", containerID),
	)

	// Phase 2: poll until the platform finishes processing the video.
	if err := p.awaitProcessing(ctx, containerID); err != nil {
		return "", err
	}

	// Phase 3: publish the container.
	mediaID, err := p.client.Publish(ctx, containerID)
	if err != nil {
		return "", classify(err)
	}

	url := instagram.ReelURL(mediaID)
	p.logger.Info("reel published",
		slog.String("media_id", mediaID),
		slog.String("url", url),
	)
	return url, nil
}

// awaitProcessing polls the container status under the poll policy.
func (p *Publisher) awaitProcessing(ctx context.Context, containerID string) error {
	for attempt := 0; attempt < p.policy.MaxAttempts; attempt++ {
		status, err := p.client.ContainerStatus(ctx, containerID)
		if err != nil {
			return classify(err)
		}

		switch status.Code {
		case instagram.StatusFinished:
			return nil
		case instagram.StatusError:
			message := status.Detail
			if message == "" {
				message = "platform reported an error processing the video"
			}
			return &Failure{Category: CategoryRemoteProcessing, Message: message}
		}

		if err := p.sleep(ctx, p.policy.Interval); err != nil {
			return &Failure{Category: CategoryNetwork, Message: "publish cancelled", Err: err}
		}
	}

	return &Failure{
		Category: CategoryTimeout,
		Message:  fmt.Sprintf("timed out after %d status polls waiting for the platform to process the video", p.policy.MaxAttempts),
	}
}

// classify maps a client error to a Failure category.
func classify(err error) error {
	var apiErr *instagram.APIError
	if errors.As(err, &apiErr) {
		return &Failure{Category: CategoryRemoteRejected, Message: apiErr.Message, Err: err}
	}
	var transportErr *instagram.TransportError
	if errors.As(err, &transportErr) {
		return &Failure{Category: CategoryNetwork, Message: err.Error(), Err: err}
	}
	return &Failure{Category: CategoryRemoteRejected, Message: err.Error(), Err: err}
}
