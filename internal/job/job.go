// Package job provides the Job aggregate for composed-reel processing jobs.
// It includes the Job entity with its state machine, the publish sub-record
// driven by the Instagram publish worker, and repository interfaces.
package job

import (
	"errors"
	"sync"
	"time"

	"github.com/reelstack/reelstack-api/internal/job/id"
)

// Status represents the current state of a Job's composition lifecycle.
type Status string

const (
	// StatusQueued indicates the job is created but the worker has not started.
	StatusQueued Status = "queued"
	// StatusProcessing indicates the composition worker is running.
	StatusProcessing Status = "processing"
	// StatusDone indicates composition finished and the output was verified.
	StatusDone Status = "done"
	// StatusError indicates composition failed.
	StatusError Status = "error"
)

// PublishStatus represents the state of a publish attempt.
type PublishStatus string

const (
	// PublishUploading indicates the publish worker is driving the remote protocol.
	PublishUploading PublishStatus = "uploading"
	// PublishSuccess indicates the reel was published and a URL is available.
	PublishSuccess PublishStatus = "success"
	// PublishFailed indicates the publish attempt failed.
	PublishFailed PublishStatus = "failed"
)

// Static errors for job state transitions.
var (
	// ErrInvalidTransition is returned when an invalid state transition is attempted.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrNotDone is returned when a publish is requested for a job that has
	// not reached the done state.
	ErrNotDone = errors.New("job is not done")
	// ErrPublishInFlight is returned when a publish is requested while a
	// previous attempt is still uploading.
	ErrPublishInFlight = errors.New("publish attempt already in flight")
)

// validTransitions defines which state transitions are allowed.
var validTransitions = map[Status][]Status{
	StatusQueued:     {StatusProcessing, StatusError},
	StatusProcessing: {StatusDone, StatusError},
	StatusDone:       {},
	StatusError:      {},
}

// canTransition checks if a transition from one status to another is valid.
func canTransition(from, to Status) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// PublishAttempt records one run of the three-phase remote publish protocol.
// A job has at most one active attempt; prior terminal attempts are archived
// in the job's PublishHistory.
type PublishAttempt struct {
	// Status is the current publish state.
	Status PublishStatus
	// ContainerID is the remote container ID assigned after phase 1.
	ContainerID string
	// URL is the public reel URL, set only on success.
	URL string
	// LastError is the failure message, set only on failure.
	LastError string
	// ErrorCategory classifies the failure (remote_rejected,
	// remote_processing, remote_timeout, network). Empty unless failed.
	ErrorCategory string
	// StartedAt is when the attempt began.
	StartedAt time.Time
	// FinishedAt is when the attempt reached a terminal state.
	FinishedAt time.Time
}

// IsTerminal returns true if the attempt is in a terminal state.
func (a *PublishAttempt) IsTerminal() bool {
	return a.Status == PublishSuccess || a.Status == PublishFailed
}

// Job represents one reel composition request and its lifecycle.
// The composition worker is the single writer of the composition fields;
// the publish worker is the single writer of the Publish sub-record.
type Job struct {
	mu sync.RWMutex

	// ID is the unique identifier for this job.
	ID string
	// Status is the current job state.
	Status Status
	// Progress is the percentage of completion (0-100, non-decreasing).
	Progress int
	// Message is the latest human-readable progress message.
	Message string
	// Error contains the failure cause if the job reached the error state.
	Error string
	// TopPath is the path to the uploaded top (meme) clip.
	TopPath string
	// BottomPath is the path to the uploaded bottom (gameplay) clip.
	BottomPath string
	// OutputPath is the path to the composed reel, set only on done.
	OutputPath string
	// OutputName is the public filename of the composed reel.
	OutputName string
	// Caption is the caption captured at submission.
	Caption string
	// Publish is the active publish attempt, nil until one is requested.
	Publish *PublishAttempt
	// PublishHistory holds prior terminal attempts for audit.
	PublishHistory []PublishAttempt
	// CreatedAt is when the job was created.
	CreatedAt time.Time
	// UpdatedAt is when the job was last updated.
	UpdatedAt time.Time
	// StartedAt is when composition started.
	StartedAt time.Time
	// CompletedAt is when composition reached a terminal state.
	CompletedAt time.Time
}

// New creates a new Job with a generated ID and initial queued status.
func New() *Job {
	return NewWithID(id.Generate())
}

// NewWithID creates a new Job with the specified ID and initial queued status.
// Useful for testing or when the ID needs to be externally generated.
func NewWithID(jobID string) *Job {
	now := time.Now()
	return &Job{
		ID:        jobID,
		Status:    StatusQueued,
		Message:   "Queued",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// transitionLocked changes the job status, enforcing the state machine.
// Callers hold j.mu.
func (j *Job) transitionLocked(status Status) error {
	if !canTransition(j.Status, status) {
		return ErrInvalidTransition
	}

	j.Status = status
	j.UpdatedAt = time.Now()

	switch status {
	case StatusProcessing:
		j.StartedAt = j.UpdatedAt
	case StatusDone, StatusError:
		j.CompletedAt = j.UpdatedAt
	}

	return nil
}

// Start transitions the job from queued to processing.
func (j *Job) Start() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.transitionLocked(StatusProcessing); err != nil {
		return err
	}
	j.Message = "Starting"
	return nil
}

// Complete transitions the job to done, recording the verified output.
// Progress is forced to 100 so that done, progress==100 and a set output
// path always coincide.
func (j *Job) Complete(outputPath, outputName string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.transitionLocked(StatusDone); err != nil {
		return err
	}
	j.OutputPath = outputPath
	j.OutputName = outputName
	j.Progress = 100
	j.Message = "Completed"
	return nil
}

// Fail transitions the job to the error state with a human-readable cause.
func (j *Job) Fail(errMsg string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.transitionLocked(StatusError); err != nil {
		return err
	}
	j.Error = errMsg
	j.Message = "Error"
	return nil
}

// UpdateProgress records a progress report from the composition engine.
// Percentages are clamped to [0,100] and out-of-order lower values are
// ignored so progress stays monotonic. Reports against a terminal job are
// dropped.
func (j *Job) UpdateProgress(percent int, message string) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.Status != StatusProcessing {
		return
	}
	if percent < 0 {
		percent = 0
	}
	// 100 is reserved for the done transition.
	if percent > 99 {
		percent = 99
	}
	if percent < j.Progress {
		return
	}
	j.Progress = percent
	if message != "" {
		j.Message = message
	}
	j.UpdatedAt = time.Now()
}

// ClearInputs drops the input references after cleanup.
func (j *Job) ClearInputs() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.TopPath = ""
	j.BottomPath = ""
	j.UpdatedAt = time.Now()
}

// BeginPublish starts a new publish attempt. The job must be done and no
// attempt may be in flight. A prior terminal attempt is archived into
// PublishHistory and the active attempt is fully reset.
func (j *Job) BeginPublish() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.Status != StatusDone {
		return ErrNotDone
	}
	if j.Publish != nil {
		if !j.Publish.IsTerminal() {
			return ErrPublishInFlight
		}
		j.PublishHistory = append(j.PublishHistory, *j.Publish)
	}

	now := time.Now()
	j.Publish = &PublishAttempt{
		Status:    PublishUploading,
		StartedAt: now,
	}
	j.UpdatedAt = now
	return nil
}

// SetPublishContainer records the remote container ID assigned in phase 1.
func (j *Job) SetPublishContainer(containerID string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.Publish == nil {
		return
	}
	j.Publish.ContainerID = containerID
	j.UpdatedAt = time.Now()
}

// FinishPublishSuccess marks the active attempt as succeeded.
func (j *Job) FinishPublishSuccess(url string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.Publish == nil {
		return
	}
	now := time.Now()
	j.Publish.Status = PublishSuccess
	j.Publish.URL = url
	j.Publish.FinishedAt = now
	j.UpdatedAt = now
}

// FinishPublishFailure marks the active attempt as failed with a
// classified cause.
func (j *Job) FinishPublishFailure(category, errMsg string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.Publish == nil {
		return
	}
	now := time.Now()
	j.Publish.Status = PublishFailed
	j.Publish.LastError = errMsg
	j.Publish.ErrorCategory = category
	j.Publish.FinishedAt = now
	j.UpdatedAt = now
}

// GetStatus returns the current job status (thread-safe).
func (j *Job) GetStatus() Status {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status
}

// IsTerminal returns true if the job's composition is in a terminal state.
func (j *Job) IsTerminal() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status == StatusDone || j.Status == StatusError
}

// PublishActive returns true if a publish attempt is currently uploading.
func (j *Job) PublishActive() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Publish != nil && !j.Publish.IsTerminal()
}

// Clone creates a deep copy of the job for safe reads.
func (j *Job) Clone() *Job {
	j.mu.RLock()
	defer j.mu.RUnlock()

	var publish *PublishAttempt
	if j.Publish != nil {
		p := *j.Publish
		publish = &p
	}
	history := make([]PublishAttempt, len(j.PublishHistory))
	copy(history, j.PublishHistory)

	return &Job{
		ID:             j.ID,
		Status:         j.Status,
		Progress:       j.Progress,
		Message:        j.Message,
		Error:          j.Error,
		TopPath:        j.TopPath,
		BottomPath:     j.BottomPath,
		OutputPath:     j.OutputPath,
		OutputName:     j.OutputName,
		Caption:        j.Caption,
		Publish:        publish,
		PublishHistory: history,
		CreatedAt:      j.CreatedAt,
		UpdatedAt:      j.UpdatedAt,
		StartedAt:      j.StartedAt,
		CompletedAt:    j.CompletedAt,
	}
}
