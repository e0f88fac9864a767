package job

import (
	"errors"
	"strings"
	"testing"
)

func TestNewJob(t *testing.T) {
	j := New()

	if j.ID == "" {
		t.Error("expected non-empty job ID")
	}
	if !strings.HasPrefix(j.ID, "reel-") {
		t.Errorf("expected ID with reel- prefix, got %s", j.ID)
	}
	if j.Status != StatusQueued {
		t.Errorf("expected status %s, got %s", StatusQueued, j.Status)
	}
	if j.Progress != 0 {
		t.Errorf("expected progress 0, got %d", j.Progress)
	}
	if j.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
}

func TestJobLifecycle(t *testing.T) {
	j := NewWithID("reel-test-1")

	if err := j.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if j.GetStatus() != StatusProcessing {
		t.Errorf("expected status %s, got %s", StatusProcessing, j.GetStatus())
	}
	if j.StartedAt.IsZero() {
		t.Error("expected StartedAt to be set")
	}

	if err := j.Complete("/out/output_reel-test-1.mp4", "output_reel-test-1.mp4"); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if j.GetStatus() != StatusDone {
		t.Errorf("expected status %s, got %s", StatusDone, j.GetStatus())
	}
	if j.Progress != 100 {
		t.Errorf("expected progress 100 on done, got %d", j.Progress)
	}
	if j.OutputPath == "" || j.OutputName == "" {
		t.Error("expected output references to be set on done")
	}
	if j.CompletedAt.IsZero() {
		t.Error("expected CompletedAt to be set")
	}
}

func TestJobFail(t *testing.T) {
	j := NewWithID("reel-test-2")

	if err := j.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := j.Fail("ffmpeg exploded"); err != nil {
		t.Fatalf("Fail failed: %v", err)
	}
	if j.GetStatus() != StatusError {
		t.Errorf("expected status %s, got %s", StatusError, j.GetStatus())
	}
	if j.Error != "ffmpeg exploded" {
		t.Errorf("expected error message preserved, got %q", j.Error)
	}
}

func TestFailFromQueued(t *testing.T) {
	// A job that never starts can still fail (e.g. worker launch error).
	j := NewWithID("reel-test-3")
	if err := j.Fail("never started"); err != nil {
		t.Fatalf("Fail from queued failed: %v", err)
	}
	if j.GetStatus() != StatusError {
		t.Errorf("expected status %s, got %s", StatusError, j.GetStatus())
	}
}

func TestInvalidTransitions(t *testing.T) {
	tests := []struct {
		name string
		run  func(j *Job) error
	}{
		{"complete from queued", func(j *Job) error {
			return j.Complete("/out/x.mp4", "x.mp4")
		}},
		{"start after done", func(j *Job) error {
			_ = j.Start()
			_ = j.Complete("/out/x.mp4", "x.mp4")
			return j.Start()
		}},
		{"fail after done", func(j *Job) error {
			_ = j.Start()
			_ = j.Complete("/out/x.mp4", "x.mp4")
			return j.Fail("too late")
		}},
		{"complete after error", func(j *Job) error {
			_ = j.Start()
			_ = j.Fail("boom")
			return j.Complete("/out/x.mp4", "x.mp4")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := NewWithID("reel-invalid")
			if err := tt.run(j); !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("expected ErrInvalidTransition, got %v", err)
			}
		})
	}
}

func TestUpdateProgressMonotonic(t *testing.T) {
	j := NewWithID("reel-progress")
	if err := j.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	j.UpdateProgress(40, "encoding")
	if j.Progress != 40 {
		t.Errorf("expected progress 40, got %d", j.Progress)
	}

	// Lower reports are dropped.
	j.UpdateProgress(25, "stale")
	if j.Progress != 40 {
		t.Errorf("expected progress to stay at 40, got %d", j.Progress)
	}
	if j.Message != "encoding" {
		t.Errorf("expected message unchanged by stale report, got %q", j.Message)
	}

	j.UpdateProgress(80, "encoding")
	if j.Progress != 80 {
		t.Errorf("expected progress 80, got %d", j.Progress)
	}
}

func TestUpdateProgressClamps(t *testing.T) {
	j := NewWithID("reel-clamp")
	if err := j.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	j.UpdateProgress(-5, "negative")
	if j.Progress != 0 {
		t.Errorf("expected negative report clamped to 0, got %d", j.Progress)
	}

	// 100 is reserved for the done transition.
	j.UpdateProgress(150, "overshoot")
	if j.Progress != 99 {
		t.Errorf("expected overshoot clamped to 99, got %d", j.Progress)
	}
}

func TestUpdateProgressIgnoredOutsideProcessing(t *testing.T) {
	j := NewWithID("reel-noproc")

	j.UpdateProgress(50, "too early")
	if j.Progress != 0 {
		t.Errorf("expected progress report dropped while queued, got %d", j.Progress)
	}

	_ = j.Start()
	_ = j.Complete("/out/x.mp4", "x.mp4")

	j.UpdateProgress(50, "too late")
	if j.Progress != 100 {
		t.Errorf("expected progress to stay 100 after done, got %d", j.Progress)
	}
}

func TestBeginPublishRequiresDone(t *testing.T) {
	j := NewWithID("reel-pub-1")
	if err := j.BeginPublish(); !errors.Is(err, ErrNotDone) {
		t.Errorf("expected ErrNotDone for queued job, got %v", err)
	}

	_ = j.Start()
	if err := j.BeginPublish(); !errors.Is(err, ErrNotDone) {
		t.Errorf("expected ErrNotDone for processing job, got %v", err)
	}

	_ = j.Fail("boom")
	if err := j.BeginPublish(); !errors.Is(err, ErrNotDone) {
		t.Errorf("expected ErrNotDone for failed job, got %v", err)
	}
}

func TestBeginPublishRejectsInFlight(t *testing.T) {
	j := NewWithID("reel-pub-2")
	_ = j.Start()
	_ = j.Complete("/out/x.mp4", "x.mp4")

	if err := j.BeginPublish(); err != nil {
		t.Fatalf("first BeginPublish failed: %v", err)
	}
	if err := j.BeginPublish(); !errors.Is(err, ErrPublishInFlight) {
		t.Errorf("expected ErrPublishInFlight, got %v", err)
	}
}

func TestBeginPublishResetsAndArchives(t *testing.T) {
	j := NewWithID("reel-pub-3")
	_ = j.Start()
	_ = j.Complete("/out/x.mp4", "x.mp4")

	if err := j.BeginPublish(); err != nil {
		t.Fatalf("BeginPublish failed: %v", err)
	}
	j.SetPublishContainer("container-1")
	j.FinishPublishFailure("network", "connection refused")

	// Retry: the failed attempt is archived and the active record is fresh.
	if err := j.BeginPublish(); err != nil {
		t.Fatalf("retry BeginPublish failed: %v", err)
	}
	if len(j.PublishHistory) != 1 {
		t.Fatalf("expected 1 archived attempt, got %d", len(j.PublishHistory))
	}
	archived := j.PublishHistory[0]
	if archived.ContainerID != "container-1" || archived.ErrorCategory != "network" {
		t.Errorf("archived attempt not preserved: %+v", archived)
	}

	if j.Publish.Status != PublishUploading {
		t.Errorf("expected fresh attempt uploading, got %s", j.Publish.Status)
	}
	if j.Publish.ContainerID != "" || j.Publish.LastError != "" || j.Publish.ErrorCategory != "" || j.Publish.URL != "" {
		t.Errorf("expected fresh attempt fully reset, got %+v", j.Publish)
	}
}

func TestPublishSuccess(t *testing.T) {
	j := NewWithID("reel-pub-4")
	_ = j.Start()
	_ = j.Complete("/out/x.mp4", "x.mp4")
	_ = j.BeginPublish()

	j.SetPublishContainer("container-9")
	j.FinishPublishSuccess("https://www.instagram.com/reel/abc123/")

	if j.Publish.Status != PublishSuccess {
		t.Errorf("expected publish success, got %s", j.Publish.Status)
	}
	if j.Publish.URL != "https://www.instagram.com/reel/abc123/" {
		t.Errorf("unexpected URL %q", j.Publish.URL)
	}
	if j.Publish.FinishedAt.IsZero() {
		t.Error("expected FinishedAt to be set")
	}
	if j.PublishActive() {
		t.Error("expected no active publish after success")
	}
}

func TestPublishActive(t *testing.T) {
	j := NewWithID("reel-pub-5")
	if j.PublishActive() {
		t.Error("expected no active publish on a new job")
	}

	_ = j.Start()
	_ = j.Complete("/out/x.mp4", "x.mp4")
	_ = j.BeginPublish()
	if !j.PublishActive() {
		t.Error("expected active publish while uploading")
	}

	j.FinishPublishFailure("remote_timeout", "timed out")
	if j.PublishActive() {
		t.Error("expected no active publish after failure")
	}
}

func TestClearInputs(t *testing.T) {
	j := NewWithID("reel-clear")
	j.TopPath = "/uploads/top.mp4"
	j.BottomPath = "/uploads/bottom.mp4"

	j.ClearInputs()
	if j.TopPath != "" || j.BottomPath != "" {
		t.Error("expected inputs cleared")
	}
}

func TestCloneIndependence(t *testing.T) {
	j := NewWithID("reel-clone")
	_ = j.Start()
	_ = j.Complete("/out/x.mp4", "x.mp4")
	_ = j.BeginPublish()
	j.SetPublishContainer("container-1")

	clone := j.Clone()

	// Mutating the original must not leak into the clone.
	j.FinishPublishFailure("network", "boom")
	if clone.Publish.Status != PublishUploading {
		t.Errorf("clone publish mutated: %s", clone.Publish.Status)
	}
	if clone.Publish.LastError != "" {
		t.Errorf("clone publish error mutated: %q", clone.Publish.LastError)
	}

	// And the other direction.
	clone.Publish.ContainerID = "tampered"
	if j.Publish.ContainerID != "container-1" {
		t.Errorf("original publish mutated through clone: %q", j.Publish.ContainerID)
	}
}

func TestIsTerminal(t *testing.T) {
	j := NewWithID("reel-term")
	if j.IsTerminal() {
		t.Error("queued job should not be terminal")
	}
	_ = j.Start()
	if j.IsTerminal() {
		t.Error("processing job should not be terminal")
	}
	_ = j.Complete("/out/x.mp4", "x.mp4")
	if !j.IsTerminal() {
		t.Error("done job should be terminal")
	}
}
