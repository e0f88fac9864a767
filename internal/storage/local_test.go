package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSaveUploadPreservesExtension(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}

	path, err := store.SaveUpload(context.Background(), "top_*.mp4", strings.NewReader("video bytes"))
	if err != nil {
		t.Fatalf("SaveUpload failed: %v", err)
	}

	name := filepath.Base(path)
	if !strings.HasPrefix(name, "top_") || !strings.HasSuffix(name, ".mp4") {
		t.Errorf("expected top_*.mp4 shaped name, got %q", name)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading saved upload failed: %v", err)
	}
	if string(data) != "video bytes" {
		t.Errorf("unexpected file contents %q", data)
	}
}

func TestSaveUploadWithoutPattern(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}

	path, err := store.SaveUpload(context.Background(), "clip", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("SaveUpload failed: %v", err)
	}
	if !strings.HasPrefix(filepath.Base(path), "clip_") {
		t.Errorf("expected clip_ prefix, got %q", filepath.Base(path))
	}
}

func TestSaveUploadUniqueNames(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}

	a, err := store.SaveUpload(context.Background(), "top_*.mp4", strings.NewReader("a"))
	if err != nil {
		t.Fatalf("SaveUpload failed: %v", err)
	}
	b, err := store.SaveUpload(context.Background(), "top_*.mp4", strings.NewReader("b"))
	if err != nil {
		t.Fatalf("SaveUpload failed: %v", err)
	}
	if a == b {
		t.Errorf("expected unique paths, got %q twice", a)
	}
}

func TestSaveUploadCancelledContext(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := store.SaveUpload(ctx, "top_*.mp4", strings.NewReader("x")); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestCleanup(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "")
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}

	f1 := filepath.Join(dir, "a.mp4")
	f2 := filepath.Join(dir, "b.mp4")
	for _, f := range []string{f1, f2} {
		if err := os.WriteFile(f, []byte("x"), 0600); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
	}

	if err := store.Cleanup(context.Background(), []string{f1, f2}); err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	for _, f := range []string{f1, f2} {
		if _, err := os.Stat(f); !os.IsNotExist(err) {
			t.Errorf("expected %s removed", f)
		}
	}
}

func TestCleanupMissingFilesIgnored(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}

	if err := store.Cleanup(context.Background(), []string{"/nonexistent/a.mp4"}); err != nil {
		t.Errorf("missing files must not error: %v", err)
	}
}

func TestOutputURL(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		want    string
	}{
		{"trailing slash", "http://localhost:8080/videos/", "http://localhost:8080/videos/output_reel-1.mp4"},
		{"no trailing slash", "http://localhost:8080/videos", "http://localhost:8080/videos/output_reel-1.mp4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := NewLocalStore(t.TempDir(), tt.baseURL)
			if err != nil {
				t.Fatalf("NewLocalStore failed: %v", err)
			}
			url, err := store.OutputURL(context.Background(), "/outputs/output_reel-1.mp4", "output_reel-1.mp4")
			if err != nil {
				t.Fatalf("OutputURL failed: %v", err)
			}
			if url != tt.want {
				t.Errorf("expected %q, got %q", tt.want, url)
			}
		})
	}
}

func TestOutputURLNotConfigured(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}

	_, err = store.OutputURL(context.Background(), "/outputs/x.mp4", "x.mp4")
	if !errors.Is(err, ErrPublicURLNotConfigured) {
		t.Errorf("expected ErrPublicURLNotConfigured, got %v", err)
	}
}

func TestNewLocalStoreRequiresDir(t *testing.T) {
	if _, err := NewLocalStore("", ""); err == nil {
		t.Error("expected error for empty upload dir")
	}
}
