package id

import (
	"strings"
	"testing"
)

func TestGenerate_Format(t *testing.T) {
	got := Generate()
	if !strings.HasPrefix(got, "reel-") {
		t.Errorf("expected reel- prefix, got %q", got)
	}
	parts := strings.Split(got, "-")
	if len(parts) != 3 {
		t.Fatalf("expected 3 parts, got %d (%q)", len(parts), got)
	}
	if len(parts[2]) != 12 {
		t.Errorf("expected 12 hex chars of randomness, got %q", parts[2])
	}
}

func TestGenerate_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := Generate()
		if seen[id] {
			t.Fatalf("duplicate ID generated: %s", id)
		}
		seen[id] = true
	}
}
