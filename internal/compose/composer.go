// Package compose provides the composition engine that stacks two source
// clips into a single 9:16 reel.
package compose

import "context"

// ProgressFunc receives progress reports from the engine. Implementations
// must tolerate out-of-order or repeated percentages; the orchestrator
// enforces monotonicity.
type ProgressFunc func(percent int, message string)

// Composer defines the interface for the reel composition engine.
// Compose blocks for the duration of the transform and reports progress
// through onProgress, logically culminating at 100 just before returning.
// On failure it returns a descriptive error and removes any partial output.
type Composer interface {
	Compose(ctx context.Context, topPath, bottomPath, caption, outputPath string, onProgress ProgressFunc) error
}

// MediaInfo describes a probed media file.
type MediaInfo struct {
	// Duration is the container duration in seconds.
	Duration float64
	// Width and Height are the dimensions of the first video stream.
	Width  int
	Height int
	// Size is the container size in bytes.
	Size int64
}
