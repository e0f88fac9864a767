package compose

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// Reel output geometry (9:16).
const (
	reelWidth  = 1080
	reelHeight = 1920
	// dividerPx is the black bar between the stacked sections.
	dividerPx = 10
	// maxReelSeconds caps the output length regardless of input durations.
	maxReelSeconds = 60.0
	// Accepted source clip duration bounds, in seconds.
	minClipSeconds = 1.0
	maxClipSeconds = 90.0
)

// Static errors for composition.
var (
	// ErrNoVideoStream is returned when a probed file has no video stream.
	ErrNoVideoStream = errors.New("compose: no video stream found")
	// ErrFFprobeExecution is returned when the ffprobe command fails.
	ErrFFprobeExecution = errors.New("compose: ffprobe execution failed")
)

// FFmpegComposer implements Composer using the ffmpeg and ffprobe CLIs.
type FFmpegComposer struct {
	ffmpegPath  string
	ffprobePath string
}

// NewFFmpegComposer creates a new FFmpegComposer. Empty paths default to
// "ffmpeg" and "ffprobe" found via PATH.
func NewFFmpegComposer(ffmpegPath, ffprobePath string) *FFmpegComposer {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFmpegComposer{ffmpegPath: ffmpegPath, ffprobePath: ffprobePath}
}

// Compile-time check that FFmpegComposer implements Composer.
var _ Composer = (*FFmpegComposer)(nil)

// stackFilter builds the filter graph that scales both clips to the reel
// width, stacks them vertically with a divider, and letterboxes the result
// to the full 9:16 frame.
func stackFilter() string {
	return fmt.Sprintf(
		"[0:v]scale=%d:-2,setsar=1[top];"+
			"[1:v]scale=%d:-2,setsar=1[bottom];"+
			"[top]pad=%d:ih+%d:0:0:black[top_pad];"+
			"[top_pad][bottom]vstack=inputs=2[stacked];"+
			"[stacked]scale=%d:%d:force_original_aspect_ratio=decrease,"+
			"pad=%d:%d:(ow-iw)/2:(oh-ih)/2:black[final]",
		reelWidth, reelWidth, reelWidth, dividerPx,
		reelWidth, reelHeight, reelWidth, reelHeight,
	)
}

// Compose stacks topPath over bottomPath into outputPath. The output
// duration is the shortest input, capped at maxReelSeconds. Audio is taken
// from the top clip when it has an audio stream.
func (c *FFmpegComposer) Compose(ctx context.Context, topPath, bottomPath, caption, outputPath string, onProgress ProgressFunc) error {
	report := func(pct int, msg string) {
		if onProgress != nil {
			onProgress(pct, msg)
		}
	}

	report(5, "probing inputs")

	topInfo, err := c.Probe(ctx, topPath)
	if err != nil {
		return fmt.Errorf("probe top clip: %w", err)
	}
	if err := validateClip(topInfo); err != nil {
		return fmt.Errorf("top clip: %w", err)
	}
	bottomInfo, err := c.Probe(ctx, bottomPath)
	if err != nil {
		return fmt.Errorf("probe bottom clip: %w", err)
	}
	if err := validateClip(bottomInfo); err != nil {
		return fmt.Errorf("bottom clip: %w", err)
	}

	duration := topInfo.Duration
	if bottomInfo.Duration < duration {
		duration = bottomInfo.Duration
	}
	if duration > maxReelSeconds {
		duration = maxReelSeconds
	}

	report(10, "compositing")

	args := []string{
		"-i", topPath,
		"-i", bottomPath,
		"-filter_complex", stackFilter(),
		"-map", "[final]",
		"-map", "0:a?",
		"-c:v", "libx264",
		"-preset", "medium",
		"-crf", "23",
		"-profile:v", "high",
		"-level", "4.2",
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
		"-c:a", "aac",
		"-b:a", "128k",
		"-ar", "44100",
		"-t", strconv.FormatFloat(duration, 'f', 2, 64),
	}
	if caption != "" {
		args = append(args, "-metadata", "title="+caption)
	}
	args = append(args,
		"-progress", "pipe:1",
		"-nostats",
		"-y",
		outputPath,
	)

	if err := c.runWithProgress(ctx, args, duration, report); err != nil {
		// Never leave a partial file that looks complete.
		_ = os.Remove(outputPath)
		return err
	}

	report(100, "done")
	return nil
}

// validateClip rejects source clips outside the accepted duration window.
func validateClip(info MediaInfo) error {
	if info.Duration < minClipSeconds || info.Duration > maxClipSeconds {
		return fmt.Errorf("clip duration %.1fs is outside the accepted range (%.0f-%.0f seconds)",
			info.Duration, minClipSeconds, maxClipSeconds)
	}
	return nil
}

// runWithProgress executes ffmpeg, relaying its machine-readable progress
// stream (key=value pairs on stdout) into the callback.
func (c *FFmpegComposer) runWithProgress(ctx context.Context, args []string, duration float64, report ProgressFunc) error {
	// #nosec G204 - ffmpegPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, c.ffmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg: %w", err)
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		if pct, ok := parseProgressLine(scanner.Text(), duration); ok {
			report(pct, "encoding")
		}
	}

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("ffmpeg cancelled: %w", ctx.Err())
		}
		return &FFmpegError{
			Args:   args,
			Stderr: stderr.String(),
			Err:    err,
		}
	}
	return nil
}

// parseProgressLine maps one line of ffmpeg's -progress output to an
// encoding percentage in the 10..95 band. Lines that carry no timing
// information return ok=false.
func parseProgressLine(line string, duration float64) (int, bool) {
	value, found := strings.CutPrefix(strings.TrimSpace(line), "out_time_us=")
	if !found || duration <= 0 {
		return 0, false
	}
	us, err := strconv.ParseInt(value, 10, 64)
	if err != nil || us < 0 {
		return 0, false
	}
	elapsed := float64(us) / 1e6
	frac := elapsed / duration
	if frac > 1 {
		frac = 1
	}
	return 10 + int(frac*85), true
}

// Probe returns container and first-video-stream metadata using ffprobe.
func (c *FFmpegComposer) Probe(ctx context.Context, path string) (MediaInfo, error) {
	// #nosec G204 - ffprobePath is set by the application, not user input
	cmd := exec.CommandContext(ctx, c.ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return MediaInfo{}, fmt.Errorf("ffprobe cancelled: %w", ctx.Err())
		}
		return MediaInfo{}, fmt.Errorf("%w: %w, stderr: %s", ErrFFprobeExecution, err, stderr.String())
	}

	return parseProbeOutput(stdout.Bytes())
}

// probeOutput mirrors the subset of ffprobe's JSON output we consume.
type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
		Size     string `json:"size"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
}

func parseProbeOutput(data []byte) (MediaInfo, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return MediaInfo{}, fmt.Errorf("parse ffprobe output: %w", err)
	}

	info := MediaInfo{}
	if out.Format.Duration != "" {
		d, err := strconv.ParseFloat(out.Format.Duration, 64)
		if err != nil {
			return MediaInfo{}, fmt.Errorf("parse duration %q: %w", out.Format.Duration, err)
		}
		info.Duration = d
	}
	if out.Format.Size != "" {
		s, err := strconv.ParseInt(out.Format.Size, 10, 64)
		if err == nil {
			info.Size = s
		}
	}

	for _, stream := range out.Streams {
		if stream.CodecType == "video" {
			info.Width = stream.Width
			info.Height = stream.Height
			return info, nil
		}
	}
	return MediaInfo{}, ErrNoVideoStream
}

// FFmpegError represents an error from running ffmpeg, including the stderr output.
type FFmpegError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *FFmpegError) Error() string {
	return fmt.Sprintf("ffmpeg error: %v\nargs: %v\nstderr: %s", e.Err, e.Args, e.Stderr)
}

func (e *FFmpegError) Unwrap() error {
	return e.Err
}
