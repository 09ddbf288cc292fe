package collab

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/videditor/jobrunner/internal/jobserrors"
)

// MediaToolchain wraps the ffprobe/ffmpeg subprocess invocations the
// pipeline needs: duration probing, thumbnail extraction, and stream-copy
// clip extraction. Every method is a single asynchronous child process;
// none of them block the caller's goroutine beyond the subprocess's own
// completion.
type MediaToolchain interface {
	Probe(ctx context.Context, videoPath string) (durationSeconds float64, err error)
	ExtractThumbnail(ctx context.Context, videoPath, outputPath string, timestampSeconds float64) error
	ExtractClip(ctx context.Context, videoPath, outputPath string, startSeconds, endSeconds float64) error
}

type ffmpegToolchain struct {
	ffmpegBinary  string
	ffprobeBinary string
}

// NewFFmpegToolchain builds a MediaToolchain shelling out to the given
// ffmpeg binary (ffprobe is assumed to live alongside it, same convention as
// FFMPEG_BINARY in the source configuration).
func NewFFmpegToolchain(ffmpegBinary string) MediaToolchain {
	if ffmpegBinary == "" {
		ffmpegBinary = "ffmpeg"
	}
	ffprobeBinary := "ffprobe"
	if dir := filepath.Dir(ffmpegBinary); dir != "." {
		ffprobeBinary = filepath.Join(dir, "ffprobe")
	}
	return &ffmpegToolchain{ffmpegBinary: ffmpegBinary, ffprobeBinary: ffprobeBinary}
}

type probeFormat struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

func (t *ffmpegToolchain) Probe(ctx context.Context, videoPath string) (float64, error) {
	cmd := exec.CommandContext(ctx, t.ffprobeBinary,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "json",
		videoPath,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return 0, jobserrors.Collaborator("ffprobe", excerpt(stderr.String()))
	}
	var parsed probeFormat
	if err := json.Unmarshal(stdout.Bytes(), &parsed); err != nil {
		return 0, jobserrors.Collaborator("ffprobe", "unparseable output: "+err.Error())
	}
	duration, err := strconv.ParseFloat(parsed.Format.Duration, 64)
	if err != nil {
		return 0, jobserrors.Collaborator("ffprobe", "non-numeric duration: "+parsed.Format.Duration)
	}
	return duration, nil
}

// ExtractThumbnail extracts one frame at timestampSeconds, letterboxed to
// 640x360 JPEG at quality 5, matching the source's scale+pad filter chain.
func (t *ffmpegToolchain) ExtractThumbnail(ctx context.Context, videoPath, outputPath string, timestampSeconds float64) error {
	const width, height, quality = 640, 360, 5
	scale := fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2", width, height, width, height)
	cmd := exec.CommandContext(ctx, t.ffmpegBinary,
		"-ss", strconv.FormatFloat(timestampSeconds, 'f', -1, 64),
		"-i", videoPath,
		"-vframes", "1",
		"-vf", scale,
		"-q:v", strconv.Itoa(quality),
		"-y",
		outputPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return jobserrors.Collaborator("ffmpeg thumbnail", excerpt(stderr.String()))
	}
	return nil
}

// ExtractClip stream-copies (no re-encode) between startSeconds and
// endSeconds, fixing timestamps with avoid_negative_ts as the source does.
func (t *ffmpegToolchain) ExtractClip(ctx context.Context, videoPath, outputPath string, startSeconds, endSeconds float64) error {
	cmd := exec.CommandContext(ctx, t.ffmpegBinary,
		"-ss", strconv.FormatFloat(startSeconds, 'f', -1, 64),
		"-to", strconv.FormatFloat(endSeconds, 'f', -1, 64),
		"-i", videoPath,
		"-c", "copy",
		"-avoid_negative_ts", "make_zero",
		"-y",
		outputPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return jobserrors.Collaborator("ffmpeg clip", excerpt(stderr.String()))
	}
	return nil
}

func excerpt(s string) string {
	const max = 500
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
