package collab

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	goruntime "runtime"

	"golang.org/x/sync/semaphore"

	"github.com/videditor/jobrunner/internal/domain"
	"github.com/videditor/jobrunner/internal/jobserrors"
)

// Transcript is the decoded result of running speech-to-text over a video file.
type Transcript struct {
	Text            string
	Segments        []domain.Segment
	Language        string
	DurationSeconds float64
}

// Transcriber performs CPU-bound speech-to-text. Implementations must not
// block the caller's goroutine indefinitely on the CPU-bound work itself;
// the default implementation dispatches onto a bounded worker pool so a
// transcription call cannot starve the poll loop.
type Transcriber interface {
	Transcribe(ctx context.Context, videoPath string) (Transcript, error)
}

// whisperOutput is the JSON contract expected from the local
// whisper-compatible binary: one object with text/segments/language.
type whisperOutput struct {
	Text     string           `json:"text"`
	Segments []domain.Segment `json:"segments"`
	Language string           `json:"language"`
	Duration float64          `json:"duration"`
}

// shellTranscriber shells out to a local whisper-compatible binary and runs
// the subprocess wait on a semaphore-bounded pool sized to the number of
// CPUs, the Go analogue of the source's `loop.run_in_executor` dispatch of
// its CPU-bound faster-whisper call onto a thread pool.
type shellTranscriber struct {
	binary string
	sem    *semaphore.Weighted
}

// NewShellTranscriber builds a Transcriber that shells out to binary (a
// whisper-compatible CLI emitting the whisperOutput JSON contract on
// stdout). Concurrent invocations across all jobs in this process are
// capped at runtime.NumCPU().
func NewShellTranscriber(binary string) Transcriber {
	if binary == "" {
		binary = "whisper"
	}
	return &shellTranscriber{
		binary: binary,
		sem:    semaphore.NewWeighted(int64(goruntime.NumCPU())),
	}
}

func (t *shellTranscriber) Transcribe(ctx context.Context, videoPath string) (Transcript, error) {
	if err := t.sem.Acquire(ctx, 1); err != nil {
		return Transcript{}, err
	}
	defer t.sem.Release(1)

	cmd := exec.CommandContext(ctx, t.binary, "--output-format", "json", videoPath)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return Transcript{}, jobserrors.Collaborator("transcription", excerpt(stderr.String()))
	}

	var out whisperOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return Transcript{}, jobserrors.Collaborator("transcription", "unparseable output: "+err.Error())
	}
	if out.Language == "" {
		out.Language = "unknown"
	}
	duration := out.Duration
	if duration == 0 && len(out.Segments) > 0 {
		duration = out.Segments[len(out.Segments)-1].End
	}
	return Transcript{Text: out.Text, Segments: out.Segments, Language: out.Language, DurationSeconds: duration}, nil
}
