package handler

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/videditor/jobrunner/internal/collab"
	"github.com/videditor/jobrunner/internal/domain"
	"github.com/videditor/jobrunner/internal/jobserrors"
	"github.com/videditor/jobrunner/internal/pkg/dbctx"
	"github.com/videditor/jobrunner/internal/pkg/logger"
	"github.com/videditor/jobrunner/internal/repo"
	"github.com/videditor/jobrunner/internal/runtime"
)

const defaultShortsCount = 3

// AnalysisHandler identifies candidate short clips from a project's
// transcription, extracts and uploads each clip, and records a Short row
// per suggestion. A single suggestion's extraction failure is isolated to
// its own Short row (status error) and does not fail the enclosing job.
type AnalysisHandler struct {
	store          collab.ObjectStore
	media          collab.MediaToolchain
	textgen        collab.TextGenerator
	projects       repo.ProjectRepo
	transcriptions repo.TranscriptionRepo
	shorts         repo.ShortRepo
	defaultBucket  string
	log            *logger.Logger
}

func NewAnalysisHandler(
	store collab.ObjectStore,
	media collab.MediaToolchain,
	textgen collab.TextGenerator,
	projects repo.ProjectRepo,
	transcriptions repo.TranscriptionRepo,
	shorts repo.ShortRepo,
	defaultBucket string,
	baseLog *logger.Logger,
) *AnalysisHandler {
	return &AnalysisHandler{
		store:          store,
		media:          media,
		textgen:        textgen,
		projects:       projects,
		transcriptions: transcriptions,
		shorts:         shorts,
		defaultBucket:  defaultBucket,
		log:            baseLog.With("handler", "analysis"),
	}
}

func (h *AnalysisHandler) Type() string { return string(domain.JobTypeAnalysis) }

func (h *AnalysisHandler) Run(rc *runtime.Context) error {
	if rc.Job.ProjectID == nil {
		return jobserrors.MissingField("projectId")
	}
	projectID := *rc.Job.ProjectID

	var payload domain.AnalysisPayload
	if len(rc.Job.Payload) > 0 {
		if err := json.Unmarshal(rc.Job.Payload, &payload); err != nil {
			return jobserrors.MissingField("payload")
		}
	}
	shortsCount := defaultShortsCount
	if payload.ShortsCount != nil && *payload.ShortsCount > 0 {
		shortsCount = *payload.ShortsCount
	}

	ctx := rc.Ctx

	if err := h.projects.UpdateStatus(dbctx.Context{Ctx: ctx}, projectID, domain.ProjectStatusAnalyzing); err != nil {
		return fmt.Errorf("update project status: %w", err)
	}

	project, err := h.projects.GetByID(dbctx.Context{Ctx: ctx}, projectID)
	if err != nil {
		return fmt.Errorf("read project: %w", err)
	}
	if project == nil {
		return fmt.Errorf("%w: project %s", jobserrors.ErrNotFound, projectID)
	}

	transcription, err := h.transcriptions.GetByProjectID(dbctx.Context{Ctx: ctx}, projectID)
	if err != nil {
		return fmt.Errorf("read transcription: %w", err)
	}
	if transcription == nil {
		return fmt.Errorf("%w: transcription for project %s", jobserrors.ErrNotFound, projectID)
	}
	segments := transcription.Segments.Data()
	if len(segments) == 0 {
		return fmt.Errorf("transcription for project %s has no segments", projectID)
	}

	suggestions, err := h.textgen.SuggestShorts(ctx, segments, shortsCount, payload.CustomPrompt)
	if err != nil {
		return fmt.Errorf("analyze transcript: %w", err)
	}

	videoPath, cleanup, err := newTempFile(rc.Job.ID, ".mp4", h.log)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := h.store.Download(ctx, project.SourceBucket, project.SourceObjectKey, videoPath); err != nil {
		return fmt.Errorf("download source: %w", err)
	}

	summaries := make([]domain.AnalysisShortSummary, 0, len(suggestions))
	for _, suggestion := range suggestions {
		summary, err := h.processSuggestion(ctx, rc.Job.ID, project, videoPath, suggestion)
		if err != nil {
			h.log.Warn("short suggestion failed, isolated from job outcome",
				"job_id", rc.Job.ID, "project_id", projectID, "segment_id", suggestion.SegmentID, "error", err)
			continue
		}
		summaries = append(summaries, summary)
	}

	if err := h.projects.UpdateStatus(dbctx.Context{Ctx: ctx}, projectID, domain.ProjectStatusCompleted); err != nil {
		return fmt.Errorf("update project status: %w", err)
	}

	result := domain.AnalysisResult{
		Message:       "Analysis completed",
		ShortsCreated: len(suggestions),
		Shorts:        summaries,
	}
	recordSuccess(rc, h.log, result)
	return nil
}

// processSuggestion extracts and uploads one candidate clip and inserts its
// Short row. A returned error means the suggestion itself is dropped from
// the result summary, but the Short row it already wrote is left at status
// error with a message — per-clip failures never fail the enclosing job.
func (h *AnalysisHandler) processSuggestion(ctx context.Context, jobID uuid.UUID, project *domain.Project, videoPath string, suggestion collab.ShortSuggestion) (domain.AnalysisShortSummary, error) {
	short := &domain.Short{
		ProjectID: project.ID,
		Title:     suggestion.Transcription,
		StartTime: suggestion.StartTime,
		EndTime:   suggestion.EndTime,
		Status:    string(domain.ShortStatusProcessing),
	}
	created, err := h.shorts.Create(dbctx.Context{Ctx: ctx}, short)
	if err != nil {
		return domain.AnalysisShortSummary{}, fmt.Errorf("create short row: %w", err)
	}

	clipPath, cleanupClip, err := newTempFile(jobID, ".mp4", h.log)
	if err != nil {
		return domain.AnalysisShortSummary{}, h.markShortError(ctx, created.ID, err)
	}
	defer cleanupClip()

	thumbPath, cleanupThumb, err := newTempFile(jobID, ".jpg", h.log)
	if err != nil {
		return domain.AnalysisShortSummary{}, h.markShortError(ctx, created.ID, err)
	}
	defer cleanupThumb()

	if err := h.media.ExtractClip(ctx, videoPath, clipPath, suggestion.StartTime, suggestion.EndTime); err != nil {
		return domain.AnalysisShortSummary{}, h.markShortError(ctx, created.ID, fmt.Errorf("extract clip: %w", err))
	}

	midpoint := suggestion.StartTime + (suggestion.EndTime-suggestion.StartTime)/2
	if err := h.media.ExtractThumbnail(ctx, videoPath, thumbPath, midpoint); err != nil {
		return domain.AnalysisShortSummary{}, h.markShortError(ctx, created.ID, fmt.Errorf("extract thumbnail: %w", err))
	}

	clipObjectKey := fmt.Sprintf("%s/projects/%s/shorts/%s.mp4", project.UserID, project.ID, created.ID)
	thumbObjectKey := fmt.Sprintf("%s/projects/%s/shorts/%s-thumb.jpg", project.UserID, project.ID, created.ID)

	if err := h.store.Upload(ctx, h.defaultBucket, clipObjectKey, clipPath, "video/mp4"); err != nil {
		return domain.AnalysisShortSummary{}, h.markShortError(ctx, created.ID, fmt.Errorf("upload clip: %w", err))
	}
	if err := h.store.Upload(ctx, h.defaultBucket, thumbObjectKey, thumbPath, "image/jpeg"); err != nil {
		return domain.AnalysisShortSummary{}, h.markShortError(ctx, created.ID, fmt.Errorf("upload thumbnail: %w", err))
	}

	if err := h.shorts.MarkCompleted(dbctx.Context{Ctx: ctx}, created.ID, clipObjectKey, thumbObjectKey); err != nil {
		return domain.AnalysisShortSummary{}, h.markShortError(ctx, created.ID, fmt.Errorf("mark short completed: %w", err))
	}

	return domain.AnalysisShortSummary{
		ID:       created.ID.String(),
		Title:    suggestion.Transcription,
		Duration: suggestion.Duration(),
	}, nil
}

// markShortError records the per-clip failure on its own Short row and
// returns the original error so the caller can drop the suggestion from the
// summary without failing the job.
func (h *AnalysisHandler) markShortError(ctx context.Context, shortID uuid.UUID, cause error) error {
	if err := h.shorts.MarkError(dbctx.Context{Ctx: ctx}, shortID, cause.Error()); err != nil {
		h.log.Warn("failed to record short error status", "short_id", shortID, "error", err)
	}
	return cause
}
