package handler

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/videditor/jobrunner/internal/collab"
	"github.com/videditor/jobrunner/internal/domain"
	"github.com/videditor/jobrunner/internal/jobserrors"
	"github.com/videditor/jobrunner/internal/pkg/dbctx"
	"github.com/videditor/jobrunner/internal/pkg/logger"
	"github.com/videditor/jobrunner/internal/repo"
	"github.com/videditor/jobrunner/internal/runtime"
)

// ThumbnailHandler generates a representative frame for a project's source
// video and chains the transcription job.
type ThumbnailHandler struct {
	store    collab.ObjectStore
	media    collab.MediaToolchain
	projects repo.ProjectRepo
	log      *logger.Logger
}

func NewThumbnailHandler(store collab.ObjectStore, media collab.MediaToolchain, projects repo.ProjectRepo, baseLog *logger.Logger) *ThumbnailHandler {
	return &ThumbnailHandler{store: store, media: media, projects: projects, log: baseLog.With("handler", "thumbnail")}
}

func (h *ThumbnailHandler) Type() string { return string(domain.JobTypeThumbnail) }

func (h *ThumbnailHandler) Run(rc *runtime.Context) error {
	if rc.Job.ProjectID == nil {
		return jobserrors.MissingField("projectId")
	}
	projectID := *rc.Job.ProjectID

	var payload domain.ThumbnailPayload
	if err := json.Unmarshal(rc.Job.Payload, &payload); err != nil {
		return jobserrors.MissingField("payload")
	}
	if payload.SourceObjectKey == "" {
		return jobserrors.MissingField("sourceObjectKey")
	}
	if payload.SourceBucket == "" {
		return jobserrors.MissingField("sourceBucket")
	}
	if payload.UserID == "" {
		return jobserrors.MissingField("userId")
	}

	ctx := rc.Ctx

	if err := h.projects.UpdateStatus(dbctx.Context{Ctx: ctx}, projectID, domain.ProjectStatusProcessing); err != nil {
		return fmt.Errorf("update project status: %w", err)
	}

	videoPath, cleanupVideo, err := newTempFile(rc.Job.ID, ".mp4", h.log)
	if err != nil {
		return err
	}
	defer cleanupVideo()

	thumbnailPath, cleanupThumbnail, err := newTempFile(rc.Job.ID, ".jpg", h.log)
	if err != nil {
		return err
	}
	defer cleanupThumbnail()

	if err := h.store.Download(ctx, payload.SourceBucket, payload.SourceObjectKey, videoPath); err != nil {
		return fmt.Errorf("download source: %w", err)
	}

	duration, err := h.media.Probe(ctx, videoPath)
	if err != nil {
		return fmt.Errorf("probe duration: %w", err)
	}

	if err := h.media.ExtractThumbnail(ctx, videoPath, thumbnailPath, duration*0.25); err != nil {
		return fmt.Errorf("extract thumbnail: %w", err)
	}

	thumbnailObjectKey := fmt.Sprintf("%s/projects/%s/%d-thumbnail.jpg", payload.UserID, projectID, time.Now().UTC().UnixMilli())

	if err := h.store.Upload(ctx, payload.SourceBucket, thumbnailObjectKey, thumbnailPath, "image/jpeg"); err != nil {
		return fmt.Errorf("upload thumbnail: %w", err)
	}

	if err := h.projects.UpdateThumbnail(dbctx.Context{Ctx: ctx}, projectID, thumbnailObjectKey, domain.ProjectStatusReady); err != nil {
		return fmt.Errorf("update project thumbnail: %w", err)
	}
	if err := h.projects.UpdateDuration(dbctx.Context{Ctx: ctx}, projectID, duration); err != nil {
		return fmt.Errorf("update project duration: %w", err)
	}

	successorPayload, err := json.Marshal(domain.TranscriptionPayload{
		ProjectID:       projectID.String(),
		SourceObjectKey: payload.SourceObjectKey,
		SourceBucket:    payload.SourceBucket,
	})
	if err != nil {
		return fmt.Errorf("encode successor payload: %w", err)
	}
	successor := &domain.Job{
		ProjectID: &projectID,
		Type:      string(domain.JobTypeTranscription),
		Payload:   successorPayload,
	}
	if _, err := rc.Repo.EnqueueSuccessor(dbctx.Context{Ctx: ctx}, successor); err != nil {
		return fmt.Errorf("enqueue transcription: %w", err)
	}

	result := domain.ThumbnailResult{
		Message:            "Thumbnail generated successfully",
		ThumbnailObjectKey: thumbnailObjectKey,
	}
	recordSuccess(rc, h.log, result)
	return nil
}
