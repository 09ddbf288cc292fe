package handler

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"github.com/videditor/jobrunner/internal/collab"
	"github.com/videditor/jobrunner/internal/domain"
	"github.com/videditor/jobrunner/internal/jobserrors"
	"github.com/videditor/jobrunner/internal/pkg/dbctx"
	"github.com/videditor/jobrunner/internal/pkg/logger"
	"github.com/videditor/jobrunner/internal/repo"
	"github.com/videditor/jobrunner/internal/runtime"
)

// TranscriptionHandler runs speech-to-text over a project's source video and
// chains the analysis job. It sets Project status to completed before
// analysis runs; this is an intentional, spec-confirmed early-completion
// label (see SPEC_FULL.md §9), not a bug.
type TranscriptionHandler struct {
	store          collab.ObjectStore
	transcriber    collab.Transcriber
	projects       repo.ProjectRepo
	transcriptions repo.TranscriptionRepo
	log            *logger.Logger
}

func NewTranscriptionHandler(store collab.ObjectStore, transcriber collab.Transcriber, projects repo.ProjectRepo, transcriptions repo.TranscriptionRepo, baseLog *logger.Logger) *TranscriptionHandler {
	return &TranscriptionHandler{
		store:          store,
		transcriber:    transcriber,
		projects:       projects,
		transcriptions: transcriptions,
		log:            baseLog.With("handler", "transcription"),
	}
}

func (h *TranscriptionHandler) Type() string { return string(domain.JobTypeTranscription) }

func (h *TranscriptionHandler) Run(rc *runtime.Context) error {
	if rc.Job.ProjectID == nil {
		return jobserrors.MissingField("projectId")
	}
	projectID := *rc.Job.ProjectID

	var payload domain.TranscriptionPayload
	if err := json.Unmarshal(rc.Job.Payload, &payload); err != nil {
		return jobserrors.MissingField("payload")
	}
	if payload.SourceObjectKey == "" {
		return jobserrors.MissingField("sourceObjectKey")
	}
	if payload.SourceBucket == "" {
		return jobserrors.MissingField("sourceBucket")
	}

	ctx := rc.Ctx

	if err := h.projects.UpdateStatus(dbctx.Context{Ctx: ctx}, projectID, domain.ProjectStatusTranscribing); err != nil {
		return fmt.Errorf("update project status: %w", err)
	}

	videoPath, cleanup, err := newTempFile(rc.Job.ID, ".mp4", h.log)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := h.store.Download(ctx, payload.SourceBucket, payload.SourceObjectKey, videoPath); err != nil {
		return fmt.Errorf("download source: %w", err)
	}

	transcript, err := h.transcriber.Transcribe(ctx, videoPath)
	if err != nil {
		return fmt.Errorf("transcribe: %w", err)
	}

	row := &domain.Transcription{
		ProjectID: projectID,
		Text:      transcript.Text,
		Segments:  datatypes.NewJSONType(transcript.Segments),
		Language:  transcript.Language,
	}
	if transcript.DurationSeconds > 0 {
		row.DurationSeconds = &transcript.DurationSeconds
	}
	created, err := h.transcriptions.Create(dbctx.Context{Ctx: ctx}, row)
	if err != nil {
		return fmt.Errorf("save transcription: %w", err)
	}

	// Deliberately sets status completed, not analyzing, before enqueueing
	// analysis — the workflow continues past this label.
	if err := h.projects.UpdateStatus(dbctx.Context{Ctx: ctx}, projectID, domain.ProjectStatusCompleted); err != nil {
		return fmt.Errorf("update project status: %w", err)
	}

	successorPayload, err := json.Marshal(domain.AnalysisPayload{ProjectID: projectID.String()})
	if err != nil {
		return fmt.Errorf("encode successor payload: %w", err)
	}
	successor := &domain.Job{
		ProjectID: &projectID,
		Type:      string(domain.JobTypeAnalysis),
		Payload:   successorPayload,
	}
	if _, err := rc.Repo.EnqueueSuccessor(dbctx.Context{Ctx: ctx}, successor); err != nil {
		return fmt.Errorf("enqueue analysis: %w", err)
	}

	result := domain.TranscriptionResult{
		Message:         "Transcription completed",
		TextLength:      len(transcript.Text),
		SegmentCount:    len(transcript.Segments),
		Language:        transcript.Language,
		TranscriptionID: created.ID.String(),
	}
	recordSuccess(rc, h.log, result)
	return nil
}
