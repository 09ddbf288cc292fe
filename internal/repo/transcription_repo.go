package repo

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/videditor/jobrunner/internal/domain"
	"github.com/videditor/jobrunner/internal/pkg/dbctx"
	"github.com/videditor/jobrunner/internal/pkg/logger"
)

// TranscriptionRepo manages the single transcription row inserted per project
// by the transcription handler, and its read by the analysis handler.
type TranscriptionRepo interface {
	Create(dbc dbctx.Context, t *domain.Transcription) (*domain.Transcription, error)
	GetByProjectID(dbc dbctx.Context, projectID uuid.UUID) (*domain.Transcription, error)
}

type transcriptionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTranscriptionRepo(db *gorm.DB, baseLog *logger.Logger) TranscriptionRepo {
	return &transcriptionRepo{db: db, log: baseLog.With("repo", "TranscriptionRepo")}
}

func (r *transcriptionRepo) Create(dbc dbctx.Context, t *domain.Transcription) (*domain.Transcription, error) {
	transaction := dbc.DB(r.db)
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if err := transaction.WithContext(dbc.Ctx).Create(t).Error; err != nil {
		return nil, err
	}
	return t, nil
}

func (r *transcriptionRepo) GetByProjectID(dbc dbctx.Context, projectID uuid.UUID) (*domain.Transcription, error) {
	transaction := dbc.DB(r.db)
	var t domain.Transcription
	err := transaction.WithContext(dbc.Ctx).
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Limit(1).
		First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}
