package repo

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/videditor/jobrunner/internal/domain"
	"github.com/videditor/jobrunner/internal/pkg/dbctx"
	"github.com/videditor/jobrunner/internal/pkg/logger"
)

// ShortRepo manages the zero-or-more derived clip rows the analysis handler
// inserts; per-clip failures are isolated by writing status=error on the row
// rather than failing the enclosing job.
type ShortRepo interface {
	Create(dbc dbctx.Context, s *domain.Short) (*domain.Short, error)
	MarkCompleted(dbc dbctx.Context, id uuid.UUID, outputObjectKey, thumbnailURL string) error
	MarkError(dbc dbctx.Context, id uuid.UUID, errorMessage string) error
}

type shortRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewShortRepo(db *gorm.DB, baseLog *logger.Logger) ShortRepo {
	return &shortRepo{db: db, log: baseLog.With("repo", "ShortRepo")}
}

func (r *shortRepo) Create(dbc dbctx.Context, s *domain.Short) (*domain.Short, error) {
	transaction := dbc.DB(r.db)
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if err := transaction.WithContext(dbc.Ctx).Create(s).Error; err != nil {
		return nil, err
	}
	return s, nil
}

func (r *shortRepo) MarkCompleted(dbc dbctx.Context, id uuid.UUID, outputObjectKey, thumbnailURL string) error {
	transaction := dbc.DB(r.db)
	return transaction.WithContext(dbc.Ctx).
		Model(&domain.Short{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":            string(domain.ShortStatusCompleted),
			"output_object_key": outputObjectKey,
			"thumbnail_url":     thumbnailURL,
			"updated_at":        time.Now().UTC(),
		}).Error
}

func (r *shortRepo) MarkError(dbc dbctx.Context, id uuid.UUID, errorMessage string) error {
	transaction := dbc.DB(r.db)
	return transaction.WithContext(dbc.Ctx).
		Model(&domain.Short{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        string(domain.ShortStatusError),
			"error_message": errorMessage,
			"updated_at":    time.Now().UTC(),
		}).Error
}
