package repo

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/videditor/jobrunner/internal/domain"
	"github.com/videditor/jobrunner/internal/pkg/dbctx"
	"github.com/videditor/jobrunner/internal/pkg/logger"
)

// ProjectRepo reads the source fields handlers need and writes the
// status/thumbnail/duration fields the workflow advances. The core does not
// own the Project schema; it only touches the columns named in the spec.
type ProjectRepo interface {
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Project, error)
	UpdateStatus(dbc dbctx.Context, id uuid.UUID, status domain.ProjectStatus) error
	UpdateThumbnail(dbc dbctx.Context, id uuid.UUID, thumbnailURL string, status domain.ProjectStatus) error
	UpdateDuration(dbc dbctx.Context, id uuid.UUID, durationSeconds float64) error
}

type projectRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProjectRepo(db *gorm.DB, baseLog *logger.Logger) ProjectRepo {
	return &projectRepo{db: db, log: baseLog.With("repo", "ProjectRepo")}
}

func (r *projectRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Project, error) {
	transaction := dbc.DB(r.db)
	var p domain.Project
	err := transaction.WithContext(dbc.Ctx).Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *projectRepo) UpdateStatus(dbc dbctx.Context, id uuid.UUID, status domain.ProjectStatus) error {
	transaction := dbc.DB(r.db)
	return transaction.WithContext(dbc.Ctx).
		Model(&domain.Project{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     string(status),
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *projectRepo) UpdateThumbnail(dbc dbctx.Context, id uuid.UUID, thumbnailURL string, status domain.ProjectStatus) error {
	transaction := dbc.DB(r.db)
	return transaction.WithContext(dbc.Ctx).
		Model(&domain.Project{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"thumbnail_url": thumbnailURL,
			"status":        string(status),
			"updated_at":    time.Now().UTC(),
		}).Error
}

func (r *projectRepo) UpdateDuration(dbc dbctx.Context, id uuid.UUID, durationSeconds float64) error {
	transaction := dbc.DB(r.db)
	return transaction.WithContext(dbc.Ctx).
		Model(&domain.Project{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"duration_seconds": durationSeconds,
			"updated_at":       time.Now().UTC(),
		}).Error
}
