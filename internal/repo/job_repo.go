package repo

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/videditor/jobrunner/internal/domain"
	"github.com/videditor/jobrunner/internal/pkg/dbctx"
	"github.com/videditor/jobrunner/internal/pkg/logger"
)

// JobRepo is the typed operation set over the jobs table. All writes are
// transactional; Claim and MarkSucceeded/MarkFailed enforce the status
// preconditions described in the queue's state machine.
type JobRepo interface {
	Claim(dbc dbctx.Context, n int) ([]*domain.Job, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Job, error)
	// MarkSucceeded transitions a running job to succeeded. The bool return
	// is false (stale, not an error) if the job was not in status running.
	MarkSucceeded(dbc dbctx.Context, id uuid.UUID, result any) (bool, error)
	// MarkFailed always opens its own transaction, independent of any
	// caller transaction, so a rollback of the handler's work never loses
	// the failure record.
	MarkFailed(ctx dbctx.Context, id uuid.UUID, errorMessage string) (bool, error)
	// EnqueueSuccessor inserts a new queued row. Composable into a caller
	// transaction so derived-row writes and the successor enqueue commit atomically.
	EnqueueSuccessor(dbc dbctx.Context, job *domain.Job) (*domain.Job, error)
}

type jobRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewJobRepo(db *gorm.DB, baseLog *logger.Logger) JobRepo {
	return &jobRepo{db: db, log: baseLog.With("repo", "JobRepo")}
}

func (r *jobRepo) Claim(dbc dbctx.Context, n int) ([]*domain.Job, error) {
	transaction := dbc.DB(r.db)
	if n <= 0 {
		return []*domain.Job{}, nil
	}
	now := time.Now().UTC()
	var claimed []*domain.Job
	err := transaction.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		var rows []*domain.Job
		err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ?", string(domain.JobStatusQueued)).
			Order("created_at ASC").
			Limit(n).
			Find(&rows).Error
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		ids := make([]uuid.UUID, len(rows))
		for i, row := range rows {
			ids[i] = row.ID
		}
		if err := tx.Model(&domain.Job{}).
			Where("id IN ?", ids).
			Updates(map[string]interface{}{
				"status":     string(domain.JobStatusRunning),
				"started_at": now,
				"updated_at": now,
			}).Error; err != nil {
			return err
		}
		for _, row := range rows {
			row.Status = string(domain.JobStatusRunning)
			row.StartedAt = &now
			row.UpdatedAt = now
		}
		claimed = rows
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *jobRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Job, error) {
	transaction := dbc.DB(r.db)
	var job domain.Job
	err := transaction.WithContext(dbc.Ctx).Where("id = ?", id).First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *jobRepo) MarkSucceeded(dbc dbctx.Context, id uuid.UUID, result any) (bool, error) {
	transaction := dbc.DB(r.db)
	var resultJSON datatypes.JSON
	if result != nil {
		b, err := json.Marshal(result)
		if err != nil {
			return false, err
		}
		resultJSON = datatypes.JSON(b)
	}
	now := time.Now().UTC()
	res := transaction.WithContext(dbc.Ctx).
		Model(&domain.Job{}).
		Where("id = ? AND status = ?", id, string(domain.JobStatusRunning)).
		Updates(map[string]interface{}{
			"status":       string(domain.JobStatusSucceeded),
			"completed_at": now,
			"updated_at":   now,
			"result":       resultJSON,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *jobRepo) MarkFailed(ctx dbctx.Context, id uuid.UUID, errorMessage string) (bool, error) {
	now := time.Now().UTC()
	var stale bool
	err := r.db.WithContext(ctx.Ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Job{}).
			Where("id = ? AND status = ?", id, string(domain.JobStatusRunning)).
			Updates(map[string]interface{}{
				"status":        string(domain.JobStatusFailed),
				"completed_at":  now,
				"updated_at":    now,
				"error_message": errorMessage,
			})
		if res.Error != nil {
			return res.Error
		}
		stale = res.RowsAffected == 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return !stale, nil
}

func (r *jobRepo) EnqueueSuccessor(dbc dbctx.Context, job *domain.Job) (*domain.Job, error) {
	transaction := dbc.DB(r.db)
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	job.Status = string(domain.JobStatusQueued)
	if err := transaction.WithContext(dbc.Ctx).Create(job).Error; err != nil {
		return nil, err
	}
	return job, nil
}
