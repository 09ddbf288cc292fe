package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// JobType is the closed enumeration of job handlers the processor dispatches to.
type JobType string

const (
	JobTypeThumbnail     JobType = "thumbnail"
	JobTypeTranscription JobType = "transcription"
	JobTypeAnalysis      JobType = "analysis"
	JobTypeCutting       JobType = "cutting"
	JobTypeDelivery      JobType = "delivery"
)

// JobStatus is the job lifecycle state. succeeded/failed/canceled are terminal.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCanceled  JobStatus = "canceled"
)

// IsTerminal reports whether status allows no further transitions.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusSucceeded, JobStatusFailed, JobStatusCanceled:
		return true
	default:
		return false
	}
}

// Job is a single queue entry. status = running implies started_at is set;
// a terminal status implies completed_at is set.
type Job struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ProjectID    *uuid.UUID     `gorm:"type:uuid;column:project_id;index" json:"project_id,omitempty"`
	ShortID      *uuid.UUID     `gorm:"type:uuid;column:short_id;index" json:"short_id,omitempty"`
	Type         string         `gorm:"column:type;not null;index" json:"type"`
	Status       string         `gorm:"column:status;not null;default:queued;index" json:"status"`
	Payload      datatypes.JSON `gorm:"column:payload;type:jsonb" json:"payload"`
	Result       datatypes.JSON `gorm:"column:result;type:jsonb" json:"result,omitempty"`
	ErrorMessage string         `gorm:"column:error_message" json:"error_message,omitempty"`
	StartedAt    *time.Time     `gorm:"column:started_at" json:"started_at,omitempty"`
	CompletedAt  *time.Time     `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt    time.Time      `gorm:"column:created_at;not null;default:now();index" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;not null;default:now()" json:"updated_at"`
}

func (Job) TableName() string { return "jobs" }
