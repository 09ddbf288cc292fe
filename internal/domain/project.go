package domain

import (
	"time"

	"github.com/google/uuid"
)

// ProjectStatus tracks which pipeline stage currently owns the project.
// It is an independent enumeration driven by the active job type, not by Job.Status.
type ProjectStatus string

const (
	ProjectStatusUploading    ProjectStatus = "uploading"
	ProjectStatusReady        ProjectStatus = "ready"
	ProjectStatusQueued       ProjectStatus = "queued"
	ProjectStatusProcessing   ProjectStatus = "processing"
	ProjectStatusTranscribing ProjectStatus = "transcribing"
	ProjectStatusAnalyzing    ProjectStatus = "analyzing"
	ProjectStatusRendering    ProjectStatus = "rendering"
	ProjectStatusDelivering   ProjectStatus = "delivering"
	ProjectStatusCompleted    ProjectStatus = "completed"
	ProjectStatusError        ProjectStatus = "error"
)

// Project is owned by another subsystem; the job runner only reads the
// source fields and writes status/thumbnail/duration as the workflow advances.
type Project struct {
	ID              uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID          string     `gorm:"column:user_id;not null;index" json:"user_id"`
	SourceObjectKey string     `gorm:"column:source_object_key;not null" json:"source_object_key"`
	SourceBucket    string     `gorm:"column:source_bucket;not null" json:"source_bucket"`
	ThumbnailURL    string     `gorm:"column:thumbnail_url" json:"thumbnail_url,omitempty"`
	DurationSeconds *float64   `gorm:"column:duration_seconds" json:"duration_seconds,omitempty"`
	Status          string     `gorm:"column:status;not null;default:uploading" json:"status"`
	ErrorMessage    string     `gorm:"column:error_message" json:"error_message,omitempty"`
	CreatedAt       time.Time  `gorm:"column:created_at;not null;default:now()" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;not null;default:now()" json:"updated_at"`
	CompletedAt     *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
}

func (Project) TableName() string { return "projects" }
