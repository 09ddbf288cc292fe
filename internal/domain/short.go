package domain

import (
	"time"

	"github.com/google/uuid"
)

// ShortStatus tracks a single derived clip independent of its parent job's status.
type ShortStatus string

const (
	ShortStatusPending    ShortStatus = "pending"
	ShortStatusProcessing ShortStatus = "processing"
	ShortStatusCompleted  ShortStatus = "completed"
	ShortStatusError      ShortStatus = "error"
)

// Short is a derived clip produced by the analysis stage. Zero or more per project;
// a per-clip failure sets Status to error without failing the enclosing job.
type Short struct {
	ID              uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ProjectID       uuid.UUID `gorm:"type:uuid;column:project_id;not null;index" json:"project_id"`
	Title           string    `gorm:"column:title" json:"title,omitempty"`
	StartTime       float64   `gorm:"column:start_time;not null" json:"start_time"`
	EndTime         float64   `gorm:"column:end_time;not null" json:"end_time"`
	OutputObjectKey string    `gorm:"column:output_object_key" json:"output_object_key,omitempty"`
	ThumbnailURL    string    `gorm:"column:thumbnail_url" json:"thumbnail_url,omitempty"`
	Status          string    `gorm:"column:status;not null;default:pending" json:"status"`
	ErrorMessage    string    `gorm:"column:error_message" json:"error_message,omitempty"`
	CreatedAt       time.Time `gorm:"column:created_at;not null;default:now()" json:"created_at"`
	UpdatedAt       time.Time `gorm:"column:updated_at;not null;default:now()" json:"updated_at"`
}

func (Short) TableName() string { return "shorts" }

// Duration is the clip length in seconds.
func (s Short) Duration() float64 { return s.EndTime - s.StartTime }
