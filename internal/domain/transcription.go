package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Segment is one ordered slice of a transcription: start <= end, no gap invariant required.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Transcription is inserted once per project by the transcription handler.
type Transcription struct {
	ID              uuid.UUID                     `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ProjectID       uuid.UUID                     `gorm:"type:uuid;column:project_id;not null;index" json:"project_id"`
	Text            string                        `gorm:"column:text;not null" json:"text"`
	Segments        datatypes.JSONType[[]Segment] `gorm:"column:segments;type:jsonb;not null" json:"segments"`
	Language        string                        `gorm:"column:language" json:"language,omitempty"`
	DurationSeconds *float64                      `gorm:"column:duration_seconds" json:"duration_seconds,omitempty"`
	CreatedAt       time.Time                     `gorm:"column:created_at;not null;default:now()" json:"created_at"`
	UpdatedAt       time.Time                     `gorm:"column:updated_at;not null;default:now()" json:"updated_at"`
}

func (Transcription) TableName() string { return "transcriptions" }
