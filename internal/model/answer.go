package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Answer is the single row per (attempt, question). Saves for the same key
// collapse into this row via upsert rather than creating duplicates.
type Answer struct {
	ID              uint              `gorm:"primarykey" json:"id"`
	AttemptID       uint              `json:"attempt_id" gorm:"not null;uniqueIndex:idx_attempt_question"`
	QuestionID      uint              `json:"question_id" gorm:"not null;uniqueIndex:idx_attempt_question"`
	Question        Question          `json:"question,omitempty" gorm:"foreignKey:QuestionID"`
	Value           string            `json:"value" gorm:"type:text"`
	IsAutoSave      bool              `json:"is_auto_save"`
	IsCorrect       bool              `json:"is_correct"`
	Points          float64           `json:"points"`
	AnsweredAt      time.Time         `json:"answered_at"`
	SaveMetadata    datatypes.JSONMap `json:"save_metadata,omitempty" gorm:"type:jsonb"`
	GradingMetadata datatypes.JSONMap `json:"grading_metadata,omitempty" gorm:"type:jsonb"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
	DeletedAt       gorm.DeletedAt    `gorm:"index" json:"-"`
}
