package model

import (
	"time"

	"gorm.io/datatypes"
)

// AdjustmentKind is the closed set of post-grading score corrections.
type AdjustmentKind string

const (
	AdjustmentPercentage AdjustmentKind = "percentage"
	AdjustmentMinimum    AdjustmentKind = "minimum"
	AdjustmentManual     AdjustmentKind = "manual"
)

// GradeAdjustment is an append-only audit row. It is never mutated after
// creation except to stamp the revert fields; reverting restores the
// attempt's score to BeforeValue without creating a new row.
type GradeAdjustment struct {
	ID           uint              `gorm:"primarykey" json:"id"`
	ExamID       uint              `json:"exam_id" gorm:"not null;index"`
	StudentID    uint              `json:"student_id" gorm:"not null;index"`
	Kind         AdjustmentKind    `json:"kind" gorm:"not null"`
	BeforeValue  float64           `json:"before_value"`
	AfterValue   float64           `json:"after_value"`
	AdjustedBy   uint              `json:"adjusted_by" gorm:"not null"`
	AdjustedRole string            `json:"adjusted_role" gorm:"not null"`
	Note         string            `json:"note,omitempty" gorm:"type:text"`
	Data         datatypes.JSONMap `json:"data,omitempty" gorm:"type:jsonb"`
	RevertedAt   *time.Time        `json:"reverted_at,omitempty"`
	RevertedBy   *uint             `json:"reverted_by,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}
