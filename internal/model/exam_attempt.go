package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	AttemptInProgress = "in_progress"
	AttemptCompleted  = "completed"
)

// Grading metadata keys stored on ExamAttempt.GradingMetadata.
const (
	MetaPercentageScore = "percentage_score"
	MetaIsPassed        = "is_passed"
	MetaGradingMethod   = "grading_method"
	MetaGradedAt        = "graded_at"
	MetaGradedBy        = "graded_by"
)

// ExamAttempt is one student's instance of taking one exam.
type ExamAttempt struct {
	ID              uint              `gorm:"primarykey" json:"id"`
	ExamID          uint              `json:"exam_id" gorm:"not null;uniqueIndex:idx_exam_student"`
	Exam            Exam              `json:"exam,omitempty" gorm:"foreignKey:ExamID"`
	StudentID       uint              `json:"student_id" gorm:"not null;uniqueIndex:idx_exam_student"`
	Status          string            `json:"status" gorm:"default:'in_progress'"`
	TotalScore      float64           `json:"total_score"`
	CorrectAnswers  int               `json:"correct_answers"`
	StartedAt       time.Time         `json:"started_at" gorm:"autoCreateTime"`
	SubmittedAt     *time.Time        `json:"submitted_at,omitempty"`
	GradingMetadata datatypes.JSONMap `json:"grading_metadata,omitempty" gorm:"type:jsonb"`
	Answers         []Answer          `json:"answers,omitempty" gorm:"foreignKey:AttemptID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
	DeletedAt       gorm.DeletedAt    `gorm:"index" json:"-"`
}
