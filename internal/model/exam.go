package model

import (
	"time"

	"gorm.io/gorm"
)

type Exam struct {
	ID                 uint            `gorm:"primarykey" json:"id"`
	SchoolID           uint            `json:"school_id" gorm:"not null;index"`
	Title              string          `json:"title" gorm:"not null"`
	Description        string          `json:"description,omitempty"`
	MaxScore           float64         `json:"max_score" gorm:"not null"`
	PassingScore       float64         `json:"passing_score" gorm:"not null"` // percentage threshold, 0-100
	RandomizeQuestions bool            `json:"randomize_questions"`
	RandomizeAnswers   bool            `json:"randomize_answers"`
	Status             string          `json:"status" gorm:"default:'active'"`
	Questions          []Question      `json:"questions,omitempty" gorm:"foreignKey:ExamID"`
	Groups             []QuestionGroup `json:"groups,omitempty" gorm:"foreignKey:ExamID"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
	DeletedAt          gorm.DeletedAt  `gorm:"index" json:"-"`
}
