package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// QuestionType is the closed set of gradable question variants.
type QuestionType string

const (
	QuestionSingleChoice QuestionType = "single_choice"
	QuestionTrueFalse    QuestionType = "true_false"
	QuestionFillBlank    QuestionType = "fill_blank"
	QuestionFreeText     QuestionType = "free_text"
	QuestionMatching     QuestionType = "matching"
)

// Option is one answer choice. The key stays bound to its label and to
// the correct-answer key even when the option order is shuffled.
type Option struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

type Question struct {
	ID            uint                        `gorm:"primarykey" json:"id"`
	ExamID        uint                        `json:"exam_id" gorm:"not null;index"`
	GroupID       *uint                       `json:"group_id,omitempty" gorm:"index"`
	Group         *QuestionGroup              `json:"group,omitempty" gorm:"foreignKey:GroupID"`
	GroupOrder    int                         `json:"group_order"` // ordering index within the group
	Text          string                      `json:"text" gorm:"type:text;not null"`
	Type          QuestionType                `json:"type" gorm:"not null"`
	Options       datatypes.JSONSlice[Option] `json:"options,omitempty" gorm:"type:jsonb"`
	CorrectAnswer string                      `json:"correct_answer,omitempty" gorm:"type:text"`
	Points        float64                     `json:"points" gorm:"not null"`
	OrderInExam   int                         `json:"order_in_exam" gorm:"not null"`
	CreatedAt     time.Time                   `json:"created_at"`
	UpdatedAt     time.Time                   `json:"updated_at"`
	DeletedAt     gorm.DeletedAt              `gorm:"index" json:"-"`
}
