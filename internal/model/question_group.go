package model

import (
	"time"

	"gorm.io/gorm"
)

// QuestionGroup is a shared stimulus (passage/media) owning zero or more
// questions. Deleting a group orphans its questions to standalone status;
// it never deletes them.
type QuestionGroup struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	ExamID    uint           `json:"exam_id" gorm:"not null;index"`
	Title     string         `json:"title" gorm:"not null"`
	Stimulus  string         `json:"stimulus" gorm:"type:text"`
	MediaURL  *string        `json:"media_url,omitempty"`
	Questions []Question     `json:"questions,omitempty" gorm:"foreignKey:GroupID"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
