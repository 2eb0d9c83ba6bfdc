package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// QueuedAnswer is a retry-queue entry for an answer save that was deflected
// (in-flight contention) or failed transiently. It is a first-class indexed
// table, scoped by attempt, drained by the background processor.
type QueuedAnswer struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	EntryKey   uuid.UUID `json:"entry_key" gorm:"type:uuid;uniqueIndex"`
	AttemptID  uint      `json:"attempt_id" gorm:"not null;index"`
	QuestionID uint      `json:"question_id" gorm:"not null"`
	Value      string    `json:"value" gorm:"type:text"`
	IsAutoSave bool      `json:"is_auto_save"`
	SavedBy    uint      `json:"saved_by"`
	RetryCount int       `json:"retry_count"`
	LastError  string    `json:"last_error,omitempty" gorm:"type:text"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (q *QueuedAnswer) BeforeCreate(tx *gorm.DB) error {
	if q.EntryKey == uuid.Nil {
		q.EntryKey = uuid.New()
	}
	return nil
}
