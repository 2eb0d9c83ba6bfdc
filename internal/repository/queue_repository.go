package repository

import (
	"time"

	"github.com/kartikasari/ujianku/internal/model"
	"gorm.io/gorm"
)

type QueueRepository interface {
	Enqueue(entry *model.QueuedAnswer) error
	Update(entry *model.QueuedAnswer) error
	Delete(entry *model.QueuedAnswer) error
	// FindRetryable returns entries still under the retry budget, optionally
	// scoped to one attempt.
	FindRetryable(attemptID *uint, maxRetries int) ([]model.QueuedAnswer, error)
	CountPermanentlyFailed(maxRetries int) (int64, error)
	PurgeOlderThan(cutoff time.Time) (int64, error)
}

type queueRepository struct {
	db *gorm.DB
}

func NewQueueRepository(db *gorm.DB) QueueRepository {
	return &queueRepository{db: db}
}

func (r *queueRepository) Enqueue(entry *model.QueuedAnswer) error {
	return r.db.Create(entry).Error
}

func (r *queueRepository) Update(entry *model.QueuedAnswer) error {
	return r.db.Save(entry).Error
}

func (r *queueRepository) Delete(entry *model.QueuedAnswer) error {
	return r.db.Delete(entry).Error
}

func (r *queueRepository) FindRetryable(attemptID *uint, maxRetries int) ([]model.QueuedAnswer, error) {
	var entries []model.QueuedAnswer
	query := r.db.Where("retry_count < ?", maxRetries)
	if attemptID != nil {
		query = query.Where("attempt_id = ?", *attemptID)
	}
	err := query.Order("created_at ASC").Find(&entries).Error
	return entries, err
}

func (r *queueRepository) CountPermanentlyFailed(maxRetries int) (int64, error) {
	var count int64
	err := r.db.Model(&model.QueuedAnswer{}).
		Where("retry_count >= ?", maxRetries).
		Count(&count).Error
	return count, err
}

func (r *queueRepository) PurgeOlderThan(cutoff time.Time) (int64, error) {
	res := r.db.Where("created_at < ?", cutoff).Delete(&model.QueuedAnswer{})
	return res.RowsAffected, res.Error
}
