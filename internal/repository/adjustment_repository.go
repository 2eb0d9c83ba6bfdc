package repository

import (
	"time"

	"github.com/kartikasari/ujianku/internal/model"
	"gorm.io/gorm"
)

type AdjustmentRepository interface {
	// Create writes the audit row inside the caller's transaction.
	Create(tx *gorm.DB, adjustment *model.GradeAdjustment) error
	// MarkReverted stamps the existing audit row; it never deletes history.
	MarkReverted(tx *gorm.DB, adjustmentID, revertedBy uint, revertedAt time.Time) error
	FindByID(id uint) (*model.GradeAdjustment, error)
	FindByExamID(examID uint) ([]model.GradeAdjustment, error)
}

type adjustmentRepository struct {
	db *gorm.DB
}

func NewAdjustmentRepository(db *gorm.DB) AdjustmentRepository {
	return &adjustmentRepository{db: db}
}

func (r *adjustmentRepository) Create(tx *gorm.DB, adjustment *model.GradeAdjustment) error {
	return tx.Create(adjustment).Error
}

func (r *adjustmentRepository) MarkReverted(tx *gorm.DB, adjustmentID, revertedBy uint, revertedAt time.Time) error {
	return tx.Model(&model.GradeAdjustment{}).
		Where("id = ?", adjustmentID).
		Updates(map[string]interface{}{
			"reverted_at": revertedAt,
			"reverted_by": revertedBy,
		}).Error
}

func (r *adjustmentRepository) FindByID(id uint) (*model.GradeAdjustment, error) {
	var adjustment model.GradeAdjustment
	err := r.db.First(&adjustment, id).Error
	return &adjustment, err
}

func (r *adjustmentRepository) FindByExamID(examID uint) ([]model.GradeAdjustment, error) {
	var adjustments []model.GradeAdjustment
	err := r.db.Where("exam_id = ?", examID).Order("created_at ASC").Find(&adjustments).Error
	return adjustments, err
}
