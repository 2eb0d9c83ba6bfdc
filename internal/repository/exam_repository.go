package repository

import (
	"github.com/kartikasari/ujianku/internal/model"
	"gorm.io/gorm"
)

type ExamRepository interface {
	FindByID(id uint) (*model.Exam, error)
	FindByIDWithQuestions(id uint) (*model.Exam, error)
	FindGroupsByExamID(examID uint) ([]model.QuestionGroup, error)
}

type examRepository struct {
	db *gorm.DB
}

func NewExamRepository(db *gorm.DB) ExamRepository {
	return &examRepository{db: db}
}

func (r *examRepository) FindByID(id uint) (*model.Exam, error) {
	var exam model.Exam
	err := r.db.First(&exam, id).Error
	return &exam, err
}

func (r *examRepository) FindByIDWithQuestions(id uint) (*model.Exam, error) {
	var exam model.Exam
	err := r.db.
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("questions.order_in_exam ASC")
		}).
		Preload("Questions.Group").
		First(&exam, id).Error
	return &exam, err
}

func (r *examRepository) FindGroupsByExamID(examID uint) ([]model.QuestionGroup, error) {
	var groups []model.QuestionGroup
	err := r.db.Where("exam_id = ?", examID).Order("id ASC").Find(&groups).Error
	return groups, err
}
