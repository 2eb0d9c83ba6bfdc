package repository

import (
	"github.com/kartikasari/ujianku/internal/model"
	"gorm.io/gorm"
)

type AttemptRepository interface {
	Create(attempt *model.ExamAttempt) error
	Update(attempt *model.ExamAttempt) error
	FindByID(id uint) (*model.ExamAttempt, error)
	FindByIDWithDetails(id uint) (*model.ExamAttempt, error)
	FindByExamAndStudent(examID, studentID uint) (*model.ExamAttempt, error)
	FindCompletedByExam(examID uint) ([]model.ExamAttempt, error)
}

type attemptRepository struct {
	db *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) AttemptRepository {
	return &attemptRepository{db: db}
}

func (r *attemptRepository) Create(attempt *model.ExamAttempt) error {
	return r.db.Create(attempt).Error
}

func (r *attemptRepository) Update(attempt *model.ExamAttempt) error {
	return r.db.Save(attempt).Error
}

func (r *attemptRepository) FindByID(id uint) (*model.ExamAttempt, error) {
	var attempt model.ExamAttempt
	err := r.db.First(&attempt, id).Error
	return &attempt, err
}

func (r *attemptRepository) FindByIDWithDetails(id uint) (*model.ExamAttempt, error) {
	var attempt model.ExamAttempt
	err := r.db.
		Preload("Exam").
		Preload("Answers.Question").
		First(&attempt, id).Error
	return &attempt, err
}

func (r *attemptRepository) FindByExamAndStudent(examID, studentID uint) (*model.ExamAttempt, error) {
	var attempt model.ExamAttempt
	err := r.db.
		Where("exam_id = ? AND student_id = ?", examID, studentID).
		First(&attempt).Error
	return &attempt, err
}

func (r *attemptRepository) FindCompletedByExam(examID uint) ([]model.ExamAttempt, error) {
	var attempts []model.ExamAttempt
	err := r.db.
		Preload("Answers").
		Where("exam_id = ? AND status = ?", examID, model.AttemptCompleted).
		Order("student_id ASC").
		Find(&attempts).Error
	return attempts, err
}
