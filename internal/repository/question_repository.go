package repository

import (
	"github.com/kartikasari/ujianku/internal/model"
	"gorm.io/gorm"
)

type QuestionRepository interface {
	FindByID(id uint) (*model.Question, error)
	FindByExamID(examID uint) ([]model.Question, error)
}

type questionRepository struct {
	db *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) QuestionRepository {
	return &questionRepository{db: db}
}

func (r *questionRepository) FindByID(id uint) (*model.Question, error) {
	var question model.Question
	if err := r.db.First(&question, id).Error; err != nil {
		return nil, err
	}
	return &question, nil
}

func (r *questionRepository) FindByExamID(examID uint) ([]model.Question, error) {
	var questions []model.Question
	err := r.db.
		Preload("Group").
		Where("exam_id = ?", examID).
		Order("order_in_exam ASC").
		Find(&questions).Error
	return questions, err
}
