package repository

import (
	"github.com/kartikasari/ujianku/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AnswerRepository interface {
	// Upsert creates or replaces the single row keyed by (attempt, question).
	Upsert(tx *gorm.DB, answer *model.Answer) error
	Update(answer *model.Answer) error
	FindByID(id uint) (*model.Answer, error)
	FindByIDWithQuestion(id uint) (*model.Answer, error)
	FindByAttemptID(attemptID uint) ([]model.Answer, error)
}

type answerRepository struct {
	db *gorm.DB
}

func NewAnswerRepository(db *gorm.DB) AnswerRepository {
	return &answerRepository{db: db}
}

func (r *answerRepository) Upsert(tx *gorm.DB, answer *model.Answer) error {
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "attempt_id"}, {Name: "question_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"value", "is_auto_save", "answered_at", "save_metadata", "updated_at",
		}),
	}).Create(answer).Error
}

func (r *answerRepository) Update(answer *model.Answer) error {
	return r.db.Save(answer).Error
}

func (r *answerRepository) FindByID(id uint) (*model.Answer, error) {
	var answer model.Answer
	err := r.db.First(&answer, id).Error
	return &answer, err
}

func (r *answerRepository) FindByIDWithQuestion(id uint) (*model.Answer, error) {
	var answer model.Answer
	err := r.db.Preload("Question").First(&answer, id).Error
	return &answer, err
}

func (r *answerRepository) FindByAttemptID(attemptID uint) ([]model.Answer, error) {
	var answers []model.Answer
	err := r.db.
		Preload("Question").
		Where("attempt_id = ?", attemptID).
		Find(&answers).Error
	return answers, err
}
