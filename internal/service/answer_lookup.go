package service

import (
	"context"
	"fmt"

	"github.com/kartikasari/ujianku/internal/model"
	"github.com/kartikasari/ujianku/internal/repository"
)

// AnswerLookup is the small read-side used by the grading surface to fetch
// one answer with its question.
type AnswerLookup interface {
	AnswerWithQuestion(ctx context.Context, answerID uint) (*model.Answer, error)
}

type answerLookup struct {
	answerRepo repository.AnswerRepository
}

func NewAnswerLookup(answerRepo repository.AnswerRepository) AnswerLookup {
	return &answerLookup{answerRepo: answerRepo}
}

func (s *answerLookup) AnswerWithQuestion(ctx context.Context, answerID uint) (*model.Answer, error) {
	answer, err := s.answerRepo.FindByIDWithQuestion(answerID)
	if err != nil {
		return nil, fmt.Errorf("answer %d: %w", answerID, ErrNotFound)
	}
	return answer, nil
}
