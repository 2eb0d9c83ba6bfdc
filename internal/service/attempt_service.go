package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jinzhu/copier"
	"github.com/kartikasari/ujianku/internal/dto"
	"github.com/kartikasari/ujianku/internal/model"
	"github.com/kartikasari/ujianku/internal/repository"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// AttemptService covers the delivery side of an exam: starting an attempt
// and serving the randomized question sequence.
type AttemptService interface {
	StartAttempt(ctx context.Context, actor model.Actor, examID, studentID uint) (*dto.AttemptResponse, error)
	GetAttemptDetails(ctx context.Context, actor model.Actor, attemptID uint) (*dto.AttemptDetailResponse, error)
	// RandomizedQuestions serves the presentation sequence. The exam's own
	// randomization flags can be overridden per call.
	RandomizedQuestions(ctx context.Context, actor model.Actor, examID uint, randomizeQuestions, randomizeAnswers *bool) ([]dto.QuestionDelivery, error)
}

type attemptService struct {
	examRepo    repository.ExamRepository
	attemptRepo repository.AttemptRepository
	randomizer  RandomizerService
}

func NewAttemptService(
	examRepo repository.ExamRepository,
	attemptRepo repository.AttemptRepository,
	randomizer RandomizerService,
) AttemptService {
	return &attemptService{
		examRepo:    examRepo,
		attemptRepo: attemptRepo,
		randomizer:  randomizer,
	}
}

// StartAttempt creates the in-progress attempt for (exam, student), or
// returns the existing one. One attempt per pair.
func (s *attemptService) StartAttempt(ctx context.Context, actor model.Actor, examID, studentID uint) (*dto.AttemptResponse, error) {
	exam, err := s.examRepo.FindByID(examID)
	if err != nil {
		return nil, fmt.Errorf("exam %d: %w", examID, ErrNotFound)
	}
	if exam.SchoolID != actor.SchoolID {
		return nil, fmt.Errorf("exam %d: %w", examID, ErrForbidden)
	}

	existing, err := s.attemptRepo.FindByExamAndStudent(examID, studentID)
	if err == nil {
		var resp dto.AttemptResponse
		copier.Copy(&resp, existing)
		return &resp, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("lookup attempt for exam %d: %w", examID, err)
	}

	attempt := model.ExamAttempt{
		ExamID:    examID,
		StudentID: studentID,
		Status:    model.AttemptInProgress,
	}
	if err := s.attemptRepo.Create(&attempt); err != nil {
		return nil, fmt.Errorf("create attempt: %w", err)
	}

	log.Info().Uint("examID", examID).Uint("studentID", studentID).Uint("attemptID", attempt.ID).
		Msg("StartAttempt: attempt created")

	var resp dto.AttemptResponse
	copier.Copy(&resp, &attempt)
	return &resp, nil
}

func (s *attemptService) GetAttemptDetails(ctx context.Context, actor model.Actor, attemptID uint) (*dto.AttemptDetailResponse, error) {
	attempt, err := s.attemptRepo.FindByIDWithDetails(attemptID)
	if err != nil {
		return nil, fmt.Errorf("attempt %d: %w", attemptID, ErrNotFound)
	}

	var resp dto.AttemptDetailResponse
	copier.Copy(&resp, attempt)
	resp.ExamTitle = attempt.Exam.Title
	return &resp, nil
}

func (s *attemptService) RandomizedQuestions(ctx context.Context, actor model.Actor, examID uint, randomizeQuestions, randomizeAnswers *bool) ([]dto.QuestionDelivery, error) {
	exam, err := s.examRepo.FindByIDWithQuestions(examID)
	if err != nil {
		return nil, fmt.Errorf("exam %d: %w", examID, ErrNotFound)
	}
	if exam.SchoolID != actor.SchoolID {
		return nil, fmt.Errorf("exam %d: %w", examID, ErrForbidden)
	}

	shuffleQuestions := exam.RandomizeQuestions
	if randomizeQuestions != nil {
		shuffleQuestions = *randomizeQuestions
	}
	shuffleAnswers := exam.RandomizeAnswers
	if randomizeAnswers != nil {
		shuffleAnswers = *randomizeAnswers
	}

	if groups, gErr := s.examRepo.FindGroupsByExamID(examID); gErr == nil {
		if empty := s.randomizer.ValidateGroups(groups, exam.Questions); len(empty) > 0 {
			log.Warn().Uint("examID", examID).Uints("groupIDs", empty).
				Msg("RandomizedQuestions: groups without member questions")
		}
	}

	ordered := s.randomizer.Randomize(exam.Questions, shuffleQuestions, shuffleAnswers)

	// The delivery DTO carries no correct-answer key.
	out := make([]dto.QuestionDelivery, 0, len(ordered))
	for i, q := range ordered {
		item := dto.QuestionDelivery{
			ID:       q.ID,
			Type:     string(q.Type),
			Text:     q.Text,
			Points:   q.Points,
			Position: i + 1,
		}
		for _, opt := range q.Options {
			item.Options = append(item.Options, dto.OptionDelivery{Key: opt.Key, Label: opt.Label})
		}
		if q.GroupID != nil && q.Group != nil {
			item.Group = &dto.GroupDelivery{
				ID:       q.Group.ID,
				Title:    q.Group.Title,
				Stimulus: q.Group.Stimulus,
				MediaURL: q.Group.MediaURL,
			}
		}
		out = append(out, item)
	}
	return out, nil
}
