package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/kartikasari/ujianku/internal/dto"
	"github.com/kartikasari/ujianku/internal/model"
	"github.com/kartikasari/ujianku/internal/repository"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type GradingService interface {
	GradeAttempt(ctx context.Context, actor model.Actor, attemptID uint) (*dto.GradeAttemptResponse, error)
	ManualGradeEssay(ctx context.Context, actor model.Actor, answerID uint, points float64, feedback string) (*dto.ManualGradeResponse, error)
	RecalculateAttemptScore(ctx context.Context, attemptID uint) error
	// RecheckPass recomputes the pass/fail label from the attempt's current
	// score. The adjustment ledger changes scores without touching pass/fail;
	// this is the explicit recheck that picks those changes up.
	RecheckPass(ctx context.Context, attemptID uint) (bool, error)
	ExamStatistics(ctx context.Context, actor model.Actor, examID uint) (*dto.ExamStatisticsResponse, error)
}

type gradingService struct {
	db          *gorm.DB
	examRepo    repository.ExamRepository
	attemptRepo repository.AttemptRepository
	answerRepo  repository.AnswerRepository
}

func NewGradingService(
	examRepo repository.ExamRepository,
	attemptRepo repository.AttemptRepository,
	answerRepo repository.AnswerRepository,
	db *gorm.DB,
) GradingService {
	return &gradingService{
		db:          db,
		examRepo:    examRepo,
		attemptRepo: attemptRepo,
		answerRepo:  answerRepo,
	}
}

// GradeAttempt grades every answer by its question-type rule, aggregates the
// total, and completes the attempt inside one transaction. An attempt that
// is already completed is refused rather than regraded.
func (s *gradingService) GradeAttempt(ctx context.Context, actor model.Actor, attemptID uint) (*dto.GradeAttemptResponse, error) {
	attempt, err := s.attemptRepo.FindByIDWithDetails(attemptID)
	if err != nil {
		return nil, fmt.Errorf("attempt %d: %w", attemptID, ErrNotFound)
	}

	exam := attempt.Exam
	if exam.ID == 0 {
		return nil, fmt.Errorf("exam for attempt %d: %w", attemptID, ErrNotFound)
	}
	if exam.SchoolID != actor.SchoolID {
		return nil, fmt.Errorf("attempt %d: %w", attemptID, ErrForbidden)
	}
	if attempt.Status == model.AttemptCompleted {
		return nil, fmt.Errorf("attempt %d: %w", attemptID, ErrAlreadyGraded)
	}

	now := time.Now()
	resp := &dto.GradeAttemptResponse{
		AttemptID:      attemptID,
		TotalQuestions: len(attempt.Answers),
	}

	total := 0.0
	correct := 0
	perQuestion := make([]dto.QuestionGradeResult, 0, len(attempt.Answers))
	graded := make([]model.Answer, 0, len(attempt.Answers))

	for _, answer := range attempt.Answers {
		res := GradeAnswer(answer.Question, answer.Value)

		answer.Points = res.Points
		answer.IsCorrect = res.IsCorrect
		answer.GradingMetadata = gradingBag(res, now)
		graded = append(graded, answer)

		total += res.Points
		if res.IsCorrect {
			correct++
		}
		perQuestion = append(perQuestion, dto.QuestionGradeResult{
			QuestionID:           answer.QuestionID,
			Points:               res.Points,
			MaxPoints:            answer.Question.Points,
			IsCorrect:            res.IsCorrect,
			Method:               res.Method,
			RequiresManualReview: res.RequiresManualReview,
			Detail:               res.Detail,
		})
	}

	percentage := PercentageScore(total, exam.MaxScore)
	isPassed := percentage >= exam.PassingScore

	err = s.db.Transaction(func(tx *gorm.DB) error {
		for i := range graded {
			if err := tx.Model(&model.Answer{}).
				Where("id = ?", graded[i].ID).
				Updates(map[string]interface{}{
					"points":           graded[i].Points,
					"is_correct":       graded[i].IsCorrect,
					"grading_metadata": graded[i].GradingMetadata,
				}).Error; err != nil {
				return fmt.Errorf("persist grade for answer %d: %w", graded[i].ID, err)
			}
		}
		return tx.Model(&model.ExamAttempt{}).
			Where("id = ?", attemptID).
			Updates(map[string]interface{}{
				"total_score":     total,
				"correct_answers": correct,
				"status":          model.AttemptCompleted,
				"submitted_at":    now,
				"grading_metadata": datatypes.JSONMap{
					model.MetaPercentageScore: percentage,
					model.MetaIsPassed:        isPassed,
					model.MetaGradingMethod:   "auto",
					model.MetaGradedAt:        now.Format(time.RFC3339),
					model.MetaGradedBy:        actor.UserID,
				},
			}).Error
	})
	if err != nil {
		log.Error().Err(err).Uint("attemptID", attemptID).Msg("GradeAttempt: transaction rolled back")
		return nil, fmt.Errorf("grading attempt %d: %w", attemptID, err)
	}

	resp.TotalScore = total
	resp.PercentageScore = percentage
	resp.CorrectAnswers = correct
	resp.IsPassed = isPassed
	resp.Results = perQuestion

	log.Info().Uint("attemptID", attemptID).Float64("total", total).
		Float64("percentage", percentage).Bool("passed", isPassed).
		Msg("GradeAttempt: attempt graded")
	return resp, nil
}

// ManualGradeEssay records a human grade for a free-text answer and
// recomputes the attempt aggregate from its answers.
func (s *gradingService) ManualGradeEssay(ctx context.Context, actor model.Actor, answerID uint, points float64, feedback string) (*dto.ManualGradeResponse, error) {
	answer, err := s.answerRepo.FindByIDWithQuestion(answerID)
	if err != nil {
		return nil, fmt.Errorf("answer %d: %w", answerID, ErrNotFound)
	}

	exam, err := s.examRepo.FindByID(answer.Question.ExamID)
	if err != nil {
		return nil, fmt.Errorf("exam for answer %d: %w", answerID, ErrNotFound)
	}
	if exam.SchoolID != actor.SchoolID {
		return nil, fmt.Errorf("answer %d: %w", answerID, ErrForbidden)
	}
	if answer.Question.Type != model.QuestionFreeText {
		return nil, fmt.Errorf("answer %d is not a free-text answer: %w", answerID, ErrValidation)
	}
	if points < 0 || points > answer.Question.Points {
		return nil, fmt.Errorf("points %.2f out of range 0-%.2f: %w", points, answer.Question.Points, ErrValidation)
	}

	now := time.Now()
	answer.Points = points
	answer.IsCorrect = points > 0
	if answer.GradingMetadata == nil {
		answer.GradingMetadata = datatypes.JSONMap{}
	}
	answer.GradingMetadata["method"] = "manual"
	answer.GradingMetadata["graded_by"] = actor.UserID
	answer.GradingMetadata["graded_role"] = actor.Role
	answer.GradingMetadata["graded_at"] = now.Format(time.RFC3339)
	answer.GradingMetadata["requires_manual_review"] = false
	if feedback != "" {
		answer.GradingMetadata["feedback"] = feedback
	}

	if err := s.answerRepo.Update(answer); err != nil {
		return nil, fmt.Errorf("persist manual grade for answer %d: %w", answerID, err)
	}

	if err := s.RecalculateAttemptScore(ctx, answer.AttemptID); err != nil {
		return nil, err
	}

	return &dto.ManualGradeResponse{
		Success:   true,
		AnswerID:  answerID,
		Points:    points,
		IsCorrect: answer.IsCorrect,
	}, nil
}

// RecalculateAttemptScore re-derives the attempt aggregate from its answers.
// Outside the adjustment ledger, the attempt score is never hand-edited;
// this recomputation is the single source of truth.
func (s *gradingService) RecalculateAttemptScore(ctx context.Context, attemptID uint) error {
	attempt, err := s.attemptRepo.FindByID(attemptID)
	if err != nil {
		return fmt.Errorf("attempt %d: %w", attemptID, ErrNotFound)
	}
	exam, err := s.examRepo.FindByID(attempt.ExamID)
	if err != nil {
		return fmt.Errorf("exam for attempt %d: %w", attemptID, ErrNotFound)
	}
	answers, err := s.answerRepo.FindByAttemptID(attemptID)
	if err != nil {
		return fmt.Errorf("answers for attempt %d: %w", attemptID, err)
	}

	total := 0.0
	correct := 0
	for _, answer := range answers {
		total += answer.Points
		if answer.IsCorrect {
			correct++
		}
	}

	percentage := PercentageScore(total, exam.MaxScore)
	isPassed := percentage >= exam.PassingScore

	meta := attempt.GradingMetadata
	if meta == nil {
		meta = datatypes.JSONMap{}
	}
	meta[model.MetaPercentageScore] = percentage
	meta[model.MetaIsPassed] = isPassed

	err = s.db.Transaction(func(tx *gorm.DB) error {
		return tx.Model(&model.ExamAttempt{}).
			Where("id = ?", attemptID).
			Updates(map[string]interface{}{
				"total_score":      total,
				"correct_answers":  correct,
				"grading_metadata": meta,
			}).Error
	})
	if err != nil {
		return fmt.Errorf("recalculate attempt %d: %w", attemptID, err)
	}

	log.Info().Uint("attemptID", attemptID).Float64("total", total).Msg("RecalculateAttemptScore: aggregate recomputed")
	return nil
}

func (s *gradingService) RecheckPass(ctx context.Context, attemptID uint) (bool, error) {
	attempt, err := s.attemptRepo.FindByIDWithDetails(attemptID)
	if err != nil {
		return false, fmt.Errorf("attempt %d: %w", attemptID, ErrNotFound)
	}

	percentage := PercentageScore(attempt.TotalScore, attempt.Exam.MaxScore)
	isPassed := percentage >= attempt.Exam.PassingScore

	meta := attempt.GradingMetadata
	if meta == nil {
		meta = datatypes.JSONMap{}
	}
	meta[model.MetaPercentageScore] = percentage
	meta[model.MetaIsPassed] = isPassed

	err = s.db.Model(&model.ExamAttempt{}).
		Where("id = ?", attemptID).
		Update("grading_metadata", meta).Error
	if err != nil {
		return false, fmt.Errorf("recheck pass for attempt %d: %w", attemptID, err)
	}
	return isPassed, nil
}

// ExamStatistics computes instructor-facing analytics over the completed
// attempts of one exam.
func (s *gradingService) ExamStatistics(ctx context.Context, actor model.Actor, examID uint) (*dto.ExamStatisticsResponse, error) {
	exam, err := s.examRepo.FindByID(examID)
	if err != nil {
		return nil, fmt.Errorf("exam %d: %w", examID, ErrNotFound)
	}
	if exam.SchoolID != actor.SchoolID {
		return nil, fmt.Errorf("exam %d: %w", examID, ErrForbidden)
	}

	attempts, err := s.attemptRepo.FindCompletedByExam(examID)
	if err != nil {
		return nil, fmt.Errorf("attempts for exam %d: %w", examID, err)
	}

	resp := &dto.ExamStatisticsResponse{ExamID: examID, AttemptCount: len(attempts)}
	if len(attempts) == 0 {
		return resp, nil
	}

	sum := 0.0
	min := attempts[0].TotalScore
	max := attempts[0].TotalScore
	passed := 0

	type questionTally struct {
		answered int
		correct  int
	}
	tallies := make(map[uint]*questionTally)

	for _, attempt := range attempts {
		sum += attempt.TotalScore
		if attempt.TotalScore < min {
			min = attempt.TotalScore
		}
		if attempt.TotalScore > max {
			max = attempt.TotalScore
		}
		if PercentageScore(attempt.TotalScore, exam.MaxScore) >= exam.PassingScore {
			passed++
		}
		for _, answer := range attempt.Answers {
			t, ok := tallies[answer.QuestionID]
			if !ok {
				t = &questionTally{}
				tallies[answer.QuestionID] = t
			}
			t.answered++
			if answer.IsCorrect {
				t.correct++
			}
		}
	}

	resp.AverageScore = roundTo(sum/float64(len(attempts)), 2)
	resp.MinScore = min
	resp.MaxScore = max
	resp.PassRate = roundTo(float64(passed)/float64(len(attempts))*100, 2)

	for questionID, t := range tallies {
		correctRate := 0.0
		if t.answered > 0 {
			correctRate = roundTo(float64(t.correct)/float64(t.answered), 4)
		}
		resp.Questions = append(resp.Questions, dto.QuestionStatistics{
			QuestionID:  questionID,
			Answered:    t.answered,
			CorrectRate: correctRate,
			Difficulty:  roundTo(1-correctRate, 4),
		})
	}
	sort.Slice(resp.Questions, func(i, j int) bool {
		return resp.Questions[i].QuestionID < resp.Questions[j].QuestionID
	})

	return resp, nil
}

func gradingBag(res GradeResult, gradedAt time.Time) datatypes.JSONMap {
	bag := datatypes.JSONMap{
		"method":                 res.Method,
		"graded_at":              gradedAt.Format(time.RFC3339),
		"requires_manual_review": res.RequiresManualReview,
	}
	for k, v := range res.Detail {
		bag[k] = v
	}
	return bag
}
