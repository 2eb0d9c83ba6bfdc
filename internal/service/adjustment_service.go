package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/kartikasari/ujianku/internal/dto"
	"github.com/kartikasari/ujianku/internal/model"
	"github.com/kartikasari/ujianku/internal/repository"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AdjustmentRequest describes one post-grading correction. Exactly the
// parameters for its kind must be set.
type AdjustmentRequest struct {
	Kind       model.AdjustmentKind
	Percentage *float64 // percentage: bump by pct, clamped to exam max
	Minimum    *float64 // minimum: floor applied to attempts below it
	StudentID  *uint    // manual: the single target student
	Value      *float64 // manual: requested score, clamped to exam max
	Note       string
}

type AdjustmentService interface {
	ApplyAdjustment(ctx context.Context, actor model.Actor, examID uint, req AdjustmentRequest) (*dto.AdjustmentOutcome, error)
	RevertAdjustment(ctx context.Context, actor model.Actor, adjustmentID uint) error
	BulkApplyAdjustments(ctx context.Context, actor model.Actor, examID uint, reqs []AdjustmentRequest) (*dto.BulkAdjustmentOutcome, error)
	AdjustmentStatistics(ctx context.Context, actor model.Actor, examID uint) (*dto.AdjustmentStatisticsResponse, error)
}

type adjustmentService struct {
	db             *gorm.DB
	examRepo       repository.ExamRepository
	attemptRepo    repository.AttemptRepository
	adjustmentRepo repository.AdjustmentRepository
}

func NewAdjustmentService(
	examRepo repository.ExamRepository,
	attemptRepo repository.AttemptRepository,
	adjustmentRepo repository.AdjustmentRepository,
	db *gorm.DB,
) AdjustmentService {
	return &adjustmentService{
		db:             db,
		examRepo:       examRepo,
		attemptRepo:    attemptRepo,
		adjustmentRepo: adjustmentRepo,
	}
}

// computeAdjustment returns the adjusted score for one attempt. The second
// return reports whether the adjustment applies at all (a minimum floor
// skips attempts already at or above it). AfterValue never exceeds maxScore.
func computeAdjustment(req AdjustmentRequest, before, maxScore float64) (after float64, applies bool, data datatypes.JSONMap, err error) {
	switch req.Kind {
	case model.AdjustmentPercentage:
		if req.Percentage == nil {
			return 0, false, nil, fmt.Errorf("percentage adjustment requires a percentage: %w", ErrValidation)
		}
		after = math.Min(before*(1+*req.Percentage/100), maxScore)
		return after, true, datatypes.JSONMap{"percentage": *req.Percentage}, nil

	case model.AdjustmentMinimum:
		if req.Minimum == nil {
			return 0, false, nil, fmt.Errorf("minimum adjustment requires a floor: %w", ErrValidation)
		}
		floor := math.Min(*req.Minimum, maxScore)
		if before >= floor {
			return before, false, nil, nil
		}
		return floor, true, datatypes.JSONMap{"minimum": *req.Minimum}, nil

	case model.AdjustmentManual:
		if req.Value == nil {
			return 0, false, nil, fmt.Errorf("manual adjustment requires a value: %w", ErrValidation)
		}
		if *req.Value < 0 {
			return 0, false, nil, fmt.Errorf("manual adjustment value must not be negative: %w", ErrValidation)
		}
		after = math.Min(*req.Value, maxScore)
		return after, true, datatypes.JSONMap{"requested_value": *req.Value}, nil

	default:
		return 0, false, nil, fmt.Errorf("unknown adjustment kind %q: %w", req.Kind, ErrValidation)
	}
}

// ApplyAdjustment applies one correction to every targeted completed
// attempt, writing one audit row per attempt. Each attempt is its own
// transaction; one student's failure does not abort the rest.
func (s *adjustmentService) ApplyAdjustment(ctx context.Context, actor model.Actor, examID uint, req AdjustmentRequest) (*dto.AdjustmentOutcome, error) {
	exam, err := s.examRepo.FindByID(examID)
	if err != nil {
		return nil, fmt.Errorf("exam %d: %w", examID, ErrNotFound)
	}
	if exam.SchoolID != actor.SchoolID {
		return nil, fmt.Errorf("exam %d: %w", examID, ErrForbidden)
	}

	var attempts []model.ExamAttempt
	if req.Kind == model.AdjustmentManual {
		if req.StudentID == nil {
			return nil, fmt.Errorf("manual adjustment requires a student: %w", ErrValidation)
		}
		attempt, err := s.attemptRepo.FindByExamAndStudent(examID, *req.StudentID)
		if err != nil {
			return nil, fmt.Errorf("attempt for student %d in exam %d: %w", *req.StudentID, examID, ErrNotFound)
		}
		if attempt.Status != model.AttemptCompleted {
			return nil, fmt.Errorf("attempt for student %d is not completed: %w", *req.StudentID, ErrValidation)
		}
		attempts = []model.ExamAttempt{*attempt}
	} else {
		attempts, err = s.attemptRepo.FindCompletedByExam(examID)
		if err != nil {
			return nil, fmt.Errorf("attempts for exam %d: %w", examID, err)
		}
	}

	outcome := &dto.AdjustmentOutcome{Kind: string(req.Kind)}
	for _, attempt := range attempts {
		after, applies, data, err := computeAdjustment(req, attempt.TotalScore, exam.MaxScore)
		if err != nil {
			return nil, err
		}
		if !applies {
			continue
		}

		if err := s.applyToAttempt(actor, examID, attempt, after, req, data); err != nil {
			log.Error().Err(err).Uint("attemptID", attempt.ID).Uint("studentID", attempt.StudentID).
				Msg("ApplyAdjustment: failed for attempt")
			outcome.FailedStudentIDs = append(outcome.FailedStudentIDs, attempt.StudentID)
			continue
		}
		outcome.SucceededStudentIDs = append(outcome.SucceededStudentIDs, attempt.StudentID)
	}

	log.Info().Uint("examID", examID).Str("kind", string(req.Kind)).
		Int("succeeded", len(outcome.SucceededStudentIDs)).Int("failed", len(outcome.FailedStudentIDs)).
		Msg("ApplyAdjustment: done")
	return outcome, nil
}

// applyToAttempt writes the audit row and the score override in one
// transaction. The direct score write bypasses the answer-sum invariant;
// an adjustment is by definition an override.
func (s *adjustmentService) applyToAttempt(actor model.Actor, examID uint, attempt model.ExamAttempt, after float64, req AdjustmentRequest, data datatypes.JSONMap) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		row := model.GradeAdjustment{
			ExamID:       examID,
			StudentID:    attempt.StudentID,
			Kind:         req.Kind,
			BeforeValue:  attempt.TotalScore,
			AfterValue:   after,
			AdjustedBy:   actor.UserID,
			AdjustedRole: actor.Role,
			Note:         req.Note,
			Data:         data,
		}
		if err := s.adjustmentRepo.Create(tx, &row); err != nil {
			return fmt.Errorf("write adjustment audit row: %w", err)
		}
		return tx.Model(&model.ExamAttempt{}).
			Where("id = ?", attempt.ID).
			Update("total_score", after).Error
	})
}

// RevertAdjustment restores the attempt's score to the adjustment's
// recorded before-value and stamps the existing audit row. No audit history
// is deleted or duplicated.
func (s *adjustmentService) RevertAdjustment(ctx context.Context, actor model.Actor, adjustmentID uint) error {
	adjustment, err := s.adjustmentRepo.FindByID(adjustmentID)
	if err != nil {
		return fmt.Errorf("adjustment %d: %w", adjustmentID, ErrNotFound)
	}

	exam, err := s.examRepo.FindByID(adjustment.ExamID)
	if err != nil {
		return fmt.Errorf("exam for adjustment %d: %w", adjustmentID, ErrNotFound)
	}
	if exam.SchoolID != actor.SchoolID {
		return fmt.Errorf("adjustment %d: %w", adjustmentID, ErrForbidden)
	}
	if adjustment.RevertedAt != nil {
		return fmt.Errorf("adjustment %d already reverted: %w", adjustmentID, ErrValidation)
	}

	attempt, err := s.attemptRepo.FindByExamAndStudent(adjustment.ExamID, adjustment.StudentID)
	if err != nil {
		return fmt.Errorf("attempt for adjustment %d: %w", adjustmentID, ErrNotFound)
	}

	now := time.Now()
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.ExamAttempt{}).
			Where("id = ?", attempt.ID).
			Update("total_score", adjustment.BeforeValue).Error; err != nil {
			return fmt.Errorf("restore attempt score: %w", err)
		}
		return s.adjustmentRepo.MarkReverted(tx, adjustmentID, actor.UserID, now)
	})
	if err != nil {
		return fmt.Errorf("revert adjustment %d: %w", adjustmentID, err)
	}

	log.Info().Uint("adjustmentID", adjustmentID).Uint("attemptID", attempt.ID).
		Float64("restored", adjustment.BeforeValue).Msg("RevertAdjustment: score restored")
	return nil
}

// BulkApplyAdjustments applies a heterogeneous list independently,
// collecting per-item outcomes without letting one failure abort the rest.
func (s *adjustmentService) BulkApplyAdjustments(ctx context.Context, actor model.Actor, examID uint, reqs []AdjustmentRequest) (*dto.BulkAdjustmentOutcome, error) {
	if len(reqs) == 0 {
		return nil, fmt.Errorf("bulk adjustment list is empty: %w", ErrValidation)
	}

	outcome := &dto.BulkAdjustmentOutcome{}
	for i, req := range reqs {
		item, err := s.ApplyAdjustment(ctx, actor, examID, req)
		if err != nil {
			outcome.Items = append(outcome.Items, dto.BulkAdjustmentItem{
				Index: i,
				Kind:  string(req.Kind),
				Error: err.Error(),
			})
			outcome.FailureCount++
			continue
		}
		outcome.Items = append(outcome.Items, dto.BulkAdjustmentItem{
			Index:   i,
			Kind:    string(req.Kind),
			Outcome: item,
		})
		outcome.SuccessCount++
	}
	return outcome, nil
}

// AdjustmentStatistics summarizes the ledger for one exam: counts by kind
// and the net score delta, split into total increase and total decrease.
// Reverted adjustments are excluded from the delta.
func (s *adjustmentService) AdjustmentStatistics(ctx context.Context, actor model.Actor, examID uint) (*dto.AdjustmentStatisticsResponse, error) {
	exam, err := s.examRepo.FindByID(examID)
	if err != nil {
		return nil, fmt.Errorf("exam %d: %w", examID, ErrNotFound)
	}
	if exam.SchoolID != actor.SchoolID {
		return nil, fmt.Errorf("exam %d: %w", examID, ErrForbidden)
	}

	adjustments, err := s.adjustmentRepo.FindByExamID(examID)
	if err != nil {
		return nil, fmt.Errorf("adjustments for exam %d: %w", examID, err)
	}

	resp := &dto.AdjustmentStatisticsResponse{
		ExamID:       examID,
		CountsByKind: make(map[string]int),
	}
	for _, adjustment := range adjustments {
		resp.CountsByKind[string(adjustment.Kind)]++
		resp.TotalCount++
		if adjustment.RevertedAt != nil {
			resp.RevertedCount++
			continue
		}
		delta := adjustment.AfterValue - adjustment.BeforeValue
		if delta >= 0 {
			resp.TotalIncrease += delta
		} else {
			resp.TotalDecrease += -delta
		}
	}
	resp.NetDelta = resp.TotalIncrease - resp.TotalDecrease
	return resp, nil
}
