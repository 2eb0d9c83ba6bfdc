package service

import (
	"context"
	"fmt"
	"time"

	"github.com/kartikasari/ujianku/config"
	"github.com/kartikasari/ujianku/internal/model"
	"github.com/kartikasari/ujianku/internal/repository"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SaveStatus tells the client whether the answer was written directly or
// deflected to the retry queue. Queued is not an error from the student's
// point of view; the background processor applies it later.
type SaveStatus string

const (
	SaveStatusSaved  SaveStatus = "saved"
	SaveStatusQueued SaveStatus = "queued"
)

type SaveResult struct {
	Status    SaveStatus
	Timestamp time.Time
}

type BatchSaveResult struct {
	Success      bool
	Results      map[uint]string // question id -> "saved" | "failed: ..." | "rolled_back"
	SuccessCount int
	FailureCount int
}

type QueueDrainResult struct {
	Processed int
	Failed    int
	Skipped   int
	Total     int
	// PermanentlyFailed is the queue-wide backlog of entries that exhausted
	// their retry budget and will never be replayed.
	PermanentlyFailed int64
}

type AutoSaveService interface {
	SaveAnswer(ctx context.Context, actor model.Actor, attemptID, questionID uint, value string, isAutoSave bool) (*SaveResult, error)
	BatchSaveAnswers(ctx context.Context, actor model.Actor, attemptID uint, answers map[uint]string) (*BatchSaveResult, error)
	ProcessQueuedAnswers(ctx context.Context, attemptID *uint) (*QueueDrainResult, error)
	PurgeQueue(ctx context.Context, olderThan time.Duration) (int64, error)
	RecommendedInterval(attemptID uint) time.Duration
	ConnectionQuality(attemptID uint) ConnectionQuality
}

type autoSaveService struct {
	db           *gorm.DB
	attemptRepo  repository.AttemptRepository
	questionRepo repository.QuestionRepository
	answerRepo   repository.AnswerRepository
	queueRepo    repository.QueueRepository
	locks        *inflightLocks
	monitor      *connectionMonitor
	maxRetries   int
	purgeAge     time.Duration
}

func NewAutoSaveService(
	cfg *config.Config,
	attemptRepo repository.AttemptRepository,
	questionRepo repository.QuestionRepository,
	answerRepo repository.AnswerRepository,
	queueRepo repository.QueueRepository,
	db *gorm.DB,
) AutoSaveService {
	return &autoSaveService{
		db:           db,
		attemptRepo:  attemptRepo,
		questionRepo: questionRepo,
		answerRepo:   answerRepo,
		queueRepo:    queueRepo,
		locks:        newInflightLocks(time.Duration(cfg.AutoSave.InFlightTTLSeconds) * time.Second),
		monitor:      newConnectionMonitor(),
		maxRetries:   cfg.AutoSave.MaxRetries,
		purgeAge:     time.Duration(cfg.AutoSave.PurgeAgeHours) * time.Hour,
	}
}

// SaveAnswer performs one deduplicated, transactional upsert for the
// (attempt, question) key. Concurrent saves for the same key and transient
// storage failures both resolve to a queued retry; the student-facing caller
// never blocks on contention and never sees a transient DB error.
func (s *autoSaveService) SaveAnswer(ctx context.Context, actor model.Actor, attemptID, questionID uint, value string, isAutoSave bool) (*SaveResult, error) {
	attempt, err := s.attemptRepo.FindByID(attemptID)
	if err != nil {
		return nil, fmt.Errorf("attempt %d: %w", attemptID, ErrNotFound)
	}
	if attempt.Status != model.AttemptInProgress {
		return nil, fmt.Errorf("attempt %d is not in progress: %w", attemptID, ErrValidation)
	}

	question, err := s.questionRepo.FindByID(questionID)
	if err != nil {
		return nil, fmt.Errorf("question %d: %w", questionID, ErrNotFound)
	}
	if question.ExamID != attempt.ExamID {
		return nil, fmt.Errorf("question %d does not belong to exam %d: %w", questionID, attempt.ExamID, ErrValidation)
	}

	key := saveKey(attemptID, questionID)
	if !s.locks.TryAcquire(key) {
		log.Info().Uint("attemptID", attemptID).Uint("questionID", questionID).
			Msg("SaveAnswer: key already in flight, deflecting to retry queue")
		if err := s.enqueue(actor, attemptID, questionID, value, isAutoSave, "in-flight contention"); err != nil {
			return nil, err
		}
		return &SaveResult{Status: SaveStatusQueued, Timestamp: time.Now()}, nil
	}
	defer s.locks.Release(key)

	start := time.Now()
	err = s.upsertInTx(actor, attemptID, questionID, value, isAutoSave)
	s.monitor.Record(attemptID, time.Since(start), err != nil)

	if err != nil {
		log.Warn().Err(err).Uint("attemptID", attemptID).Uint("questionID", questionID).
			Msg("SaveAnswer: direct write failed, queueing for retry")
		if qErr := s.enqueue(actor, attemptID, questionID, value, isAutoSave, err.Error()); qErr != nil {
			return nil, qErr
		}
		return &SaveResult{Status: SaveStatusQueued, Timestamp: time.Now()}, nil
	}

	return &SaveResult{Status: SaveStatusSaved, Timestamp: time.Now()}, nil
}

// upsertInTx is the single transactional unit: create-or-replace the answer
// row and touch the attempt's updated_at.
func (s *autoSaveService) upsertInTx(actor model.Actor, attemptID, questionID uint, value string, isAutoSave bool) error {
	now := time.Now()
	answer := model.Answer{
		AttemptID:  attemptID,
		QuestionID: questionID,
		Value:      value,
		IsAutoSave: isAutoSave,
		AnsweredAt: now,
		SaveMetadata: datatypes.JSONMap{
			"saved_at":   now.Format(time.RFC3339),
			"connection": string(s.monitor.Quality(attemptID)),
			"saved_by":   actor.UserID,
		},
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.answerRepo.Upsert(tx, &answer); err != nil {
			return fmt.Errorf("upsert answer: %w", err)
		}
		if err := tx.Model(&model.ExamAttempt{}).
			Where("id = ?", attemptID).
			Update("updated_at", now).Error; err != nil {
			return fmt.Errorf("touch attempt: %w", err)
		}
		return nil
	})
}

func (s *autoSaveService) enqueue(actor model.Actor, attemptID, questionID uint, value string, isAutoSave bool, reason string) error {
	entry := model.QueuedAnswer{
		AttemptID:  attemptID,
		QuestionID: questionID,
		Value:      value,
		IsAutoSave: isAutoSave,
		SavedBy:    actor.UserID,
		LastError:  reason,
	}
	if err := s.queueRepo.Enqueue(&entry); err != nil {
		log.Error().Err(err).Uint("attemptID", attemptID).Uint("questionID", questionID).
			Msg("SaveAnswer: failed to enqueue answer for retry")
		return fmt.Errorf("enqueue answer for retry: %w", err)
	}
	return nil
}

// BatchSaveAnswers wraps multiple upserts in one transaction for the bulk
// submit-at-end flow. Any single failure rolls back the whole batch.
func (s *autoSaveService) BatchSaveAnswers(ctx context.Context, actor model.Actor, attemptID uint, answers map[uint]string) (*BatchSaveResult, error) {
	if len(answers) == 0 {
		return nil, fmt.Errorf("batch contains no answers: %w", ErrValidation)
	}

	attempt, err := s.attemptRepo.FindByID(attemptID)
	if err != nil {
		return nil, fmt.Errorf("attempt %d: %w", attemptID, ErrNotFound)
	}
	if attempt.Status != model.AttemptInProgress {
		return nil, fmt.Errorf("attempt %d is not in progress: %w", attemptID, ErrValidation)
	}

	examQuestions, err := s.questionRepo.FindByExamID(attempt.ExamID)
	if err != nil {
		return nil, fmt.Errorf("questions for exam %d: %w", attempt.ExamID, err)
	}
	known := make(map[uint]bool, len(examQuestions))
	for _, q := range examQuestions {
		known[q.ID] = true
	}
	for questionID := range answers {
		if !known[questionID] {
			return nil, fmt.Errorf("question %d does not belong to exam %d: %w", questionID, attempt.ExamID, ErrValidation)
		}
	}

	result := &BatchSaveResult{Results: make(map[uint]string, len(answers))}
	now := time.Now()

	err = s.db.Transaction(func(tx *gorm.DB) error {
		for questionID, value := range answers {
			answer := model.Answer{
				AttemptID:  attemptID,
				QuestionID: questionID,
				Value:      value,
				AnsweredAt: now,
				SaveMetadata: datatypes.JSONMap{
					"saved_at": now.Format(time.RFC3339),
					"batch":    true,
					"saved_by": actor.UserID,
				},
			}
			if err := s.answerRepo.Upsert(tx, &answer); err != nil {
				result.Results[questionID] = "failed: " + err.Error()
				return fmt.Errorf("batch upsert question %d: %w", questionID, err)
			}
			result.Results[questionID] = "saved"
		}
		return tx.Model(&model.ExamAttempt{}).
			Where("id = ?", attemptID).
			Update("updated_at", now).Error
	})

	if err != nil {
		log.Error().Err(err).Uint("attemptID", attemptID).Msg("BatchSaveAnswers: batch rolled back")
		for questionID, status := range result.Results {
			if status == "saved" {
				result.Results[questionID] = "rolled_back"
			}
		}
		result.Success = false
		result.FailureCount = len(answers)
		return result, nil
	}

	result.Success = true
	result.SuccessCount = len(answers)
	return result, nil
}

// ProcessQueuedAnswers drains retryable entries, optionally scoped to one
// attempt. Idempotent per entry and safe to run concurrently with live
// saves: entries whose key is currently in flight are skipped, not failed.
func (s *autoSaveService) ProcessQueuedAnswers(ctx context.Context, attemptID *uint) (*QueueDrainResult, error) {
	entries, err := s.queueRepo.FindRetryable(attemptID, s.maxRetries)
	if err != nil {
		return nil, fmt.Errorf("load queued answers: %w", err)
	}

	result := &QueueDrainResult{Total: len(entries)}
	for i := range entries {
		entry := entries[i]

		key := saveKey(entry.AttemptID, entry.QuestionID)
		if !s.locks.TryAcquire(key) {
			result.Skipped++
			continue
		}

		// Replays keep the identity of whoever issued the original save.
		err := s.upsertInTx(model.Actor{UserID: entry.SavedBy}, entry.AttemptID, entry.QuestionID, entry.Value, entry.IsAutoSave)
		s.locks.Release(key)

		if err != nil {
			entry.RetryCount++
			entry.LastError = err.Error()
			if uErr := s.queueRepo.Update(&entry); uErr != nil {
				log.Error().Err(uErr).Str("entryKey", entry.EntryKey.String()).Msg("ProcessQueuedAnswers: failed to record retry")
			}
			if entry.RetryCount >= s.maxRetries {
				log.Error().Str("entryKey", entry.EntryKey.String()).Uint("attemptID", entry.AttemptID).
					Msg("ProcessQueuedAnswers: entry exhausted its retry budget")
			}
			result.Failed++
			continue
		}

		if dErr := s.queueRepo.Delete(&entry); dErr != nil {
			log.Error().Err(dErr).Str("entryKey", entry.EntryKey.String()).Msg("ProcessQueuedAnswers: failed to remove applied entry")
		}
		result.Processed++
	}

	if count, cErr := s.queueRepo.CountPermanentlyFailed(s.maxRetries); cErr == nil {
		result.PermanentlyFailed = count
	} else {
		log.Warn().Err(cErr).Msg("ProcessQueuedAnswers: failed to count exhausted entries")
	}

	if result.Total > 0 || result.PermanentlyFailed > 0 {
		log.Info().Int("processed", result.Processed).Int("failed", result.Failed).
			Int("skipped", result.Skipped).Int("total", result.Total).
			Int64("permanentlyFailed", result.PermanentlyFailed).
			Msg("ProcessQueuedAnswers: drain pass finished")
	}
	return result, nil
}

// PurgeQueue bounds queue growth from abandoned attempts.
func (s *autoSaveService) PurgeQueue(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		olderThan = s.purgeAge
	}
	purged, err := s.queueRepo.PurgeOlderThan(time.Now().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("purge answer queue: %w", err)
	}
	if purged > 0 {
		log.Info().Int64("purged", purged).Msg("PurgeQueue: removed stale queued answers")
	}
	return purged, nil
}

func (s *autoSaveService) RecommendedInterval(attemptID uint) time.Duration {
	return s.monitor.RecommendedInterval(attemptID)
}

func (s *autoSaveService) ConnectionQuality(attemptID uint) ConnectionQuality {
	return s.monitor.Quality(attemptID)
}
