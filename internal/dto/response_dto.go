package dto

import "time"

type ErrorResponse struct {
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

// --- Delivery (student-facing; never carries correct-answer keys) ---

type OptionDelivery struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

type GroupDelivery struct {
	ID       uint    `json:"id"`
	Title    string  `json:"title"`
	Stimulus string  `json:"stimulus,omitempty"`
	MediaURL *string `json:"media_url,omitempty"`
}

type QuestionDelivery struct {
	ID       uint             `json:"id"`
	Type     string           `json:"type"`
	Text     string           `json:"text"`
	Points   float64          `json:"points"`
	Position int              `json:"position"`
	Options  []OptionDelivery `json:"options,omitempty"`
	Group    *GroupDelivery   `json:"group,omitempty"`
}

// --- Attempts ---

type AttemptResponse struct {
	ID          uint       `json:"id"`
	ExamID      uint       `json:"exam_id"`
	StudentID   uint       `json:"student_id"`
	Status      string     `json:"status"`
	TotalScore  float64    `json:"total_score"`
	StartedAt   time.Time  `json:"started_at"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
}

type AnswerResponse struct {
	ID         uint      `json:"id"`
	QuestionID uint      `json:"question_id"`
	Value      string    `json:"value"`
	IsAutoSave bool      `json:"is_auto_save"`
	IsCorrect  bool      `json:"is_correct"`
	Points     float64   `json:"points"`
	AnsweredAt time.Time `json:"answered_at"`
}

type AttemptDetailResponse struct {
	ID              uint                   `json:"id"`
	ExamID          uint                   `json:"exam_id"`
	ExamTitle       string                 `json:"exam_title,omitempty"`
	StudentID       uint                   `json:"student_id"`
	Status          string                 `json:"status"`
	TotalScore      float64                `json:"total_score"`
	CorrectAnswers  int                    `json:"correct_answers"`
	StartedAt       time.Time              `json:"started_at"`
	SubmittedAt     *time.Time             `json:"submitted_at,omitempty"`
	GradingMetadata map[string]interface{} `json:"grading_metadata,omitempty"`
	Answers         []AnswerResponse       `json:"answers,omitempty"`
}

// --- Auto-save ---

type SaveAnswerResponse struct {
	Status    string    `json:"status"` // "saved" | "queued"
	Timestamp time.Time `json:"timestamp"`
}

type BatchSaveResponse struct {
	Success      bool            `json:"success"`
	Results      map[uint]string `json:"results"`
	SuccessCount int             `json:"success_count"`
	FailureCount int             `json:"failure_count"`
}

type SaveIntervalResponse struct {
	Quality            string `json:"quality"`
	RecommendedSeconds int    `json:"recommended_seconds"`
}

// --- Grading ---

type QuestionGradeResult struct {
	QuestionID           uint                   `json:"question_id"`
	Points               float64                `json:"points"`
	MaxPoints            float64                `json:"max_points"`
	IsCorrect            bool                   `json:"is_correct"`
	Method               string                 `json:"method"`
	RequiresManualReview bool                   `json:"requires_manual_review,omitempty"`
	Detail               map[string]interface{} `json:"detail,omitempty"`
}

type GradeAttemptResponse struct {
	AttemptID       uint                  `json:"attempt_id"`
	TotalScore      float64               `json:"total_score"`
	PercentageScore float64               `json:"percentage_score"`
	CorrectAnswers  int                   `json:"correct_answers"`
	TotalQuestions  int                   `json:"total_questions"`
	IsPassed        bool                  `json:"is_passed"`
	Results         []QuestionGradeResult `json:"results"`
}

type ManualGradeResponse struct {
	Success   bool    `json:"success"`
	AnswerID  uint    `json:"answer_id"`
	Points    float64 `json:"points"`
	IsCorrect bool    `json:"is_correct"`
}

type ReviewSuggestionResponse struct {
	AnswerID   uint   `json:"answer_id"`
	Suggestion string `json:"suggestion"`
}

type QuestionStatistics struct {
	QuestionID  uint    `json:"question_id"`
	Answered    int     `json:"answered"`
	CorrectRate float64 `json:"correct_rate"`
	Difficulty  float64 `json:"difficulty"`
}

type ExamStatisticsResponse struct {
	ExamID       uint                 `json:"exam_id"`
	AttemptCount int                  `json:"attempt_count"`
	AverageScore float64              `json:"average_score"`
	MinScore     float64              `json:"min_score"`
	MaxScore     float64              `json:"max_score"`
	PassRate     float64              `json:"pass_rate"`
	Questions    []QuestionStatistics `json:"questions,omitempty"`
}

// --- Adjustments ---

type AdjustmentOutcome struct {
	Kind                string `json:"kind"`
	SucceededStudentIDs []uint `json:"succeeded_student_ids"`
	FailedStudentIDs    []uint `json:"failed_student_ids,omitempty"`
}

type BulkAdjustmentItem struct {
	Index   int                `json:"index"`
	Kind    string             `json:"kind"`
	Outcome *AdjustmentOutcome `json:"outcome,omitempty"`
	Error   string             `json:"error,omitempty"`
}

type BulkAdjustmentOutcome struct {
	Items        []BulkAdjustmentItem `json:"items"`
	SuccessCount int                  `json:"success_count"`
	FailureCount int                  `json:"failure_count"`
}

type AdjustmentStatisticsResponse struct {
	ExamID        uint           `json:"exam_id"`
	TotalCount    int            `json:"total_count"`
	RevertedCount int            `json:"reverted_count"`
	CountsByKind  map[string]int `json:"counts_by_kind"`
	TotalIncrease float64        `json:"total_increase"`
	TotalDecrease float64        `json:"total_decrease"`
	NetDelta      float64        `json:"net_delta"`
}
