package dto

// StartAttemptRequest begins an attempt for one student.
type StartAttemptRequest struct {
	StudentID uint `json:"student_id" binding:"required"`
}

type SaveAnswerRequest struct {
	QuestionID uint   `json:"question_id" binding:"required"`
	Value      string `json:"value" binding:"required"`
	IsAutoSave bool   `json:"is_auto_save"`
}

// BatchSaveRequest carries the bulk submit-at-end payload, keyed by
// question id.
type BatchSaveRequest struct {
	Answers map[string]string `json:"answers" binding:"required"`
}

type ManualGradeRequest struct {
	Points   float64 `json:"points" binding:"min=0"`
	Feedback string  `json:"feedback"`
}

// AdjustmentRequestDTO is one correction; the fields required depend on the
// kind.
type AdjustmentRequestDTO struct {
	Kind       string   `json:"kind" binding:"required,oneof=percentage minimum manual"`
	Percentage *float64 `json:"percentage,omitempty"`
	Minimum    *float64 `json:"minimum,omitempty"`
	StudentID  *uint    `json:"student_id,omitempty"`
	Value      *float64 `json:"value,omitempty"`
	Note       string   `json:"note,omitempty"`
}

type BulkAdjustmentRequest struct {
	Adjustments []AdjustmentRequestDTO `json:"adjustments" binding:"required,dive"`
}
