package teacher

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kartikasari/ujianku/internal/controller"
	"github.com/kartikasari/ujianku/internal/dto"
	"github.com/kartikasari/ujianku/internal/service"
	"github.com/rs/zerolog/log"
)

type GradingController struct {
	gradingService service.GradingService
	reviewService  service.EssayReviewService
	answerLookup   service.AnswerLookup
}

func NewGradingController(
	gradingService service.GradingService,
	reviewService service.EssayReviewService,
	answerLookup service.AnswerLookup,
) *GradingController {
	return &GradingController{
		gradingService: gradingService,
		reviewService:  reviewService,
		answerLookup:   answerLookup,
	}
}

// GradeAttempt godoc
// @Summary (Teacher) Grade a completed attempt
// @Description Grades every answer by its question-type rule, aggregates, and completes the attempt in one transaction.
// @Tags Teacher - Grading
// @Produce json
// @Param attempt_id path int true "Attempt ID"
// @Success 200 {object} dto.GradeAttemptResponse
// @Failure 404 {object} dto.ErrorResponse "Attempt not found"
// @Failure 409 {object} dto.ErrorResponse "Attempt already graded"
// @Router /teacher/attempts/{attempt_id}/grade [post]
func (c *GradingController) GradeAttempt(ctx *gin.Context) {
	actor, ok := controller.ActorFrom(ctx)
	if !ok {
		return
	}
	attemptID, ok := controller.ParseID(ctx, "attempt_id")
	if !ok {
		return
	}

	result, err := c.gradingService.GradeAttempt(ctx.Request.Context(), actor, attemptID)
	if err != nil {
		if errors.Is(err, service.ErrAlreadyGraded) {
			ctx.JSON(http.StatusConflict, dto.ErrorResponse{Message: err.Error()})
			return
		}
		writeServiceError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, result)
}

// ManualGradeEssay godoc
// @Summary (Teacher) Manually grade a free-text answer
// @Description Records the human grade, stamps provenance, and recomputes the attempt aggregate.
// @Tags Teacher - Grading
// @Accept json
// @Produce json
// @Param answer_id path int true "Answer ID"
// @Param body body dto.ManualGradeRequest true "Awarded points and optional feedback"
// @Success 200 {object} dto.ManualGradeResponse
// @Failure 400 {object} dto.ErrorResponse "Points out of range"
// @Failure 404 {object} dto.ErrorResponse "Answer not found"
// @Router /teacher/answers/{answer_id}/manual-grade [post]
func (c *GradingController) ManualGradeEssay(ctx *gin.Context) {
	actor, ok := controller.ActorFrom(ctx)
	if !ok {
		return
	}
	answerID, ok := controller.ParseID(ctx, "answer_id")
	if !ok {
		return
	}

	var req dto.ManualGradeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	result, err := c.gradingService.ManualGradeEssay(ctx.Request.Context(), actor, answerID, req.Points, req.Feedback)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, result)
}

// GetReviewSuggestion godoc
// @Summary (Teacher) Draft review for an essay answer
// @Description Returns an advisory critique of the student's free-text answer. Assigns no points.
// @Tags Teacher - Grading
// @Produce json
// @Param answer_id path int true "Answer ID"
// @Success 200 {object} dto.ReviewSuggestionResponse
// @Failure 404 {object} dto.ErrorResponse "Answer not found"
// @Failure 503 {object} dto.ErrorResponse "Review assistant not configured"
// @Router /teacher/answers/{answer_id}/review-suggestion [get]
func (c *GradingController) GetReviewSuggestion(ctx *gin.Context) {
	if _, ok := controller.ActorFrom(ctx); !ok {
		return
	}
	answerID, ok := controller.ParseID(ctx, "answer_id")
	if !ok {
		return
	}

	answer, err := c.answerLookup.AnswerWithQuestion(ctx.Request.Context(), answerID)
	if err != nil {
		ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Message: err.Error()})
		return
	}

	suggestion, err := c.reviewService.SuggestReview(ctx.Request.Context(), &answer.Question, answer.Value)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: err.Error()})
			return
		}
		log.Warn().Err(err).Uint("answerID", answerID).Msg("GetReviewSuggestion: assistant unavailable")
		ctx.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{Message: err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, dto.ReviewSuggestionResponse{AnswerID: answerID, Suggestion: suggestion})
}

// GetExamStatistics godoc
// @Summary (Teacher) Analytics for a completed exam
// @Description Attempt count, average/min/max score, pass rate, and per-question difficulty.
// @Tags Teacher - Grading
// @Produce json
// @Param exam_id path int true "Exam ID"
// @Success 200 {object} dto.ExamStatisticsResponse
// @Failure 404 {object} dto.ErrorResponse "Exam not found"
// @Router /teacher/exams/{exam_id}/statistics [get]
func (c *GradingController) GetExamStatistics(ctx *gin.Context) {
	actor, ok := controller.ActorFrom(ctx)
	if !ok {
		return
	}
	examID, ok := controller.ParseID(ctx, "exam_id")
	if !ok {
		return
	}

	stats, err := c.gradingService.ExamStatistics(ctx.Request.Context(), actor, examID)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, stats)
}

func writeServiceError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Message: err.Error()})
	case errors.Is(err, service.ErrValidation):
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: err.Error()})
	case errors.Is(err, service.ErrForbidden):
		ctx.JSON(http.StatusForbidden, dto.ErrorResponse{Message: err.Error()})
	default:
		log.Error().Err(err).Msg("teacher controller: service error")
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "Internal error", Details: []string{err.Error()}})
	}
}
