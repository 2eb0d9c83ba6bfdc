package student

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kartikasari/ujianku/internal/controller"
	"github.com/kartikasari/ujianku/internal/dto"
	"github.com/kartikasari/ujianku/internal/service"
	"github.com/rs/zerolog/log"
)

type ExamController struct {
	attemptService  service.AttemptService
	autoSaveService service.AutoSaveService
}

func NewExamController(attemptService service.AttemptService, autoSaveService service.AutoSaveService) *ExamController {
	return &ExamController{
		attemptService:  attemptService,
		autoSaveService: autoSaveService,
	}
}

// GetRandomizedQuestions godoc
// @Summary (Student) Get the presentation order of an exam's questions
// @Description Serves the question sequence for one exam instance. Grouped questions stay contiguous; flags override the exam defaults.
// @Tags Student - Exam Delivery
// @Produce json
// @Param exam_id path int true "Exam ID"
// @Param randomize_questions query bool false "Override the exam's question shuffle flag"
// @Param randomize_answers query bool false "Override the exam's option shuffle flag"
// @Success 200 {array} dto.QuestionDelivery
// @Failure 404 {object} dto.ErrorResponse "Exam not found"
// @Router /exams/{exam_id}/questions [get]
func (c *ExamController) GetRandomizedQuestions(ctx *gin.Context) {
	actor, ok := controller.ActorFrom(ctx)
	if !ok {
		return
	}
	examID, ok := controller.ParseID(ctx, "exam_id")
	if !ok {
		return
	}

	questions, err := c.attemptService.RandomizedQuestions(
		ctx.Request.Context(), actor, examID,
		boolQuery(ctx, "randomize_questions"),
		boolQuery(ctx, "randomize_answers"),
	)
	if err != nil {
		status := http.StatusNotFound
		if errors.Is(err, service.ErrForbidden) {
			status = http.StatusForbidden
		}
		log.Warn().Err(err).Uint("examID", examID).Msg("GetRandomizedQuestions: service error")
		ctx.JSON(status, dto.ErrorResponse{Message: err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, questions)
}

// StartAttempt godoc
// @Summary (Student) Start an exam attempt
// @Description Creates the in-progress attempt for (exam, student), or returns the existing one.
// @Tags Student - Exam Delivery
// @Accept json
// @Produce json
// @Param exam_id path int true "Exam ID"
// @Param body body dto.StartAttemptRequest true "Student starting the attempt"
// @Success 201 {object} dto.AttemptResponse
// @Failure 404 {object} dto.ErrorResponse "Exam not found"
// @Router /exams/{exam_id}/attempts [post]
func (c *ExamController) StartAttempt(ctx *gin.Context) {
	actor, ok := controller.ActorFrom(ctx)
	if !ok {
		return
	}
	examID, ok := controller.ParseID(ctx, "exam_id")
	if !ok {
		return
	}

	var req dto.StartAttemptRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	attempt, err := c.attemptService.StartAttempt(ctx.Request.Context(), actor, examID, req.StudentID)
	if err != nil {
		status := http.StatusNotFound
		if errors.Is(err, service.ErrForbidden) {
			status = http.StatusForbidden
		}
		ctx.JSON(status, dto.ErrorResponse{Message: err.Error()})
		return
	}
	ctx.JSON(http.StatusCreated, attempt)
}

// SaveAnswer godoc
// @Summary (Student) Save one answer
// @Description Deduplicated transactional upsert for the (attempt, question) key. Contention and transient failures return a queued result instead of an error.
// @Tags Student - Exam Delivery
// @Accept json
// @Produce json
// @Param attempt_id path int true "Attempt ID"
// @Param body body dto.SaveAnswerRequest true "Answer payload"
// @Success 200 {object} dto.SaveAnswerResponse
// @Failure 400 {object} dto.ErrorResponse "Attempt not in progress"
// @Failure 404 {object} dto.ErrorResponse "Attempt not found"
// @Router /attempts/{attempt_id}/answers [post]
func (c *ExamController) SaveAnswer(ctx *gin.Context) {
	actor, ok := controller.ActorFrom(ctx)
	if !ok {
		return
	}
	attemptID, ok := controller.ParseID(ctx, "attempt_id")
	if !ok {
		return
	}

	var req dto.SaveAnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	result, err := c.autoSaveService.SaveAnswer(ctx.Request.Context(), actor, attemptID, req.QuestionID, req.Value, req.IsAutoSave)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.SaveAnswerResponse{Status: string(result.Status), Timestamp: result.Timestamp})
}

// BatchSaveAnswers godoc
// @Summary (Student) Save several answers in one transaction
// @Description Bulk submit-at-end flow; any single failure rolls back the whole batch.
// @Tags Student - Exam Delivery
// @Accept json
// @Produce json
// @Param attempt_id path int true "Attempt ID"
// @Param body body dto.BatchSaveRequest true "Answers keyed by question id"
// @Success 200 {object} dto.BatchSaveResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid payload"
// @Router /attempts/{attempt_id}/answers/batch [post]
func (c *ExamController) BatchSaveAnswers(ctx *gin.Context) {
	actor, ok := controller.ActorFrom(ctx)
	if !ok {
		return
	}
	attemptID, ok := controller.ParseID(ctx, "attempt_id")
	if !ok {
		return
	}

	var req dto.BatchSaveRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	answers := make(map[uint]string, len(req.Answers))
	for rawID, value := range req.Answers {
		questionID, err := strconv.ParseUint(rawID, 10, 32)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid question id in batch: " + rawID})
			return
		}
		answers[uint(questionID)] = value
	}

	result, err := c.autoSaveService.BatchSaveAnswers(ctx.Request.Context(), actor, attemptID, answers)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.BatchSaveResponse{
		Success:      result.Success,
		Results:      result.Results,
		SuccessCount: result.SuccessCount,
		FailureCount: result.FailureCount,
	})
}

// GetSaveInterval godoc
// @Summary (Student) Recommended auto-save interval
// @Description Returns the adaptive auto-save cadence derived from recent connection stability.
// @Tags Student - Exam Delivery
// @Produce json
// @Param attempt_id path int true "Attempt ID"
// @Success 200 {object} dto.SaveIntervalResponse
// @Router /attempts/{attempt_id}/save-interval [get]
func (c *ExamController) GetSaveInterval(ctx *gin.Context) {
	if _, ok := controller.ActorFrom(ctx); !ok {
		return
	}
	attemptID, ok := controller.ParseID(ctx, "attempt_id")
	if !ok {
		return
	}

	ctx.JSON(http.StatusOK, dto.SaveIntervalResponse{
		Quality:            string(c.autoSaveService.ConnectionQuality(attemptID)),
		RecommendedSeconds: int(c.autoSaveService.RecommendedInterval(attemptID).Seconds()),
	})
}

// GetAttemptDetails godoc
// @Summary (Student) Attempt details
// @Description Full attempt state including answers; grading metadata appears once the attempt is graded.
// @Tags Student - Exam Delivery
// @Produce json
// @Param attempt_id path int true "Attempt ID"
// @Success 200 {object} dto.AttemptDetailResponse
// @Failure 404 {object} dto.ErrorResponse "Attempt not found"
// @Router /attempts/{attempt_id} [get]
func (c *ExamController) GetAttemptDetails(ctx *gin.Context) {
	actor, ok := controller.ActorFrom(ctx)
	if !ok {
		return
	}
	attemptID, ok := controller.ParseID(ctx, "attempt_id")
	if !ok {
		return
	}

	attempt, err := c.attemptService.GetAttemptDetails(ctx.Request.Context(), actor, attemptID)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, attempt)
}

func boolQuery(ctx *gin.Context, name string) *bool {
	raw, exists := ctx.GetQuery(name)
	if !exists {
		return nil
	}
	val, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &val
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
		log.Error().Err(err).Msg("student controller: service error")
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "Internal error", Details: []string{err.Error()}})
	}
}
