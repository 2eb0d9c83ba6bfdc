package teacher

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kartikasari/ujianku/internal/controller"
	"github.com/kartikasari/ujianku/internal/dto"
	"github.com/kartikasari/ujianku/internal/model"
	"github.com/kartikasari/ujianku/internal/service"
)

type AdjustmentController struct {
	adjustmentService service.AdjustmentService
}

func NewAdjustmentController(adjustmentService service.AdjustmentService) *AdjustmentController {
	return &AdjustmentController{adjustmentService: adjustmentService}
}

// ApplyAdjustment godoc
// @Summary (Teacher) Apply a post-grading score adjustment
// @Description Percentage bump, minimum floor, or manual override; one audit row per affected attempt, clamped to the exam max.
// @Tags Teacher - Adjustments
// @Accept json
// @Produce json
// @Param exam_id path int true "Exam ID"
// @Param body body dto.AdjustmentRequestDTO true "Adjustment parameters by kind"
// @Success 200 {object} dto.AdjustmentOutcome
// @Failure 400 {object} dto.ErrorResponse "Invalid parameters"
// @Failure 404 {object} dto.ErrorResponse "Exam or target attempt not found"
// @Router /teacher/exams/{exam_id}/adjustments [post]
func (c *AdjustmentController) ApplyAdjustment(ctx *gin.Context) {
	actor, ok := controller.ActorFrom(ctx)
	if !ok {
		return
	}
	examID, ok := controller.ParseID(ctx, "exam_id")
	if !ok {
		return
	}

	var req dto.AdjustmentRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	outcome, err := c.adjustmentService.ApplyAdjustment(ctx.Request.Context(), actor, examID, toAdjustmentRequest(req))
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, outcome)
}

// BulkApplyAdjustments godoc
// @Summary (Teacher) Apply several adjustments independently
// @Description Mixed percentage/minimum/manual entries; one failure does not abort the rest.
// @Tags Teacher - Adjustments
// @Accept json
// @Produce json
// @Param exam_id path int true "Exam ID"
// @Param body body dto.BulkAdjustmentRequest true "List of adjustments"
// @Success 200 {object} dto.BulkAdjustmentOutcome
// @Failure 400 {object} dto.ErrorResponse "Empty list"
// @Router /teacher/exams/{exam_id}/adjustments/bulk [post]
func (c *AdjustmentController) BulkApplyAdjustments(ctx *gin.Context) {
	actor, ok := controller.ActorFrom(ctx)
	if !ok {
		return
	}
	examID, ok := controller.ParseID(ctx, "exam_id")
	if !ok {
		return
	}

	var req dto.BulkAdjustmentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	reqs := make([]service.AdjustmentRequest, 0, len(req.Adjustments))
	for _, item := range req.Adjustments {
		reqs = append(reqs, toAdjustmentRequest(item))
	}

	outcome, err := c.adjustmentService.BulkApplyAdjustments(ctx.Request.Context(), actor, examID, reqs)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, outcome)
}

// RevertAdjustment godoc
// @Summary (Teacher) Revert an adjustment
// @Description Restores the attempt's score to the recorded before-value and stamps the existing audit row.
// @Tags Teacher - Adjustments
// @Produce json
// @Param adjustment_id path int true "Adjustment ID"
// @Success 200 {object} map[string]bool
// @Failure 400 {object} dto.ErrorResponse "Already reverted"
// @Failure 404 {object} dto.ErrorResponse "Adjustment not found"
// @Router /teacher/adjustments/{adjustment_id}/revert [post]
func (c *AdjustmentController) RevertAdjustment(ctx *gin.Context) {
	actor, ok := controller.ActorFrom(ctx)
	if !ok {
		return
	}
	adjustmentID, ok := controller.ParseID(ctx, "adjustment_id")
	if !ok {
		return
	}

	if err := c.adjustmentService.RevertAdjustment(ctx.Request.Context(), actor, adjustmentID); err != nil {
		writeServiceError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"success": true})
}

// GetAdjustmentStatistics godoc
// @Summary (Teacher) Ledger summary for an exam
// @Description Counts by adjustment kind and net score delta, for audit review.
// @Tags Teacher - Adjustments
// @Produce json
// @Param exam_id path int true "Exam ID"
// @Success 200 {object} dto.AdjustmentStatisticsResponse
// @Router /teacher/exams/{exam_id}/adjustments/statistics [get]
func (c *AdjustmentController) GetAdjustmentStatistics(ctx *gin.Context) {
	actor, ok := controller.ActorFrom(ctx)
	if !ok {
		return
	}
	examID, ok := controller.ParseID(ctx, "exam_id")
	if !ok {
		return
	}

	stats, err := c.adjustmentService.AdjustmentStatistics(ctx.Request.Context(), actor, examID)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, stats)
}

func toAdjustmentRequest(req dto.AdjustmentRequestDTO) service.AdjustmentRequest {
	return service.AdjustmentRequest{
		Kind:       model.AdjustmentKind(req.Kind),
		Percentage: req.Percentage,
		Minimum:    req.Minimum,
		StudentID:  req.StudentID,
		Value:      req.Value,
		Note:       req.Note,
	}
}
