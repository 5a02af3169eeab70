package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/ClauseIQ-Intelligence/internal/application/review"
	"github.com/turtacn/ClauseIQ-Intelligence/pkg/errors"
	types "github.com/turtacn/ClauseIQ-Intelligence/pkg/types/clause"
)

// ReviewHandler serves the correction-submission endpoints.
type ReviewHandler struct {
	svc review.Service
}

// NewReviewHandler creates the handler.
func NewReviewHandler(svc review.Service) *ReviewHandler {
	return &ReviewHandler{svc: svc}
}

// correctionRequest is the POST /records/:id/corrections body.
type correctionRequest struct {
	Field           string                    `json:"field" binding:"required"`
	Confirmed       bool                      `json:"confirmed"`
	CorrectedText   string                    `json:"correctedText,omitempty"`
	CorrectedResult json.RawMessage           `json:"correctedResult,omitempty"`
	Template        *types.ExtractionTemplate `json:"template,omitempty"`
	Reviewer        string                    `json:"reviewer,omitempty"`
}

// Submit handles POST /api/v1/records/:id/corrections.
func (h *ReviewHandler) Submit(c *gin.Context) {
	var req correctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: string(errors.ErrCodeBadRequest), Message: "invalid request body"})
		return
	}
	correction, err := h.svc.Submit(c.Request.Context(), &review.SubmitInput{
		RecordID:        c.Param("id"),
		Field:           req.Field,
		Confirmed:       req.Confirmed,
		CorrectedText:   req.CorrectedText,
		CorrectedResult: req.CorrectedResult,
		Template:        req.Template,
		Reviewer:        req.Reviewer,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, correction)
}

// List handles GET /api/v1/records/:id/corrections.
func (h *ReviewHandler) List(c *gin.Context) {
	corrections, err := h.svc.ListByRecord(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"corrections": corrections})
}
