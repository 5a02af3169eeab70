package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/ClauseIQ-Intelligence/internal/application/rules"
	"github.com/turtacn/ClauseIQ-Intelligence/pkg/errors"
)

// RuleHandler serves the learned-rule curation endpoints.
type RuleHandler struct {
	svc rules.Service
}

// NewRuleHandler creates the handler.
func NewRuleHandler(svc rules.Service) *RuleHandler {
	return &RuleHandler{svc: svc}
}

// List handles GET /api/v1/rules.
func (h *RuleHandler) List(c *gin.Context) {
	out, err := h.svc.List(c.Request.Context(), &rules.ListInput{
		Field:    c.Query("field"),
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "page_size", 20),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// Get handles GET /api/v1/rules/:id.
func (h *RuleHandler) Get(c *gin.Context) {
	rule, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rule)
}

// enableRequest is the PUT /rules/:id/enabled body.
type enableRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// SetEnabled handles PUT /api/v1/rules/:id/enabled.
func (h *RuleHandler) SetEnabled(c *gin.Context) {
	var req enableRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Enabled == nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: string(errors.ErrCodeBadRequest), Message: "invalid request body"})
		return
	}
	if err := h.svc.SetEnabled(c.Request.Context(), c.Param("id"), *req.Enabled); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
