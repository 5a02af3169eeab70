package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/ClauseIQ-Intelligence/internal/application/parsing"
	"github.com/turtacn/ClauseIQ-Intelligence/pkg/errors"
)

// ParseHandler serves clause parsing and parse-record endpoints.
type ParseHandler struct {
	svc parsing.Service
}

// NewParseHandler creates the handler.
func NewParseHandler(svc parsing.Service) *ParseHandler {
	return &ParseHandler{svc: svc}
}

// parseRequest is the POST /parse body.
type parseRequest struct {
	ClauseText string `json:"clauseText" binding:"required"`
	Category   string `json:"category" binding:"required"`
	// Store defaults to true; pass false for a dry-run parse.
	Store *bool `json:"store,omitempty"`
}

// Parse handles POST /api/v1/parse.
func (h *ParseHandler) Parse(c *gin.Context) {
	var req parseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: string(errors.ErrCodeBadRequest), Message: "invalid request body"})
		return
	}
	store := true
	if req.Store != nil {
		store = *req.Store
	}
	out, err := h.svc.Parse(c.Request.Context(), &parsing.ParseInput{
		ClauseText: req.ClauseText,
		Category:   req.Category,
		Store:      store,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// GetRecord handles GET /api/v1/records/:id.
func (h *ParseHandler) GetRecord(c *gin.Context) {
	rec, err := h.svc.GetRecord(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// ListRecords handles GET /api/v1/records with the denormalized-column
// filters: category, amount_type, status, min_confidence.
func (h *ParseHandler) ListRecords(c *gin.Context) {
	out, err := h.svc.ListRecords(c.Request.Context(), &parsing.ListInput{
		Category:      c.Query("category"),
		AmountType:    c.Query("amount_type"),
		Status:        c.Query("status"),
		MinConfidence: queryFloat(c, "min_confidence", 0),
		Page:          queryInt(c, "page", 1),
		PageSize:      queryInt(c, "page_size", 20),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// DeleteRecord handles DELETE /api/v1/records/:id.
func (h *ParseHandler) DeleteRecord(c *gin.Context) {
	if err := h.svc.DeleteRecord(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
