// Package handlers holds the gin HTTP handlers for the clause parsing API.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/ClauseIQ-Intelligence/pkg/errors"
)

// ErrorResponse is the standard error response body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// respondError maps application errors onto HTTP status codes. Internal
// details are masked; clients see the stable error code.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	status := http.StatusInternalServerError
	switch {
	case errors.IsValidation(err):
		status = http.StatusBadRequest
	case errors.IsNotFound(err):
		status = http.StatusNotFound
	case errors.IsConflict(err):
		status = http.StatusConflict
	case errors.IsCode(err, errors.ErrCodeCorrectionRejected):
		status = http.StatusUnprocessableEntity
	case errors.IsCode(err, errors.ErrCodeTooManyRequests):
		status = http.StatusTooManyRequests
	case errors.IsCode(err, errors.ErrCodeServiceUnavailable):
		status = http.StatusServiceUnavailable
	case errors.IsCode(err, errors.ErrCodeTimeout):
		status = http.StatusGatewayTimeout
	}

	body := ErrorResponse{Code: string(errors.GetCode(err))}
	if status == http.StatusInternalServerError {
		body.Code = string(errors.ErrCodeInternal)
		body.Message = "internal server error"
	} else if ae, ok := err.(*errors.AppError); ok {
		body.Message = ae.Message
		body.Detail = ae.Detail
	} else {
		body.Message = err.Error()
	}
	c.AbortWithStatusJSON(status, body)
}

// queryInt reads an integer query parameter, falling back on absence or junk.
func queryInt(c *gin.Context, name string, fallback int) int {
	v := c.Query(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// queryFloat reads a float query parameter, falling back on absence or junk.
func queryFloat(c *gin.Context, name string, fallback float64) float64 {
	v := c.Query(name)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
