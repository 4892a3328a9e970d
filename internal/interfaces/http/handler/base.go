// Package handler implements the HTTP endpoints of the prdesk API.
package handler

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/backoffice/prdesk/internal/domain/identity"
	"github.com/backoffice/prdesk/internal/domain/pricing"
	"github.com/backoffice/prdesk/internal/domain/shared"
	"github.com/backoffice/prdesk/internal/infrastructure/logger"
	"github.com/backoffice/prdesk/internal/interfaces/http/dto"
	"github.com/backoffice/prdesk/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

func getRequestID(c *gin.Context) string {
	if id := c.GetString(logger.RequestIDKey); id != "" {
		return id
	}
	return c.GetHeader(middleware.RequestIDHeader)
}

// Success sends a 200 response with the raw resource as body
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error body, deriving the status from the code
func (h *BaseHandler) Error(c *gin.Context, code, message string) {
	c.JSON(dto.GetHTTPStatus(code), dto.NewErrorBody(code, message, getRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, dto.ErrCodeBadRequest, message)
}

// Unauthorized sends a 401 response
func (h *BaseHandler) Unauthorized(c *gin.Context) {
	h.Error(c, dto.ErrCodeUnauthorized, "Authentication required")
}

// ValidationFailed sends a 422 response listing every broken rule
func (h *BaseHandler) ValidationFailed(c *gin.Context, message string, fields []dto.FieldError) {
	body := dto.NewErrorBody(dto.ErrCodeValidation, message, getRequestID(c))
	body.Errors = fields
	c.JSON(http.StatusUnprocessableEntity, body)
}

// HandleError converts domain and application errors to HTTP responses.
// Anything unrecognised is logged and reported as an internal error.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	// Checked first: it also unwraps to the INVALID_INPUT domain error
	var vErr *pricing.ValidationError
	if errors.As(err, &vErr) {
		fields := make([]dto.FieldError, len(vErr.Violations))
		for i, v := range vErr.Violations {
			fields[i] = dto.FieldError{Field: v.Field, Message: v.Message}
		}
		h.ValidationFailed(c, "Pricing request validation failed", fields)
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		h.Error(c, domainErr.Code, domainErr.Message)
		return
	}

	_ = c.Error(err)
	logger.L(c.Request.Context()).Error("Unhandled error", zap.Error(err))
	h.Error(c, dto.ErrCodeInternal, "An unexpected error occurred")
}

// BindJSON decodes the body into req and writes the error response when that
// fails. It reports whether the handler may continue.
func (h *BaseHandler) BindJSON(c *gin.Context, req any) bool {
	err := c.ShouldBindJSON(req)
	if err == nil {
		return true
	}

	var vErrs validator.ValidationErrors
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &vErrs):
		fields := make([]dto.FieldError, len(vErrs))
		for i, fe := range vErrs {
			fields[i] = dto.FieldError{Field: strings.ToLower(fe.Field()), Message: fieldMessage(fe)}
		}
		h.ValidationFailed(c, "Request validation failed", fields)
	case errors.As(err, &maxErr):
		h.Error(c, dto.ErrCodePayloadTooLarge, "Request body exceeds maximum allowed size")
	case errors.Is(err, io.EOF):
		h.BadRequest(c, "Request body is required")
	default:
		h.BadRequest(c, "Malformed JSON body: "+err.Error())
	}
	return false
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	}
	return "failed the " + fe.Tag() + " rule"
}

// actor returns the authenticated identity, or writes 401
func (h *BaseHandler) actor(c *gin.Context) (identity.Actor, bool) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		h.Unauthorized(c)
	}
	return actor, ok
}
