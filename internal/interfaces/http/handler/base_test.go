package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/backoffice/prdesk/internal/domain/pricing"
	"github.com/backoffice/prdesk/internal/domain/shared"
	"github.com/backoffice/prdesk/internal/infrastructure/logger"
	"github.com/backoffice/prdesk/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func runHandler(h gin.HandlerFunc, body string) *httptest.ResponseRecorder {
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(logger.RequestIDKey, "req-1")
		c.Next()
	})
	router.POST("/test", h)
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) dto.ErrorBody {
	t.Helper()
	var body dto.ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestBaseHandler_HandleError(t *testing.T) {
	h := &BaseHandler{}

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", shared.NewDomainError(shared.CodeNotFound, "Pricing request not found"), http.StatusNotFound, "NOT_FOUND"},
		{"invalid state", shared.NewDomainError(shared.CodeInvalidState, "Cannot submit"), http.StatusConflict, "INVALID_STATE"},
		{"forbidden", shared.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
		{"wrapped conflict", fmt.Errorf("saving: %w", shared.ErrConcurrencyConflict), http.StatusConflict, "CONCURRENCY_CONFLICT"},
		{"unlisted invalid code", shared.NewDomainError("INVALID_EMAIL", "Invalid email format"), http.StatusBadRequest, "INVALID_EMAIL"},
		{"unknown error", errors.New("disk on fire"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := runHandler(func(c *gin.Context) { h.HandleError(c, tt.err) }, "")
			assert.Equal(t, tt.status, rec.Code)
			body := errorBody(t, rec)
			assert.Equal(t, tt.code, body.Code)
			assert.Equal(t, "req-1", body.RequestID)
		})
	}

	t.Run("internal details are hidden", func(t *testing.T) {
		rec := runHandler(func(c *gin.Context) { h.HandleError(c, errors.New("password=hunter2")) }, "")
		assert.NotContains(t, rec.Body.String(), "hunter2")
	})
}

func TestBaseHandler_HandleValidationError(t *testing.T) {
	h := &BaseHandler{}
	err := pricing.ValidateDetails(pricing.Details{})
	require.Error(t, err)

	rec := runHandler(func(c *gin.Context) { h.HandleError(c, err) }, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := errorBody(t, rec)
	assert.Equal(t, dto.ErrCodeValidation, body.Code)
	require.NotEmpty(t, body.Errors)
	assert.Equal(t, "items", body.Errors[0].Field)
}

func TestBaseHandler_BindJSON(t *testing.T) {
	h := &BaseHandler{}
	bind := func(c *gin.Context) {
		var req dto.LoginRequest
		if h.BindJSON(c, &req) {
			c.Status(http.StatusOK)
		}
	}

	t.Run("valid", func(t *testing.T) {
		rec := runHandler(bind, `{"email":"a@b.co","password":"x"}`)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("empty body", func(t *testing.T) {
		rec := runHandler(bind, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Request body is required", errorBody(t, rec).Detail)
	})

	t.Run("malformed", func(t *testing.T) {
		rec := runHandler(bind, `{"email":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, dto.ErrCodeBadRequest, errorBody(t, rec).Code)
	})

	t.Run("rule failures", func(t *testing.T) {
		rec := runHandler(bind, `{"email":"nope"}`)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		body := errorBody(t, rec)
		require.Len(t, body.Errors, 2)
		assert.Equal(t, dto.FieldError{Field: "email", Message: "must be a valid email address"}, body.Errors[0])
		assert.Equal(t, dto.FieldError{Field: "password", Message: "is required"}, body.Errors[1])
	})
}
