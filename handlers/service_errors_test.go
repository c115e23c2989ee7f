package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/docsmith/backend/services"
	"github.com/docsmith/backend/utils"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestHandleServiceError(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name           string
		err            error
		expectedStatus int
	}{
		{"nil error writes nothing", nil, http.StatusOK},
		{"not found", services.ErrUserNotFound, http.StatusNotFound},
		{"validation", services.ErrEmptyContent, http.StatusBadRequest},
		{"unauthorized", services.ErrUnauthorized, http.StatusUnauthorized},
		{"forbidden", services.ErrForbidden, http.StatusForbidden},
		{"conflict", services.ErrDuplicateIdentity, http.StatusConflict},
		{"external", services.ErrRendererUnavailable, http.StatusBadGateway},
		{"internal", services.WrapInternal("db down", nil), http.StatusInternalServerError},
		{"unknown error", errors.New("mystery"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()

			HandleServiceError(w, tt.err, logger)

			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}

	t.Run("internal errors hide details", func(t *testing.T) {
		w := httptest.NewRecorder()

		HandleServiceError(w, services.WrapInternal("password=hunter2 leaked", nil), logger)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "hunter2")
	})
}

func TestHandleValidationError(t *testing.T) {
	logger := zap.NewNop()

	t.Run("structured validation error includes fields", func(t *testing.T) {
		w := httptest.NewRecorder()

		verr := &utils.ValidationError{
			Message: "Validation failed",
			Fields:  map[string]string{"URL": "URL must be a valid URL"},
		}
		HandleValidationError(w, verr, logger)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "URL must be a valid URL")
	})

	t.Run("plain error becomes bad request", func(t *testing.T) {
		w := httptest.NewRecorder()

		HandleValidationError(w, errors.New("unparseable body"), logger)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "unparseable body")
	})
}
