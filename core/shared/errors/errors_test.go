package errors_test

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/graphquill/graphquill/core/shared/errors"
)

func TestNewEngineError(t *testing.T) {
	tests := []struct {
		name           string
		code           errors.ErrorCode
		message        string
		err            error
		expectedStatus int
	}{
		{
			name:           "template not found",
			code:           errors.ErrCodeTemplateNotFound,
			message:        "template 'x' not found",
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "composition not found",
			code:           errors.ErrCodeCompositionNotFound,
			message:        "composition 'x' not found",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "missing parameter",
			code:           errors.ErrCodeMissingParameter,
			message:        "Missing required parameter for q: a",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "rendering rejected",
			code:           errors.ErrCodeRenderingRejected,
			message:        "bad identifier",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "execution failed",
			code:           errors.ErrCodeExecutionFailed,
			message:        "execution failed for q",
			err:            stderrors.New("underlying"),
			expectedStatus: http.StatusInternalServerError,
		},
		{
			name:           "backend unavailable",
			code:           errors.ErrCodeBackendUnavailable,
			message:        "cannot obtain a backend session",
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engErr := errors.New(tt.code, tt.message, tt.err)
			assert.Equal(t, tt.code, engErr.Code)
			assert.Equal(t, tt.message, engErr.Message)
			assert.Equal(t, tt.expectedStatus, engErr.Status)
			if tt.err != nil {
				assert.Equal(t, tt.err, engErr.Unwrap())
			}
		})
	}
}

func TestMissingRequiredParameterMessage(t *testing.T) {
	err := errors.MissingRequiredParameter("count_relationships", "user_id")
	assert.Equal(t, "Missing required parameter for count_relationships: user_id", err.Message)
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, errors.ErrCodeTemplateNotFound, errors.CodeOf(errors.TemplateNotFound("x")))
	assert.Equal(t, errors.ErrCodeInternalError, errors.CodeOf(stderrors.New("plain")))

	wrapped := fmt.Errorf("context: %w", errors.CompositionNotFound("c"))
	assert.Equal(t, errors.ErrCodeCompositionNotFound, errors.CodeOf(wrapped))
}

func TestMessageOf(t *testing.T) {
	assert.Equal(t, "template 'x' not found", errors.MessageOf(errors.TemplateNotFound("x")))
	assert.Equal(t, "plain", errors.MessageOf(stderrors.New("plain")))
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, errors.StatusOf(errors.TemplateNotFound("x")))
	assert.Equal(t, http.StatusBadRequest, errors.StatusOf(errors.InvalidInput("bad")))
	assert.Equal(t, http.StatusInternalServerError, errors.StatusOf(stderrors.New("plain")))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, errors.IsNotFound(errors.TemplateNotFound("x")))
	assert.True(t, errors.IsNotFound(errors.CompositionNotFound("x")))
	assert.False(t, errors.IsNotFound(errors.InvalidInput("bad")))
	assert.False(t, errors.IsNotFound(stderrors.New("plain")))
}
