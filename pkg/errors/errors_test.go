package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrors_StatusAndCode(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", NewNotFoundError("IVR flow", "f1"), http.StatusNotFound, "NOT_FOUND"},
		{"validation", NewValidationError("name", "required"), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"conflict", NewVersionConflictError("IVR flow", 2, 3), http.StatusConflict, "CONFLICT"},
		{"transient", NewTransientError("save flow", stderrors.New("conn reset")), http.StatusServiceUnavailable, "TRANSIENT_ERROR"},
		{"internal", NewInternalError("boom", nil), http.StatusInternalServerError, "INTERNAL_ERROR"},
		{"unauthorized", NewUnauthorizedError("no token"), http.StatusUnauthorized, "UNAUTHORIZED"},
		{"plain", stderrors.New("plain"), http.StatusInternalServerError, "UNKNOWN_ERROR"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.status, GetHTTPStatus(tc.err))
			assert.Equal(t, tc.code, GetErrorCode(tc.err))
		})
	}
}

func TestPredicates_SeeThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("repository: %w", NewTransientError("query", nil))
	assert.True(t, IsTransient(wrapped))
	assert.False(t, IsConflict(wrapped))

	wrapped = fmt.Errorf("service: %w", NewVersionConflictError("IVR flow", 1, 2))
	assert.True(t, IsConflict(wrapped))
	assert.Contains(t, wrapped.Error(), "expected version 1, current version 2")

	assert.True(t, IsPermission(fmt.Errorf("handler: %w", NewPermissionError("save", "IVR flow"))))
	assert.True(t, IsUnauthorized(fmt.Errorf("middleware: %w", NewUnauthorizedError("token expired"))))
	assert.False(t, IsUnauthorized(NewNotFoundError("IVR flow", "f1")))
}

func TestValidationErrors_Details(t *testing.T) {
	err := NewValidationErrors([]FieldError{
		{Path: "name", Message: "is required"},
		{Path: "nodes[menu-1].config.options[0].digit", Message: "duplicate digit '1'"},
	})

	resp := ToResponse(err)
	assert.Equal(t, "VALIDATION_ERROR", resp.Code)
	assert.Contains(t, resp.Message, "name: is required")
	fields, ok := resp.Details.([]FieldError)
	assert.True(t, ok)
	assert.Len(t, fields, 2)

	single := ToResponse(NewValidationError("body", "bad json"))
	assert.Nil(t, single.Details)
}
