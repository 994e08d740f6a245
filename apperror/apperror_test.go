package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want int
	}{
		{"not found", NewNotFoundError(PageNotFound, nil), http.StatusNotFound},
		{"validation", NewValidationError("bad field", nil), http.StatusBadRequest},
		{"bad request", NewBadRequestError("bad form", nil), http.StatusBadRequest},
		{"auth", NewAuthError("no session", nil), http.StatusUnauthorized},
		{"conflict", NewConflictError("taken", nil), http.StatusConflict},
		{"database", NewDatabaseError("db", nil), http.StatusInternalServerError},
		{"external", NewExternalServiceError("s3", nil), http.StatusBadGateway},
		{"unknown", NewAppError(UnknownError, "?", nil), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.StatusCode())
		})
	}
}

func TestErrorIncludesUnderlying(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewDatabaseError("cannot get user", cause)

	assert.Equal(t, "cannot get user: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "cannot get user", NewNotFoundError("cannot get user", nil).Error())
}

func TestPublicMessageHidesServerErrors(t *testing.T) {
	assert.Equal(t, PageNotFound, NewNotFoundError(PageNotFound, nil).PublicMessage())
	assert.NotContains(t, NewDatabaseError("pq: relation users does not exist", nil).PublicMessage(), "relation")
}

func TestFromErrorFollowsWrapping(t *testing.T) {
	wrapped := fmt.Errorf("lookup: %w", NewNotFoundError(PageNotFound, nil))

	appErr, ok := FromError(wrapped)
	require.True(t, ok)
	assert.Equal(t, NotFoundError, appErr.Type)
	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsConflictError(wrapped))

	_, ok = FromError(errors.New("plain"))
	assert.False(t, ok)
	_, ok = FromError(nil)
	assert.False(t, ok)
}

func TestWrap(t *testing.T) {
	conflict := NewConflictError("taken", nil)
	assert.Same(t, conflict, Wrap(conflict, "ignored"))

	wrapped := Wrap(errors.New("boom"), "render failed")
	assert.Equal(t, InternalError, wrapped.Type)
	assert.Equal(t, "render failed: boom", wrapped.Error())
}
