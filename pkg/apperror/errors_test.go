package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestStatusAndMessage(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"validation", Validation("bad input"), http.StatusBadRequest, "bad input"},
		{"wrapped conflict", fmt.Errorf("ctx: %w", Conflict("taken")), http.StatusConflict, "taken"},
		{"record not found", gorm.ErrRecordNotFound, http.StatusNotFound, "Resource not found"},
		{"duplicated key", gorm.ErrDuplicatedKey, http.StatusConflict, "Resource already exists"},
		{"sqlite unique text", errors.New("UNIQUE constraint failed: users.email"), http.StatusConflict, "Resource already exists"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "Internal server error"},
		{"internal hides cause", Internal(errors.New("password=hunter2")), http.StatusInternalServerError, "Internal server error"},
		{"rate limited", Wrap(KindRateLimited, "slow down", errors.New("x")), http.StatusTooManyRequests, "slow down"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, Status(tt.err))
			assert.Equal(t, tt.message, Message(tt.err))
		})
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("socket closed")
	err := Wrap(KindUnavailable, "Image upload failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "socket closed")
}

func TestFromDB(t *testing.T) {
	assert.NoError(t, FromDB(nil, "missing", "dup"))
	assert.Equal(t, "missing", Message(FromDB(gorm.ErrRecordNotFound, "missing", "dup")))
	assert.Equal(t, "dup", Message(FromDB(gorm.ErrDuplicatedKey, "missing", "dup")))

	forbidden := Forbidden("no")
	assert.Same(t, forbidden, FromDB(forbidden, "missing", "dup"))

	assert.Equal(t, http.StatusInternalServerError, Status(FromDB(errors.New("io"), "missing", "dup")))
}
