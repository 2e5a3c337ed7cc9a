package response

import (
	"fmt"
	"net/http"
	"regexp"
	"strconv"

	"pkujx.cn/library/pkg/apperror"
	"pkujx.cn/library/pkg/dto"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const (
	ContextUserID   = "user_id"
	ContextRole     = "role"
	ContextUsername = "username"
)

var digitsOnly = regexp.MustCompile(`^\d+$`)

// GetUserID retrieves the authenticated user ID from the context
func GetUserID(c *gin.Context) (uint, error) {
	v, exists := c.Get(ContextUserID)
	if !exists {
		return 0, apperror.Unauthorized("Unauthorized: No active session")
	}
	id, ok := v.(uint)
	if !ok || id == 0 {
		return 0, apperror.Unauthorized("Unauthorized: No active session")
	}
	return id, nil
}

// GetRole returns the role stored by the auth middleware, or "" for anonymous callers.
func GetRole(c *gin.Context) string {
	return c.GetString(ContextRole)
}

// OptionalUserID returns the caller's id when an auth middleware resolved one.
func OptionalUserID(c *gin.Context) *uint {
	id, err := GetUserID(c)
	if err != nil {
		return nil
	}
	return &id
}

// ParseID validates a digit-only path parameter and converts it.
func ParseID(c *gin.Context, name string) (uint, error) {
	raw := c.Param(name)
	if !digitsOnly.MatchString(raw) {
		return 0, apperror.Validation(fmt.Sprintf("Invalid %s: must be a positive integer", name))
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, apperror.Validation(fmt.Sprintf("Invalid %s: must be a positive integer", name))
	}
	return uint(id), nil
}

// OK writes a success envelope. Payload keys are merged next to "success".
func OK(c *gin.Context, status int, payload gin.H) {
	body := gin.H{"success": true}
	for k, v := range payload {
		body[k] = v
	}
	c.JSON(status, body)
}

// Message writes a success envelope carrying only a message.
func Message(c *gin.Context, status int, message string) {
	OK(c, status, gin.H{"message": message})
}

// Paginated writes a list envelope with its pagination block.
func Paginated(c *gin.Context, data any, meta dto.PaginationMeta) {
	OK(c, http.StatusOK, gin.H{"data": data, "pagination": meta})
}

// Unchanged is the uniform reply for updates that modified nothing.
func Unchanged(c *gin.Context, payload gin.H) {
	body := gin.H{"changed": false, "message": "No changes"}
	for k, v := range payload {
		body[k] = v
	}
	OK(c, http.StatusOK, body)
}

// Fail writes a failure envelope with an explicit status.
func Fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "message": message})
}

// Error standardized error response
func Error(c *gin.Context, err error) {
	status := apperror.Status(err)

	if status == http.StatusInternalServerError {
		log.Error().Err(err).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Msg("internal error")
	}

	Fail(c, status, apperror.Message(err))
}
