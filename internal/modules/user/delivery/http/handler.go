package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	session "pkujx.cn/library/internal/modules/session/service"
	"pkujx.cn/library/internal/modules/user/dto"
	userService "pkujx.cn/library/internal/modules/user/service"
	commonDto "pkujx.cn/library/pkg/dto"
	"pkujx.cn/library/pkg/response"
	"pkujx.cn/library/pkg/validator"
)

type UserHandler struct {
	userService userService.UserService
	sessions    session.SessionService
}

func NewUserHandler(userService userService.UserService, sessions session.SessionService) *UserHandler {
	return &UserHandler{
		userService: userService,
		sessions:    sessions,
	}
}

func (h *UserHandler) Register(c *gin.Context) {
	var input dto.RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Fail(c, http.StatusBadRequest, validator.FormatValidationError(err))
		return
	}

	user, err := h.userService.Register(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, http.StatusCreated, gin.H{"message": "User registered successfully", "user": user})
}

func (h *UserHandler) Login(c *gin.Context) {
	var input dto.LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Fail(c, http.StatusBadRequest, validator.FormatValidationError(err))
		return
	}

	user, sess, err := h.userService.Login(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	http.SetCookie(c.Writer, h.sessions.Cookie(sess))
	response.OK(c, http.StatusOK, gin.H{"message": "Login successful", "user": user})
}

func (h *UserHandler) Logout(c *gin.Context) {
	if err := h.userService.Logout(c.Request.Context(), c.GetHeader("Cookie")); err != nil {
		response.Error(c, err)
		return
	}

	http.SetCookie(c.Writer, h.sessions.ClearCookie())
	response.Message(c, http.StatusOK, "Logged out")
}

func (h *UserHandler) Me(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	user, err := h.userService.Me(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, http.StatusOK, gin.H{"user": user})
}

func (h *UserHandler) UpdateMe(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var input dto.UpdateMeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Fail(c, http.StatusBadRequest, validator.FormatValidationError(err))
		return
	}

	user, changed, err := h.userService.UpdateMe(c.Request.Context(), userID, input)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !changed {
		response.Unchanged(c, gin.H{"user": user})
		return
	}

	response.OK(c, http.StatusOK, gin.H{"changed": true, "message": "Profile updated", "user": user})
}

func (h *UserHandler) MyBorrows(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var page commonDto.PageQuery
	if err := c.ShouldBindQuery(&page); err != nil {
		response.Fail(c, http.StatusBadRequest, validator.FormatValidationError(err))
		return
	}

	items, meta, err := h.userService.MyBorrows(c.Request.Context(), userID, page)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, items, meta)
}
