package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pkujx.cn/library/internal/modules/admin/dto"
	adminService "pkujx.cn/library/internal/modules/admin/service"
	"pkujx.cn/library/pkg/response"
	"pkujx.cn/library/pkg/validator"
)

type AdminHandler struct {
	adminService adminService.AdminService
}

func NewAdminHandler(adminService adminService.AdminService) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
	}
}

func (h *AdminHandler) CreateUser(c *gin.Context) {
	var input dto.CreateUserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Fail(c, http.StatusBadRequest, validator.FormatValidationError(err))
		return
	}

	user, err := h.adminService.CreateUser(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, http.StatusCreated, gin.H{"message": "User created", "user": user})
}

func (h *AdminHandler) GetAllUsers(c *gin.Context) {
	var query dto.ListUsersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Fail(c, http.StatusBadRequest, validator.FormatValidationError(err))
		return
	}

	users, meta, err := h.adminService.ListUsers(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, users, meta)
}

func (h *AdminHandler) GetUser(c *gin.Context) {
	id, err := response.ParseID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	user, err := h.adminService.GetUser(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, http.StatusOK, gin.H{"user": user})
}

func (h *AdminHandler) UpdateUser(c *gin.Context) {
	id, err := response.ParseID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	var input dto.UpdateAdminUserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Fail(c, http.StatusBadRequest, validator.FormatValidationError(err))
		return
	}

	user, changed, err := h.adminService.UpdateUser(c.Request.Context(), id, input)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !changed {
		response.Unchanged(c, gin.H{"user": user})
		return
	}

	response.OK(c, http.StatusOK, gin.H{"changed": true, "message": "User updated", "user": user})
}

func (h *AdminHandler) DeleteUser(c *gin.Context) {
	id, err := response.ParseID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	actorID, err := response.GetUserID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.adminService.DeleteUser(c.Request.Context(), actorID, id); err != nil {
		response.Error(c, err)
		return
	}

	response.Message(c, http.StatusOK, "User deleted")
}
