package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pkujx.cn/library/internal/modules/setting/dto"
	settingService "pkujx.cn/library/internal/modules/setting/service"
	"pkujx.cn/library/pkg/response"
	"pkujx.cn/library/pkg/validator"
)

type SettingHandler struct {
	settingService settingService.SettingService
}

func NewSettingHandler(settingService settingService.SettingService) *SettingHandler {
	return &SettingHandler{settingService: settingService}
}

func (h *SettingHandler) GetSetting(c *gin.Context) {
	setting, err := h.settingService.Get(c.Request.Context(), c.Param("key"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, http.StatusOK, gin.H{"setting": setting})
}

func (h *SettingHandler) ListSettings(c *gin.Context) {
	settings, err := h.settingService.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, http.StatusOK, gin.H{"settings": settings})
}

func (h *SettingHandler) UpsertSetting(c *gin.Context) {
	var input dto.UpsertSettingInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Fail(c, http.StatusBadRequest, validator.FormatValidationError(err))
		return
	}

	setting, changed, err := h.settingService.Upsert(c.Request.Context(), c.Param("key"), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !changed {
		response.Unchanged(c, gin.H{"setting": setting})
		return
	}

	response.OK(c, http.StatusOK, gin.H{"changed": true, "message": "Setting saved", "setting": setting})
}

func (h *SettingHandler) DeleteSetting(c *gin.Context) {
	if err := h.settingService.Delete(c.Request.Context(), c.Param("key")); err != nil {
		response.Error(c, err)
		return
	}

	response.Message(c, http.StatusOK, "Setting deleted")
}
