package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pkujx.cn/library/internal/modules/stat/dto"
	statService "pkujx.cn/library/internal/modules/stat/service"
	"pkujx.cn/library/pkg/response"
	"pkujx.cn/library/pkg/validator"
)

type StatHandler struct {
	statService statService.StatService
}

func NewStatHandler(statService statService.StatService) *StatHandler {
	return &StatHandler{statService: statService}
}

func (h *StatHandler) Dashboard(c *gin.Context) {
	stats, err := h.statService.Dashboard(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, http.StatusOK, gin.H{"data": stats})
}

func (h *StatHandler) TopBorrowers(c *gin.Context) {
	var query dto.TopBorrowersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Fail(c, http.StatusBadRequest, validator.FormatValidationError(err))
		return
	}

	rows, err := h.statService.TopBorrowers(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, http.StatusOK, gin.H{"data": rows})
}
