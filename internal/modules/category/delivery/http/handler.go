package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pkujx.cn/library/internal/modules/category/dto"
	category "pkujx.cn/library/internal/modules/category/service"
	"pkujx.cn/library/pkg/response"
	"pkujx.cn/library/pkg/validator"
)

type CategoryHandler struct {
	service category.CategoryService
}

func NewCategoryHandler(service category.CategoryService) *CategoryHandler {
	return &CategoryHandler{service: service}
}

func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	var input dto.CreateCategoryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Fail(c, http.StatusBadRequest, validator.FormatValidationError(err))
		return
	}

	created, err := h.service.CreateCategory(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, http.StatusCreated, gin.H{"message": "Category created", "category": created})
}

func (h *CategoryHandler) GetAllCategories(c *gin.Context) {
	var query dto.ListCategoriesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Fail(c, http.StatusBadRequest, validator.FormatValidationError(err))
		return
	}

	categories, err := h.service.GetAllCategories(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, http.StatusOK, gin.H{"data": categories})
}

func (h *CategoryHandler) DeleteCategory(c *gin.Context) {
	id, err := response.ParseID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.service.DeleteCategory(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}

	response.Message(c, http.StatusOK, "Category deleted")
}
