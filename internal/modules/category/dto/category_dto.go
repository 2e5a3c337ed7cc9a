package dto

import "pkujx.cn/library/internal/entity"

type CreateCategoryInput struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description"`
}

type ListCategoriesQuery struct {
	Search string `form:"search"`
}

type CategoryWithCount struct {
	entity.Category
	BookCount int64 `json:"book_count"`
}
