package dto

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

type PageQuery struct {
	Page  int `form:"page" binding:"omitempty,min=1"`
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}

// Normalize fills defaults for missing paging values.
func (q *PageQuery) Normalize() {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = DefaultPageSize
	}
	if q.Limit > MaxPageSize {
		q.Limit = MaxPageSize
	}
}

func (q PageQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

type PaginationMeta struct {
	CurrentPage  int   `json:"currentPage"`
	ItemsPerPage int   `json:"itemsPerPage"`
	TotalItems   int64 `json:"totalItems"`
	TotalPages   int   `json:"totalPages"`
	HasNextPage  bool  `json:"hasNextPage"`
	HasPrevPage  bool  `json:"hasPrevPage"`
}

func NewPaginationMeta(q PageQuery, total int64) PaginationMeta {
	totalPages := int(total) / q.Limit
	if int(total)%q.Limit != 0 {
		totalPages++
	}

	return PaginationMeta{
		CurrentPage:  q.Page,
		ItemsPerPage: q.Limit,
		TotalItems:   total,
		TotalPages:   totalPages,
		HasNextPage:  q.Page < totalPages,
		HasPrevPage:  q.Page > 1,
	}
}

type UserSummary struct {
	ID       uint   `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Role     string `json:"role"`
}
