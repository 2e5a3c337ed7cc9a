package dto

import commonDto "pkujx.cn/library/pkg/dto"

type CreateUserInput struct {
	Username string `json:"username" binding:"required,min=2,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role" binding:"required,oneof=student teacher admin"`
}

// UpdateAdminUserInput changes any subset of a user's fields.
type UpdateAdminUserInput struct {
	Username *string `json:"username" binding:"omitempty,min=2,max=50"`
	Email    *string `json:"email" binding:"omitempty,email"`
	Password *string `json:"password" binding:"omitempty,min=6"`
	Role     *string `json:"role" binding:"omitempty,oneof=student teacher admin"`
}

type ListUsersQuery struct {
	commonDto.PageQuery
	Query string `form:"q"`
	Role  string `form:"role" binding:"omitempty,oneof=student teacher admin"`
}
