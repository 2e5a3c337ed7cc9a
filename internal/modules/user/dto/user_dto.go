package dto

import (
	"time"

	"pkujx.cn/library/internal/entity"
)

type RegisterInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Username string `json:"username" binding:"required,min=2,max=50"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UpdateMeInput changes the caller's own account. A new password requires the
// current one.
type UpdateMeInput struct {
	Username        *string `json:"username" binding:"omitempty,min=2,max=50"`
	Password        *string `json:"password" binding:"omitempty,min=6"`
	CurrentPassword string  `json:"current_password"`
}

type UserResponse struct {
	ID        uint      `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func NewUserResponse(u *entity.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

// BorrowItem is one of the caller's borrow records joined with its book.
type BorrowItem struct {
	ID         uint       `json:"id"`
	ISBN       string     `json:"isbn"`
	Title      string     `json:"title"`
	Author     string     `json:"author"`
	BorrowDate time.Time  `json:"borrow_date"`
	DueDate    time.Time  `json:"due_date"`
	Returned   bool       `json:"returned"`
	ReturnDate *time.Time `json:"return_date"`
	Overdue    bool       `json:"overdue"`
}
