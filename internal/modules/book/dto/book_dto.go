package dto

import (
	"time"

	commonDto "pkujx.cn/library/pkg/dto"
)

type AddBookInput struct {
	ISBN            string `json:"isbn" binding:"required,max=20"`
	Title           string `json:"title" binding:"required,max=255"`
	Author          string `json:"author" binding:"required,max=255"`
	Publisher       string `json:"publisher" binding:"max=255"`
	PublicationDate string `json:"publication_date"`
	CategoryID      *uint  `json:"category_id"`
	TotalCopies     *int   `json:"total_copies"`
	AvailableCopies *int   `json:"available_copies"`
	Status          string `json:"status" binding:"max=50"`
}

// EditBookInput is a partial update; nil fields are left alone.
type EditBookInput struct {
	Title           *string `json:"title" binding:"omitempty,min=1,max=255"`
	Author          *string `json:"author" binding:"omitempty,min=1,max=255"`
	Publisher       *string `json:"publisher" binding:"omitempty,max=255"`
	PublicationDate *string `json:"publication_date"`
	CategoryID      *uint   `json:"category_id"`
	TotalCopies     *int    `json:"total_copies"`
	AvailableCopies *int    `json:"available_copies"`
	Status          *string `json:"status" binding:"omitempty,max=50"`
}

type DeleteBookInput struct {
	ISBN string `json:"isbn" binding:"required"`
}

type SearchQuery struct {
	commonDto.PageQuery
	Query      string `form:"q"`
	CategoryID *uint  `form:"category_id"`
}

type BorrowInput struct {
	ISBN    string `json:"isbn" binding:"required"`
	UserID  uint   `json:"user_id" binding:"required"`
	DueDate string `json:"due_date"`
}

type ReturnInput struct {
	ISBN   string `json:"isbn" binding:"required"`
	UserID uint   `json:"user_id" binding:"required"`
}

const (
	ActionBorrowedRecords = "borrowed_records"
	ActionOverdue         = "overdue"
	ActionBookStatus      = "book_status"
)

type ManageQuery struct {
	commonDto.PageQuery
	Action string `form:"action" binding:"required"`
}

// BorrowedRecordRow is an open borrow record joined with its user and book.
type BorrowedRecordRow struct {
	ID          uint      `json:"id"`
	ISBN        string    `json:"isbn"`
	Title       string    `json:"title"`
	UserID      uint      `json:"user_id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	BorrowDate  time.Time `json:"borrow_date"`
	DueDate     time.Time `json:"due_date"`
	DaysOverdue int       `json:"days_overdue,omitempty"`
}

type BookStatusRow struct {
	ISBN            string `json:"isbn"`
	Title           string `json:"title"`
	Author          string `json:"author"`
	Status          string `json:"status"`
	TotalCopies     int    `json:"total_copies"`
	AvailableCopies int    `json:"available_copies"`
	Borrowed        int    `json:"borrowed"`
}
