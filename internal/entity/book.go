package entity

import "time"

type Book struct {
	ISBN            string    `gorm:"column:isbn;primaryKey;size:20" json:"isbn"`
	Title           string    `gorm:"size:255;not null;index" json:"title"`
	Author          string    `gorm:"size:255;not null;index" json:"author"`
	Publisher       string    `gorm:"size:255" json:"publisher"`
	PublicationDate string    `gorm:"size:10" json:"publication_date"`
	CategoryID      *uint     `gorm:"index" json:"category_id"`
	TotalCopies     int       `gorm:"not null" json:"total_copies"`
	AvailableCopies int       `gorm:"not null" json:"available_copies"`
	Status          string    `gorm:"size:50" json:"status"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// BorrowRecord tracks one checked-out copy until it is returned.
type BorrowRecord struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	ISBN       string     `gorm:"column:isbn;size:20;not null;index:idx_borrow_open,priority:1" json:"isbn"`
	UserID     uint       `gorm:"not null;index:idx_borrow_open,priority:2" json:"user_id"`
	BorrowDate time.Time  `gorm:"not null;index" json:"borrow_date"`
	DueDate    time.Time  `gorm:"not null;index" json:"due_date"`
	Returned   bool       `gorm:"not null;default:false;index:idx_borrow_open,priority:3" json:"returned"`
	ReturnDate *time.Time `json:"return_date"`
}
