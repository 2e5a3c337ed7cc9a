package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"pkujx.cn/library/internal/entity"
	"pkujx.cn/library/internal/modules/stat/dto"
)

// GroupCount is one row of a GROUP BY count.
type GroupCount struct {
	Label string
	Total int64
}

type BookTotals struct {
	Titles          int64
	TotalCopies     int64
	AvailableCopies int64
}

type StatRepository interface {
	CountUsersByRole(ctx context.Context) ([]GroupCount, error)
	BookTotals(ctx context.Context) (BookTotals, error)
	CountOpenBorrows(ctx context.Context) (int64, error)
	CountOverdueBorrows(ctx context.Context, now time.Time) (int64, error)
	CountPostsByStatus(ctx context.Context) ([]GroupCount, error)
	CountTopics(ctx context.Context) (int64, error)
	CountLikes(ctx context.Context) (int64, error)
	// TopBorrowers ranks users by borrow records created at or after since.
	TopBorrowers(ctx context.Context, since time.Time, limit int) ([]dto.TopBorrower, error)
}

type statRepository struct {
	db *gorm.DB
}

func NewStatRepository(db *gorm.DB) StatRepository {
	return &statRepository{db: db}
}

func (r *statRepository) CountUsersByRole(ctx context.Context) ([]GroupCount, error) {
	var rows []GroupCount
	err := r.db.WithContext(ctx).Model(&entity.User{}).
		Select("role AS label, COUNT(*) AS total").
		Group("role").
		Scan(&rows).Error
	return rows, err
}

func (r *statRepository) BookTotals(ctx context.Context) (BookTotals, error) {
	var totals BookTotals
	err := r.db.WithContext(ctx).Model(&entity.Book{}).
		Select("COUNT(*) AS titles, COALESCE(SUM(total_copies), 0) AS total_copies, COALESCE(SUM(available_copies), 0) AS available_copies").
		Scan(&totals).Error
	return totals, err
}

func (r *statRepository) CountOpenBorrows(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.BorrowRecord{}).
		Where("returned = ?", false).
		Count(&count).Error
	return count, err
}

func (r *statRepository) CountOverdueBorrows(ctx context.Context, now time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.BorrowRecord{}).
		Where("returned = ? AND due_date < ?", false, now).
		Count(&count).Error
	return count, err
}

func (r *statRepository) CountPostsByStatus(ctx context.Context) ([]GroupCount, error) {
	var rows []GroupCount
	err := r.db.WithContext(ctx).Model(&entity.BlogPost{}).
		Select("status AS label, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	return rows, err
}

func (r *statRepository) CountTopics(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.BlogTopic{}).Count(&count).Error
	return count, err
}

func (r *statRepository) CountLikes(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.BlogPostLike{}).Count(&count).Error
	return count, err
}

func (r *statRepository) TopBorrowers(ctx context.Context, since time.Time, limit int) ([]dto.TopBorrower, error) {
	rows := make([]dto.TopBorrower, 0, limit)
	err := r.db.WithContext(ctx).Table("borrow_records AS br").
		Select("u.id AS user_id, u.username, u.role, COUNT(br.id) AS borrow_count").
		Joins("JOIN users u ON u.id = br.user_id").
		Where("br.borrow_date >= ?", since).
		Group("u.id, u.username, u.role").
		Order("borrow_count DESC").Order("u.id ASC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}
