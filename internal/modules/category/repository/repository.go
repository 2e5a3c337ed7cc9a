package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"pkujx.cn/library/internal/entity"
	"pkujx.cn/library/internal/modules/category/dto"
)

var ErrCategoryNotFound = errors.New("category not found")

type CategoryRepository interface {
	Create(ctx context.Context, category *entity.Category) error
	FindBySlug(ctx context.Context, slug string) (*entity.Category, error)
	FindAll(ctx context.Context, search string) ([]dto.CategoryWithCount, error)
	// Delete removes the category and clears it from any book that used it.
	Delete(ctx context.Context, id uint) error
}

type categoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) Create(ctx context.Context, category *entity.Category) error {
	return r.db.WithContext(ctx).Create(category).Error
}

func (r *categoryRepository) FindBySlug(ctx context.Context, slug string) (*entity.Category, error) {
	var category entity.Category
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *categoryRepository) FindAll(ctx context.Context, search string) ([]dto.CategoryWithCount, error) {
	categories := make([]dto.CategoryWithCount, 0)
	query := r.db.WithContext(ctx).Table("categories AS c").
		Select(`c.id, c.name, c.slug, c.description, c.created_at,
			(SELECT COUNT(*) FROM books b WHERE b.category_id = c.id) AS book_count`)

	if s := strings.TrimSpace(search); s != "" {
		query = query.Where("LOWER(c.name) LIKE ?", "%"+strings.ToLower(s)+"%")
	}

	err := query.Order("c.name ASC").Scan(&categories).Error
	return categories, err
}

func (r *categoryRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&entity.Book{}).Where("category_id = ?", id).
			Update("category_id", nil).Error; err != nil {
			return err
		}
		res := tx.Delete(&entity.Category{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrCategoryNotFound
		}
		return nil
	})
}
