package category

import (
	"context"
	"errors"
	"strings"

	"pkujx.cn/library/internal/entity"
	"pkujx.cn/library/internal/modules/category/dto"
	"pkujx.cn/library/internal/modules/category/repository"
	"pkujx.cn/library/pkg/apperror"
	"pkujx.cn/library/pkg/slug"
)

type CategoryService interface {
	CreateCategory(ctx context.Context, input dto.CreateCategoryInput) (*entity.Category, error)
	GetAllCategories(ctx context.Context, query dto.ListCategoriesQuery) ([]dto.CategoryWithCount, error)
	DeleteCategory(ctx context.Context, id uint) error
}

type categoryService struct {
	repo repository.CategoryRepository
}

func NewCategoryService(repo repository.CategoryRepository) CategoryService {
	return &categoryService{repo: repo}
}

func (s *categoryService) CreateCategory(ctx context.Context, input dto.CreateCategoryInput) (*entity.Category, error) {
	name := strings.TrimSpace(input.Name)
	categorySlug := slug.Make(name)
	if categorySlug == "" {
		return nil, apperror.Validation("Name must contain letters or digits")
	}

	if existing, _ := s.repo.FindBySlug(ctx, categorySlug); existing != nil {
		return nil, apperror.Conflict("Category " + name + " already exists")
	}

	category := &entity.Category{
		Name:        name,
		Slug:        categorySlug,
		Description: strings.TrimSpace(input.Description),
	}
	if err := s.repo.Create(ctx, category); err != nil {
		return nil, apperror.FromDB(err, "Category not found", "Category "+name+" already exists")
	}
	return category, nil
}

func (s *categoryService) GetAllCategories(ctx context.Context, query dto.ListCategoriesQuery) ([]dto.CategoryWithCount, error) {
	categories, err := s.repo.FindAll(ctx, query.Search)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return categories, nil
}

func (s *categoryService) DeleteCategory(ctx context.Context, id uint) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return apperror.NotFound("Category not found")
		}
		return apperror.Internal(err)
	}
	return nil
}
