package category

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pkujx.cn/library/internal/entity"
	"pkujx.cn/library/internal/modules/category/dto"
	"pkujx.cn/library/internal/modules/category/repository"
	"pkujx.cn/library/internal/testutil"
	"pkujx.cn/library/pkg/apperror"
)

func TestCategoryLifecycle(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewCategoryService(repository.NewCategoryRepository(db))
	ctx := context.Background()

	fiction, err := svc.CreateCategory(ctx, dto.CreateCategoryInput{Name: "Science Fiction"})
	require.NoError(t, err)
	assert.Equal(t, "science-fiction", fiction.Slug)

	_, err = svc.CreateCategory(ctx, dto.CreateCategoryInput{Name: "science fiction"})
	assert.Equal(t, http.StatusConflict, apperror.Status(err))

	_, err = svc.CreateCategory(ctx, dto.CreateCategoryInput{Name: "History"})
	require.NoError(t, err)

	book := testutil.CreateBook(t, db, "978-3", "Dune", 1, 1)
	require.NoError(t, db.Model(book).Update("category_id", fiction.ID).Error)

	all, err := svc.GetAllCategories(ctx, dto.ListCategoriesQuery{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "History", all[0].Name)
	assert.Equal(t, int64(1), all[1].BookCount)

	found, err := svc.GetAllCategories(ctx, dto.ListCategoriesQuery{Search: "SCIENCE"})
	require.NoError(t, err)
	assert.Len(t, found, 1)

	require.NoError(t, svc.DeleteCategory(ctx, fiction.ID))
	assert.Equal(t, http.StatusNotFound, apperror.Status(svc.DeleteCategory(ctx, fiction.ID)))

	var reloaded entity.Book
	require.NoError(t, db.First(&reloaded, "isbn = ?", "978-3").Error)
	assert.Nil(t, reloaded.CategoryID)
}
