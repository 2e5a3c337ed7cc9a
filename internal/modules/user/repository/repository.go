package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"pkujx.cn/library/internal/entity"
	"pkujx.cn/library/internal/modules/user/dto"
)

// ErrUserHasOpenBorrows is returned by DeleteCascade while the user still
// holds an unreturned book.
var ErrUserHasOpenBorrows = errors.New("user has unreturned books")

type UserFilter struct {
	Query  string
	Role   string
	Offset int
	Limit  int
}

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	FindByID(ctx context.Context, id uint) (*entity.User, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	EmailTaken(ctx context.Context, email string, excludeID uint) (bool, error)
	List(ctx context.Context, filter UserFilter) ([]entity.User, int64, error)
	// Update writes the given columns and mirrors a username change into
	// sessions and authored blog posts within one transaction.
	Update(ctx context.Context, id uint, updates map[string]any) error
	ListBorrows(ctx context.Context, userID uint, offset, limit int) ([]dto.BorrowItem, int64, error)
	// DeleteCascade returns the ids of the user's blog posts it removed.
	DeleteCascade(ctx context.Context, id uint) ([]uint, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *entity.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) FindByID(ctx context.Context, id uint) (*entity.User, error) {
	var user entity.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	var user entity.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) EmailTaken(ctx context.Context, email string, excludeID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.User{}).
		Where("email = ? AND id <> ?", email, excludeID).
		Count(&count).Error
	return count > 0, err
}

func (r *userRepository) List(ctx context.Context, filter UserFilter) ([]entity.User, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.User{})

	if q := strings.TrimSpace(filter.Query); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		query = query.Where("LOWER(email) LIKE ? OR LOWER(username) LIKE ?", like, like)
	}
	if filter.Role != "" {
		query = query.Where("role = ?", filter.Role)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []entity.User
	if err := query.Order("id ASC").Offset(filter.Offset).Limit(filter.Limit).Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *userRepository) Update(ctx context.Context, id uint, updates map[string]any) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&entity.User{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		username, ok := updates["username"]
		if !ok {
			return nil
		}
		if err := tx.Model(&entity.Session{}).Where("user_id = ?", id).
			Update("username", username).Error; err != nil {
			return err
		}
		return tx.Model(&entity.BlogPost{}).Where("user_id = ?", id).
			Update("username", username).Error
	})
}

func (r *userRepository) ListBorrows(ctx context.Context, userID uint, offset, limit int) ([]dto.BorrowItem, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&entity.BorrowRecord{}).
		Where("user_id = ?", userID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	items := make([]dto.BorrowItem, 0)
	err := r.db.WithContext(ctx).Table("borrow_records AS br").
		Select("br.id, br.isbn, COALESCE(b.title, '') AS title, COALESCE(b.author, '') AS author, " +
			"br.borrow_date, br.due_date, br.returned, br.return_date").
		Joins("LEFT JOIN books b ON b.isbn = br.isbn").
		Where("br.user_id = ?", userID).
		Order("br.returned ASC, br.borrow_date DESC").
		Offset(offset).Limit(limit).
		Scan(&items).Error
	return items, total, err
}

func (r *userRepository) DeleteCascade(ctx context.Context, id uint) ([]uint, error) {
	var postIDs []uint
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var open int64
		if err := tx.Model(&entity.BorrowRecord{}).
			Where("user_id = ? AND returned = ?", id, false).
			Count(&open).Error; err != nil {
			return err
		}
		if open > 0 {
			return ErrUserHasOpenBorrows
		}

		if err := tx.Where("user_id = ?", id).Delete(&entity.Session{}).Error; err != nil {
			return err
		}

		// Likes on other authors' posts give back their count.
		if err := tx.Exec(`UPDATE blog_posts SET like_count = like_count - 1
			WHERE like_count > 0 AND id IN (SELECT post_id FROM blog_post_likes WHERE user_id = ?)`, id).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&entity.BlogPostLike{}).Error; err != nil {
			return err
		}

		if err := tx.Model(&entity.BlogPost{}).Where("user_id = ?", id).Pluck("id", &postIDs).Error; err != nil {
			return err
		}
		ownPosts := tx.Model(&entity.BlogPost{}).Select("id").Where("user_id = ?", id)
		if err := tx.Exec("DELETE FROM blog_post_topics WHERE blog_post_id IN (?)", ownPosts).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id IN (?)", ownPosts).Delete(&entity.BlogPostLike{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&entity.BlogPost{}).Error; err != nil {
			return err
		}

		if err := tx.Where("user_id = ?", id).Delete(&entity.BorrowRecord{}).Error; err != nil {
			return err
		}

		res := tx.Delete(&entity.User{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return postIDs, nil
}
