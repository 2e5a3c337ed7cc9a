package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"pkujx.cn/library/internal/entity"
	"pkujx.cn/library/internal/modules/blog/dto"
	"pkujx.cn/library/pkg/apperror"
)

var (
	ErrPostNotFound  = errors.New("post not found")
	ErrAlreadyLiked  = errors.New("post already liked")
	ErrTopicNotFound = errors.New("topic not found")
)

type PostFilter struct {
	Statuses     []string
	Visibilities []string
	UserID       *uint
	TopicSlug    string
	Query        string
	BookISBN     string
	Offset       int
	Limit        int
}

type BlogRepository interface {
	CreatePost(ctx context.Context, post *entity.BlogPost) error
	FindPostByID(ctx context.Context, id uint) (*entity.BlogPost, error)
	FindPostBySlug(ctx context.Context, slug string) (*entity.BlogPost, error)
	FindPostsByIDs(ctx context.Context, ids []uint) ([]entity.BlogPost, error)
	ListPosts(ctx context.Context, filter PostFilter) ([]entity.BlogPost, int64, error)
	// UpdatePost writes columns and, when topics is non-nil, replaces the
	// post's topic links.
	UpdatePost(ctx context.Context, id uint, updates map[string]any, topics *[]entity.BlogTopic) error
	DeletePost(ctx context.Context, id uint) error
	AddViews(ctx context.Context, id uint, n int64) error

	Like(ctx context.Context, userID, postID uint) (int64, error)
	// Unlike reports whether a like row was removed.
	Unlike(ctx context.Context, userID, postID uint) (bool, int64, error)
	HasLiked(ctx context.Context, userID, postID uint) (bool, error)

	ListTopics(ctx context.Context) ([]dto.TopicWithCount, error)
	FindTopicByID(ctx context.Context, id uint) (*entity.BlogTopic, error)
	FindTopicsByIDs(ctx context.Context, ids []uint) ([]entity.BlogTopic, error)
	CreateTopic(ctx context.Context, topic *entity.BlogTopic) error
	UpdateTopic(ctx context.Context, id uint, updates map[string]any) error
	DeleteTopic(ctx context.Context, id uint) error
}

type blogRepository struct {
	db *gorm.DB
}

func NewBlogRepository(db *gorm.DB) BlogRepository {
	return &blogRepository{db: db}
}

func (r *blogRepository) CreatePost(ctx context.Context, post *entity.BlogPost) error {
	return r.db.WithContext(ctx).Create(post).Error
}

func (r *blogRepository) FindPostByID(ctx context.Context, id uint) (*entity.BlogPost, error) {
	var post entity.BlogPost
	if err := r.db.WithContext(ctx).Preload("Topics").First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return &post, nil
}

func (r *blogRepository) FindPostBySlug(ctx context.Context, slug string) (*entity.BlogPost, error) {
	var post entity.BlogPost
	if err := r.db.WithContext(ctx).Preload("Topics").Where("slug = ?", slug).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return &post, nil
}

func (r *blogRepository) FindPostsByIDs(ctx context.Context, ids []uint) ([]entity.BlogPost, error) {
	posts := make([]entity.BlogPost, 0, len(ids))
	if len(ids) == 0 {
		return posts, nil
	}
	err := r.db.WithContext(ctx).Preload("Topics").Where("id IN ?", ids).Find(&posts).Error
	return posts, err
}

func (r *blogRepository) ListPosts(ctx context.Context, filter PostFilter) ([]entity.BlogPost, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.BlogPost{})

	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if len(filter.Visibilities) > 0 {
		query = query.Where("visibility IN ?", filter.Visibilities)
	}
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.BookISBN != "" {
		query = query.Where("book_isbn = ?", filter.BookISBN)
	}
	if filter.TopicSlug != "" {
		query = query.Where(`id IN (SELECT bpt.blog_post_id FROM blog_post_topics bpt
			JOIN blog_topics t ON t.id = bpt.blog_topic_id WHERE t.slug = ?)`, filter.TopicSlug)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(excerpt) LIKE ? OR LOWER(content) LIKE ?", like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	posts := make([]entity.BlogPost, 0)
	if err := query.Preload("Topics").
		Order("COALESCE(published_at, created_at) DESC").Order("id DESC").
		Offset(filter.Offset).Limit(filter.Limit).
		Find(&posts).Error; err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

func (r *blogRepository) UpdatePost(ctx context.Context, id uint, updates map[string]any, topics *[]entity.BlogTopic) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			res := tx.Model(&entity.BlogPost{}).Where("id = ?", id).Updates(updates)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrPostNotFound
			}
		}
		if topics == nil {
			return nil
		}
		if err := tx.Exec("DELETE FROM blog_post_topics WHERE blog_post_id = ?", id).Error; err != nil {
			return err
		}
		for _, t := range *topics {
			if err := tx.Exec("INSERT INTO blog_post_topics (blog_post_id, blog_topic_id) VALUES (?, ?)", id, t.ID).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *blogRepository) DeletePost(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM blog_post_topics WHERE blog_post_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&entity.BlogPostLike{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&entity.BlogPost{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrPostNotFound
		}
		return nil
	})
}

func (r *blogRepository) AddViews(ctx context.Context, id uint, n int64) error {
	return r.db.WithContext(ctx).Model(&entity.BlogPost{}).Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + ?", n)).Error
}

func (r *blogRepository) likeCount(tx *gorm.DB, postID uint) (int64, error) {
	var count int64
	err := tx.Model(&entity.BlogPost{}).Select("like_count").Where("id = ?", postID).Scan(&count).Error
	return count, err
}

func (r *blogRepository) Like(ctx context.Context, userID, postID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&entity.BlogPostLike{UserID: userID, PostID: postID}).Error; err != nil {
			if apperror.IsUniqueViolation(err) {
				return ErrAlreadyLiked
			}
			return err
		}
		if err := tx.Model(&entity.BlogPost{}).Where("id = ?", postID).
			UpdateColumn("like_count", gorm.Expr("like_count + 1")).Error; err != nil {
			return err
		}

		var err error
		count, err = r.likeCount(tx, postID)
		return err
	})
	return count, err
}

func (r *blogRepository) Unlike(ctx context.Context, userID, postID uint) (bool, int64, error) {
	var (
		removed bool
		count   int64
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND post_id = ?", userID, postID).Delete(&entity.BlogPostLike{})
		if res.Error != nil {
			return res.Error
		}
		removed = res.RowsAffected > 0

		if removed {
			if err := tx.Model(&entity.BlogPost{}).Where("id = ? AND like_count > 0", postID).
				UpdateColumn("like_count", gorm.Expr("like_count - 1")).Error; err != nil {
				return err
			}
		}

		var err error
		count, err = r.likeCount(tx, postID)
		return err
	})
	return removed, count, err
}

func (r *blogRepository) HasLiked(ctx context.Context, userID, postID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.BlogPostLike{}).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Count(&count).Error
	return count > 0, err
}

func (r *blogRepository) ListTopics(ctx context.Context) ([]dto.TopicWithCount, error) {
	topics := make([]dto.TopicWithCount, 0)
	err := r.db.WithContext(ctx).Table("blog_topics AS t").
		Select(`t.id, t.name, t.slug, t.description, t.created_at,
			(SELECT COUNT(*) FROM blog_post_topics bpt
				JOIN blog_posts p ON p.id = bpt.blog_post_id
				WHERE bpt.blog_topic_id = t.id AND p.status = ?) AS post_count`, entity.PostStatusPublished).
		Order("t.name ASC").
		Scan(&topics).Error
	return topics, err
}

func (r *blogRepository) FindTopicByID(ctx context.Context, id uint) (*entity.BlogTopic, error) {
	var topic entity.BlogTopic
	if err := r.db.WithContext(ctx).First(&topic, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTopicNotFound
		}
		return nil, err
	}
	return &topic, nil
}

func (r *blogRepository) FindTopicsByIDs(ctx context.Context, ids []uint) ([]entity.BlogTopic, error) {
	topics := make([]entity.BlogTopic, 0, len(ids))
	if len(ids) == 0 {
		return topics, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&topics).Error
	return topics, err
}

func (r *blogRepository) CreateTopic(ctx context.Context, topic *entity.BlogTopic) error {
	return r.db.WithContext(ctx).Create(topic).Error
}

func (r *blogRepository) UpdateTopic(ctx context.Context, id uint, updates map[string]any) error {
	res := r.db.WithContext(ctx).Model(&entity.BlogTopic{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrTopicNotFound
	}
	return nil
}

func (r *blogRepository) DeleteTopic(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM blog_post_topics WHERE blog_topic_id = ?", id).Error; err != nil {
			return err
		}
		res := tx.Delete(&entity.BlogTopic{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrTopicNotFound
		}
		return nil
	})
}
