package entity

import "time"

const (
	PostStatusDraft         = "draft"
	PostStatusPendingReview = "pending_review"
	PostStatusPublished     = "published"
	PostStatusArchived      = "archived"

	VisibilityPublic  = "public"
	VisibilityMembers = "members"
)

// ValidPostStatus reports whether status is a known post status.
func ValidPostStatus(status string) bool {
	switch status {
	case PostStatusDraft, PostStatusPendingReview, PostStatusPublished, PostStatusArchived:
		return true
	}
	return false
}

type BlogPost struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	Title        string      `gorm:"size:200;not null" json:"title"`
	Slug         string      `gorm:"size:120;uniqueIndex;not null" json:"slug"`
	Content      string      `gorm:"type:text;not null" json:"content"`
	Excerpt      string      `gorm:"type:text" json:"excerpt"`
	UserID       uint        `gorm:"not null;index" json:"user_id"`
	Username     string      `gorm:"size:50;not null" json:"username"`
	BookISBN     *string     `gorm:"column:book_isbn;size:20;index" json:"book_isbn"`
	BookTitle    *string     `gorm:"size:255" json:"book_title"`
	Status       string      `gorm:"size:20;not null;index" json:"status"`
	Visibility   string      `gorm:"size:20;not null;default:public" json:"visibility"`
	ViewCount    int64       `gorm:"not null;default:0" json:"view_count"`
	LikeCount    int64       `gorm:"not null;default:0" json:"like_count"`
	CommentCount int64       `gorm:"not null;default:0" json:"comment_count"`
	Topics       []BlogTopic `gorm:"many2many:blog_post_topics" json:"topics"`
	PublishedAt  *time.Time  `json:"published_at"`
	CreatedAt    time.Time   `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt    time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

type BlogTopic struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Slug        string    `gorm:"size:100;uniqueIndex;not null" json:"slug"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// BlogPostLike allows at most one like per user per post.
type BlogPostLike struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_blog_like_user_post,priority:1" json:"user_id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_blog_like_user_post,priority:2;index" json:"post_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
