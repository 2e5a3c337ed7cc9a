package dto

import (
	"pkujx.cn/library/internal/entity"
	commonDto "pkujx.cn/library/pkg/dto"
)

// Viewer is the caller as seen by blog operations. A zero UserID is anonymous.
type Viewer struct {
	UserID   uint
	Username string
	Role     string
}

func (v Viewer) Authenticated() bool { return v.UserID != 0 }
func (v Viewer) IsAdmin() bool       { return v.Role == entity.RoleAdmin }

// StatusSubmit asks for publication; the site's review setting decides
// between pending_review and published.
const StatusSubmit = "submit"

type CreatePostInput struct {
	Title      string  `json:"title" binding:"required,max=200"`
	Content    string  `json:"content" binding:"required"`
	Excerpt    *string `json:"excerpt" binding:"omitempty,max=500"`
	BookISBN   *string `json:"book_isbn"`
	TopicIDs   []uint  `json:"topic_ids"`
	Visibility string  `json:"visibility" binding:"omitempty,oneof=public members"`
	Status     string  `json:"status"`
}

type UpdatePostInput struct {
	Title      *string `json:"title" binding:"omitempty,min=1,max=200"`
	Content    *string `json:"content" binding:"omitempty,min=1"`
	Excerpt    *string `json:"excerpt" binding:"omitempty,max=500"`
	BookISBN   *string `json:"book_isbn"`
	TopicIDs   *[]uint `json:"topic_ids"`
	Visibility *string `json:"visibility" binding:"omitempty,oneof=public members"`
	Status     *string `json:"status"`
}

type ListPostsQuery struct {
	commonDto.PageQuery
	Topic    string `form:"topic"`
	Query    string `form:"q"`
	BookISBN string `form:"book_isbn"`
}

type AdminListQuery struct {
	commonDto.PageQuery
	Status string `form:"status" binding:"omitempty,oneof=draft pending_review published archived"`
}

type SearchQuery struct {
	commonDto.PageQuery
	Query string `form:"q" binding:"required"`
}

type UpdateStatusInput struct {
	Status string `json:"status" binding:"required,oneof=draft pending_review published archived"`
}

type TopicInput struct {
	Name        string `json:"name" binding:"required,max=100"`
	Slug        string `json:"slug" binding:"max=100"`
	Description string `json:"description"`
}

type UpdateTopicInput struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=100"`
	Slug        *string `json:"slug" binding:"omitempty,min=1,max=100"`
	Description *string `json:"description"`
}

type TopicWithCount struct {
	entity.BlogTopic
	PostCount int64 `json:"post_count"`
}

// PostDetail is a single post plus whether the caller has liked it.
type PostDetail struct {
	*entity.BlogPost
	Liked bool `json:"liked"`
}

type LikeResult struct {
	PostID    uint  `json:"post_id"`
	Liked     bool  `json:"liked"`
	LikeCount int64 `json:"like_count"`
}
