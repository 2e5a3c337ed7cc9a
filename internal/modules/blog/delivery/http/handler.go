package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"pkujx.cn/library/internal/modules/blog/dto"
	blogService "pkujx.cn/library/internal/modules/blog/service"
	commonDto "pkujx.cn/library/pkg/dto"
	"pkujx.cn/library/pkg/ratelimiter"
	"pkujx.cn/library/pkg/response"
	"pkujx.cn/library/pkg/storage"
	"pkujx.cn/library/pkg/validator"
)

type BlogHandler struct {
	blogService blogService.BlogService
}

func NewBlogHandler(blogService blogService.BlogService) *BlogHandler {
	return &BlogHandler{blogService: blogService}
}

// viewer builds the caller identity from what the auth middleware stored.
// Anonymous callers get the zero Viewer.
func viewer(c *gin.Context) dto.Viewer {
	id, err := response.GetUserID(c)
	if err != nil {
		return dto.Viewer{}
	}
	return dto.Viewer{
		UserID:   id,
		Username: c.GetString(response.ContextUsername),
		Role:     response.GetRole(c),
	}
}

func (h *BlogHandler) CreatePost(c *gin.Context) {
	var input dto.CreatePostInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Fail(c, http.StatusBadRequest, validator.FormatValidationError(err))
		return
	}

	post, err := h.blogService.CreatePost(c.Request.Context(), viewer(c), input)
	if err != nil {
		var rateLimitErr *ratelimiter.RateLimitError
		if errors.As(err, &rateLimitErr) {
			c.Header("Retry-After", fmt.Sprintf("%.0f", rateLimitErr.RetryAfter.Seconds()))
		}
		response.Error(c, err)
		return
	}

	response.OK(c, http.StatusCreated, gin.H{"message": "Post created", "post": post})
}

func (h *BlogHandler) ListPosts(c *gin.Context) {
	var query dto.ListPostsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Fail(c, http.StatusBadRequest, validator.FormatValidationError(err))
		return
	}

	posts, meta, err := h.blogService.ListPublished(c.Request.Context(), viewer(c), query)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, posts, meta)
}

func (h *BlogHandler) GetPost(c *gin.Context) {
	post, err := h.blogService.GetPost(c.Request.Context(), viewer(c), c.Param("slug"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, http.StatusOK, gin.H{"post": post})
}

func (h *BlogHandler) UpdatePost(c *gin.Context) {
	id, err := response.ParseID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	var input dto.UpdatePostInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Fail(c, http.StatusBadRequest, validator.FormatValidationError(err))
		return
	}

	post, changed, err := h.blogService.UpdatePost(c.Request.Context(), viewer(c), id, input)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !changed {
		response.Unchanged(c, gin.H{"post": post})
		return
	}

	response.OK(c, http.StatusOK, gin.H{"changed": true, "message": "Post updated", "post": post})
}

func (h *BlogHandler) DeletePost(c *gin.Context) {
	id, err := response.ParseID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.blogService.DeletePost(c.Request.Context(), viewer(c), id); err != nil {
		response.Error(c, err)
		return
	}

	response.Message(c, http.StatusOK, "Post deleted")
}

func (h *BlogHandler) MyPosts(c *gin.Context) {
	var page commonDto.PageQuery
	if err := c.ShouldBindQuery(&page); err != nil {
		response.Fail(c, http.StatusBadRequest, validator.FormatValidationError(err))
		return
	}

	posts, meta, err := h.blogService.MyPosts(c.Request.Context(), viewer(c), page)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, posts, meta)
}

func (h *BlogHandler) Search(c *gin.Context) {
	var query dto.SearchQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Fail(c, http.StatusBadRequest, validator.FormatValidationError(err))
		return
	}

	posts, meta, err := h.blogService.Search(c.Request.Context(), viewer(c), query)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, posts, meta)
}

func (h *BlogHandler) AdminListPosts(c *gin.Context) {
	var query dto.AdminListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Fail(c, http.StatusBadRequest, validator.FormatValidationError(err))
		return
	}

	posts, meta, err := h.blogService.AdminListPosts(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, posts, meta)
}

func (h *BlogHandler) SetStatus(c *gin.Context) {
	id, err := response.ParseID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	var input dto.UpdateStatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Fail(c, http.StatusBadRequest, validator.FormatValidationError(err))
		return
	}

	post, changed, err := h.blogService.SetStatus(c.Request.Context(), id, input.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !changed {
		response.Unchanged(c, gin.H{"post": post})
		return
	}

	response.OK(c, http.StatusOK, gin.H{"changed": true, "message": "Post status updated", "post": post})
}

func (h *BlogHandler) Like(c *gin.Context) {
	id, err := response.ParseID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	res, err := h.blogService.Like(c.Request.Context(), viewer(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, http.StatusOK, gin.H{"data": res})
}

func (h *BlogHandler) Unlike(c *gin.Context) {
	id, err := response.ParseID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	res, removed, err := h.blogService.Unlike(c.Request.Context(), viewer(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !removed {
		response.Unchanged(c, gin.H{"data": res})
		return
	}

	response.OK(c, http.StatusOK, gin.H{"changed": true, "data": res})
}

func (h *BlogHandler) ListTopics(c *gin.Context) {
	topics, err := h.blogService.ListTopics(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, http.StatusOK, gin.H{"data": topics})
}

func (h *BlogHandler) CreateTopic(c *gin.Context) {
	var input dto.TopicInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Fail(c, http.StatusBadRequest, validator.FormatValidationError(err))
		return
	}

	topic, err := h.blogService.CreateTopic(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, http.StatusCreated, gin.H{"message": "Topic created", "topic": topic})
}

func (h *BlogHandler) UpdateTopic(c *gin.Context) {
	id, err := response.ParseID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	var input dto.UpdateTopicInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Fail(c, http.StatusBadRequest, validator.FormatValidationError(err))
		return
	}

	topic, changed, err := h.blogService.UpdateTopic(c.Request.Context(), id, input)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !changed {
		response.Unchanged(c, gin.H{"topic": topic})
		return
	}

	response.OK(c, http.StatusOK, gin.H{"changed": true, "message": "Topic updated", "topic": topic})
}

func (h *BlogHandler) DeleteTopic(c *gin.Context) {
	id, err := response.ParseID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.blogService.DeleteTopic(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}

	response.Message(c, http.StatusOK, "Topic deleted")
}

func (h *BlogHandler) UploadImage(c *gin.Context) {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "Image file is required in field \"image\"")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "Could not read uploaded image")
		return
	}
	defer file.Close()

	url, err := h.blogService.UploadImage(c.Request.Context(), viewer(c), storage.Image{
		Reader:   file,
		FileName: fileHeader.Filename,
		Size:     fileHeader.Size,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, http.StatusCreated, gin.H{"url": url})
}
