package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"pkujx.cn/library/internal/entity"
	"pkujx.cn/library/internal/modules/blog/dto"
	"pkujx.cn/library/internal/modules/blog/repository"
	bookRepo "pkujx.cn/library/internal/modules/book/repository"
	search "pkujx.cn/library/internal/modules/search/service"
	setting "pkujx.cn/library/internal/modules/setting/service"
	view "pkujx.cn/library/internal/modules/view/service"
	"pkujx.cn/library/pkg/apperror"
	commonDto "pkujx.cn/library/pkg/dto"
	"pkujx.cn/library/pkg/ratelimiter"
	"pkujx.cn/library/pkg/sanitizer"
	"pkujx.cn/library/pkg/slug"
	"pkujx.cn/library/pkg/storage"
)

const (
	excerptLength  = 200
	imageFolder    = "blog"
	msgPostMissing = "Post not found"
)

type BlogService interface {
	CreatePost(ctx context.Context, viewer dto.Viewer, input dto.CreatePostInput) (*entity.BlogPost, error)
	ListPublished(ctx context.Context, viewer dto.Viewer, query dto.ListPostsQuery) ([]entity.BlogPost, commonDto.PaginationMeta, error)
	GetPost(ctx context.Context, viewer dto.Viewer, slug string) (*dto.PostDetail, error)
	UpdatePost(ctx context.Context, viewer dto.Viewer, id uint, input dto.UpdatePostInput) (*entity.BlogPost, bool, error)
	DeletePost(ctx context.Context, viewer dto.Viewer, id uint) error
	MyPosts(ctx context.Context, viewer dto.Viewer, page commonDto.PageQuery) ([]entity.BlogPost, commonDto.PaginationMeta, error)
	Search(ctx context.Context, viewer dto.Viewer, query dto.SearchQuery) ([]entity.BlogPost, commonDto.PaginationMeta, error)

	AdminListPosts(ctx context.Context, query dto.AdminListQuery) ([]entity.BlogPost, commonDto.PaginationMeta, error)
	SetStatus(ctx context.Context, id uint, status string) (*entity.BlogPost, bool, error)

	Like(ctx context.Context, viewer dto.Viewer, postID uint) (*dto.LikeResult, error)
	Unlike(ctx context.Context, viewer dto.Viewer, postID uint) (*dto.LikeResult, bool, error)

	ListTopics(ctx context.Context) ([]dto.TopicWithCount, error)
	CreateTopic(ctx context.Context, input dto.TopicInput) (*entity.BlogTopic, error)
	UpdateTopic(ctx context.Context, id uint, input dto.UpdateTopicInput) (*entity.BlogTopic, bool, error)
	DeleteTopic(ctx context.Context, id uint) error

	UploadImage(ctx context.Context, viewer dto.Viewer, file storage.Image) (string, error)
}

// Deps groups the collaborators of the blog service. Storage, Redis and the
// search indexer are optional.
type Deps struct {
	Repo      repository.BlogRepository
	Books     bookRepo.BookRepository
	Settings  setting.SettingService
	Sanitizer sanitizer.Sanitizer
	Indexer   search.PostIndexer
	Storage   storage.ImageStorage
	Redis     *redis.Client
	// Views buffers view counts; nil writes them straight to Repo.
	Views view.ViewCounter
	// PostCooldown is the minimum gap between two posts by one user.
	PostCooldown time.Duration
}

type blogService struct {
	Deps
	now func() time.Time
}

func NewBlogService(deps Deps) BlogService {
	return &blogService{Deps: deps, now: time.Now}
}

// Excerpt shortens text to at most n runes, cutting at a word boundary when
// one is close enough and marking the cut with an ellipsis.
func Excerpt(text string, n int) string {
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)[:n-1]
	cut := string(runes)
	if i := strings.LastIndex(cut, " "); i > len(cut)/2 {
		cut = cut[:i]
	}
	return strings.TrimSpace(cut) + "…"
}

// deriveExcerpt cuts the visible text and escapes the result, so the limit
// counts characters a reader sees.
func (s *blogService) deriveExcerpt(content string, given *string) string {
	text := ""
	if given != nil {
		text = s.Sanitizer.Text(*given)
	}
	if text == "" {
		text = s.Sanitizer.Text(content)
	}
	return html.EscapeString(Excerpt(text, excerptLength))
}

// reviewedStatus applies the site's review setting to a publication request.
func (s *blogService) reviewedStatus(ctx context.Context) string {
	if s.Settings != nil && !s.Settings.Bool(ctx, entity.SettingBlogRequiresReview, true) {
		return entity.PostStatusPublished
	}
	return entity.PostStatusPendingReview
}

// resolveStatus maps a requested status to the stored one for this caller.
func (s *blogService) resolveStatus(ctx context.Context, viewer dto.Viewer, requested string) (string, error) {
	requested = strings.TrimSpace(requested)
	switch {
	case requested == entity.PostStatusDraft:
		return entity.PostStatusDraft, nil
	case viewer.IsAdmin() && entity.ValidPostStatus(requested):
		return requested, nil
	case requested == "", requested == dto.StatusSubmit,
		requested == entity.PostStatusPendingReview, requested == entity.PostStatusPublished:
		return s.reviewedStatus(ctx), nil
	default:
		return "", apperror.Validation("Invalid status: use draft or submit")
	}
}

func (s *blogService) resolveBook(ctx context.Context, isbn string) (*string, *string, error) {
	isbn = strings.TrimSpace(isbn)
	if isbn == "" {
		return nil, nil, nil
	}
	book, err := s.Books.FindByISBN(ctx, isbn)
	if err != nil {
		return nil, nil, apperror.FromDB(err, "Book not found", "")
	}
	return &book.ISBN, &book.Title, nil
}

func (s *blogService) resolveTopics(ctx context.Context, ids []uint) ([]entity.BlogTopic, error) {
	unique := make([]uint, 0, len(ids))
	seen := make(map[uint]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}

	topics, err := s.Repo.FindTopicsByIDs(ctx, unique)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if len(topics) != len(unique) {
		return nil, apperror.NotFound("One or more topics do not exist")
	}
	return topics, nil
}

func (s *blogService) reindex(post *entity.BlogPost) {
	if s.Indexer == nil {
		return
	}
	if err := s.Indexer.IndexPost(post); err != nil {
		log.Warn().Err(err).Uint("post_id", post.ID).Msg("failed to index blog post")
	}
}

func (s *blogService) claimCooldown(ctx context.Context, userID uint) error {
	allowed, err := ratelimiter.CheckAndSetRateLimit(ctx, s.Redis, userID, ratelimiter.ScopeBlogPost, s.PostCooldown)
	if err != nil {
		log.Warn().Err(err).Uint("user_id", userID).Msg("rate limiter unavailable, allowing post")
		return nil
	}
	if allowed {
		return nil
	}

	ttl, err := ratelimiter.GetRateLimitTTL(ctx, s.Redis, userID, ratelimiter.ScopeBlogPost)
	if err != nil || ttl <= 0 {
		ttl = s.PostCooldown
	}
	rlErr := &ratelimiter.RateLimitError{
		Message:    fmt.Sprintf("Please wait %d seconds before creating another post", int(ttl.Seconds()+0.5)),
		RetryAfter: ttl,
	}
	return apperror.Wrap(apperror.KindRateLimited, rlErr.Message, rlErr)
}

func (s *blogService) CreatePost(ctx context.Context, viewer dto.Viewer, input dto.CreatePostInput) (*entity.BlogPost, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperror.Validation("Title is required")
	}
	content := s.Sanitizer.Sanitize(input.Content, sanitizer.ProfileDefault)
	if content == "" {
		return nil, apperror.Validation("Content is empty after sanitization")
	}

	status, err := s.resolveStatus(ctx, viewer, input.Status)
	if err != nil {
		return nil, err
	}

	post := &entity.BlogPost{
		Title:      title,
		Slug:       slug.WithSuffix(title, "post"),
		Content:    content,
		Excerpt:    s.deriveExcerpt(content, input.Excerpt),
		UserID:     viewer.UserID,
		Username:   viewer.Username,
		Status:     status,
		Visibility: entity.VisibilityPublic,
	}
	if input.Visibility != "" {
		post.Visibility = input.Visibility
	}
	if input.BookISBN != nil {
		if post.BookISBN, post.BookTitle, err = s.resolveBook(ctx, *input.BookISBN); err != nil {
			return nil, err
		}
	}
	if len(input.TopicIDs) > 0 {
		if post.Topics, err = s.resolveTopics(ctx, input.TopicIDs); err != nil {
			return nil, err
		}
	}
	if status == entity.PostStatusPublished {
		now := s.now()
		post.PublishedAt = &now
	}

	if !viewer.IsAdmin() {
		if err := s.claimCooldown(ctx, viewer.UserID); err != nil {
			return nil, err
		}
	}

	if err := s.Repo.CreatePost(ctx, post); err != nil {
		if clearErr := ratelimiter.ClearRateLimit(ctx, s.Redis, viewer.UserID, ratelimiter.ScopeBlogPost); clearErr != nil {
			log.Warn().Err(clearErr).Msg("failed to release post cooldown")
		}
		return nil, apperror.FromDB(err, msgPostMissing, "A post with this slug already exists")
	}

	s.reindex(post)
	return post, nil
}

func visibleTo(viewer dto.Viewer) []string {
	if viewer.Authenticated() {
		return []string{entity.VisibilityPublic, entity.VisibilityMembers}
	}
	return []string{entity.VisibilityPublic}
}

func (s *blogService) ListPublished(ctx context.Context, viewer dto.Viewer, query dto.ListPostsQuery) ([]entity.BlogPost, commonDto.PaginationMeta, error) {
	page := query.PageQuery
	page.Normalize()

	posts, total, err := s.Repo.ListPosts(ctx, repository.PostFilter{
		Statuses:     []string{entity.PostStatusPublished},
		Visibilities: visibleTo(viewer),
		TopicSlug:    query.Topic,
		Query:        query.Query,
		BookISBN:     query.BookISBN,
		Offset:       page.Offset(),
		Limit:        page.Limit,
	})
	if err != nil {
		return nil, commonDto.PaginationMeta{}, apperror.Internal(err)
	}
	return posts, commonDto.NewPaginationMeta(page, total), nil
}

func canManage(viewer dto.Viewer, post *entity.BlogPost) bool {
	return viewer.IsAdmin() || (viewer.Authenticated() && viewer.UserID == post.UserID)
}

func (s *blogService) recordView(ctx context.Context, postID uint) error {
	if s.Views != nil {
		return s.Views.Record(ctx, postID)
	}
	return s.Repo.AddViews(ctx, postID, 1)
}

func (s *blogService) GetPost(ctx context.Context, viewer dto.Viewer, postSlug string) (*dto.PostDetail, error) {
	post, err := s.Repo.FindPostBySlug(ctx, postSlug)
	if err != nil {
		return nil, s.postError(err)
	}

	if post.Status != entity.PostStatusPublished && !canManage(viewer, post) {
		return nil, apperror.NotFound(msgPostMissing)
	}
	if post.Visibility == entity.VisibilityMembers && !viewer.Authenticated() {
		return nil, apperror.NotFound(msgPostMissing)
	}

	if post.Status == entity.PostStatusPublished && viewer.UserID != post.UserID {
		if err := s.recordView(ctx, post.ID); err != nil {
			log.Warn().Err(err).Uint("post_id", post.ID).Msg("failed to count post view")
		} else {
			post.ViewCount++
		}
	}

	detail := &dto.PostDetail{BlogPost: post}
	if viewer.Authenticated() {
		if detail.Liked, err = s.Repo.HasLiked(ctx, viewer.UserID, post.ID); err != nil {
			return nil, apperror.Internal(err)
		}
	}
	return detail, nil
}

func (s *blogService) postError(err error) error {
	if errors.Is(err, repository.ErrPostNotFound) {
		return apperror.NotFound(msgPostMissing)
	}
	return apperror.Internal(err)
}

func sameTopics(current []entity.BlogTopic, next []entity.BlogTopic) bool {
	if len(current) != len(next) {
		return false
	}
	ids := func(ts []entity.BlogTopic) []uint {
		out := make([]uint, len(ts))
		for i, t := range ts {
			out[i] = t.ID
		}
		sort.Slice(out, func(a, b int) bool { return out[a] < out[b] })
		return out
	}
	a, b := ids(current), ids(next)
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func strValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func (s *blogService) UpdatePost(ctx context.Context, viewer dto.Viewer, id uint, input dto.UpdatePostInput) (*entity.BlogPost, bool, error) {
	post, err := s.Repo.FindPostByID(ctx, id)
	if err != nil {
		return nil, false, s.postError(err)
	}
	if !canManage(viewer, post) {
		return nil, false, apperror.Forbidden("You can only edit your own posts")
	}

	updates := make(map[string]any)

	if input.Title != nil {
		if title := strings.TrimSpace(*input.Title); title != post.Title {
			if title == "" {
				return nil, false, apperror.Validation("Title is required")
			}
			updates["title"] = title
		}
	}

	content := post.Content
	if input.Content != nil {
		content = s.Sanitizer.Sanitize(*input.Content, sanitizer.ProfileDefault)
		if content == "" {
			return nil, false, apperror.Validation("Content is empty after sanitization")
		}
		if content != post.Content {
			updates["content"] = content
		}
	}
	if input.Excerpt != nil || updates["content"] != nil {
		if excerpt := s.deriveExcerpt(content, input.Excerpt); excerpt != post.Excerpt {
			updates["excerpt"] = excerpt
		}
	}

	if input.Visibility != nil && *input.Visibility != post.Visibility {
		updates["visibility"] = *input.Visibility
	}

	if input.BookISBN != nil {
		isbn, title, err := s.resolveBook(ctx, *input.BookISBN)
		if err != nil {
			return nil, false, err
		}
		if strValue(isbn) != strValue(post.BookISBN) {
			updates["book_isbn"] = isbn
			updates["book_title"] = title
		}
	}

	if input.Status != nil {
		status, err := s.resolveStatus(ctx, viewer, *input.Status)
		if err != nil {
			return nil, false, err
		}
		if status != post.Status {
			updates["status"] = status
			if status == entity.PostStatusPublished && post.PublishedAt == nil {
				updates["published_at"] = s.now()
			}
		}
	}

	var topics *[]entity.BlogTopic
	if input.TopicIDs != nil {
		next, err := s.resolveTopics(ctx, *input.TopicIDs)
		if err != nil {
			return nil, false, err
		}
		if !sameTopics(post.Topics, next) {
			topics = &next
		}
	}

	if len(updates) == 0 && topics == nil {
		return post, false, nil
	}

	if len(updates) > 0 {
		updates["updated_at"] = s.now()
	}
	if err := s.Repo.UpdatePost(ctx, id, updates, topics); err != nil {
		return nil, false, s.postError(err)
	}

	updated, err := s.Repo.FindPostByID(ctx, id)
	if err != nil {
		return nil, false, s.postError(err)
	}
	s.reindex(updated)
	return updated, true, nil
}

func (s *blogService) DeletePost(ctx context.Context, viewer dto.Viewer, id uint) error {
	post, err := s.Repo.FindPostByID(ctx, id)
	if err != nil {
		return s.postError(err)
	}
	if !canManage(viewer, post) {
		return apperror.Forbidden("You can only delete your own posts")
	}

	if err := s.Repo.DeletePost(ctx, id); err != nil {
		return s.postError(err)
	}

	if s.Indexer != nil {
		if err := s.Indexer.DeletePost(id); err != nil {
			log.Warn().Err(err).Uint("post_id", id).Msg("failed to remove blog post from index")
		}
	}
	return nil
}

func (s *blogService) MyPosts(ctx context.Context, viewer dto.Viewer, page commonDto.PageQuery) ([]entity.BlogPost, commonDto.PaginationMeta, error) {
	page.Normalize()

	posts, total, err := s.Repo.ListPosts(ctx, repository.PostFilter{
		UserID: &viewer.UserID,
		Offset: page.Offset(),
		Limit:  page.Limit,
	})
	if err != nil {
		return nil, commonDto.PaginationMeta{}, apperror.Internal(err)
	}
	return posts, commonDto.NewPaginationMeta(page, total), nil
}

func (s *blogService) Search(ctx context.Context, viewer dto.Viewer, query dto.SearchQuery) ([]entity.BlogPost, commonDto.PaginationMeta, error) {
	page := query.PageQuery
	page.Normalize()

	q := strings.TrimSpace(query.Query)
	if q == "" {
		return nil, commonDto.PaginationMeta{}, apperror.Validation("Search query is required")
	}

	if s.Indexer != nil && s.Indexer.Enabled() {
		posts, total, err := s.searchIndex(ctx, q, page)
		if err == nil {
			return posts, commonDto.NewPaginationMeta(page, total), nil
		}
		log.Warn().Err(err).Msg("search index query failed, falling back to database")
	}

	return s.ListPublished(ctx, viewer, dto.ListPostsQuery{PageQuery: page, Query: q})
}

func (s *blogService) searchIndex(ctx context.Context, q string, page commonDto.PageQuery) ([]entity.BlogPost, int64, error) {
	ids, total, err := s.Indexer.SearchPostIDs(q, page.Offset(), page.Limit)
	if err != nil {
		return nil, 0, err
	}

	found, err := s.Repo.FindPostsByIDs(ctx, ids)
	if err != nil {
		return nil, 0, err
	}

	byID := make(map[uint]entity.BlogPost, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}

	// Keep relevance order and drop hits the index still holds but the
	// database no longer shows publicly.
	posts := make([]entity.BlogPost, 0, len(ids))
	for _, id := range ids {
		p, ok := byID[id]
		if ok && p.Status == entity.PostStatusPublished && p.Visibility == entity.VisibilityPublic {
			posts = append(posts, p)
		}
	}
	return posts, total, nil
}

func (s *blogService) AdminListPosts(ctx context.Context, query dto.AdminListQuery) ([]entity.BlogPost, commonDto.PaginationMeta, error) {
	page := query.PageQuery
	page.Normalize()

	filter := repository.PostFilter{Offset: page.Offset(), Limit: page.Limit}
	if query.Status != "" {
		filter.Statuses = []string{query.Status}
	}

	posts, total, err := s.Repo.ListPosts(ctx, filter)
	if err != nil {
		return nil, commonDto.PaginationMeta{}, apperror.Internal(err)
	}
	return posts, commonDto.NewPaginationMeta(page, total), nil
}

func (s *blogService) SetStatus(ctx context.Context, id uint, status string) (*entity.BlogPost, bool, error) {
	if !entity.ValidPostStatus(status) {
		return nil, false, apperror.Validation("Invalid status")
	}

	post, err := s.Repo.FindPostByID(ctx, id)
	if err != nil {
		return nil, false, s.postError(err)
	}
	if post.Status == status {
		return post, false, nil
	}

	now := s.now()
	updates := map[string]any{"status": status, "updated_at": now}
	if status == entity.PostStatusPublished && post.PublishedAt == nil {
		updates["published_at"] = now
	}
	if err := s.Repo.UpdatePost(ctx, id, updates, nil); err != nil {
		return nil, false, s.postError(err)
	}

	updated, err := s.Repo.FindPostByID(ctx, id)
	if err != nil {
		return nil, false, s.postError(err)
	}
	s.reindex(updated)
	return updated, true, nil
}

func (s *blogService) Like(ctx context.Context, viewer dto.Viewer, postID uint) (*dto.LikeResult, error) {
	post, err := s.Repo.FindPostByID(ctx, postID)
	if err != nil {
		return nil, s.postError(err)
	}
	if post.Status != entity.PostStatusPublished {
		return nil, apperror.Validation("Only published posts can be liked")
	}

	count, err := s.Repo.Like(ctx, viewer.UserID, postID)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyLiked) {
			return nil, apperror.Conflict("You have already liked this post")
		}
		return nil, apperror.Internal(err)
	}
	return &dto.LikeResult{PostID: postID, Liked: true, LikeCount: count}, nil
}

func (s *blogService) Unlike(ctx context.Context, viewer dto.Viewer, postID uint) (*dto.LikeResult, bool, error) {
	if _, err := s.Repo.FindPostByID(ctx, postID); err != nil {
		return nil, false, s.postError(err)
	}

	removed, count, err := s.Repo.Unlike(ctx, viewer.UserID, postID)
	if err != nil {
		return nil, false, apperror.Internal(err)
	}
	return &dto.LikeResult{PostID: postID, Liked: false, LikeCount: count}, removed, nil
}

func (s *blogService) ListTopics(ctx context.Context) ([]dto.TopicWithCount, error) {
	topics, err := s.Repo.ListTopics(ctx)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return topics, nil
}

func (s *blogService) topicError(err error) error {
	if errors.Is(err, repository.ErrTopicNotFound) {
		return apperror.NotFound("Topic not found")
	}
	return apperror.FromDB(err, "Topic not found", "A topic with this name or slug already exists")
}

func (s *blogService) CreateTopic(ctx context.Context, input dto.TopicInput) (*entity.BlogTopic, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperror.Validation("Name is required")
	}
	topicSlug := slug.Make(input.Slug)
	if topicSlug == "" {
		topicSlug = slug.Make(name)
	}
	if topicSlug == "" {
		return nil, apperror.Validation("Slug must contain letters or digits")
	}

	topic := &entity.BlogTopic{
		Name:        name,
		Slug:        topicSlug,
		Description: strings.TrimSpace(input.Description),
	}
	if err := s.Repo.CreateTopic(ctx, topic); err != nil {
		return nil, s.topicError(err)
	}
	return topic, nil
}

func (s *blogService) UpdateTopic(ctx context.Context, id uint, input dto.UpdateTopicInput) (*entity.BlogTopic, bool, error) {
	topic, err := s.Repo.FindTopicByID(ctx, id)
	if err != nil {
		return nil, false, s.topicError(err)
	}

	updates := make(map[string]any)
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, false, apperror.Validation("Name is required")
		}
		if name != topic.Name {
			updates["name"] = name
		}
	}
	if input.Slug != nil {
		topicSlug := slug.Make(*input.Slug)
		if topicSlug == "" {
			return nil, false, apperror.Validation("Slug must contain letters or digits")
		}
		if topicSlug != topic.Slug {
			updates["slug"] = topicSlug
		}
	}
	if input.Description != nil {
		if desc := strings.TrimSpace(*input.Description); desc != topic.Description {
			updates["description"] = desc
		}
	}

	if len(updates) == 0 {
		return topic, false, nil
	}
	if err := s.Repo.UpdateTopic(ctx, id, updates); err != nil {
		return nil, false, s.topicError(err)
	}

	updated, err := s.Repo.FindTopicByID(ctx, id)
	if err != nil {
		return nil, false, s.topicError(err)
	}
	return updated, true, nil
}

func (s *blogService) DeleteTopic(ctx context.Context, id uint) error {
	if err := s.Repo.DeleteTopic(ctx, id); err != nil {
		return s.topicError(err)
	}
	return nil
}

func (s *blogService) UploadImage(ctx context.Context, viewer dto.Viewer, file storage.Image) (string, error) {
	if s.Storage == nil {
		return "", apperror.Unavailable("Image storage is not configured")
	}
	body, err := storage.Inspect(file)
	switch {
	case errors.Is(err, storage.ErrImageTooLarge):
		return "", apperror.Validation("Image must be 5MB or smaller")
	case errors.Is(err, storage.ErrUnsupportedType):
		return "", apperror.Validation("Only jpg, jpeg, png, gif and webp images are allowed")
	case err != nil:
		return "", apperror.Validation("Could not read uploaded image")
	}
	file.Reader = body

	url, err := s.Storage.Upload(ctx, imageFolder, file)
	if err != nil {
		return "", apperror.Wrap(apperror.KindUnavailable, "Image upload failed", err)
	}

	log.Info().Uint("user_id", viewer.UserID).Str("url", url).Msg("blog image uploaded")
	return url, nil
}
