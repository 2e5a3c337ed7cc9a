package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"pkujx.cn/library/internal/entity"
	"pkujx.cn/library/internal/modules/blog/dto"
	"pkujx.cn/library/internal/modules/blog/repository"
	bookRepo "pkujx.cn/library/internal/modules/book/repository"
	settingDto "pkujx.cn/library/internal/modules/setting/dto"
	settingRepo "pkujx.cn/library/internal/modules/setting/repository"
	setting "pkujx.cn/library/internal/modules/setting/service"
	"pkujx.cn/library/internal/testutil"
	"pkujx.cn/library/pkg/apperror"
	commonDto "pkujx.cn/library/pkg/dto"
	"pkujx.cn/library/pkg/cache"
	"pkujx.cn/library/pkg/ratelimiter"
	"pkujx.cn/library/pkg/sanitizer"
	"pkujx.cn/library/pkg/storage"
)

type mockIndexer struct {
	mock.Mock
}

func (m *mockIndexer) Enabled() bool {
	return m.Called().Bool(0)
}

func (m *mockIndexer) IndexPost(post *entity.BlogPost) error {
	return m.Called(post.ID, post.Status).Error(0)
}

func (m *mockIndexer) DeletePost(id uint) error {
	return m.Called(id).Error(0)
}

func (m *mockIndexer) SearchPostIDs(query string, offset, limit int) ([]uint, int64, error) {
	args := m.Called(query, offset, limit)
	ids, _ := args.Get(0).([]uint)
	return ids, args.Get(1).(int64), args.Error(2)
}

type mockStorage struct {
	mock.Mock
}

func (m *mockStorage) Upload(ctx context.Context, folder string, img storage.Image) (string, error) {
	body, _ := io.ReadAll(img.Reader)
	args := m.Called(folder, img.FileName, body)
	return args.String(0), args.Error(1)
}

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

type fixture struct {
	db       *gorm.DB
	svc      BlogService
	settings setting.SettingService
	author   dto.Viewer
	other    dto.Viewer
	admin    dto.Viewer
}

func newFixture(t *testing.T, indexer *mockIndexer) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	san := sanitizer.New()
	settings := setting.NewSettingService(settingRepo.NewSettingRepository(db), cache.New(nil), san, nil)

	deps := Deps{
		Repo:      repository.NewBlogRepository(db),
		Books:     bookRepo.NewBookRepository(db),
		Settings:  settings,
		Sanitizer: san,
	}
	if indexer != nil {
		deps.Indexer = indexer
	}

	author := testutil.CreateUser(t, db, "ann@qq.com", "ann", entity.RoleStudent)
	other := testutil.CreateUser(t, db, "ben@qq.com", "ben", entity.RoleStudent)
	admin := testutil.CreateUser(t, db, "root@pkujx.cn", "root", entity.RoleAdmin)

	return &fixture{
		db:       db,
		svc:      NewBlogService(deps),
		settings: settings,
		author:   dto.Viewer{UserID: author.ID, Username: author.Username, Role: author.Role},
		other:    dto.Viewer{UserID: other.ID, Username: other.Username, Role: other.Role},
		admin:    dto.Viewer{UserID: admin.ID, Username: admin.Username, Role: admin.Role},
	}
}

func (f *fixture) requireReview(t *testing.T, on bool) {
	t.Helper()
	value := "false"
	if on {
		value = "true"
	}
	_, _, err := f.settings.Upsert(context.Background(), entity.SettingBlogRequiresReview, settingDto.UpsertSettingInput{Value: &value})
	require.NoError(t, err)
}

func (f *fixture) publish(t *testing.T, viewer dto.Viewer, title string) *entity.BlogPost {
	t.Helper()
	f.requireReview(t, false)
	post, err := f.svc.CreatePost(context.Background(), viewer, dto.CreatePostInput{Title: title, Content: "<p>" + title + " body</p>"})
	require.NoError(t, err)
	require.Equal(t, entity.PostStatusPublished, post.Status)
	return post
}

func strPtr(s string) *string { return &s }

func TestCreatePostStatusRule(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	tests := []struct {
		name    string
		viewer  dto.Viewer
		review  bool
		status  string
		want    string
		wantErr int
	}{
		{name: "review on", viewer: f.author, review: true, want: entity.PostStatusPendingReview},
		{name: "review off", viewer: f.author, review: false, want: entity.PostStatusPublished},
		{name: "explicit draft", viewer: f.author, review: false, status: "draft", want: entity.PostStatusDraft},
		{name: "user asks published under review", viewer: f.author, review: true, status: "published", want: entity.PostStatusPendingReview},
		{name: "submit", viewer: f.author, review: true, status: "submit", want: entity.PostStatusPendingReview},
		{name: "user asks archived", viewer: f.author, review: false, status: "archived", wantErr: http.StatusBadRequest},
		{name: "admin explicit", viewer: f.admin, review: true, status: "published", want: entity.PostStatusPublished},
		{name: "admin default", viewer: f.admin, review: true, want: entity.PostStatusPendingReview},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.requireReview(t, tt.review)
			post, err := f.svc.CreatePost(ctx, tt.viewer, dto.CreatePostInput{
				Title:   "Status " + tt.name,
				Content: "<p>hello</p>",
				Status:  tt.status,
			})
			if tt.wantErr != 0 {
				assert.Equal(t, tt.wantErr, apperror.Status(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, post.Status)
			assert.Equal(t, tt.want == entity.PostStatusPublished, post.PublishedAt != nil)
		})
	}
}

func TestCreatePostSanitizesAndDerivesFields(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	testutil.CreateBook(t, f.db, "978-1", "Dune", 1, 1)

	post, err := f.svc.CreatePost(ctx, f.author, dto.CreatePostInput{
		Title:    "Reading Dune!",
		Content:  `<p onclick="x()">Spice <script>alert(1)</script>must flow</p>`,
		BookISBN: strPtr("978-1"),
		TopicIDs: []uint{},
	})
	require.NoError(t, err)

	assert.NotContains(t, post.Content, "script")
	assert.NotContains(t, post.Content, "onclick")
	assert.Equal(t, "Spice must flow", post.Excerpt)
	assert.True(t, strings.HasPrefix(post.Slug, "reading-dune-"), post.Slug)
	require.NotNil(t, post.BookTitle)
	assert.Equal(t, "Dune", *post.BookTitle)
	assert.Equal(t, entity.VisibilityPublic, post.Visibility)

	_, err = f.svc.CreatePost(ctx, f.author, dto.CreatePostInput{Title: "x", Content: "<p>x</p>", BookISBN: strPtr("nope")})
	assert.Equal(t, http.StatusNotFound, apperror.Status(err))

	_, err = f.svc.CreatePost(ctx, f.author, dto.CreatePostInput{Title: "x", Content: "<p>x</p>", TopicIDs: []uint{9999}})
	assert.Equal(t, http.StatusNotFound, apperror.Status(err))

	_, err = f.svc.CreatePost(ctx, f.author, dto.CreatePostInput{Title: "x", Content: "<script>only</script>"})
	assert.Equal(t, http.StatusBadRequest, apperror.Status(err))
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "short", Excerpt("short", 200))

	long := strings.Repeat("word ", 100)
	got := Excerpt(long, 200)
	assert.LessOrEqual(t, utf8.RuneCountInString(got), 200)
	assert.True(t, strings.HasSuffix(got, "…"))

	cjk := strings.Repeat("书", 300)
	assert.Equal(t, 200, utf8.RuneCountInString(Excerpt(cjk, 200)))
}

func TestExcerptKeepsEscapedMarkupEscaped(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	post, err := f.svc.CreatePost(ctx, f.author, dto.CreatePostInput{
		Title:   "Entities",
		Content: `<p>hi &lt;img src=x onerror=alert(1)&gt;</p>`,
	})
	require.NoError(t, err)
	assert.Equal(t, "hi &lt;img src=x onerror=alert(1)&gt;", post.Excerpt)
	assert.NotContains(t, post.Excerpt, "<img")

	given := "<b>Tom &amp; Jerry</b> &lt;script&gt;"
	post, err = f.svc.CreatePost(ctx, f.admin, dto.CreatePostInput{
		Title:   "Given excerpt",
		Content: "<p>body</p>",
		Excerpt: &given,
	})
	require.NoError(t, err)
	assert.Equal(t, "Tom &amp; Jerry &lt;script&gt;", post.Excerpt)
}

func TestListAndGetRespectVisibility(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	public := f.publish(t, f.author, "Open post")
	members, err := f.svc.CreatePost(ctx, f.author, dto.CreatePostInput{Title: "Members post", Content: "<p>m</p>", Visibility: entity.VisibilityMembers})
	require.NoError(t, err)
	draft, err := f.svc.CreatePost(ctx, f.author, dto.CreatePostInput{Title: "Draft post", Content: "<p>d</p>", Status: "draft"})
	require.NoError(t, err)

	posts, meta, err := f.svc.ListPublished(ctx, dto.Viewer{}, dto.ListPostsQuery{})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, public.ID, posts[0].ID)
	assert.Equal(t, int64(1), meta.TotalItems)

	posts, _, err = f.svc.ListPublished(ctx, f.other, dto.ListPostsQuery{})
	require.NoError(t, err)
	assert.Len(t, posts, 2)

	_, err = f.svc.GetPost(ctx, dto.Viewer{}, members.Slug)
	assert.Equal(t, http.StatusNotFound, apperror.Status(err))

	_, err = f.svc.GetPost(ctx, f.other, draft.Slug)
	assert.Equal(t, http.StatusNotFound, apperror.Status(err))

	own, err := f.svc.GetPost(ctx, f.author, draft.Slug)
	require.NoError(t, err)
	assert.Equal(t, int64(0), own.ViewCount)

	detail, err := f.svc.GetPost(ctx, f.other, public.Slug)
	require.NoError(t, err)
	assert.Equal(t, int64(1), detail.ViewCount)
	assert.False(t, detail.Liked)

	detail, err = f.svc.GetPost(ctx, f.author, public.Slug)
	require.NoError(t, err)
	assert.Equal(t, int64(1), detail.ViewCount, "author views are not counted")

	mine, meta, err := f.svc.MyPosts(ctx, f.author, commonDto.PageQuery{})
	require.NoError(t, err)
	assert.Len(t, mine, 3)
	assert.Equal(t, int64(3), meta.TotalItems)
}

func TestUpdatePostPermissionsAndChanges(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	post := f.publish(t, f.author, "Editable")

	_, _, err := f.svc.UpdatePost(ctx, f.other, post.ID, dto.UpdatePostInput{Title: strPtr("Hijack")})
	assert.Equal(t, http.StatusForbidden, apperror.Status(err))

	_, changed, err := f.svc.UpdatePost(ctx, f.author, post.ID, dto.UpdatePostInput{Title: strPtr("Editable")})
	require.NoError(t, err)
	assert.False(t, changed)

	updated, changed, err := f.svc.UpdatePost(ctx, f.author, post.ID, dto.UpdatePostInput{
		Content: strPtr("<p>New <b>text</b></p>"),
	})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "New text", updated.Excerpt)
	assert.Equal(t, post.Slug, updated.Slug)

	_, _, err = f.svc.UpdatePost(ctx, f.author, post.ID, dto.UpdatePostInput{Status: strPtr("archived")})
	assert.Equal(t, http.StatusBadRequest, apperror.Status(err))

	updated, changed, err = f.svc.UpdatePost(ctx, f.author, post.ID, dto.UpdatePostInput{Status: strPtr("draft")})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, entity.PostStatusDraft, updated.Status)

	updated, _, err = f.svc.UpdatePost(ctx, f.admin, post.ID, dto.UpdatePostInput{Status: strPtr("archived")})
	require.NoError(t, err)
	assert.Equal(t, entity.PostStatusArchived, updated.Status)

	_, _, err = f.svc.UpdatePost(ctx, f.admin, 9999, dto.UpdatePostInput{Title: strPtr("x")})
	assert.Equal(t, http.StatusNotFound, apperror.Status(err))
}

func TestUpdatePostTopicsAndBook(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	testutil.CreateBook(t, f.db, "978-2", "Emma", 1, 1)

	t1, err := f.svc.CreateTopic(ctx, dto.TopicInput{Name: "Classics"})
	require.NoError(t, err)
	t2, err := f.svc.CreateTopic(ctx, dto.TopicInput{Name: "Romance"})
	require.NoError(t, err)

	f.requireReview(t, false)
	post, err := f.svc.CreatePost(ctx, f.author, dto.CreatePostInput{
		Title: "On Emma", Content: "<p>e</p>", BookISBN: strPtr("978-2"), TopicIDs: []uint{t1.ID},
	})
	require.NoError(t, err)

	updated, changed, err := f.svc.UpdatePost(ctx, f.author, post.ID, dto.UpdatePostInput{TopicIDs: &[]uint{t2.ID, t1.ID}})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Len(t, updated.Topics, 2)

	_, changed, err = f.svc.UpdatePost(ctx, f.author, post.ID, dto.UpdatePostInput{TopicIDs: &[]uint{t1.ID, t2.ID}})
	require.NoError(t, err)
	assert.False(t, changed)

	updated, changed, err = f.svc.UpdatePost(ctx, f.author, post.ID, dto.UpdatePostInput{BookISBN: strPtr("")})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Nil(t, updated.BookISBN)
	assert.Nil(t, updated.BookTitle)

	topics, err := f.svc.ListTopics(ctx)
	require.NoError(t, err)
	counts := map[string]int64{}
	for _, topic := range topics {
		counts[topic.Slug] = topic.PostCount
	}
	assert.Equal(t, int64(1), counts["classics"])
	assert.Equal(t, int64(1), counts["romance"])
}

func TestLikeAndUnlike(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	post := f.publish(t, f.author, "Likeable")

	res, err := f.svc.Like(ctx, f.other, post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.LikeCount)
	assert.True(t, res.Liked)

	_, err = f.svc.Like(ctx, f.other, post.ID)
	assert.Equal(t, http.StatusConflict, apperror.Status(err))

	res, err = f.svc.Like(ctx, f.author, post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.LikeCount)

	detail, err := f.svc.GetPost(ctx, f.other, post.Slug)
	require.NoError(t, err)
	assert.True(t, detail.Liked)

	res, removed, err := f.svc.Unlike(ctx, f.other, post.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, int64(1), res.LikeCount)

	res, removed, err = f.svc.Unlike(ctx, f.other, post.ID)
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Equal(t, int64(1), res.LikeCount)

	draft, err := f.svc.CreatePost(ctx, f.author, dto.CreatePostInput{Title: "Hidden", Content: "<p>h</p>", Status: "draft"})
	require.NoError(t, err)
	_, err = f.svc.Like(ctx, f.other, draft.ID)
	assert.Equal(t, http.StatusBadRequest, apperror.Status(err))

	_, err = f.svc.Like(ctx, f.other, 9999)
	assert.Equal(t, http.StatusNotFound, apperror.Status(err))
}

func TestDeletePostCascadesAndUnindexes(t *testing.T) {
	indexer := &mockIndexer{}
	indexer.On("IndexPost", mock.Anything, mock.Anything).Return(nil)
	f := newFixture(t, indexer)
	ctx := context.Background()

	topic, err := f.svc.CreateTopic(ctx, dto.TopicInput{Name: "Essays"})
	require.NoError(t, err)
	f.requireReview(t, false)
	post, err := f.svc.CreatePost(ctx, f.author, dto.CreatePostInput{Title: "Gone soon", Content: "<p>g</p>", TopicIDs: []uint{topic.ID}})
	require.NoError(t, err)
	_, err = f.svc.Like(ctx, f.other, post.ID)
	require.NoError(t, err)

	err = f.svc.DeletePost(ctx, f.other, post.ID)
	assert.Equal(t, http.StatusForbidden, apperror.Status(err))

	indexer.On("DeletePost", post.ID).Return(errors.New("index offline")).Once()
	require.NoError(t, f.svc.DeletePost(ctx, f.author, post.ID))

	var links, likes int64
	require.NoError(t, f.db.Table("blog_post_topics").Where("blog_post_id = ?", post.ID).Count(&links).Error)
	require.NoError(t, f.db.Model(&entity.BlogPostLike{}).Where("post_id = ?", post.ID).Count(&likes).Error)
	assert.Zero(t, links)
	assert.Zero(t, likes)

	err = f.svc.DeletePost(ctx, f.author, post.ID)
	assert.Equal(t, http.StatusNotFound, apperror.Status(err))

	indexer.AssertExpectations(t)
}

func TestModeration(t *testing.T) {
	indexer := &mockIndexer{}
	indexer.On("IndexPost", mock.Anything, mock.Anything).Return(nil)
	f := newFixture(t, indexer)
	ctx := context.Background()

	f.requireReview(t, true)
	post, err := f.svc.CreatePost(ctx, f.author, dto.CreatePostInput{Title: "Needs review", Content: "<p>r</p>"})
	require.NoError(t, err)
	require.Nil(t, post.PublishedAt)

	pending, meta, err := f.svc.AdminListPosts(ctx, dto.AdminListQuery{Status: entity.PostStatusPendingReview})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, int64(1), meta.TotalItems)

	published, changed, err := f.svc.SetStatus(ctx, post.ID, entity.PostStatusPublished)
	require.NoError(t, err)
	assert.True(t, changed)
	require.NotNil(t, published.PublishedAt)
	first := *published.PublishedAt

	_, changed, err = f.svc.SetStatus(ctx, post.ID, entity.PostStatusPublished)
	require.NoError(t, err)
	assert.False(t, changed)

	_, _, err = f.svc.SetStatus(ctx, post.ID, entity.PostStatusArchived)
	require.NoError(t, err)
	again, _, err := f.svc.SetStatus(ctx, post.ID, entity.PostStatusPublished)
	require.NoError(t, err)
	assert.True(t, first.Equal(*again.PublishedAt), "published_at is stamped only once")

	_, _, err = f.svc.SetStatus(ctx, post.ID, "bogus")
	assert.Equal(t, http.StatusBadRequest, apperror.Status(err))

	indexer.AssertCalled(t, "IndexPost", post.ID, entity.PostStatusPublished)
}

func TestTopics(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	topic, err := f.svc.CreateTopic(ctx, dto.TopicInput{Name: "Science Fiction"})
	require.NoError(t, err)
	assert.Equal(t, "science-fiction", topic.Slug)

	_, err = f.svc.CreateTopic(ctx, dto.TopicInput{Name: "Science Fiction"})
	assert.Equal(t, http.StatusConflict, apperror.Status(err))

	updated, changed, err := f.svc.UpdateTopic(ctx, topic.ID, dto.UpdateTopicInput{Slug: strPtr("SF")})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "sf", updated.Slug)

	_, changed, err = f.svc.UpdateTopic(ctx, topic.ID, dto.UpdateTopicInput{Name: strPtr("Science Fiction")})
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = f.svc.CreateTopic(ctx, dto.TopicInput{Name: "   "})
	assert.Equal(t, http.StatusBadRequest, apperror.Status(err))
	_, _, err = f.svc.UpdateTopic(ctx, topic.ID, dto.UpdateTopicInput{Name: strPtr("   ")})
	assert.Equal(t, http.StatusBadRequest, apperror.Status(err))

	f.requireReview(t, false)
	post, err := f.svc.CreatePost(ctx, f.author, dto.CreatePostInput{Title: "Robots", Content: "<p>r</p>", TopicIDs: []uint{topic.ID}})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteTopic(ctx, topic.ID))
	err = f.svc.DeleteTopic(ctx, topic.ID)
	assert.Equal(t, http.StatusNotFound, apperror.Status(err))

	detail, err := f.svc.GetPost(ctx, f.other, post.Slug)
	require.NoError(t, err)
	assert.Empty(t, detail.Topics)
}

func TestSearchFallsBackToDatabase(t *testing.T) {
	indexer := &mockIndexer{}
	indexer.On("IndexPost", mock.Anything, mock.Anything).Return(nil)
	indexer.On("Enabled").Return(true)
	indexer.On("SearchPostIDs", "dragons", 0, 10).Return(nil, int64(0), errors.New("meili down"))
	f := newFixture(t, indexer)
	ctx := context.Background()

	f.publish(t, f.author, "Here be dragons")
	f.publish(t, f.author, "Quiet gardens")

	posts, meta, err := f.svc.Search(ctx, dto.Viewer{}, dto.SearchQuery{Query: "dragons"})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "Here be dragons", posts[0].Title)
	assert.Equal(t, int64(1), meta.TotalItems)
}

func TestSearchUsesIndexOrder(t *testing.T) {
	indexer := &mockIndexer{}
	indexer.On("IndexPost", mock.Anything, mock.Anything).Return(nil)
	f := newFixture(t, indexer)
	ctx := context.Background()

	a := f.publish(t, f.author, "Alpha")
	b := f.publish(t, f.author, "Beta")

	indexer.On("Enabled").Return(true)
	indexer.On("SearchPostIDs", "greek", 0, 10).Return([]uint{b.ID, 9999, a.ID}, int64(3), nil)

	posts, meta, err := f.svc.Search(ctx, dto.Viewer{}, dto.SearchQuery{Query: "greek"})
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, b.ID, posts[0].ID)
	assert.Equal(t, a.ID, posts[1].ID)
	assert.Equal(t, int64(3), meta.TotalItems)
}

func TestUploadImage(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	png := func(name string, size int64) storage.Image {
		return storage.Image{Reader: bytes.NewReader(pngBytes), FileName: name, Size: size}
	}

	_, err := f.svc.UploadImage(ctx, f.author, png("a.png", 1))
	assert.Equal(t, http.StatusServiceUnavailable, apperror.Status(err))

	store := &mockStorage{}
	store.On("Upload", "blog", "cover.PNG", pngBytes).Return("https://cdn.example/cover.webp", nil)
	svc := NewBlogService(Deps{
		Repo:      repository.NewBlogRepository(f.db),
		Sanitizer: sanitizer.New(),
		Storage:   store,
	})

	_, err = svc.UploadImage(ctx, f.author, png("notes.pdf", 1))
	assert.Equal(t, http.StatusBadRequest, apperror.Status(err))

	_, err = svc.UploadImage(ctx, f.author, png("big.png", storage.MaxImageSize+1))
	assert.Equal(t, http.StatusBadRequest, apperror.Status(err))

	_, err = svc.UploadImage(ctx, f.author, storage.Image{Reader: strings.NewReader("not an image"), FileName: "fake.png", Size: 12})
	assert.Equal(t, http.StatusBadRequest, apperror.Status(err))

	url, err := svc.UploadImage(ctx, f.author, png("cover.PNG", int64(len(pngBytes))))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/cover.webp", url)
	store.AssertExpectations(t)
}

type failingCreateRepo struct {
	repository.BlogRepository
}

func (r failingCreateRepo) CreatePost(ctx context.Context, post *entity.BlogPost) error {
	return errors.New("insert failed")
}

func TestPostCooldown(t *testing.T) {
	f := newFixture(t, nil)
	rdb, mr := testutil.NewRedis(t)
	ctx := context.Background()

	svc := NewBlogService(Deps{
		Repo:         repository.NewBlogRepository(f.db),
		Settings:     f.settings,
		Sanitizer:    sanitizer.New(),
		Redis:        rdb,
		PostCooldown: 30 * time.Second,
	})
	input := func(title string) dto.CreatePostInput {
		return dto.CreatePostInput{Title: title, Content: "<p>" + title + "</p>"}
	}

	_, err := svc.CreatePost(ctx, f.author, input("First"))
	require.NoError(t, err)

	_, err = svc.CreatePost(ctx, f.author, input("Second"))
	require.Error(t, err)
	assert.Equal(t, http.StatusTooManyRequests, apperror.Status(err))
	var limited *ratelimiter.RateLimitError
	require.True(t, errors.As(err, &limited))
	assert.InDelta(t, 30, limited.RetryAfter.Seconds(), 1)

	_, err = svc.CreatePost(ctx, f.other, input("Someone else"))
	assert.NoError(t, err)

	_, err = svc.CreatePost(ctx, f.admin, input("Admin one"))
	require.NoError(t, err)
	_, err = svc.CreatePost(ctx, f.admin, input("Admin two"))
	assert.NoError(t, err)

	mr.FastForward(31 * time.Second)
	_, err = svc.CreatePost(ctx, f.author, input("After the wait"))
	assert.NoError(t, err)
}

func TestPostCooldownReleasedWhenInsertFails(t *testing.T) {
	f := newFixture(t, nil)
	rdb, mr := testutil.NewRedis(t)
	ctx := context.Background()

	repo := repository.NewBlogRepository(f.db)
	deps := Deps{
		Repo:         failingCreateRepo{BlogRepository: repo},
		Settings:     f.settings,
		Sanitizer:    sanitizer.New(),
		Redis:        rdb,
		PostCooldown: time.Minute,
	}

	_, err := NewBlogService(deps).CreatePost(ctx, f.author, dto.CreatePostInput{Title: "Lost", Content: "<p>x</p>"})
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, apperror.Status(err))
	assert.False(t, mr.Exists(fmt.Sprintf("rate_limit:user:%d:%s", f.author.UserID, ratelimiter.ScopeBlogPost)))

	deps.Repo = repo
	_, err = NewBlogService(deps).CreatePost(ctx, f.author, dto.CreatePostInput{Title: "Saved", Content: "<p>x</p>"})
	assert.NoError(t, err)
}
