package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"pkujx.cn/library/internal/config"
	"pkujx.cn/library/internal/entity"
	"pkujx.cn/library/internal/testutil"
)

type testServer struct {
	t       *testing.T
	db      *gorm.DB
	handler http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewDB(t)
	cfg := &config.Config{
		AppEnv:              "test",
		Auth:                testutil.AuthConfig(),
		DefaultBorrowPeriod: 30 * 24 * time.Hour,
		HTMLSettingKeys:     []string{"announcement"},
	}

	srv, err := NewServer(cfg, Deps{DB: db})
	require.NoError(t, err)
	return &testServer{t: t, db: db, handler: srv.Handler()}
}

func (s *testServer) do(method, path string, body any, cookie string) (*httptest.ResponseRecorder, map[string]any) {
	s.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &out)
	}
	return rec, out
}

// login returns a Cookie header value for the session.
func (s *testServer) login(email, password string) string {
	s.t.Helper()
	rec, body := s.do(http.MethodPost, "/api/login", map[string]string{"email": email, "password": password}, "")
	require.Equal(s.t, http.StatusOK, rec.Code, body)

	for _, c := range rec.Result().Cookies() {
		if c.Name == "library_session" {
			return c.Name + "=" + c.Value
		}
	}
	s.t.Fatal("login did not set a session cookie")
	return ""
}

func TestNewServerRequiresDatabase(t *testing.T) {
	_, err := NewServer(&config.Config{}, Deps{})
	assert.Error(t, err)
}

func TestRegisterLoginAndCurrentUser(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.do(http.MethodPost, "/api/register", map[string]string{
		"email": "a@qq.com", "password": "secret123", "username": "alice",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code, body)
	assert.Equal(t, true, body["success"])

	rec, _ = s.do(http.MethodPost, "/api/register", map[string]string{
		"email": "a@qq.com", "password": "secret123", "username": "alice",
	}, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = s.do(http.MethodPost, "/api/register", map[string]string{
		"email": "x@unknown.org", "password": "secret123", "username": "xavier",
	}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = s.do(http.MethodPost, "/api/login", map[string]string{"email": "a@qq.com", "password": "wrong-pass"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid email or password", body["message"])

	cookie := s.login("a@qq.com", "secret123")

	rec, body = s.do(http.MethodGet, "/api/user", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code, body)
	user := body["user"].(map[string]any)
	assert.Equal(t, "a@qq.com", user["email"])
	assert.Equal(t, "student", user["role"])

	rec, body = s.do(http.MethodGet, "/api/user", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthorized: No cookie provided", body["message"])

	rec, _ = s.do(http.MethodPost, "/api/logout", nil, cookie)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, body = s.do(http.MethodGet, "/api/user", nil, cookie)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthorized: Invalid or expired session", body["message"])
}

func TestCORSAndNotFound(t *testing.T) {
	s := newTestServer(t)

	preflight := func(path, origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, path, nil)
		if origin != "" {
			req.Header.Set("Origin", origin)
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		}
		rec := httptest.NewRecorder()
		s.handler.ServeHTTP(rec, req)
		return rec
	}

	for _, tc := range []struct {
		path, origin, wantOrigin string
	}{
		{"/api/anything", "", "*"},
		{"/addbooks", "", "*"},
		{"/addbooks", "http://reader.example", "http://reader.example"},
		{"/api/blog/posts", "http://reader.example", "http://reader.example"},
	} {
		rec := preflight(tc.path, tc.origin)
		assert.Equal(t, http.StatusNoContent, rec.Code, tc.path)
		assert.Equal(t, tc.wantOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
		assert.Equal(t, "GET, POST, PUT, DELETE, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
		assert.Equal(t, "Content-Type, Authorization, Cookie, X-Requested-With", rec.Header().Get("Access-Control-Allow-Headers"))
		assert.Equal(t, "86400", rec.Header().Get("Access-Control-Max-Age"))
	}

	req := httptest.NewRequest(http.MethodGet, "/nowhere", nil)
	req.Header.Set("Origin", "http://reader.example")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"Not found"}`, rec.Body.String())
	assert.Equal(t, "http://reader.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestAdminRoutesRejectStudents(t *testing.T) {
	s := newTestServer(t)
	testutil.CreateUser(t, s.db, "stu@qq.com", "stu", entity.RoleStudent)
	cookie := s.login("stu@qq.com", "secret123")

	rec, body := s.do(http.MethodGet, "/api/admin/users", nil, cookie)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Forbidden: Insufficient privileges", body["message"])

	rec, _ = s.do(http.MethodPost, "/addbooks", map[string]any{"isbn": "1", "title": "t", "author": "a"}, cookie)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = s.do(http.MethodGet, "/api/admin/users/abc", nil, cookie)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestBorrowFlowOverHTTP(t *testing.T) {
	s := newTestServer(t)
	testutil.CreateUser(t, s.db, "root@pkujx.cn", "root", entity.RoleAdmin)
	reader := testutil.CreateUser(t, s.db, "r@qq.com", "reader", entity.RoleStudent)
	admin := s.login("root@pkujx.cn", "secret123")

	rec, body := s.do(http.MethodPost, "/addbooks", map[string]any{
		"isbn": "978-7", "title": "Walden", "author": "Thoreau", "total_copies": 1,
	}, admin)
	require.Equal(t, http.StatusCreated, rec.Code, body)

	rec, body = s.do(http.MethodPost, "/borrowbooks", map[string]any{"isbn": "978-7", "user_id": reader.ID}, admin)
	require.Equal(t, http.StatusCreated, rec.Code, body)

	rec, _ = s.do(http.MethodPost, "/borrowbooks", map[string]any{"isbn": "978-7", "user_id": reader.ID}, admin)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, body = s.do(http.MethodGet, "/managebooks?action=borrowed_records", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code, body)
	assert.Len(t, body["data"], 1)

	rec, _ = s.do(http.MethodGet, "/managebooks?action=bogus", nil, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = s.do(http.MethodPut, "/returnbooks", map[string]any{"isbn": "978-7", "user_id": reader.ID}, admin)
	require.Equal(t, http.StatusOK, rec.Code, body)

	readerCookie := s.login("r@qq.com", "secret123")
	rec, body = s.do(http.MethodGet, "/api/books/978-7", nil, readerCookie)
	require.Equal(t, http.StatusOK, rec.Code, body)
	assert.Contains(t, rec.Body.String(), `"available_copies":1`)

	rec, body = s.do(http.MethodGet, "/api/admin/stats", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code, body)
}

func TestBlogRoutes(t *testing.T) {
	s := newTestServer(t)
	testutil.CreateUser(t, s.db, "w@qq.com", "writer", entity.RoleStudent)
	cookie := s.login("w@qq.com", "secret123")

	rec, body := s.do(http.MethodPost, "/api/blog/posts", map[string]any{
		"title": "First thoughts", "content": "<p>Hello <script>x</script>world</p>",
	}, cookie)
	require.Equal(t, http.StatusCreated, rec.Code, body)
	post := body["post"].(map[string]any)
	assert.Equal(t, entity.PostStatusPendingReview, post["status"], "review defaults to on")
	assert.NotContains(t, post["content"], "script")

	rec, body = s.do(http.MethodGet, "/api/blog/posts", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, body["data"])

	rec, _ = s.do(http.MethodPut, "/api/blog/posts/12x", map[string]any{"title": "x"}, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = s.do(http.MethodGet, "/api/blog/search", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = s.do(http.MethodGet, "/api/blog/my-posts", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["data"], 1)

	req := httptest.NewRequest(http.MethodPost, "/api/blog/images", strings.NewReader("not multipart"))
	req.Header.Set("Cookie", cookie)
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBackgroundJobs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := testutil.NewDB(t)
	cfg := &config.Config{
		AppEnv:               "test",
		Auth:                 testutil.AuthConfig(),
		DefaultBorrowPeriod:  24 * time.Hour,
		SessionPurgeInterval: time.Hour,
		ViewSyncInterval:     time.Minute,
	}
	srv, err := NewServer(cfg, Deps{DB: db})
	require.NoError(t, err)

	assert.Equal(t, []string{JobPurgeSessions, JobSyncViews}, srv.Jobs().Names())

	user := testutil.CreateUser(t, db, "old@qq.com", "old", entity.RoleStudent)
	require.NoError(t, db.Create(&entity.Session{
		ID:       strings.Repeat("a", 64),
		UserID:   user.ID,
		Email:    user.Email,
		Username: user.Username,
		Role:     user.Role,
		Expiry:   time.Now().Add(-time.Minute).UnixMilli(),
	}).Error)

	require.NoError(t, srv.Jobs().Run(context.Background(), JobPurgeSessions))

	var count int64
	require.NoError(t, db.Model(&entity.Session{}).Count(&count).Error)
	assert.Zero(t, count)

	require.NoError(t, srv.Jobs().Run(context.Background(), JobSyncViews))
}

func TestRedisBackedBlogFlow(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := testutil.NewDB(t)
	rdb, mr := testutil.NewRedis(t)
	cfg := &config.Config{
		AppEnv:              "test",
		Auth:                testutil.AuthConfig(),
		DefaultBorrowPeriod: 24 * time.Hour,
		RateLimitPost:       30 * time.Second,
		ViewSyncInterval:    time.Minute,
	}
	srv, err := NewServer(cfg, Deps{DB: db, Redis: rdb})
	require.NoError(t, err)
	s := &testServer{t: t, db: db, handler: srv.Handler()}

	testutil.CreateUser(t, db, "writer@qq.com", "writer", entity.RoleStudent)
	cookie := s.login("writer@qq.com", "secret123")

	rec, body := s.do(http.MethodPost, "/api/blog/posts", map[string]any{"title": "One", "content": "<p>one</p>"}, cookie)
	require.Equal(t, http.StatusCreated, rec.Code, body)

	rec, body = s.do(http.MethodPost, "/api/blog/posts", map[string]any{"title": "Two", "content": "<p>two</p>"}, cookie)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))

	post := entity.BlogPost{
		Title: "Buffered", Slug: "buffered", Content: "<p>b</p>", UserID: 999, Username: "someone",
		Status: entity.PostStatusPublished, Visibility: entity.VisibilityPublic,
	}
	require.NoError(t, db.Create(&post).Error)

	for i := 0; i < 2; i++ {
		rec, _ = s.do(http.MethodGet, "/api/blog/posts/buffered", nil, "")
		require.Equal(t, http.StatusOK, rec.Code)
	}

	var stored entity.BlogPost
	require.NoError(t, db.First(&stored, post.ID).Error)
	assert.Zero(t, stored.ViewCount, "views stay buffered until the sync job runs")
	buffered, err := mr.Get(fmt.Sprintf("blog:views:%d", post.ID))
	require.NoError(t, err)
	assert.Equal(t, "2", buffered)

	require.NoError(t, srv.Jobs().Run(context.Background(), JobSyncViews))
	require.NoError(t, db.First(&stored, post.ID).Error)
	assert.Equal(t, int64(2), stored.ViewCount)
}
