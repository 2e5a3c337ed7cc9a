package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/meilisearch/meilisearch-go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"pkujx.cn/library/internal/config"
	"pkujx.cn/library/internal/middleware"
	"pkujx.cn/library/internal/scheduler"
	"pkujx.cn/library/pkg/cache"
	"pkujx.cn/library/pkg/response"
	"pkujx.cn/library/pkg/sanitizer"
	"pkujx.cn/library/pkg/storage"

	adminHttp "pkujx.cn/library/internal/modules/admin/delivery/http"
	adminService "pkujx.cn/library/internal/modules/admin/service"

	blogHttp "pkujx.cn/library/internal/modules/blog/delivery/http"
	blogRepo "pkujx.cn/library/internal/modules/blog/repository"
	blogService "pkujx.cn/library/internal/modules/blog/service"

	bookHttp "pkujx.cn/library/internal/modules/book/delivery/http"
	bookRepo "pkujx.cn/library/internal/modules/book/repository"
	bookService "pkujx.cn/library/internal/modules/book/service"

	categoryHttp "pkujx.cn/library/internal/modules/category/delivery/http"
	categoryRepo "pkujx.cn/library/internal/modules/category/repository"
	categoryService "pkujx.cn/library/internal/modules/category/service"

	searchService "pkujx.cn/library/internal/modules/search/service"

	sessionRepo "pkujx.cn/library/internal/modules/session/repository"
	sessionService "pkujx.cn/library/internal/modules/session/service"

	settingHttp "pkujx.cn/library/internal/modules/setting/delivery/http"
	settingRepo "pkujx.cn/library/internal/modules/setting/repository"
	settingService "pkujx.cn/library/internal/modules/setting/service"

	statHttp "pkujx.cn/library/internal/modules/stat/delivery/http"
	statRepo "pkujx.cn/library/internal/modules/stat/repository"
	statService "pkujx.cn/library/internal/modules/stat/service"

	viewService "pkujx.cn/library/internal/modules/view/service"

	userHttp "pkujx.cn/library/internal/modules/user/delivery/http"
	userRepo "pkujx.cn/library/internal/modules/user/repository"
	userService "pkujx.cn/library/internal/modules/user/service"
)

// Deps are the external clients the server is built on. Only DB is required.
type Deps struct {
	DB           *gorm.DB
	Redis        *redis.Client
	Meili        meilisearch.ServiceManager
	ImageStorage storage.ImageStorage
}

type Server struct {
	engine *gin.Engine
	jobs   *scheduler.Scheduler
	views  viewService.ViewCounter
}

func NewServer(cfg *config.Config, deps Deps) (*Server, error) {
	if deps.DB == nil {
		return nil, errors.New("server: database is required")
	}
	db := deps.DB
	san := sanitizer.New()

	sessionSvc := sessionService.NewSessionService(sessionRepo.NewSessionRepository(db), cfg.Auth)
	authMiddleware := middleware.NewAuthMiddleware(sessionSvc)

	userRepository := userRepo.NewUserRepository(db)
	userSvc := userService.NewUserService(userRepository, sessionSvc, cfg.Auth)
	userHandler := userHttp.NewUserHandler(userSvc, sessionSvc)

	postIndexer := searchService.NewMeiliSearchService(deps.Meili, san)
	adminSvc := adminService.NewAdminService(userRepository, sessionSvc, postIndexer)
	adminHandler := adminHttp.NewAdminHandler(adminSvc)

	bookRepository := bookRepo.NewBookRepository(db)
	bookSvc := bookService.NewBookService(bookRepository, cfg.DefaultBorrowPeriod)
	bookHandler := bookHttp.NewBookHandler(bookSvc)

	categoryHandler := categoryHttp.NewCategoryHandler(categoryService.NewCategoryService(categoryRepo.NewCategoryRepository(db)))

	settingSvc := settingService.NewSettingService(settingRepo.NewSettingRepository(db), cache.New(deps.Redis), san, cfg.HTMLSettingKeys)
	settingHandler := settingHttp.NewSettingHandler(settingSvc)

	blogRepository := blogRepo.NewBlogRepository(db)
	views := viewService.NewViewCounter(deps.Redis, blogRepository)
	blogDeps := blogService.Deps{
		Repo:         blogRepository,
		Books:        bookRepository,
		Settings:     settingSvc,
		Sanitizer:    san,
		Indexer:      postIndexer,
		Redis:        deps.Redis,
		Storage:      deps.ImageStorage,
		Views:        views,
		PostCooldown: cfg.RateLimitPost,
	}
	blogHandler := blogHttp.NewBlogHandler(blogService.NewBlogService(blogDeps))

	statHandler := statHttp.NewStatHandler(statService.NewStatService(statRepo.NewStatRepository(db)))

	if cfg.AppEnv != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.Preflight())
	router.Use(middleware.CORS())
	router.Use(middleware.CORSFinalize())

	router.NoRoute(func(c *gin.Context) {
		response.Fail(c, http.StatusNotFound, "Not found")
	})

	requireAuth := authMiddleware.RequireAuth()
	requireAdmin := authMiddleware.RequireAdmin()
	optionalAuth := authMiddleware.OptionalAuth()

	// Book administration and circulation
	books := router.Group("")
	{
		books.POST("/addbooks", requireAdmin, bookHandler.AddBook)
		books.PUT("/editbook/:isbn", requireAdmin, bookHandler.EditBook)
		books.DELETE("/deletebooks", requireAdmin, bookHandler.DeleteBook)
		books.POST("/borrowbooks", requireAdmin, bookHandler.BorrowBook)
		books.PUT("/returnbooks", requireAdmin, bookHandler.ReturnBook)
		books.GET("/managebooks", requireAdmin, bookHandler.ManageBooks)
		books.GET("/searchbooks", requireAuth, bookHandler.SearchBooks)
	}

	api := router.Group("/api")

	// Account routes
	api.POST("/register", userHandler.Register)
	api.POST("/login", userHandler.Login)
	api.POST("/logout", userHandler.Logout)
	api.GET("/settings/:key", settingHandler.GetSetting)

	protected := api.Group("")
	protected.Use(requireAuth)
	{
		protected.GET("/user", userHandler.Me)
		protected.PUT("/user", userHandler.UpdateMe)
		protected.GET("/user/borrows", userHandler.MyBorrows)
		protected.GET("/books/:isbn", bookHandler.GetBook)
		protected.GET("/categories", categoryHandler.GetAllCategories)
		protected.GET("/stats/top-borrowers", statHandler.TopBorrowers)
	}

	api.PUT("/settings/:key", requireAdmin, settingHandler.UpsertSetting)

	adminGroup := api.Group("/admin")
	adminGroup.Use(requireAdmin)
	{
		adminGroup.GET("/users", adminHandler.GetAllUsers)
		adminGroup.POST("/users", adminHandler.CreateUser)
		adminGroup.GET("/users/:id", adminHandler.GetUser)
		adminGroup.PUT("/users/:id", adminHandler.UpdateUser)
		adminGroup.DELETE("/users/:id", adminHandler.DeleteUser)

		adminGroup.GET("/settings", settingHandler.ListSettings)
		adminGroup.GET("/settings/:key", settingHandler.GetSetting)
		adminGroup.PUT("/settings/:key", settingHandler.UpsertSetting)
		adminGroup.DELETE("/settings/:key", settingHandler.DeleteSetting)

		adminGroup.POST("/categories", categoryHandler.CreateCategory)
		adminGroup.DELETE("/categories/:id", categoryHandler.DeleteCategory)

		adminGroup.GET("/stats", statHandler.Dashboard)

		adminGroup.GET("/blog/posts", blogHandler.AdminListPosts)
		adminGroup.PUT("/blog/posts/:id/status", blogHandler.SetStatus)
		adminGroup.POST("/blog/topics", blogHandler.CreateTopic)
		adminGroup.PUT("/blog/topics/:id", blogHandler.UpdateTopic)
		adminGroup.DELETE("/blog/topics/:id", blogHandler.DeleteTopic)
	}

	blog := api.Group("/blog")
	{
		blog.GET("/posts", optionalAuth, blogHandler.ListPosts)
		blog.GET("/posts/:slug", optionalAuth, blogHandler.GetPost)
		blog.GET("/topics", blogHandler.ListTopics)
		blog.GET("/search", optionalAuth, blogHandler.Search)

		blog.GET("/my-posts", requireAuth, blogHandler.MyPosts)
		blog.POST("/posts", requireAuth, blogHandler.CreatePost)
		blog.PUT("/posts/:id", requireAuth, blogHandler.UpdatePost)
		blog.DELETE("/posts/:id", requireAuth, blogHandler.DeletePost)
		blog.POST("/posts/:id/like", requireAuth, blogHandler.Like)
		blog.DELETE("/posts/:id/like", requireAuth, blogHandler.Unlike)
		blog.POST("/images", requireAuth, blogHandler.UploadImage)
	}

	jobs, err := newJobs(cfg, sessionSvc, views)
	if err != nil {
		return nil, err
	}

	return &Server{
		engine: router,
		jobs:   jobs,
		views:  views,
	}, nil
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	s.jobs.Start()
	defer s.stopJobs()

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-serverErr:
		return err
	}
}

// Jobs exposes the background scheduler so jobs can be run on demand.
func (s *Server) Jobs() *scheduler.Scheduler {
	return s.jobs
}

func (s *Server) stopJobs() {
	s.jobs.Stop()
	if _, err := s.views.Flush(context.Background()); err != nil {
		log.Error().Err(err).Msg("final blog view sync failed")
	}
}

const (
	JobPurgeSessions = "purge-sessions"
	JobSyncViews     = "sync-views"
)

func newJobs(cfg *config.Config, sessions sessionService.SessionService, views viewService.ViewCounter) (*scheduler.Scheduler, error) {
	jobs := scheduler.New()

	err := jobs.Register(scheduler.Func{
		JobName: JobPurgeSessions,
		Spec:    scheduler.Every(cfg.SessionPurgeInterval),
		Fn: func(ctx context.Context) error {
			n, err := sessions.PurgeExpired(ctx)
			if err != nil {
				return err
			}
			log.Info().Int64("removed", n).Msg("expired sessions purged")
			return nil
		},
	})
	if err != nil {
		return nil, err
	}

	err = jobs.Register(scheduler.Func{
		JobName: JobSyncViews,
		Spec:    scheduler.Every(cfg.ViewSyncInterval),
		Fn: func(ctx context.Context) error {
			n, err := views.Flush(ctx)
			if n > 0 {
				log.Debug().Int("posts", n).Msg("blog views synced")
			}
			return err
		},
	})
	if err != nil {
		return nil, err
	}

	return jobs, nil
}
