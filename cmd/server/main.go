package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/meilisearch/meilisearch-go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"pkujx.cn/library/internal/bootstrap"
	"pkujx.cn/library/internal/config"
	"pkujx.cn/library/internal/server"
	"pkujx.cn/library/pkg/database"
	"pkujx.cn/library/pkg/logger"
	"pkujx.cn/library/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	logger.Setup(cfg.AppEnv)

	db, err := database.Open(cfg.DatabaseOptions())
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	if err := bootstrap.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}
	if err := bootstrap.SeedSettings(db); err != nil {
		log.Fatal().Err(err).Msg("failed to seed settings")
	}
	if err := bootstrap.SeedTopics(db); err != nil {
		log.Fatal().Err(err).Msg("failed to seed blog topics")
	}
	if cfg.AppEnv == "development" {
		if err := bootstrap.SeedAdminUser(db); err != nil {
			log.Fatal().Err(err).Msg("failed to seed admin user")
		}
	}

	deps := server.Deps{DB: db}

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid REDIS_URL")
		}
		rdb := redis.NewClient(opts)
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Warn().Err(err).Msg("redis unreachable, caching and rate limiting degrade until it returns")
		}
		defer rdb.Close()
		deps.Redis = rdb
	} else {
		log.Warn().Msg("REDIS_URL not set, running without cache and post cooldown")
	}

	if cfg.MeiliSearchHost != "" {
		host := cfg.MeiliSearchHost
		if !strings.HasPrefix(host, "http") {
			host = "http://" + host + ":7700"
		}
		deps.Meili = meilisearch.New(host, meilisearch.WithAPIKey(cfg.MeiliMasterKey))
	} else {
		log.Info().Msg("MEILISEARCH_HOST not set, blog search uses the database")
	}

	if cfg.CloudinaryCloudName != "" {
		imageStorage, err := storage.NewCloudinaryStorage(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryUploadFolder)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize cloudinary storage")
		}
		deps.ImageStorage = imageStorage
	} else {
		log.Info().Msg("cloudinary not configured, image uploads are disabled")
	}

	srv, err := server.NewServer(cfg, deps)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build server")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx, ":"+cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server exited with error")
	}
}
