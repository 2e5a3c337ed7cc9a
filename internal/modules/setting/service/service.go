package service

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"pkujx.cn/library/internal/entity"
	"pkujx.cn/library/internal/modules/setting/dto"
	"pkujx.cn/library/internal/modules/setting/repository"
	"pkujx.cn/library/pkg/apperror"
	"pkujx.cn/library/pkg/cache"
	"pkujx.cn/library/pkg/sanitizer"
)

const cacheTTL = 10 * time.Minute

var validKey = regexp.MustCompile(`^[a-z0-9_]{1,100}$`)

type SettingService interface {
	Get(ctx context.Context, key string) (*entity.SiteSetting, error)
	List(ctx context.Context) ([]entity.SiteSetting, error)
	Upsert(ctx context.Context, key string, input dto.UpsertSettingInput) (*entity.SiteSetting, bool, error)
	Delete(ctx context.Context, key string) error
	// Bool reads a boolean setting, returning fallback when it is missing or
	// unparseable.
	Bool(ctx context.Context, key string, fallback bool) bool
}

type settingService struct {
	repo      repository.SettingRepository
	cache     *cache.Client
	sanitizer sanitizer.Sanitizer
	htmlKeys  map[string]bool
}

func NewSettingService(repo repository.SettingRepository, cacheClient *cache.Client, san sanitizer.Sanitizer, htmlKeys []string) SettingService {
	keys := make(map[string]bool, len(htmlKeys))
	for _, k := range htmlKeys {
		keys[k] = true
	}
	return &settingService{
		repo:      repo,
		cache:     cacheClient,
		sanitizer: san,
		htmlKeys:  keys,
	}
}

func cacheKey(key string) string {
	return "setting:" + key
}

func validateKey(key string) error {
	if !validKey.MatchString(key) {
		return apperror.Validation("Invalid setting key: use lowercase letters, digits and underscores")
	}
	return nil
}

func (s *settingService) Get(ctx context.Context, key string) (*entity.SiteSetting, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	if raw := s.cache.Get(ctx, cacheKey(key)); raw != nil {
		var cached entity.SiteSetting
		if err := json.Unmarshal(raw, &cached); err == nil {
			return &cached, nil
		}
	}

	setting, err := s.repo.Get(ctx, key)
	if err != nil {
		return nil, apperror.FromDB(err, "Setting not found", "")
	}

	if raw, err := json.Marshal(setting); err == nil {
		s.cache.Set(ctx, cacheKey(key), raw, cacheTTL)
	}
	return setting, nil
}

func (s *settingService) List(ctx context.Context) ([]entity.SiteSetting, error) {
	settings, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return settings, nil
}

func (s *settingService) Upsert(ctx context.Context, key string, input dto.UpsertSettingInput) (*entity.SiteSetting, bool, error) {
	if err := validateKey(key); err != nil {
		return nil, false, err
	}
	if input.Value == nil {
		return nil, false, apperror.Validation("Setting value is required")
	}

	value := *input.Value
	switch {
	case s.htmlKeys[key]:
		value = s.sanitizer.Sanitize(value, sanitizer.ProfileAnnouncement)
	case key == entity.SettingBlogRequiresReview:
		value = strings.ToLower(strings.TrimSpace(value))
		if value != "true" && value != "false" {
			return nil, false, apperror.Validation("blog_requires_review must be true or false")
		}
	}

	existing, err := s.repo.Get(ctx, key)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, apperror.Internal(err)
	}

	description := ""
	if existing != nil {
		description = existing.Description
	}
	if input.Description != nil {
		description = strings.TrimSpace(*input.Description)
	}

	if existing != nil && existing.SettingValue == value && existing.Description == description {
		return existing, false, nil
	}

	setting := &entity.SiteSetting{
		SettingKey:   key,
		SettingValue: value,
		Description:  description,
		LastUpdated:  time.Now(),
	}
	if err := s.repo.Upsert(ctx, setting); err != nil {
		return nil, false, apperror.Internal(err)
	}

	s.cache.Delete(ctx, cacheKey(key))
	return setting, true, nil
}

func (s *settingService) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	deleted, err := s.repo.Delete(ctx, key)
	if err != nil {
		return apperror.Internal(err)
	}
	if !deleted {
		return apperror.NotFound("Setting not found")
	}

	s.cache.Delete(ctx, cacheKey(key))
	return nil
}

func (s *settingService) Bool(ctx context.Context, key string, fallback bool) bool {
	setting, err := s.Get(ctx, key)
	if err != nil {
		return fallback
	}
	v, err := strconv.ParseBool(strings.TrimSpace(setting.SettingValue))
	if err != nil {
		return fallback
	}
	return v
}
