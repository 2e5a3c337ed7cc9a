package bootstrap

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"pkujx.cn/library/internal/entity"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.User{},
		&entity.Session{},
		&entity.Category{},
		&entity.Book{},
		&entity.BorrowRecord{},
		&entity.BlogTopic{},
		&entity.BlogPost{},
		&entity.BlogPostLike{},
		&entity.SiteSetting{},
	)
}

var defaultSettings = []entity.SiteSetting{
	{SettingKey: entity.SettingSiteName, SettingValue: "Library", Description: "Site title shown in the header"},
	{SettingKey: entity.SettingBlogRequiresReview, SettingValue: "true", Description: "New blog posts wait for admin review before publishing"},
	{SettingKey: entity.SettingAnnouncement, SettingValue: "", Description: "HTML announcement banner"},
}

var defaultTopics = []entity.BlogTopic{
	{Name: "Book Reviews", Slug: "book-reviews", Description: "Thoughts on books from the collection"},
	{Name: "Reading Notes", Slug: "reading-notes", Description: "Notes and excerpts"},
	{Name: "Library News", Slug: "library-news", Description: "Announcements from the library"},
}

// SeedSettings inserts default settings that are missing. Existing values are kept.
func SeedSettings(db *gorm.DB) error {
	for _, setting := range defaultSettings {
		var count int64
		if err := db.Model(&entity.SiteSetting{}).
			Where("setting_key = ?", setting.SettingKey).
			Count(&count).Error; err != nil {
			return err
		}

		if count == 0 {
			setting.LastUpdated = time.Now()
			if err := db.Create(&setting).Error; err != nil {
				return err
			}
		}
	}

	return nil
}

func SeedTopics(db *gorm.DB) error {
	for _, topic := range defaultTopics {
		var count int64
		if err := db.Model(&entity.BlogTopic{}).
			Where("slug = ?", topic.Slug).
			Count(&count).Error; err != nil {
			return err
		}

		if count == 0 {
			if err := db.Create(&topic).Error; err != nil {
				return err
			}
		}
	}

	return nil
}

// ErrAdminExists is returned by CreateAdmin when the email is already registered.
var ErrAdminExists = errors.New("a user with this email already exists")

// CreateAdmin inserts an admin account.
func CreateAdmin(db *gorm.DB, email, username, password string) (*entity.User, error) {
	var count int64
	if err := db.Model(&entity.User{}).
		Where("email = ?", email).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrAdminExists
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	admin := &entity.User{
		Email:        email,
		Username:     username,
		PasswordHash: string(hashed),
		Role:         entity.RoleAdmin,
	}
	if err := db.Create(admin).Error; err != nil {
		return nil, err
	}

	return admin, nil
}

// SeedAdminUser creates the development admin account once.
func SeedAdminUser(db *gorm.DB) error {
	_, err := CreateAdmin(db, "admin@pkujx.cn", "admin", "admin123")
	if errors.Is(err, ErrAdminExists) {
		log.Info().Msg("admin user already exists, skipping seed")
		return nil
	}
	if err != nil {
		return err
	}

	log.Info().
		Str("email", "admin@pkujx.cn").
		Str("password", "admin123").
		Msg("development admin user seeded")
	return nil
}
