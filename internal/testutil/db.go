// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"pkujx.cn/library/internal/bootstrap"
	"pkujx.cn/library/internal/config"
	"pkujx.cn/library/internal/entity"
	"pkujx.cn/library/pkg/database"
)

// NewDB opens a migrated SQLite database in a temp dir.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.Open(database.Options{
		Driver:     database.DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "test.db"),
		LogLevel:   logger.Silent,
	})
	require.NoError(t, err)
	require.NoError(t, bootstrap.Migrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// AuthConfig is a session configuration suitable for tests.
func AuthConfig() config.AuthConfig {
	return config.AuthConfig{
		CookieName: "library_session",
		SessionTTL: 24 * time.Hour,
		RegistrationDomains: map[string]string{
			"student.pkujx.cn": config.RoleStudent,
			"pkujx.cn":         config.RoleTeacher,
			"qq.com":           config.RoleStudent,
		},
	}
}

// CreateUser inserts a user whose password is "secret123".
func CreateUser(t *testing.T, db *gorm.DB, email, username, role string) *entity.User {
	t.Helper()

	hashed, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)

	u := &entity.User{Email: email, Username: username, PasswordHash: string(hashed), Role: role}
	require.NoError(t, db.Create(u).Error)
	return u
}

// CreateBook inserts a book with the given copy counts.
func CreateBook(t *testing.T, db *gorm.DB, isbn, title string, total, available int) *entity.Book {
	t.Helper()

	b := &entity.Book{
		ISBN:            isbn,
		Title:           title,
		Author:          "Author",
		TotalCopies:     total,
		AvailableCopies: available,
		Status:          "available",
	}
	require.NoError(t, db.Create(b).Error)
	return b
}
