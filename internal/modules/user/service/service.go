package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"pkujx.cn/library/internal/config"
	"pkujx.cn/library/internal/entity"
	session "pkujx.cn/library/internal/modules/session/service"
	"pkujx.cn/library/internal/modules/user/dto"
	"pkujx.cn/library/internal/modules/user/repository"
	"pkujx.cn/library/pkg/apperror"
	commonDto "pkujx.cn/library/pkg/dto"
)

const msgInvalidCredentials = "Invalid email or password"

type UserService interface {
	Register(ctx context.Context, input dto.RegisterInput) (*dto.UserResponse, error)
	Login(ctx context.Context, input dto.LoginInput) (*dto.UserResponse, *entity.Session, error)
	Logout(ctx context.Context, cookieHeader string) error
	Me(ctx context.Context, userID uint) (*dto.UserResponse, error)
	UpdateMe(ctx context.Context, userID uint, input dto.UpdateMeInput) (*dto.UserResponse, bool, error)
	MyBorrows(ctx context.Context, userID uint, page commonDto.PageQuery) ([]dto.BorrowItem, commonDto.PaginationMeta, error)
}

type userService struct {
	repo     repository.UserRepository
	sessions session.SessionService
	auth     config.AuthConfig
}

func NewUserService(repo repository.UserRepository, sessions session.SessionService, auth config.AuthConfig) UserService {
	return &userService{repo: repo, sessions: sessions, auth: auth}
}

// NormalizeEmail lowercases and trims an address before lookup or storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CleanUsername trims a username and enforces the length rule on the result.
func CleanUsername(raw string) (string, error) {
	username := strings.TrimSpace(raw)
	if n := utf8.RuneCountInString(username); n < 2 || n > 50 {
		return "", apperror.Validation("Username must be between 2 and 50 characters")
	}
	return username, nil
}

func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

func (s *userService) Register(ctx context.Context, input dto.RegisterInput) (*dto.UserResponse, error) {
	email := NormalizeEmail(input.Email)
	username, err := CleanUsername(input.Username)
	if err != nil {
		return nil, err
	}

	role, ok := s.auth.RoleForEmail(email)
	if !ok {
		return nil, apperror.Validation("Registration is not allowed for this email domain")
	}

	taken, err := s.repo.EmailTaken(ctx, email, 0)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if taken {
		return nil, apperror.Conflict("Email already registered")
	}

	hashed, err := HashPassword(input.Password)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	user := &entity.User{
		Email:        email,
		Username:     username,
		PasswordHash: hashed,
		Role:         role,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, apperror.FromDB(err, "User not found", "Email already registered")
	}

	res := dto.NewUserResponse(user)
	return &res, nil
}

func (s *userService) Login(ctx context.Context, input dto.LoginInput) (*dto.UserResponse, *entity.Session, error) {
	user, err := s.repo.FindByEmail(ctx, NormalizeEmail(input.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperror.Unauthorized(msgInvalidCredentials)
		}
		return nil, nil, apperror.Internal(err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, nil, apperror.Unauthorized(msgInvalidCredentials)
	}

	sess, err := s.sessions.Issue(ctx, user)
	if err != nil {
		return nil, nil, apperror.Internal(err)
	}

	res := dto.NewUserResponse(user)
	return &res, sess, nil
}

func (s *userService) Logout(ctx context.Context, cookieHeader string) error {
	if err := s.sessions.Revoke(ctx, cookieHeader); err != nil {
		return apperror.Internal(err)
	}
	return nil
}

func (s *userService) Me(ctx context.Context, userID uint) (*dto.UserResponse, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Unauthorized(session.MsgInvalidSession)
		}
		return nil, apperror.Internal(err)
	}

	res := dto.NewUserResponse(user)
	return &res, nil
}

func (s *userService) UpdateMe(ctx context.Context, userID uint, input dto.UpdateMeInput) (*dto.UserResponse, bool, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, apperror.Unauthorized(session.MsgInvalidSession)
		}
		return nil, false, apperror.Internal(err)
	}

	updates := make(map[string]any)

	if input.Username != nil {
		username, err := CleanUsername(*input.Username)
		if err != nil {
			return nil, false, err
		}
		if username != user.Username {
			updates["username"] = username
		}
	}

	if input.Password != nil {
		if input.CurrentPassword == "" {
			return nil, false, apperror.Validation("Current password is required to set a new password")
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.CurrentPassword)); err != nil {
			return nil, false, apperror.Forbidden("Current password is incorrect")
		}
		hashed, err := HashPassword(*input.Password)
		if err != nil {
			return nil, false, apperror.Internal(err)
		}
		updates["password"] = hashed
	}

	if len(updates) == 0 {
		res := dto.NewUserResponse(user)
		return &res, false, nil
	}

	updates["updated_at"] = time.Now()
	if err := s.repo.Update(ctx, userID, updates); err != nil {
		return nil, false, apperror.FromDB(err, "User not found", "Account update conflicts with an existing user")
	}

	updated, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, false, apperror.Internal(err)
	}
	res := dto.NewUserResponse(updated)
	return &res, true, nil
}

func (s *userService) MyBorrows(ctx context.Context, userID uint, page commonDto.PageQuery) ([]dto.BorrowItem, commonDto.PaginationMeta, error) {
	page.Normalize()

	items, total, err := s.repo.ListBorrows(ctx, userID, page.Offset(), page.Limit)
	if err != nil {
		return nil, commonDto.PaginationMeta{}, apperror.Internal(err)
	}

	now := time.Now()
	for i := range items {
		items[i].Overdue = !items[i].Returned && items[i].DueDate.Before(now)
	}
	return items, commonDto.NewPaginationMeta(page, total), nil
}
