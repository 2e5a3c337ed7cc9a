package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"pkujx.cn/library/internal/entity"
	"pkujx.cn/library/internal/modules/admin/dto"
	search "pkujx.cn/library/internal/modules/search/service"
	session "pkujx.cn/library/internal/modules/session/service"
	userDto "pkujx.cn/library/internal/modules/user/dto"
	userRepo "pkujx.cn/library/internal/modules/user/repository"
	userService "pkujx.cn/library/internal/modules/user/service"
	"pkujx.cn/library/pkg/apperror"
	commonDto "pkujx.cn/library/pkg/dto"
)

type AdminService interface {
	ListUsers(ctx context.Context, query dto.ListUsersQuery) ([]userDto.UserResponse, commonDto.PaginationMeta, error)
	GetUser(ctx context.Context, id uint) (*userDto.UserResponse, error)
	CreateUser(ctx context.Context, input dto.CreateUserInput) (*userDto.UserResponse, error)
	UpdateUser(ctx context.Context, id uint, input dto.UpdateAdminUserInput) (*userDto.UserResponse, bool, error)
	DeleteUser(ctx context.Context, actorID, id uint) error
}

type adminService struct {
	users    userRepo.UserRepository
	sessions session.SessionService
	indexer  search.PostIndexer
}

// NewAdminService builds the service. indexer may be nil.
func NewAdminService(users userRepo.UserRepository, sessions session.SessionService, indexer search.PostIndexer) AdminService {
	return &adminService{users: users, sessions: sessions, indexer: indexer}
}

func (s *adminService) ListUsers(ctx context.Context, query dto.ListUsersQuery) ([]userDto.UserResponse, commonDto.PaginationMeta, error) {
	page := query.PageQuery
	page.Normalize()

	users, total, err := s.users.List(ctx, userRepo.UserFilter{
		Query:  query.Query,
		Role:   query.Role,
		Offset: page.Offset(),
		Limit:  page.Limit,
	})
	if err != nil {
		return nil, commonDto.PaginationMeta{}, apperror.Internal(err)
	}

	res := make([]userDto.UserResponse, 0, len(users))
	for i := range users {
		res = append(res, userDto.NewUserResponse(&users[i]))
	}
	return res, commonDto.NewPaginationMeta(page, total), nil
}

func (s *adminService) GetUser(ctx context.Context, id uint) (*userDto.UserResponse, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, apperror.FromDB(err, "User not found", "")
	}
	res := userDto.NewUserResponse(user)
	return &res, nil
}

func (s *adminService) CreateUser(ctx context.Context, input dto.CreateUserInput) (*userDto.UserResponse, error) {
	email := userService.NormalizeEmail(input.Email)

	taken, err := s.users.EmailTaken(ctx, email, 0)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if taken {
		return nil, apperror.Conflict("Email already registered")
	}

	hashed, err := userService.HashPassword(input.Password)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	username, err := userService.CleanUsername(input.Username)
	if err != nil {
		return nil, err
	}

	user := &entity.User{
		Email:        email,
		Username:     username,
		PasswordHash: hashed,
		Role:         input.Role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperror.FromDB(err, "User not found", "Email already registered")
	}

	res := userDto.NewUserResponse(user)
	return &res, nil
}

func (s *adminService) UpdateUser(ctx context.Context, id uint, input dto.UpdateAdminUserInput) (*userDto.UserResponse, bool, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, false, apperror.FromDB(err, "User not found", "")
	}

	updates := make(map[string]any)

	if input.Email != nil {
		email := userService.NormalizeEmail(*input.Email)
		if email != user.Email {
			taken, err := s.users.EmailTaken(ctx, email, id)
			if err != nil {
				return nil, false, apperror.Internal(err)
			}
			if taken {
				return nil, false, apperror.Conflict("Email already registered")
			}
			updates["email"] = email
		}
	}
	if input.Username != nil {
		username, err := userService.CleanUsername(*input.Username)
		if err != nil {
			return nil, false, err
		}
		if username != user.Username {
			updates["username"] = username
		}
	}
	if input.Role != nil && *input.Role != user.Role {
		updates["role"] = *input.Role
	}
	if input.Password != nil {
		hashed, err := userService.HashPassword(*input.Password)
		if err != nil {
			return nil, false, apperror.Internal(err)
		}
		updates["password"] = hashed
	}

	if len(updates) == 0 {
		res := userDto.NewUserResponse(user)
		return &res, false, nil
	}

	updates["updated_at"] = time.Now()
	if err := s.users.Update(ctx, id, updates); err != nil {
		return nil, false, apperror.FromDB(err, "User not found", "Email already registered")
	}

	// Sessions carry a copy of email and role; credentials or privileges
	// changed, so existing logins end here.
	_, emailChanged := updates["email"]
	_, roleChanged := updates["role"]
	_, passwordChanged := updates["password"]
	if emailChanged || roleChanged || passwordChanged {
		if err := s.sessions.RevokeUser(ctx, id); err != nil {
			return nil, false, apperror.Internal(err)
		}
	}

	updated, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, false, apperror.Internal(err)
	}
	res := userDto.NewUserResponse(updated)
	return &res, true, nil
}

func (s *adminService) DeleteUser(ctx context.Context, actorID, id uint) error {
	if actorID == id {
		return apperror.Forbidden("You cannot delete your own account")
	}

	if _, err := s.users.FindByID(ctx, id); err != nil {
		return apperror.FromDB(err, "User not found", "")
	}

	postIDs, err := s.users.DeleteCascade(ctx, id)
	if err != nil {
		if errors.Is(err, userRepo.ErrUserHasOpenBorrows) {
			return apperror.Conflict("Cannot delete user with unreturned books")
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NotFound("User not found")
		}
		return apperror.Internal(err)
	}

	if s.indexer != nil {
		for _, postID := range postIDs {
			if err := s.indexer.DeletePost(postID); err != nil {
				log.Warn().Err(err).Uint("post_id", postID).Msg("failed to remove deleted user's post from search index")
			}
		}
	}
	return nil
}
