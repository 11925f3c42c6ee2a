package services

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/SscSPs/report_approval_app/internal/apperrors"
	"github.com/SscSPs/report_approval_app/internal/core/domain"
	portsrepo "github.com/SscSPs/report_approval_app/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/report_approval_app/internal/core/ports/services"
	"github.com/SscSPs/report_approval_app/internal/utils"
)

const minPasswordLength = 6

// userService implements portssvc.UserSvcFacade
type userService struct {
	BaseService
	userRepo portsrepo.UserRepositoryFacade
}

// NewUserService creates a new user service
func NewUserService(repo portsrepo.UserRepositoryFacade) portssvc.UserSvcFacade {
	return &userService{userRepo: repo}
}

var _ portssvc.UserSvcFacade = (*userService)(nil)

func (s *userService) GetUserByID(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.userRepo.FindUserByID(ctx, userID)
	if err != nil {
		s.LogFailure(ctx, err, "Failed to find user", slog.Int64("user_id", userID))
		return nil, err
	}
	return user, nil
}

func (s *userService) RegisterUser(ctx context.Context, input portssvc.RegisterUserInput) (*domain.User, error) {
	return s.createUser(ctx, input, domain.RoleOwner)
}

// EnsureUser is idempotent on email; an existing account is returned unchanged.
func (s *userService) EnsureUser(ctx context.Context, input portssvc.RegisterUserInput, role domain.Role) (*domain.User, error) {
	existing, err := s.userRepo.FindUserByEmail(ctx, strings.TrimSpace(input.Email))
	if err == nil {
		s.LogDebug(ctx, "User already exists", slog.Int64("user_id", existing.UserID), slog.String("email", existing.Email))
		return existing, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		s.LogError(ctx, err, "Failed to look up user", slog.String("email", input.Email))
		return nil, err
	}
	return s.createUser(ctx, input, role)
}

func (s *userService) createUser(ctx context.Context, input portssvc.RegisterUserInput, role domain.Role) (*domain.User, error) {
	email := strings.TrimSpace(input.Email)
	name := strings.TrimSpace(input.Name)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperrors.NewValidationFailedError("a valid email is required")
	}
	if name == "" {
		return nil, apperrors.NewValidationFailedError("name is required")
	}
	if len(input.Password) < minPasswordLength {
		return nil, apperrors.NewValidationFailedError("password must be at least 6 characters")
	}
	if len(input.Password) > utils.MaxPasswordBytes {
		return nil, apperrors.NewValidationFailedError(utils.ErrPasswordTooLong.Error())
	}
	if !role.IsValid() {
		return nil, apperrors.NewValidationFailedError("unknown role " + string(role))
	}

	hash, err := utils.HashPassword(input.Password)
	if err != nil {
		s.LogError(ctx, err, "Failed to hash password")
		return nil, apperrors.NewAppError(500, "failed to hash password", err)
	}

	saved, err := s.userRepo.SaveUser(ctx, domain.User{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    time.Now().UTC().Truncate(time.Millisecond),
	})
	if err != nil {
		s.LogFailure(ctx, err, "Failed to save user", slog.String("email", email))
		return nil, err
	}

	s.LogInfo(ctx, "User created", slog.Int64("user_id", saved.UserID), slog.String("role", string(saved.Role)))
	return saved, nil
}

func (s *userService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.userRepo.FindUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewAppError(401, "invalid email or password", nil)
		}
		s.LogError(ctx, err, "Failed to look up user for login")
		return nil, err
	}
	if !utils.CheckPasswordHash(password, user.PasswordHash) {
		s.LogDebug(ctx, "Password mismatch", slog.Int64("user_id", user.UserID))
		return nil, apperrors.NewAppError(401, "invalid email or password", nil)
	}
	return user, nil
}
