package services

import (
	"context"
	"time"

	"github.com/SscSPs/report_approval_app/internal/core/domain"
)

// RegisterUserInput carries the fields of a self-registration.
type RegisterUserInput struct {
	Email    string
	Name     string
	Password string
}

// UserReaderSvc defines read operations for users
type UserReaderSvc interface {
	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, userID int64) (*domain.User, error)
}

// UserWriterSvc defines write operations for users
type UserWriterSvc interface {
	// RegisterUser creates an OWNER account.
	RegisterUser(ctx context.Context, input RegisterUserInput) (*domain.User, error)

	// EnsureUser creates the user if no account with that email exists.
	EnsureUser(ctx context.Context, input RegisterUserInput, role domain.Role) (*domain.User, error)
}

// UserAuthSvc defines credential checks
type UserAuthSvc interface {
	// Authenticate returns the user matching email and password.
	Authenticate(ctx context.Context, email, password string) (*domain.User, error)
}

// UserSvcFacade combines all user-related service interfaces
type UserSvcFacade interface {
	UserReaderSvc
	UserWriterSvc
	UserAuthSvc
}

// TokenSvcFacade issues access tokens for authenticated users.
type TokenSvcFacade interface {
	// GenerateAccessToken returns a signed token and its expiry.
	GenerateAccessToken(ctx context.Context, user *domain.User) (string, time.Time, error)
}
