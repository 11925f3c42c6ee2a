package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/SscSPs/report_approval_app/internal/apperrors"
	"github.com/SscSPs/report_approval_app/internal/core/domain"
	portsrepo "github.com/SscSPs/report_approval_app/internal/core/ports/repositories"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

type SQLiteUserRepository struct {
	BaseRepository
}

func newSQLiteUserRepository(db *sql.DB) portsrepo.UserRepositoryFacade {
	return &SQLiteUserRepository{BaseRepository: BaseRepository{DB: db}}
}

var _ portsrepo.UserRepositoryFacade = (*SQLiteUserRepository)(nil)

const userSelectQuery = `SELECT user_id, email, name, password_hash, role, created_at FROM users `

func (r *SQLiteUserRepository) findOne(ctx context.Context, filterQuery string, args ...any) (*domain.User, error) {
	var (
		u         domain.User
		role      string
		createdAt int64
	)
	err := r.DB.QueryRowContext(ctx, userSelectQuery+filterQuery, args...).Scan(
		&u.UserID, &u.Email, &u.Name, &u.PasswordHash, &role, &createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("user not found")
		}
		return nil, apperrors.NewStorageError("failed to query user", err)
	}
	u.Role = domain.Role(role)
	u.CreatedAt = fromMillis(createdAt)
	return &u, nil
}

func (r *SQLiteUserRepository) FindUserByID(ctx context.Context, userID int64) (*domain.User, error) {
	return r.findOne(ctx, `WHERE user_id = ?`, userID)
}

// FindUserByEmail matches case-insensitively through the NOCASE collation of the column.
func (r *SQLiteUserRepository) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, `WHERE email = ?`, email)
}

func (r *SQLiteUserRepository) SaveUser(ctx context.Context, user domain.User) (*domain.User, error) {
	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO users (email, name, password_hash, role, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		user.Email, user.Name, user.PasswordHash, string(user.Role), toMillis(user.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.NewConflictError("user with email " + user.Email + " already exists")
		}
		return nil, apperrors.NewStorageError("failed to save user", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, apperrors.NewStorageError("failed to read user id", err)
	}
	saved := user
	saved.UserID = id
	saved.CreatedAt = fromMillis(toMillis(user.CreatedAt))
	return &saved, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
