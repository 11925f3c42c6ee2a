package models

import "time"

// User is the database row of an account that can log in.
type User struct {
	UserID       int64     `db:"user_id"`
	Email        string    `db:"email"`
	Name         string    `db:"name"`
	PasswordHash string    `db:"password_hash"`
	Role         string    `db:"role"`
	CreatedAt    time.Time `db:"created_at"`
}
