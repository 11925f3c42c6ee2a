package domain

import "time"

// User represents an account that can act on reports.
type User struct {
	UserID       int64     `json:"userID"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Actor returns the identity this user acts as.
func (u User) Actor() Actor {
	return Actor{ID: u.UserID, Role: u.Role}
}

// UserSummary is the display identity joined onto reports for reviewers.
type UserSummary struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}
