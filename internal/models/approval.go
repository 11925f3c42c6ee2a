package models

import "time"

// Approval is the database row of an audit entry.
type Approval struct {
	ApprovalID int64     `db:"approval_id"`
	Action     string    `db:"action"`
	Comment    *string   `db:"comment"` // nullable
	CreatedAt  time.Time `db:"created_at"`
	ReportID   int64     `db:"report_id"`
	ActorID    int64     `db:"actor_id"`
}
