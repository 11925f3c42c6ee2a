package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Report is the database row of a report.
type Report struct {
	ReportID    int64           `db:"report_id"`
	Title       string          `db:"title"`
	Description string          `db:"description"`
	Amount      decimal.Decimal `db:"amount"` // NUMERIC in postgres
	Status      string          `db:"status"`
	Editable    bool            `db:"editable"`
	CreatedAt   time.Time       `db:"created_at"`
	OwnerID     int64           `db:"owner_id"`
}

// ReportWithOwner is a report row joined with its owner's name and email.
type ReportWithOwner struct {
	Report
	OwnerName  string `db:"owner_name"`
	OwnerEmail string `db:"owner_email"`
}
