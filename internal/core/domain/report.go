package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ReportStatus is the review state of a report.
type ReportStatus string

const (
	StatusPending  ReportStatus = "PENDING"
	StatusApproved ReportStatus = "APPROVED"
	StatusRejected ReportStatus = "REJECTED"
)

// IsDecision reports whether s is a status a reviewer may decide on.
func (s ReportStatus) IsDecision() bool {
	return s == StatusApproved || s == StatusRejected
}

var (
	errTitleRequired    = errors.New("title is required")
	errAmountNegative   = errors.New("amount must not be negative")
	errDecisionRequired = errors.New("status must be APPROVED or REJECTED")
)

// Report is a claim submitted for review.
type Report struct {
	ReportID    int64           `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Status      ReportStatus    `json:"status"`
	Editable    bool            `json:"editable"`
	CreatedAt   time.Time       `json:"createdAt"`
	OwnerID     int64           `json:"userId"`
}

// ReportDraft carries the fields of a new submission.
type ReportDraft struct {
	Title       string
	Description string
	Amount      decimal.Decimal
}

// Validate checks the draft before it is persisted.
func (d ReportDraft) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return errTitleRequired
	}
	if d.Amount.IsNegative() {
		return errAmountNegative
	}
	return nil
}

// ReportPatch is a partial update; nil fields are left unchanged.
type ReportPatch struct {
	Title       *string
	Description *string
	Amount      *decimal.Decimal
}

// Validate checks the supplied fields of the patch. An empty patch is valid:
// it resubmits the report unchanged.
func (p ReportPatch) Validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return errTitleRequired
	}
	if p.Amount != nil && p.Amount.IsNegative() {
		return errAmountNegative
	}
	return nil
}

// NewReport builds a freshly submitted report owned by ownerID.
func NewReport(draft ReportDraft, ownerID int64, now time.Time) Report {
	return Report{
		Title:       strings.TrimSpace(draft.Title),
		Description: draft.Description,
		Amount:      draft.Amount,
		Status:      StatusPending,
		Editable:    false,
		CreatedAt:   now,
		OwnerID:     ownerID,
	}
}

// ValidateDecision checks that status is a reviewer decision.
func ValidateDecision(status ReportStatus) error {
	if !status.IsDecision() {
		return errDecisionRequired
	}
	return nil
}

// Decide records a reviewer decision. A decided report is no longer
// editable, since editable is only meaningful while pending.
func (r *Report) Decide(status ReportStatus) {
	r.Status = status
	r.Editable = false
}

// GrantEdit opens the single-use edit window and puts the report back in
// the review queue.
func (r *Report) GrantEdit() {
	r.Editable = true
	r.Status = StatusPending
}

// ApplyEdit applies the patch and closes the edit window. The report
// re-enters review regardless of its prior status.
func (r *Report) ApplyEdit(p ReportPatch) {
	if p.Title != nil {
		r.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		r.Description = *p.Description
	}
	if p.Amount != nil {
		r.Amount = *p.Amount
	}
	r.Editable = false
	r.Status = StatusPending
}

// ReportView is a report as returned by listings, with optional joins.
type ReportView struct {
	Report
	Owner     *UserSummary `json:"user,omitempty"`
	Approvals []Approval   `json:"approvals,omitempty"`
}

// ReportFilter selects reports for listings, stats and export.
type ReportFilter struct {
	OwnerID          *int64
	Window           *TimeWindow
	IncludeOwner     bool
	IncludeApprovals bool
}

// ReportStats is the dashboard rollup.
type ReportStats struct {
	TotalReports    int64           `json:"totalReports"`
	PendingReports  int64           `json:"pendingReports"`
	ApprovedReports int64           `json:"approvedReports"`
	RejectedReports int64           `json:"rejectedReports"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
}
