package services

import (
	"context"

	"github.com/SscSPs/report_approval_app/internal/core/domain"
)

// ReportLifecycleSvc defines the state transitions of a report.
type ReportLifecycleSvc interface {
	// SubmitReport creates a new pending report owned by the actor.
	SubmitReport(ctx context.Context, actor domain.Actor, draft domain.ReportDraft) (*domain.Report, error)

	// Decide approves or rejects a report. Reviewer only.
	Decide(ctx context.Context, actor domain.Actor, reportID int64, status domain.ReportStatus, comment *string) (*domain.Report, error)

	// RequestChange records the owner's request to amend a report.
	RequestChange(ctx context.Context, actor domain.Actor, reportID int64, comment *string) error

	// GrantEdit opens a one-time edit window on a report. Reviewer only.
	GrantEdit(ctx context.Context, actor domain.Actor, reportID int64, comment *string) (*domain.Report, error)

	// DenyChange records that a change request was refused. Reviewer only.
	DenyChange(ctx context.Context, actor domain.Actor, reportID int64, comment *string) error

	// EditReport applies the owner's amendment during an open edit window.
	EditReport(ctx context.Context, actor domain.Actor, reportID int64, patch domain.ReportPatch, comment *string) (*domain.Report, error)

	// DeleteReport removes a report and its audit trail. Reviewer only.
	DeleteReport(ctx context.Context, actor domain.Actor, reportID int64) error
}

// ReportQuerySvc defines read-only views over reports.
type ReportQuerySvc interface {
	// ListReports lists reports visible to the actor, optionally within a month.
	ListReports(ctx context.Context, actor domain.Actor, month *domain.Month) ([]domain.ReportView, error)

	// DashboardStats aggregates report counts and amounts. Reviewer only.
	DashboardStats(ctx context.Context, actor domain.Actor, month *domain.Month) (*domain.ReportStats, error)

	// ListApprovals returns the audit trail of one report, newest first.
	ListApprovals(ctx context.Context, actor domain.Actor, reportID int64) ([]domain.Approval, error)
}

// ReportExportSvc renders report snapshots for download.
type ReportExportSvc interface {
	// ExportCSV renders the reviewer report set as CSV. Reviewer only.
	ExportCSV(ctx context.Context, actor domain.Actor, month *domain.Month) ([]byte, error)
}

// ReportSvcFacade combines all report-related service interfaces
// This is a facade for clients that need access to all operations
type ReportSvcFacade interface {
	ReportLifecycleSvc
	ReportQuerySvc
	ReportExportSvc
}
