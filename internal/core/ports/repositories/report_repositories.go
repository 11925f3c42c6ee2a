package repositories

import (
	"context"

	"github.com/SscSPs/report_approval_app/internal/core/domain"
)

// ReportReader defines read operations over reports and their audit trail.
type ReportReader interface {
	// FindReportByID retrieves a report by its identifier.
	FindReportByID(ctx context.Context, reportID int64) (*domain.Report, error)

	// ListReports retrieves reports matching the filter, newest first.
	ListReports(ctx context.Context, filter domain.ReportFilter) ([]domain.ReportView, error)

	// ListApprovalsByReportID retrieves the audit trail of a report, newest first.
	ListApprovalsByReportID(ctx context.Context, reportID int64) ([]domain.Approval, error)

	// GetReportStats aggregates counts and the amount total, optionally within a window.
	GetReportStats(ctx context.Context, window *domain.TimeWindow) (*domain.ReportStats, error)
}

// ReportWriter defines write operations that do not need a row lock.
type ReportWriter interface {
	// SaveReport inserts a new report and returns it with its assigned id.
	SaveReport(ctx context.Context, report domain.Report) (*domain.Report, error)
}

// ReportTx is the set of operations available inside a report transaction.
// Every call runs on the same underlying database transaction.
type ReportTx interface {
	// LockReport loads the report and holds its row until the transaction ends.
	LockReport(ctx context.Context, reportID int64) (*domain.Report, error)

	// UpdateReport writes the mutable fields of the report.
	UpdateReport(ctx context.Context, report domain.Report) error

	// AppendApproval appends an audit entry and returns it with its id.
	AppendApproval(ctx context.Context, approval domain.Approval) (*domain.Approval, error)

	// DeleteReport removes the report and its audit trail.
	DeleteReport(ctx context.Context, reportID int64) error
}

// ReportTransactionSupport runs fn inside one transaction. If fn returns an
// error the transaction is rolled back and the error is returned unchanged.
type ReportTransactionSupport interface {
	WithinReportTx(ctx context.Context, fn func(tx ReportTx) error) error
}

// ReportRepositoryFacade combines all report-related repository interfaces
type ReportRepositoryFacade interface {
	ReportReader
	ReportWriter
	ReportTransactionSupport
}
