package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/SscSPs/report_approval_app/internal/apperrors"
	"github.com/SscSPs/report_approval_app/internal/core/domain"
	portsrepo "github.com/SscSPs/report_approval_app/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/report_approval_app/internal/core/ports/services"
	"github.com/SscSPs/report_approval_app/internal/utils/export"
)

// reportService implements portssvc.ReportSvcFacade
type reportService struct {
	BaseService
	reportRepo portsrepo.ReportRepositoryFacade
	now        func() time.Time
	location   *time.Location
}

// ReportServiceOption is a functional option for configuring the report service
type ReportServiceOption func(*reportService)

// WithClock overrides the time source used for createdAt stamps.
func WithClock(now func() time.Time) ReportServiceOption {
	return func(s *reportService) {
		s.now = now
	}
}

// WithLocation sets the time zone in which month filters are interpreted.
func WithLocation(loc *time.Location) ReportServiceOption {
	return func(s *reportService) {
		if loc != nil {
			s.location = loc
		}
	}
}

// NewReportService creates a new report service with the provided options
func NewReportService(repo portsrepo.ReportRepositoryFacade, options ...ReportServiceOption) portssvc.ReportSvcFacade {
	svc := &reportService{
		reportRepo: repo,
		now:        time.Now,
		location:   time.Local,
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.ReportSvcFacade = (*reportService)(nil)

// timestamp is truncated to the millisecond precision every store keeps.
func (s *reportService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

func (s *reportService) window(month *domain.Month) *domain.TimeWindow {
	if month == nil {
		return nil
	}
	w := month.Window(s.location)
	return &w
}

func (s *reportService) SubmitReport(ctx context.Context, actor domain.Actor, draft domain.ReportDraft) (*domain.Report, error) {
	if err := draft.Validate(); err != nil {
		return nil, apperrors.NewValidationFailedError(err.Error())
	}

	saved, err := s.reportRepo.SaveReport(ctx, domain.NewReport(draft, actor.ID, s.timestamp()))
	if err != nil {
		s.LogError(ctx, err, "Failed to save report", slog.Int64("owner_id", actor.ID))
		return nil, err
	}

	s.LogInfo(ctx, "Report submitted", slog.Int64("report_id", saved.ReportID), slog.Int64("owner_id", actor.ID))
	return saved, nil
}

// mutation validates a locked report and applies the transition to it.
// It reports whether the report row changed.
type mutation func(report *domain.Report) (changed bool, err error)

// transition runs lock, validate, mutate and audit for one report in a
// single transaction. The audit entry is validated before the transaction
// opens so a malformed comment never touches the store. Its createdAt is
// stamped once the row lock is held, so audit order matches apply order.
func (s *reportService) transition(ctx context.Context, actor domain.Actor, reportID int64, action domain.ApprovalAction, comment *string, apply mutation) (*domain.Report, error) {
	entry, err := domain.NewApproval(action, comment, reportID, actor.ID, s.timestamp())
	if err != nil {
		return nil, apperrors.NewValidationFailedError(err.Error())
	}

	var result *domain.Report
	err = s.reportRepo.WithinReportTx(ctx, func(tx portsrepo.ReportTx) error {
		report, err := tx.LockReport(ctx, reportID)
		if err != nil {
			return err
		}
		entry.CreatedAt = s.timestamp()
		changed, err := apply(report)
		if err != nil {
			return err
		}
		if changed {
			if err := tx.UpdateReport(ctx, *report); err != nil {
				return err
			}
		}
		if _, err := tx.AppendApproval(ctx, entry); err != nil {
			return err
		}
		result = report
		return nil
	})
	if err != nil {
		s.LogFailure(ctx, err, "Report transition failed", slog.Int64("report_id", reportID), slog.String("action", string(action)))
		return nil, err
	}

	s.LogInfo(ctx, "Report transition applied",
		slog.Int64("report_id", reportID),
		slog.String("action", string(action)),
		slog.String("status", string(result.Status)),
		slog.Bool("editable", result.Editable))
	return result, nil
}

func requireOwner(actor domain.Actor) mutation {
	return func(report *domain.Report) (bool, error) {
		if !actor.Owns(report) {
			return false, apperrors.NewNotFoundError("report not found")
		}
		return false, nil
	}
}

func (s *reportService) Decide(ctx context.Context, actor domain.Actor, reportID int64, status domain.ReportStatus, comment *string) (*domain.Report, error) {
	if err := s.RequireReviewer(ctx, actor, "approve or reject reports"); err != nil {
		return nil, err
	}
	if err := domain.ValidateDecision(status); err != nil {
		return nil, apperrors.NewValidationFailedError(err.Error())
	}
	return s.transition(ctx, actor, reportID, domain.ActionForDecision(status), comment, func(report *domain.Report) (bool, error) {
		report.Decide(status)
		return true, nil
	})
}

func (s *reportService) RequestChange(ctx context.Context, actor domain.Actor, reportID int64, comment *string) error {
	_, err := s.transition(ctx, actor, reportID, domain.ActionRequestChange, comment, requireOwner(actor))
	return err
}

func (s *reportService) GrantEdit(ctx context.Context, actor domain.Actor, reportID int64, comment *string) (*domain.Report, error) {
	if err := s.RequireReviewer(ctx, actor, "grant edits"); err != nil {
		return nil, err
	}
	return s.transition(ctx, actor, reportID, domain.ActionChangeGranted, comment, func(report *domain.Report) (bool, error) {
		report.GrantEdit()
		return true, nil
	})
}

func (s *reportService) DenyChange(ctx context.Context, actor domain.Actor, reportID int64, comment *string) error {
	if err := s.RequireReviewer(ctx, actor, "deny change requests"); err != nil {
		return err
	}
	_, err := s.transition(ctx, actor, reportID, domain.ActionChangeDenied, comment, func(*domain.Report) (bool, error) {
		return false, nil
	})
	return err
}

func (s *reportService) EditReport(ctx context.Context, actor domain.Actor, reportID int64, patch domain.ReportPatch, comment *string) (*domain.Report, error) {
	if err := patch.Validate(); err != nil {
		return nil, apperrors.NewValidationFailedError(err.Error())
	}
	ownerCheck := requireOwner(actor)
	return s.transition(ctx, actor, reportID, domain.ActionUserEdited, comment, func(report *domain.Report) (bool, error) {
		if _, err := ownerCheck(report); err != nil {
			return false, err
		}
		if !report.Editable {
			return false, apperrors.NewInvalidStateError("Editing not allowed for this report")
		}
		report.ApplyEdit(patch)
		return true, nil
	})
}

func (s *reportService) DeleteReport(ctx context.Context, actor domain.Actor, reportID int64) error {
	if err := s.RequireReviewer(ctx, actor, "delete reports"); err != nil {
		return err
	}
	err := s.reportRepo.WithinReportTx(ctx, func(tx portsrepo.ReportTx) error {
		if _, err := tx.LockReport(ctx, reportID); err != nil {
			return err
		}
		return tx.DeleteReport(ctx, reportID)
	})
	if err != nil {
		s.LogFailure(ctx, err, "Failed to delete report", slog.Int64("report_id", reportID))
		return err
	}
	s.LogInfo(ctx, "Report deleted", slog.Int64("report_id", reportID))
	return nil
}

func (s *reportService) ListReports(ctx context.Context, actor domain.Actor, month *domain.Month) ([]domain.ReportView, error) {
	filter := domain.ReportFilter{Window: s.window(month)}
	if actor.IsReviewer() {
		filter.IncludeOwner = true
		filter.IncludeApprovals = true
	} else {
		ownerID := actor.ID
		filter.OwnerID = &ownerID
	}

	views, err := s.reportRepo.ListReports(ctx, filter)
	if err != nil {
		s.LogError(ctx, err, "Failed to list reports", slog.Int64("actor_id", actor.ID))
		return nil, err
	}
	return views, nil
}

func (s *reportService) DashboardStats(ctx context.Context, actor domain.Actor, month *domain.Month) (*domain.ReportStats, error) {
	if err := s.RequireReviewer(ctx, actor, "view the dashboard"); err != nil {
		return nil, err
	}
	stats, err := s.reportRepo.GetReportStats(ctx, s.window(month))
	if err != nil {
		s.LogError(ctx, err, "Failed to aggregate report stats")
		return nil, err
	}
	return stats, nil
}

func (s *reportService) ListApprovals(ctx context.Context, actor domain.Actor, reportID int64) ([]domain.Approval, error) {
	report, err := s.reportRepo.FindReportByID(ctx, reportID)
	if err != nil {
		s.LogFailure(ctx, err, "Failed to find report for approvals", slog.Int64("report_id", reportID))
		return nil, err
	}
	if !actor.IsReviewer() && !actor.Owns(report) {
		return nil, apperrors.NewNotFoundError("report not found")
	}

	approvals, err := s.reportRepo.ListApprovalsByReportID(ctx, reportID)
	if err != nil {
		s.LogError(ctx, err, "Failed to list approvals", slog.Int64("report_id", reportID))
		return nil, err
	}
	return approvals, nil
}

func (s *reportService) ExportCSV(ctx context.Context, actor domain.Actor, month *domain.Month) ([]byte, error) {
	if err := s.RequireReviewer(ctx, actor, "export reports"); err != nil {
		return nil, err
	}
	views, err := s.reportRepo.ListReports(ctx, domain.ReportFilter{Window: s.window(month), IncludeOwner: true})
	if err != nil {
		s.LogError(ctx, err, "Failed to list reports for export")
		return nil, err
	}
	s.LogDebug(ctx, "Exporting reports", slog.Int("count", len(views)))
	return export.ReportsCSV(views), nil
}
