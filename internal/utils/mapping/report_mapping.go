package mapping

import (
	"github.com/SscSPs/report_approval_app/internal/core/domain"
	"github.com/SscSPs/report_approval_app/internal/models"
)

// ToModelReport converts a domain Report to a model Report
func ToModelReport(d domain.Report) models.Report {
	return models.Report{
		ReportID:    d.ReportID,
		Title:       d.Title,
		Description: d.Description,
		Amount:      d.Amount,
		Status:      string(d.Status),
		Editable:    d.Editable,
		CreatedAt:   d.CreatedAt,
		OwnerID:     d.OwnerID,
	}
}

// ToDomainReport converts a model Report to a domain Report
func ToDomainReport(m models.Report) domain.Report {
	return domain.Report{
		ReportID:    m.ReportID,
		Title:       m.Title,
		Description: m.Description,
		Amount:      m.Amount,
		Status:      domain.ReportStatus(m.Status),
		Editable:    m.Editable,
		CreatedAt:   m.CreatedAt,
		OwnerID:     m.OwnerID,
	}
}

// ToDomainReportViews converts plain report rows into views without joins.
func ToDomainReportViews(ms []models.Report) []domain.ReportView {
	views := make([]domain.ReportView, len(ms))
	for i, m := range ms {
		views[i] = domain.ReportView{Report: ToDomainReport(m)}
	}
	return views
}

// ToDomainReportViewsWithOwner converts joined rows into views carrying the owner summary.
func ToDomainReportViewsWithOwner(ms []models.ReportWithOwner) []domain.ReportView {
	views := make([]domain.ReportView, len(ms))
	for i, m := range ms {
		views[i] = domain.ReportView{
			Report: ToDomainReport(m.Report),
			Owner:  &domain.UserSummary{Name: m.OwnerName, Email: m.OwnerEmail},
		}
	}
	return views
}

// ToModelApproval converts a domain Approval to a model Approval
func ToModelApproval(d domain.Approval) models.Approval {
	return models.Approval{
		ApprovalID: d.ApprovalID,
		Action:     string(d.Action),
		Comment:    d.Comment,
		CreatedAt:  d.CreatedAt,
		ReportID:   d.ReportID,
		ActorID:    d.ActorID,
	}
}

// ToDomainApproval converts a model Approval to a domain Approval
func ToDomainApproval(m models.Approval) domain.Approval {
	return domain.Approval{
		ApprovalID: m.ApprovalID,
		Action:     domain.ApprovalAction(m.Action),
		Comment:    m.Comment,
		CreatedAt:  m.CreatedAt,
		ReportID:   m.ReportID,
		ActorID:    m.ActorID,
	}
}

// ToDomainApprovalSlice converts a slice of model Approvals to domain Approvals
func ToDomainApprovalSlice(ms []models.Approval) []domain.Approval {
	ds := make([]domain.Approval, len(ms))
	for i, m := range ms {
		ds[i] = ToDomainApproval(m)
	}
	return ds
}
