package dto

import (
	"encoding/json"
	"time"

	"github.com/SscSPs/report_approval_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateReportRequest defines the data needed to submit a report.
type CreateReportRequest struct {
	Title       string           `json:"title" binding:"required,max=255"`
	Description string           `json:"description" binding:"max=5000"`
	Amount      *decimal.Decimal `json:"amount" binding:"required"` // number or numeric string
}

// ToDraft converts the request to a domain draft.
func (r CreateReportRequest) ToDraft() domain.ReportDraft {
	return domain.ReportDraft{Title: r.Title, Description: r.Description, Amount: *r.Amount}
}

// DecideReportRequest carries a reviewer decision.
type DecideReportRequest struct {
	Status  string  `json:"status" binding:"required,oneof=APPROVED REJECTED"`
	Comment *string `json:"comment" binding:"omitempty,max=2000"`
}

// CommentRequest is the optional body of request-change, grant-edit and deny-change.
type CommentRequest struct {
	Comment *string `json:"comment" binding:"omitempty,max=2000"`
}

// EditReportRequest is a partial update; omitted fields are left unchanged.
type EditReportRequest struct {
	Title       *string          `json:"title" binding:"omitempty,max=255"`
	Description *string          `json:"description" binding:"omitempty,max=5000"`
	Amount      *decimal.Decimal `json:"amount"`
	Comment     *string          `json:"comment" binding:"omitempty,max=2000"`
}

// ToPatch converts the request to a domain patch.
func (r EditReportRequest) ToPatch() domain.ReportPatch {
	return domain.ReportPatch{Title: r.Title, Description: r.Description, Amount: r.Amount}
}

// ListReportsParams defines query parameters for report listings.
type ListReportsParams struct {
	Month string `form:"month"` // YYYY-MM
}

// MessageResponse acknowledges an operation without a payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// UserSummaryResponse is the owner identity attached to reviewer listings.
type UserSummaryResponse struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ApprovalResponse is one audit entry.
type ApprovalResponse struct {
	ApprovalID int64     `json:"id"`
	Action     string    `json:"action"`
	Comment    *string   `json:"comment"`
	CreatedAt  time.Time `json:"createdAt"`
	ReportID   int64     `json:"reportId"`
	ActorID    int64     `json:"actorId"`
}

// ReportResponse is a report, optionally with owner and audit trail.
type ReportResponse struct {
	ReportID    int64                `json:"id"`
	Title       string               `json:"title"`
	Description string               `json:"description"`
	Amount      json.Number          `json:"amount"`
	Status      string               `json:"status"`
	Editable    bool                 `json:"editable"`
	CreatedAt   time.Time            `json:"createdAt"`
	UserID      int64                `json:"userId"`
	User        *UserSummaryResponse `json:"user,omitempty"`
	Approvals   *[]ApprovalResponse  `json:"approvals,omitempty"` // nil unless the trail was loaded
}

// ReportStatsResponse is the reviewer dashboard.
type ReportStatsResponse struct {
	TotalReports    int64       `json:"totalReports"`
	PendingReports  int64       `json:"pendingReports"`
	ApprovedReports int64       `json:"approvedReports"`
	RejectedReports int64       `json:"rejectedReports"`
	TotalAmount     json.Number `json:"totalAmount"`
}

// amountNumber renders a decimal as a JSON number without losing precision.
func amountNumber(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

func ToApprovalResponse(a domain.Approval) ApprovalResponse {
	return ApprovalResponse{
		ApprovalID: a.ApprovalID,
		Action:     string(a.Action),
		Comment:    a.Comment,
		CreatedAt:  a.CreatedAt,
		ReportID:   a.ReportID,
		ActorID:    a.ActorID,
	}
}

func ToApprovalResponses(approvals []domain.Approval) []ApprovalResponse {
	out := make([]ApprovalResponse, len(approvals))
	for i, a := range approvals {
		out[i] = ToApprovalResponse(a)
	}
	return out
}

func ToReportResponse(r *domain.Report) ReportResponse {
	return ReportResponse{
		ReportID:    r.ReportID,
		Title:       r.Title,
		Description: r.Description,
		Amount:      amountNumber(r.Amount),
		Status:      string(r.Status),
		Editable:    r.Editable,
		CreatedAt:   r.CreatedAt,
		UserID:      r.OwnerID,
	}
}

func ToReportResponses(views []domain.ReportView) []ReportResponse {
	out := make([]ReportResponse, len(views))
	for i := range views {
		resp := ToReportResponse(&views[i].Report)
		if views[i].Owner != nil {
			resp.User = &UserSummaryResponse{Name: views[i].Owner.Name, Email: views[i].Owner.Email}
		}
		if views[i].Approvals != nil {
			approvals := ToApprovalResponses(views[i].Approvals)
			resp.Approvals = &approvals
		}
		out[i] = resp
	}
	return out
}

func ToReportStatsResponse(s *domain.ReportStats) ReportStatsResponse {
	return ReportStatsResponse{
		TotalReports:    s.TotalReports,
		PendingReports:  s.PendingReports,
		ApprovedReports: s.ApprovedReports,
		RejectedReports: s.RejectedReports,
		TotalAmount:     amountNumber(s.TotalAmount),
	}
}
