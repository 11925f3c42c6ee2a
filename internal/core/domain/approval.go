package domain

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// ApprovalAction is the kind of interaction recorded in the audit trail.
type ApprovalAction string

const (
	ActionApproved      ApprovalAction = "APPROVED"
	ActionRejected      ApprovalAction = "REJECTED"
	ActionRequestChange ApprovalAction = "REQUEST_CHANGE"
	ActionChangeGranted ApprovalAction = "CHANGE_GRANTED"
	ActionChangeDenied  ApprovalAction = "CHANGE_DENIED"
	ActionUserEdited    ApprovalAction = "USER_EDITED"
)

// ActionForDecision maps a reviewer decision to its audit action.
func ActionForDecision(status ReportStatus) ApprovalAction {
	if status == StatusRejected {
		return ActionRejected
	}
	return ActionApproved
}

// Approval is one append-only audit entry for a report.
type Approval struct {
	ApprovalID int64          `json:"id"`
	Action     ApprovalAction `json:"action" validate:"required,oneof=APPROVED REJECTED REQUEST_CHANGE CHANGE_GRANTED CHANGE_DENIED USER_EDITED"`
	Comment    *string        `json:"comment,omitempty" validate:"omitempty,max=2000"`
	CreatedAt  time.Time      `json:"createdAt" validate:"required"`
	ReportID   int64          `json:"reportId" validate:"required,gt=0"`
	ActorID    int64          `json:"actorId" validate:"required,gt=0"`
}

var approvalValidator = validator.New(validator.WithRequiredStructEnabled())

// NewApproval builds a validated audit entry. The id is assigned by the store.
func NewApproval(action ApprovalAction, comment *string, reportID, actorID int64, now time.Time) (Approval, error) {
	a := Approval{
		Action:    action,
		Comment:   normalizeComment(comment),
		CreatedAt: now,
		ReportID:  reportID,
		ActorID:   actorID,
	}
	if err := approvalValidator.Struct(a); err != nil {
		return Approval{}, fmt.Errorf("invalid approval entry: %w", err)
	}
	return a, nil
}

func normalizeComment(comment *string) *string {
	if comment == nil || *comment == "" {
		return nil
	}
	c := *comment
	return &c
}
