package dto

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/SscSPs/report_approval_app/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToReportResponses_ApprovalsKey(t *testing.T) {
	report := domain.Report{
		ReportID:  3,
		Title:     "Lunch",
		Amount:    decimal.RequireFromString("9.90"),
		Status:    domain.StatusPending,
		CreatedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		OwnerID:   2,
	}
	views := []domain.ReportView{
		{Report: report, Owner: &domain.UserSummary{Name: "Olive", Email: "o@example.com"}, Approvals: []domain.Approval{}},
		{Report: report},
	}

	out, err := json.Marshal(ToReportResponses(views))
	require.NoError(t, err)

	var raw []map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(out, &raw))
	require.Len(t, raw, 2)
	assert.JSONEq(t, `[]`, string(raw[0]["approvals"]))
	assert.Contains(t, raw[0], "user")
	assert.NotContains(t, raw[1], "approvals")
	assert.NotContains(t, raw[1], "user")
	assert.Equal(t, "9.9", string(raw[0]["amount"]))
}
