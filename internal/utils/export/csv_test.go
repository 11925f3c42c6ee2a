package export

import (
	"strings"
	"testing"
	"time"

	"github.com/SscSPs/report_approval_app/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportsCSV_Empty(t *testing.T) {
	assert.Equal(t, CSVHeader, string(ReportsCSV(nil)))
}

func TestReportsCSV_RowsAndQuoting(t *testing.T) {
	created := time.Date(2024, 3, 5, 10, 4, 5, 123_000_000, time.FixedZone("X", 2*3600))
	reports := []domain.ReportView{
		{
			Report: domain.Report{
				ReportID:    7,
				Title:       `He said "hi"`,
				Description: "line, with comma",
				Amount:      decimal.RequireFromString("12.50"),
				Status:      domain.StatusApproved,
				CreatedAt:   created,
			},
			Owner: &domain.UserSummary{Name: "Ann", Email: "ann@example.com"},
		},
		{
			Report: domain.Report{
				ReportID:  3,
				Title:     "Taxi",
				Amount:    decimal.Zero,
				Status:    domain.StatusPending,
				CreatedAt: created.Add(-time.Hour),
			},
		},
	}

	out := string(ReportsCSV(reports))
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 3)
	assert.False(t, strings.HasSuffix(out, "\n"))
	assert.Equal(t, CSVHeader, lines[0])
	assert.Equal(t, `7,"He said ""hi""","line, with comma",12.5,APPROVED,2024-03-05T08:04:05.123Z,ann@example.com,"Ann"`, lines[1])
	assert.Equal(t, `3,"Taxi","",0,PENDING,2024-03-05T07:04:05.123Z,,""`, lines[2])
}
