// Package export renders report listings into downloadable formats.
package export

import (
	"strconv"
	"strings"

	"github.com/SscSPs/report_approval_app/internal/core/domain"
)

// CSVHeader is the first line of every report export.
const CSVHeader = "id,title,description,amount,status,createdAt,userEmail,userName"

// CSVTimeLayout renders createdAt as UTC ISO-8601 with milliseconds.
const CSVTimeLayout = "2006-01-02T15:04:05.000Z"

// ReportsCSV renders one row per report in the given order. Free-text columns
// (title, description, owner name) are always quoted; rows are joined by "\n"
// with no trailing newline.
func ReportsCSV(reports []domain.ReportView) []byte {
	var b strings.Builder
	b.WriteString(CSVHeader)
	for _, r := range reports {
		b.WriteByte('\n')
		writeRow(&b, r)
	}
	return []byte(b.String())
}

func writeRow(b *strings.Builder, r domain.ReportView) {
	var email, name string
	if r.Owner != nil {
		email = r.Owner.Email
		name = r.Owner.Name
	}
	b.WriteString(strconv.FormatInt(r.ReportID, 10))
	b.WriteByte(',')
	b.WriteString(quote(r.Title))
	b.WriteByte(',')
	b.WriteString(quote(r.Description))
	b.WriteByte(',')
	b.WriteString(r.Amount.String())
	b.WriteByte(',')
	b.WriteString(string(r.Status))
	b.WriteByte(',')
	b.WriteString(r.CreatedAt.UTC().Format(CSVTimeLayout))
	b.WriteByte(',')
	b.WriteString(email)
	b.WriteByte(',')
	b.WriteString(quote(name))
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
