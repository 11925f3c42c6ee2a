package sqlite

import (
	"database/sql"

	portsrepo "github.com/SscSPs/report_approval_app/internal/core/ports/repositories"
)

func NewRepositoryProvider(db *sql.DB) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		ReportRepo: newSQLiteReportRepository(db),
		UserRepo:   newSQLiteUserRepository(db),
	}
}
