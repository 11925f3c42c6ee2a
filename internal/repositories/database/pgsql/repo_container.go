package pgsql

import (
	portsrepo "github.com/SscSPs/report_approval_app/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		ReportRepo: newPgxReportRepository(dbPool),
		UserRepo:   newPgxUserRepository(dbPool),
	}
}
