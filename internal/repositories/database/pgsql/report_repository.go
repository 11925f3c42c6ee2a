package pgsql

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/SscSPs/report_approval_app/internal/apperrors"
	"github.com/SscSPs/report_approval_app/internal/core/domain"
	portsrepo "github.com/SscSPs/report_approval_app/internal/core/ports/repositories"
	"github.com/SscSPs/report_approval_app/internal/models"
	"github.com/SscSPs/report_approval_app/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type PgxReportRepository struct {
	BaseRepository
}

func newPgxReportRepository(pool *pgxpool.Pool) portsrepo.ReportRepositoryFacade {
	return &PgxReportRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

// Ensure PgxReportRepository implements portsrepo.ReportRepositoryFacade
var _ portsrepo.ReportRepositoryFacade = (*PgxReportRepository)(nil)

const reportColumns = `r.report_id, r.title, r.description, r.amount, r.status, r.editable, r.created_at, r.owner_id`

const approvalColumns = `a.approval_id, a.action, a.comment, a.created_at, a.report_id, a.actor_id`

// pgxQuerier is satisfied by both the pool and a transaction.
type pgxQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func scanReport(row pgx.Row) (*domain.Report, error) {
	var m models.Report
	err := row.Scan(
		&m.ReportID,
		&m.Title,
		&m.Description,
		&m.Amount,
		&m.Status,
		&m.Editable,
		&m.CreatedAt,
		&m.OwnerID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("report not found")
		}
		return nil, apperrors.NewStorageError("failed to scan report", err)
	}
	report := mapping.ToDomainReport(m)
	return &report, nil
}

func findReport(ctx context.Context, q pgxQuerier, reportID int64, forUpdate bool) (*domain.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports r WHERE r.report_id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	return scanReport(q.QueryRow(ctx, query, reportID))
}

func (r *PgxReportRepository) FindReportByID(ctx context.Context, reportID int64) (*domain.Report, error) {
	return findReport(ctx, r.Pool, reportID, false)
}

func (r *PgxReportRepository) SaveReport(ctx context.Context, report domain.Report) (*domain.Report, error) {
	m := mapping.ToModelReport(report)
	query := `
		INSERT INTO reports (title, description, amount, status, editable, created_at, owner_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING report_id;
	`
	err := r.Pool.QueryRow(ctx, query,
		m.Title,
		m.Description,
		m.Amount,
		m.Status,
		m.Editable,
		m.CreatedAt,
		m.OwnerID,
	).Scan(&m.ReportID)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to save report", err)
	}
	saved := mapping.ToDomainReport(m)
	return &saved, nil
}

// windowClause appends the created_at bounds for an optional window.
func windowClause(where []string, args []any, window *domain.TimeWindow) ([]string, []any) {
	if window == nil {
		return where, args
	}
	args = append(args, window.From)
	where = append(where, fmt.Sprintf("r.created_at >= $%d", len(args)))
	args = append(args, window.To)
	where = append(where, fmt.Sprintf("r.created_at < $%d", len(args)))
	return where, args
}

func (r *PgxReportRepository) ListReports(ctx context.Context, filter domain.ReportFilter) ([]domain.ReportView, error) {
	var where []string
	var args []any
	if filter.OwnerID != nil {
		args = append(args, *filter.OwnerID)
		where = append(where, fmt.Sprintf("r.owner_id = $%d", len(args)))
	}
	where, args = windowClause(where, args, filter.Window)

	var query strings.Builder
	query.WriteString(`SELECT ` + reportColumns)
	if filter.IncludeOwner {
		query.WriteString(`, u.name AS owner_name, u.email AS owner_email FROM reports r JOIN users u ON u.user_id = r.owner_id`)
	} else {
		query.WriteString(` FROM reports r`)
	}
	if len(where) > 0 {
		query.WriteString(` WHERE ` + strings.Join(where, " AND "))
	}
	query.WriteString(` ORDER BY r.created_at DESC, r.report_id DESC`)

	rows, err := r.Pool.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to query reports", err)
	}

	var views []domain.ReportView
	if filter.IncludeOwner {
		joined, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.ReportWithOwner])
		if err != nil {
			return nil, apperrors.NewStorageError("failed to collect report rows", err)
		}
		views = mapping.ToDomainReportViewsWithOwner(joined)
	} else {
		plain, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.Report])
		if err != nil {
			return nil, apperrors.NewStorageError("failed to collect report rows", err)
		}
		views = mapping.ToDomainReportViews(plain)
	}

	if filter.IncludeApprovals && len(views) > 0 {
		if err := r.attachApprovals(ctx, views); err != nil {
			return nil, err
		}
	}
	return views, nil
}

// attachApprovals loads the audit trails of all views in one query.
func (r *PgxReportRepository) attachApprovals(ctx context.Context, views []domain.ReportView) error {
	ids := make([]int64, len(views))
	for i, v := range views {
		ids[i] = v.ReportID
	}
	query := `SELECT ` + approvalColumns + ` FROM approvals a WHERE a.report_id = ANY($1) ORDER BY a.created_at DESC, a.approval_id DESC`
	rows, err := r.Pool.Query(ctx, query, ids)
	if err != nil {
		return apperrors.NewStorageError("failed to query approvals", err)
	}
	approvals, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.Approval])
	if err != nil {
		return apperrors.NewStorageError("failed to collect approval rows", err)
	}

	byReport := make(map[int64][]domain.Approval, len(views))
	for _, m := range approvals {
		byReport[m.ReportID] = append(byReport[m.ReportID], mapping.ToDomainApproval(m))
	}
	for i := range views {
		entries := byReport[views[i].ReportID]
		if entries == nil {
			// requested but empty: an empty trail, not an absent one
			entries = []domain.Approval{}
		}
		views[i].Approvals = entries
	}
	return nil
}

func (r *PgxReportRepository) ListApprovalsByReportID(ctx context.Context, reportID int64) ([]domain.Approval, error) {
	query := `SELECT ` + approvalColumns + ` FROM approvals a WHERE a.report_id = $1 ORDER BY a.created_at DESC, a.approval_id DESC`
	rows, err := r.Pool.Query(ctx, query, reportID)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to query approvals", err)
	}
	approvals, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.Approval])
	if err != nil {
		return nil, apperrors.NewStorageError("failed to collect approval rows", err)
	}
	return mapping.ToDomainApprovalSlice(approvals), nil
}

func (r *PgxReportRepository) GetReportStats(ctx context.Context, window *domain.TimeWindow) (*domain.ReportStats, error) {
	where, args := windowClause(nil, nil, window)
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE r.status = 'PENDING'),
			COUNT(*) FILTER (WHERE r.status = 'APPROVED'),
			COUNT(*) FILTER (WHERE r.status = 'REJECTED'),
			COALESCE(SUM(r.amount), 0)
		FROM reports r`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}

	var stats domain.ReportStats
	var total decimal.Decimal
	err := r.Pool.QueryRow(ctx, query, args...).Scan(
		&stats.TotalReports,
		&stats.PendingReports,
		&stats.ApprovedReports,
		&stats.RejectedReports,
		&total,
	)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to aggregate report stats", err)
	}
	stats.TotalAmount = total
	return &stats, nil
}

// WithinReportTx runs fn inside a single pgx transaction.
func (r *PgxReportRepository) WithinReportTx(ctx context.Context, fn func(tx portsrepo.ReportTx) error) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if rbErr := r.Rollback(ctx, tx); rbErr != nil {
			slog.ErrorContext(ctx, "Failed to rollback report transaction", slog.String("error", rbErr.Error()))
		}
	}()

	if err := fn(&pgxReportTx{tx: tx}); err != nil {
		return err
	}
	return r.Commit(ctx, tx)
}

// pgxReportTx implements portsrepo.ReportTx on an open pgx transaction.
type pgxReportTx struct {
	tx pgx.Tx
}

var _ portsrepo.ReportTx = (*pgxReportTx)(nil)

func (t *pgxReportTx) LockReport(ctx context.Context, reportID int64) (*domain.Report, error) {
	return findReport(ctx, t.tx, reportID, true)
}

func (t *pgxReportTx) UpdateReport(ctx context.Context, report domain.Report) error {
	m := mapping.ToModelReport(report)
	query := `
		UPDATE reports
		SET title = $2, description = $3, amount = $4, status = $5, editable = $6
		WHERE report_id = $1;
	`
	cmdTag, err := t.tx.Exec(ctx, query, m.ReportID, m.Title, m.Description, m.Amount, m.Status, m.Editable)
	if err != nil {
		return apperrors.NewStorageError("failed to update report", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("report not found")
	}
	return nil
}

func (t *pgxReportTx) AppendApproval(ctx context.Context, approval domain.Approval) (*domain.Approval, error) {
	m := mapping.ToModelApproval(approval)
	query := `
		INSERT INTO approvals (action, comment, created_at, report_id, actor_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING approval_id;
	`
	if err := t.tx.QueryRow(ctx, query, m.Action, m.Comment, m.CreatedAt, m.ReportID, m.ActorID).Scan(&m.ApprovalID); err != nil {
		return nil, apperrors.NewStorageError("failed to append approval", err)
	}
	saved := mapping.ToDomainApproval(m)
	return &saved, nil
}

func (t *pgxReportTx) DeleteReport(ctx context.Context, reportID int64) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM approvals WHERE report_id = $1`, reportID); err != nil {
		return apperrors.NewStorageError("failed to delete approvals", err)
	}
	cmdTag, err := t.tx.Exec(ctx, `DELETE FROM reports WHERE report_id = $1`, reportID)
	if err != nil {
		return apperrors.NewStorageError("failed to delete report", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("report not found")
	}
	return nil
}
