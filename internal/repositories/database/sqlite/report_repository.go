package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"

	"github.com/SscSPs/report_approval_app/internal/apperrors"
	"github.com/SscSPs/report_approval_app/internal/core/domain"
	portsrepo "github.com/SscSPs/report_approval_app/internal/core/ports/repositories"
	"github.com/shopspring/decimal"
)

type SQLiteReportRepository struct {
	BaseRepository
}

func newSQLiteReportRepository(db *sql.DB) portsrepo.ReportRepositoryFacade {
	return &SQLiteReportRepository{BaseRepository: BaseRepository{DB: db}}
}

var _ portsrepo.ReportRepositoryFacade = (*SQLiteReportRepository)(nil)

const reportColumns = `r.report_id, r.title, r.description, r.amount, r.status, r.editable, r.created_at, r.owner_id`

const approvalColumns = `a.approval_id, a.action, a.comment, a.created_at, a.report_id, a.actor_id`

// sqlQuerier is satisfied by both *sql.DB and *sql.Tx.
type sqlQuerier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanReportInto scans the reportColumns prefix of a row plus any extra destinations.
func scanReportInto(row rowScanner, extra ...any) (domain.Report, error) {
	var (
		r         domain.Report
		amount    string
		status    string
		createdAt int64
	)
	dest := append([]any{&r.ReportID, &r.Title, &r.Description, &amount, &status, &r.Editable, &createdAt, &r.OwnerID}, extra...)
	if err := row.Scan(dest...); err != nil {
		return domain.Report{}, err
	}
	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return domain.Report{}, err
	}
	r.Amount = parsed
	r.Status = domain.ReportStatus(status)
	r.CreatedAt = fromMillis(createdAt)
	return r, nil
}

func scanApproval(row rowScanner) (domain.Approval, error) {
	var (
		a         domain.Approval
		action    string
		comment   sql.NullString
		createdAt int64
	)
	if err := row.Scan(&a.ApprovalID, &action, &comment, &createdAt, &a.ReportID, &a.ActorID); err != nil {
		return domain.Approval{}, err
	}
	a.Action = domain.ApprovalAction(action)
	if comment.Valid {
		c := comment.String
		a.Comment = &c
	}
	a.CreatedAt = fromMillis(createdAt)
	return a, nil
}

func findReport(ctx context.Context, q sqlQuerier, reportID int64) (*domain.Report, error) {
	row := q.QueryRowContext(ctx, `SELECT `+reportColumns+` FROM reports r WHERE r.report_id = ?`, reportID)
	report, err := scanReportInto(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("report not found")
		}
		return nil, apperrors.NewStorageError("failed to scan report", err)
	}
	return &report, nil
}

func (r *SQLiteReportRepository) FindReportByID(ctx context.Context, reportID int64) (*domain.Report, error) {
	return findReport(ctx, r.DB, reportID)
}

func (r *SQLiteReportRepository) SaveReport(ctx context.Context, report domain.Report) (*domain.Report, error) {
	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO reports (title, description, amount, status, editable, created_at, owner_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		report.Title,
		report.Description,
		report.Amount.String(),
		string(report.Status),
		report.Editable,
		toMillis(report.CreatedAt),
		report.OwnerID,
	)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to save report", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, apperrors.NewStorageError("failed to read report id", err)
	}
	saved := report
	saved.ReportID = id
	saved.CreatedAt = fromMillis(toMillis(report.CreatedAt))
	return &saved, nil
}

func windowClause(where []string, args []any, window *domain.TimeWindow) ([]string, []any) {
	if window == nil {
		return where, args
	}
	where = append(where, "r.created_at >= ?", "r.created_at < ?")
	args = append(args, toMillis(window.From), toMillis(window.To))
	return where, args
}

func (r *SQLiteReportRepository) ListReports(ctx context.Context, filter domain.ReportFilter) ([]domain.ReportView, error) {
	var where []string
	var args []any
	if filter.OwnerID != nil {
		where = append(where, "r.owner_id = ?")
		args = append(args, *filter.OwnerID)
	}
	where, args = windowClause(where, args, filter.Window)

	var query strings.Builder
	query.WriteString(`SELECT ` + reportColumns)
	if filter.IncludeOwner {
		query.WriteString(`, u.name, u.email FROM reports r JOIN users u ON u.user_id = r.owner_id`)
	} else {
		query.WriteString(` FROM reports r`)
	}
	if len(where) > 0 {
		query.WriteString(` WHERE ` + strings.Join(where, " AND "))
	}
	query.WriteString(` ORDER BY r.created_at DESC, r.report_id DESC`)

	views, err := r.queryViews(ctx, query.String(), filter.IncludeOwner, args...)
	if err != nil {
		return nil, err
	}

	if filter.IncludeApprovals && len(views) > 0 {
		if err := r.attachApprovals(ctx, views); err != nil {
			return nil, err
		}
	}
	return views, nil
}

// queryViews reads every row and closes the result set before returning, so
// follow-up queries can run on a single-connection database.
func (r *SQLiteReportRepository) queryViews(ctx context.Context, query string, withOwner bool, args ...any) ([]domain.ReportView, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to query reports", err)
	}
	defer rows.Close()

	views := []domain.ReportView{}
	for rows.Next() {
		var view domain.ReportView
		if withOwner {
			var owner domain.UserSummary
			view.Report, err = scanReportInto(rows, &owner.Name, &owner.Email)
			view.Owner = &owner
		} else {
			view.Report, err = scanReportInto(rows)
		}
		if err != nil {
			return nil, apperrors.NewStorageError("failed to scan report row", err)
		}
		views = append(views, view)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError("error iterating report rows", err)
	}
	return views, nil
}

func (r *SQLiteReportRepository) attachApprovals(ctx context.Context, views []domain.ReportView) error {
	placeholders := make([]string, len(views))
	args := make([]any, len(views))
	for i, v := range views {
		placeholders[i] = "?"
		args[i] = v.ReportID
	}
	query := `SELECT ` + approvalColumns + ` FROM approvals a WHERE a.report_id IN (` + strings.Join(placeholders, ",") + `) ORDER BY a.created_at DESC, a.approval_id DESC`
	approvals, err := queryApprovals(ctx, r.DB, query, args...)
	if err != nil {
		return err
	}

	byReport := make(map[int64][]domain.Approval, len(views))
	for _, a := range approvals {
		byReport[a.ReportID] = append(byReport[a.ReportID], a)
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

func queryApprovals(ctx context.Context, q sqlQuerier, query string, args ...any) ([]domain.Approval, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to query approvals", err)
	}
	defer rows.Close()

	approvals := []domain.Approval{}
	for rows.Next() {
		a, err := scanApproval(rows)
		if err != nil {
			return nil, apperrors.NewStorageError("failed to scan approval row", err)
		}
		approvals = append(approvals, a)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError("error iterating approval rows", err)
	}
	return approvals, nil
}

func (r *SQLiteReportRepository) ListApprovalsByReportID(ctx context.Context, reportID int64) ([]domain.Approval, error) {
	query := `SELECT ` + approvalColumns + ` FROM approvals a WHERE a.report_id = ? ORDER BY a.created_at DESC, a.approval_id DESC`
	return queryApprovals(ctx, r.DB, query, reportID)
}

// GetReportStats tallies in Go because SQLite would sum the text amounts as floats.
func (r *SQLiteReportRepository) GetReportStats(ctx context.Context, window *domain.TimeWindow) (*domain.ReportStats, error) {
	where, args := windowClause(nil, nil, window)
	query := `SELECT r.status, r.amount FROM reports r`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to query report stats", err)
	}
	defer rows.Close()

	stats := domain.ReportStats{TotalAmount: decimal.Zero}
	for rows.Next() {
		var status, amount string
		if err := rows.Scan(&status, &amount); err != nil {
			return nil, apperrors.NewStorageError("failed to scan report stats row", err)
		}
		value, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, apperrors.NewStorageError("invalid stored amount", err)
		}
		stats.TotalReports++
		stats.TotalAmount = stats.TotalAmount.Add(value)
		switch domain.ReportStatus(status) {
		case domain.StatusPending:
			stats.PendingReports++
		case domain.StatusApproved:
			stats.ApprovedReports++
		case domain.StatusRejected:
			stats.RejectedReports++
		}
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError("error iterating report stats rows", err)
	}
	return &stats, nil
}

// WithinReportTx runs fn inside one immediate (write-locked) transaction.
func (r *SQLiteReportRepository) WithinReportTx(ctx context.Context, fn func(tx portsrepo.ReportTx) error) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if rbErr := r.Rollback(tx); rbErr != nil {
			slog.ErrorContext(ctx, "Failed to rollback report transaction", slog.String("error", rbErr.Error()))
		}
	}()

	if err := fn(&sqliteReportTx{tx: tx}); err != nil {
		return err
	}
	return r.Commit(tx)
}

// sqliteReportTx implements portsrepo.ReportTx. The transaction already
// holds the database write lock, so LockReport is a plain read.
type sqliteReportTx struct {
	tx *sql.Tx
}

var _ portsrepo.ReportTx = (*sqliteReportTx)(nil)

func (t *sqliteReportTx) LockReport(ctx context.Context, reportID int64) (*domain.Report, error) {
	return findReport(ctx, t.tx, reportID)
}

func (t *sqliteReportTx) UpdateReport(ctx context.Context, report domain.Report) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE reports
		SET title = ?, description = ?, amount = ?, status = ?, editable = ?
		WHERE report_id = ?`,
		report.Title,
		report.Description,
		report.Amount.String(),
		string(report.Status),
		report.Editable,
		report.ReportID,
	)
	if err != nil {
		return apperrors.NewStorageError("failed to update report", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return apperrors.NewStorageError("failed to read affected rows", err)
	}
	if affected == 0 {
		return apperrors.NewNotFoundError("report not found")
	}
	return nil
}

func (t *sqliteReportTx) AppendApproval(ctx context.Context, approval domain.Approval) (*domain.Approval, error) {
	var comment sql.NullString
	if approval.Comment != nil {
		comment = sql.NullString{String: *approval.Comment, Valid: true}
	}
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO approvals (action, comment, created_at, report_id, actor_id)
		VALUES (?, ?, ?, ?, ?)`,
		string(approval.Action),
		comment,
		toMillis(approval.CreatedAt),
		approval.ReportID,
		approval.ActorID,
	)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to append approval", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, apperrors.NewStorageError("failed to read approval id", err)
	}
	saved := approval
	saved.ApprovalID = id
	saved.CreatedAt = fromMillis(toMillis(approval.CreatedAt))
	return &saved, nil
}

func (t *sqliteReportTx) DeleteReport(ctx context.Context, reportID int64) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM approvals WHERE report_id = ?`, reportID); err != nil {
		return apperrors.NewStorageError("failed to delete approvals", err)
	}
	res, err := t.tx.ExecContext(ctx, `DELETE FROM reports WHERE report_id = ?`, reportID)
	if err != nil {
		return apperrors.NewStorageError("failed to delete report", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return apperrors.NewStorageError("failed to read affected rows", err)
	}
	if affected == 0 {
		return apperrors.NewNotFoundError("report not found")
	}
	return nil
}
