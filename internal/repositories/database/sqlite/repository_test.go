package sqlite

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/SscSPs/report_approval_app/internal/apperrors"
	"github.com/SscSPs/report_approval_app/internal/core/domain"
	portsrepo "github.com/SscSPs/report_approval_app/internal/core/ports/repositories"
	"github.com/SscSPs/report_approval_app/pkg/database"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type RepositoryTestSuite struct {
	suite.Suite
	db       *sql.DB
	repos    portsrepo.RepositoryProvider
	ctx      context.Context
	owner    *domain.User
	reviewer *domain.User
	base     time.Time
}

func (s *RepositoryTestSuite) SetupTest() {
	db, err := database.OpenSQLite(database.InMemorySQLite)
	s.Require().NoError(err)
	s.Require().NoError(database.RunMigrations(db, database.DriverSQLite, slog.New(slog.NewTextHandler(io.Discard, nil))))
	s.db = db
	s.repos = NewRepositoryProvider(db)
	s.ctx = context.Background()
	s.base = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	s.owner, err = s.repos.UserRepo.SaveUser(s.ctx, domain.User{
		Email: "owner@example.com", Name: "Olive Owner", PasswordHash: "x", Role: domain.RoleOwner, CreatedAt: s.base,
	})
	s.Require().NoError(err)
	s.reviewer, err = s.repos.UserRepo.SaveUser(s.ctx, domain.User{
		Email: "reviewer@example.com", Name: "Rey Reviewer", PasswordHash: "x", Role: domain.RoleReviewer, CreatedAt: s.base,
	})
	s.Require().NoError(err)
}

func (s *RepositoryTestSuite) TearDownTest() {
	s.NoError(s.db.Close())
}

func TestRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}

func (s *RepositoryTestSuite) saveReport(title string, amount string, createdAt time.Time) *domain.Report {
	r, err := s.repos.ReportRepo.SaveReport(s.ctx, domain.NewReport(domain.ReportDraft{
		Title: title, Description: "d", Amount: decimal.RequireFromString(amount),
	}, s.owner.UserID, createdAt))
	s.Require().NoError(err)
	return r
}

func (s *RepositoryTestSuite) appendApproval(reportID int64, action domain.ApprovalAction, at time.Time) {
	err := s.repos.ReportRepo.WithinReportTx(s.ctx, func(tx portsrepo.ReportTx) error {
		a, err := domain.NewApproval(action, nil, reportID, s.reviewer.UserID, at)
		if err != nil {
			return err
		}
		_, err = tx.AppendApproval(s.ctx, a)
		return err
	})
	s.Require().NoError(err)
}

func (s *RepositoryTestSuite) TestSaveAndFindReport() {
	saved := s.saveReport("Taxi", "12.34", s.base)
	s.NotZero(saved.ReportID)

	found, err := s.repos.ReportRepo.FindReportByID(s.ctx, saved.ReportID)
	s.Require().NoError(err)
	s.Equal("Taxi", found.Title)
	s.True(decimal.RequireFromString("12.34").Equal(found.Amount))
	s.Equal(domain.StatusPending, found.Status)
	s.False(found.Editable)
	s.True(s.base.Equal(found.CreatedAt))
	s.Equal(s.owner.UserID, found.OwnerID)

	_, err = s.repos.ReportRepo.FindReportByID(s.ctx, saved.ReportID+100)
	s.ErrorIs(err, apperrors.ErrNotFound)
}

func (s *RepositoryTestSuite) TestListReports_OrderingAndTies() {
	older := s.saveReport("older", "1", s.base)
	tieA := s.saveReport("tieA", "1", s.base.Add(time.Hour))
	tieB := s.saveReport("tieB", "1", s.base.Add(time.Hour))

	views, err := s.repos.ReportRepo.ListReports(s.ctx, domain.ReportFilter{})
	s.Require().NoError(err)
	s.Require().Len(views, 3)
	s.Equal([]int64{tieB.ReportID, tieA.ReportID, older.ReportID}, []int64{views[0].ReportID, views[1].ReportID, views[2].ReportID})
	s.Nil(views[0].Owner)
	s.Nil(views[0].Approvals)
}

func (s *RepositoryTestSuite) TestListReports_OwnerJoinAndApprovals() {
	report := s.saveReport("Hotel", "80", s.base)
	s.appendApproval(report.ReportID, domain.ActionRequestChange, s.base.Add(time.Minute))
	s.appendApproval(report.ReportID, domain.ActionChangeDenied, s.base.Add(2*time.Minute))

	views, err := s.repos.ReportRepo.ListReports(s.ctx, domain.ReportFilter{IncludeOwner: true, IncludeApprovals: true})
	s.Require().NoError(err)
	s.Require().Len(views, 1)
	s.Require().NotNil(views[0].Owner)
	s.Equal("Olive Owner", views[0].Owner.Name)
	s.Equal("owner@example.com", views[0].Owner.Email)
	s.Require().Len(views[0].Approvals, 2)
	s.Equal(domain.ActionChangeDenied, views[0].Approvals[0].Action)
	s.Equal(domain.ActionRequestChange, views[0].Approvals[1].Action)
}

func (s *RepositoryTestSuite) TestListReports_RequestedApprovalsAreNeverNil() {
	s.saveReport("untouched", "5", s.base)

	views, err := s.repos.ReportRepo.ListReports(s.ctx, domain.ReportFilter{IncludeApprovals: true})
	s.Require().NoError(err)
	s.Require().Len(views, 1)
	s.NotNil(views[0].Approvals)
	s.Empty(views[0].Approvals)
}

func (s *RepositoryTestSuite) TestListReports_OwnerAndWindowFilter() {
	inMarch := s.saveReport("march", "1", s.base)
	s.saveReport("april", "1", time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC))
	other, err := s.repos.ReportRepo.SaveReport(s.ctx, domain.NewReport(domain.ReportDraft{Title: "theirs", Amount: decimal.NewFromInt(1)}, s.reviewer.UserID, s.base))
	s.Require().NoError(err)

	window := domain.Month{Year: 2024, Month: time.March}.Window(time.UTC)
	ownerID := s.owner.UserID
	views, err := s.repos.ReportRepo.ListReports(s.ctx, domain.ReportFilter{OwnerID: &ownerID, Window: &window})
	s.Require().NoError(err)
	s.Require().Len(views, 1)
	s.Equal(inMarch.ReportID, views[0].ReportID)

	all, err := s.repos.ReportRepo.ListReports(s.ctx, domain.ReportFilter{Window: &window})
	s.Require().NoError(err)
	s.Len(all, 2)
	s.Contains([]int64{all[0].ReportID, all[1].ReportID}, other.ReportID)
}

func (s *RepositoryTestSuite) TestGetReportStats() {
	empty, err := s.repos.ReportRepo.GetReportStats(s.ctx, nil)
	s.Require().NoError(err)
	s.Equal(int64(0), empty.TotalReports)
	s.True(empty.TotalAmount.IsZero())

	a := s.saveReport("a", "10.10", s.base)
	s.saveReport("b", "5.25", s.base)
	s.Require().NoError(s.repos.ReportRepo.WithinReportTx(s.ctx, func(tx portsrepo.ReportTx) error {
		r, err := tx.LockReport(s.ctx, a.ReportID)
		if err != nil {
			return err
		}
		r.Decide(domain.StatusApproved)
		return tx.UpdateReport(s.ctx, *r)
	}))

	stats, err := s.repos.ReportRepo.GetReportStats(s.ctx, nil)
	s.Require().NoError(err)
	s.Equal(int64(2), stats.TotalReports)
	s.Equal(int64(1), stats.PendingReports)
	s.Equal(int64(1), stats.ApprovedReports)
	s.Equal(int64(0), stats.RejectedReports)
	s.Equal("15.35", stats.TotalAmount.String())

	window := domain.Month{Year: 2023, Month: time.January}.Window(time.UTC)
	none, err := s.repos.ReportRepo.GetReportStats(s.ctx, &window)
	s.Require().NoError(err)
	s.Equal(int64(0), none.TotalReports)
	s.True(none.TotalAmount.IsZero())
}

func (s *RepositoryTestSuite) TestDeleteReportRemovesAuditTrail() {
	report := s.saveReport("gone", "1", s.base)
	s.appendApproval(report.ReportID, domain.ActionRequestChange, s.base)

	s.Require().NoError(s.repos.ReportRepo.WithinReportTx(s.ctx, func(tx portsrepo.ReportTx) error {
		return tx.DeleteReport(s.ctx, report.ReportID)
	}))

	_, err := s.repos.ReportRepo.FindReportByID(s.ctx, report.ReportID)
	s.ErrorIs(err, apperrors.ErrNotFound)
	approvals, err := s.repos.ReportRepo.ListApprovalsByReportID(s.ctx, report.ReportID)
	s.Require().NoError(err)
	s.Empty(approvals)
}

func (s *RepositoryTestSuite) TestWithinReportTx_RollsBackOnError() {
	report := s.saveReport("keep", "1", s.base)
	boom := apperrors.NewStorageError("boom", nil)

	err := s.repos.ReportRepo.WithinReportTx(s.ctx, func(tx portsrepo.ReportTx) error {
		r, err := tx.LockReport(s.ctx, report.ReportID)
		if err != nil {
			return err
		}
		r.GrantEdit()
		if err := tx.UpdateReport(s.ctx, *r); err != nil {
			return err
		}
		return boom
	})
	s.ErrorIs(err, boom)

	found, err := s.repos.ReportRepo.FindReportByID(s.ctx, report.ReportID)
	s.Require().NoError(err)
	s.False(found.Editable)
}

func (s *RepositoryTestSuite) TestUserRepository() {
	found, err := s.repos.UserRepo.FindUserByEmail(s.ctx, "OWNER@example.com")
	s.Require().NoError(err)
	s.Equal(s.owner.UserID, found.UserID)
	s.Equal(domain.RoleOwner, found.Role)

	_, err = s.repos.UserRepo.SaveUser(s.ctx, domain.User{
		Email: "Owner@Example.com", Name: "dup", PasswordHash: "x", Role: domain.RoleOwner, CreatedAt: s.base,
	})
	s.ErrorIs(err, apperrors.ErrDuplicate)

	_, err = s.repos.UserRepo.FindUserByID(s.ctx, 999)
	s.ErrorIs(err, apperrors.ErrNotFound)
}

func TestMillisRoundTrip(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 678_900_000, time.FixedZone("X", 3600))
	got := fromMillis(toMillis(ts))
	assert.Equal(t, time.UTC, got.Location())
	require.True(t, got.Equal(ts.Truncate(time.Millisecond)))
}
