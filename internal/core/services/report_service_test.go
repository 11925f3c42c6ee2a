package services_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/SscSPs/report_approval_app/internal/apperrors"
	"github.com/SscSPs/report_approval_app/internal/core/domain"
	portsrepo "github.com/SscSPs/report_approval_app/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/report_approval_app/internal/core/ports/services"
	"github.com/SscSPs/report_approval_app/internal/core/services"
	"github.com/SscSPs/report_approval_app/internal/repositories/database/sqlite"
	"github.com/SscSPs/report_approval_app/pkg/database"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

// steppingClock returns a strictly increasing time on every call.
type steppingClock struct {
	base  time.Time
	ticks atomic.Int64
}

func (c *steppingClock) Now() time.Time {
	return c.base.Add(time.Duration(c.ticks.Add(1)) * time.Second)
}

// failingAppendRepo wraps a repository so every AppendApproval inside a
// transaction fails after the entity update has been written.
type failingAppendRepo struct {
	portsrepo.ReportRepositoryFacade
}

type failingAppendTx struct {
	portsrepo.ReportTx
}

var errAppendFailed = errors.New("append failed")

func (r failingAppendRepo) WithinReportTx(ctx context.Context, fn func(tx portsrepo.ReportTx) error) error {
	return r.ReportRepositoryFacade.WithinReportTx(ctx, func(tx portsrepo.ReportTx) error {
		return fn(failingAppendTx{ReportTx: tx})
	})
}

func (failingAppendTx) AppendApproval(context.Context, domain.Approval) (*domain.Approval, error) {
	return nil, apperrors.NewStorageError("failed to append approval", errAppendFailed)
}

// gatedTxRepo holds the first WithinReportTx call until a later one has
// committed, so the first caller applies its transition last.
type gatedTxRepo struct {
	portsrepo.ReportRepositoryFacade
	calls     atomic.Int32
	laterDone chan struct{}
}

func newGatedTxRepo(inner portsrepo.ReportRepositoryFacade) *gatedTxRepo {
	return &gatedTxRepo{ReportRepositoryFacade: inner, laterDone: make(chan struct{})}
}

func (r *gatedTxRepo) WithinReportTx(ctx context.Context, fn func(tx portsrepo.ReportTx) error) error {
	if r.calls.Add(1) == 1 {
		<-r.laterDone
	} else {
		defer close(r.laterDone)
	}
	return r.ReportRepositoryFacade.WithinReportTx(ctx, fn)
}

type ReportServiceTestSuite struct {
	suite.Suite
	ctx      context.Context
	db       *sql.DB
	repos    portsrepo.RepositoryProvider
	clock    *steppingClock
	service  portssvc.ReportSvcFacade
	owner    domain.Actor
	other    domain.Actor
	reviewer domain.Actor
}

func (s *ReportServiceTestSuite) SetupTest() {
	db, err := database.OpenSQLite(database.InMemorySQLite)
	s.Require().NoError(err)
	s.Require().NoError(database.RunMigrations(db, database.DriverSQLite, slog.New(slog.NewTextHandler(io.Discard, nil))))
	s.db = db
	s.ctx = context.Background()
	s.repos = sqlite.NewRepositoryProvider(db)
	s.clock = &steppingClock{base: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	s.service = services.NewReportService(s.repos.ReportRepo, services.WithClock(s.clock.Now), services.WithLocation(time.UTC))

	s.owner = s.createUser("owner@example.com", "Olive", domain.RoleOwner)
	s.other = s.createUser("other@example.com", "Otto", domain.RoleOwner)
	s.reviewer = s.createUser("reviewer@example.com", "Rey", domain.RoleReviewer)
}

func (s *ReportServiceTestSuite) TearDownTest() {
	s.NoError(s.db.Close())
}

func TestReportServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ReportServiceTestSuite))
}

func (s *ReportServiceTestSuite) createUser(email, name string, role domain.Role) domain.Actor {
	u, err := s.repos.UserRepo.SaveUser(s.ctx, domain.User{Email: email, Name: name, PasswordHash: "x", Role: role, CreatedAt: s.clock.base})
	s.Require().NoError(err)
	return u.Actor()
}

func (s *ReportServiceTestSuite) submit(title, amount string) *domain.Report {
	r, err := s.service.SubmitReport(s.ctx, s.owner, domain.ReportDraft{Title: title, Description: "desc", Amount: decimal.RequireFromString(amount)})
	s.Require().NoError(err)
	return r
}

func (s *ReportServiceTestSuite) reload(id int64) *domain.Report {
	r, err := s.repos.ReportRepo.FindReportByID(s.ctx, id)
	s.Require().NoError(err)
	return r
}

func (s *ReportServiceTestSuite) approvals(id int64) []domain.Approval {
	a, err := s.repos.ReportRepo.ListApprovalsByReportID(s.ctx, id)
	s.Require().NoError(err)
	return a
}

func ptr[T any](v T) *T { return &v }

func (s *ReportServiceTestSuite) TestSubmitReport() {
	r := s.submit("Taxi", "12.50")
	s.NotZero(r.ReportID)
	s.Equal(domain.StatusPending, r.Status)
	s.False(r.Editable)
	s.Equal(s.owner.ID, r.OwnerID)
	s.Empty(s.approvals(r.ReportID))

	_, err := s.service.SubmitReport(s.ctx, s.owner, domain.ReportDraft{Title: "  ", Amount: decimal.NewFromInt(1)})
	s.ErrorIs(err, apperrors.ErrValidation)
	_, err = s.service.SubmitReport(s.ctx, s.owner, domain.ReportDraft{Title: "x", Amount: decimal.NewFromInt(-1)})
	s.ErrorIs(err, apperrors.ErrValidation)
}

func (s *ReportServiceTestSuite) TestDecide() {
	r := s.submit("Hotel", "100")

	decided, err := s.service.Decide(s.ctx, s.reviewer, r.ReportID, domain.StatusRejected, ptr("receipt missing"))
	s.Require().NoError(err)
	s.Equal(domain.StatusRejected, decided.Status)

	entries := s.approvals(r.ReportID)
	s.Require().Len(entries, 1)
	s.Equal(domain.ActionRejected, entries[0].Action)
	s.Equal(r.ReportID, entries[0].ReportID)
	s.Equal(s.reviewer.ID, entries[0].ActorID)
	s.Require().NotNil(entries[0].Comment)
	s.Equal("receipt missing", *entries[0].Comment)

	_, err = s.service.Decide(s.ctx, s.reviewer, r.ReportID, domain.StatusPending, nil)
	s.ErrorIs(err, apperrors.ErrValidation)

	_, err = s.service.Decide(s.ctx, s.reviewer, r.ReportID+1000, domain.StatusApproved, nil)
	s.ErrorIs(err, apperrors.ErrNotFound)
}

func (s *ReportServiceTestSuite) TestDecideClosesOpenEditWindow() {
	r := s.submit("Hotel", "100")
	_, err := s.service.GrantEdit(s.ctx, s.reviewer, r.ReportID, nil)
	s.Require().NoError(err)

	decided, err := s.service.Decide(s.ctx, s.reviewer, r.ReportID, domain.StatusApproved, nil)
	s.Require().NoError(err)
	s.Equal(domain.StatusApproved, decided.Status)
	s.False(decided.Editable)
}

func (s *ReportServiceTestSuite) TestGrantEditKeepsInvariant() {
	r := s.submit("Flight", "300")
	_, err := s.service.Decide(s.ctx, s.reviewer, r.ReportID, domain.StatusApproved, nil)
	s.Require().NoError(err)

	granted, err := s.service.GrantEdit(s.ctx, s.reviewer, r.ReportID, ptr("go ahead"))
	s.Require().NoError(err)
	s.True(granted.Editable)
	s.Equal(domain.StatusPending, granted.Status)

	stored := s.reload(r.ReportID)
	s.True(stored.Editable)
	s.Equal(domain.StatusPending, stored.Status)
	s.Equal(domain.ActionChangeGranted, s.approvals(r.ReportID)[0].Action)
}

func (s *ReportServiceTestSuite) TestEditAfterRejectionResetsToPending() {
	r := s.submit("Dinner", "20")
	_, err := s.service.Decide(s.ctx, s.reviewer, r.ReportID, domain.StatusRejected, nil)
	s.Require().NoError(err)
	_, err = s.service.GrantEdit(s.ctx, s.reviewer, r.ReportID, nil)
	s.Require().NoError(err)

	amount := decimal.NewFromInt(50)
	edited, err := s.service.EditReport(s.ctx, s.owner, r.ReportID, domain.ReportPatch{Amount: &amount}, ptr("fixed"))
	s.Require().NoError(err)
	s.Equal(domain.StatusPending, edited.Status)
	s.False(edited.Editable)
	s.True(amount.Equal(edited.Amount))
	s.Equal("Dinner", edited.Title)

	stored := s.reload(r.ReportID)
	s.True(amount.Equal(stored.Amount))
	s.False(stored.Editable)

	entries := s.approvals(r.ReportID)
	s.Require().Len(entries, 3)
	s.Equal([]domain.ApprovalAction{domain.ActionUserEdited, domain.ActionChangeGranted, domain.ActionRejected},
		[]domain.ApprovalAction{entries[0].Action, entries[1].Action, entries[2].Action})
}

func (s *ReportServiceTestSuite) TestEditWindowIsSingleUse() {
	r := s.submit("Dinner", "20")
	_, err := s.service.GrantEdit(s.ctx, s.reviewer, r.ReportID, nil)
	s.Require().NoError(err)

	_, err = s.service.EditReport(s.ctx, s.owner, r.ReportID, domain.ReportPatch{Title: ptr("Lunch")}, nil)
	s.Require().NoError(err)

	_, err = s.service.EditReport(s.ctx, s.owner, r.ReportID, domain.ReportPatch{Title: ptr("Brunch")}, nil)
	s.ErrorIs(err, apperrors.ErrInvalidState)
	s.Equal("Lunch", s.reload(r.ReportID).Title)
}

func (s *ReportServiceTestSuite) TestEditWhenNotEditableLeavesStateUnchanged() {
	r := s.submit("Dinner", "20")
	before := s.reload(r.ReportID)

	_, err := s.service.EditReport(s.ctx, s.owner, r.ReportID, domain.ReportPatch{Title: ptr("Changed")}, nil)
	s.ErrorIs(err, apperrors.ErrInvalidState)

	s.Equal(before, s.reload(r.ReportID))
	s.Empty(s.approvals(r.ReportID))
}

func (s *ReportServiceTestSuite) TestEditByNonOwnerIsNotFound() {
	r := s.submit("Dinner", "20")
	_, err := s.service.GrantEdit(s.ctx, s.reviewer, r.ReportID, nil)
	s.Require().NoError(err)

	_, err = s.service.EditReport(s.ctx, s.other, r.ReportID, domain.ReportPatch{Title: ptr("Mine now")}, nil)
	s.ErrorIs(err, apperrors.ErrNotFound)
	s.True(s.reload(r.ReportID).Editable)
}

func (s *ReportServiceTestSuite) TestCommentOnlyEditResubmitsUnchanged() {
	r := s.submit("Dinner", "20")
	_, err := s.service.Decide(s.ctx, s.reviewer, r.ReportID, domain.StatusRejected, nil)
	s.Require().NoError(err)
	_, err = s.service.GrantEdit(s.ctx, s.reviewer, r.ReportID, nil)
	s.Require().NoError(err)

	edited, err := s.service.EditReport(s.ctx, s.owner, r.ReportID, domain.ReportPatch{}, ptr("receipt attached, amount is right"))
	s.Require().NoError(err)
	s.Equal(domain.StatusPending, edited.Status)
	s.False(edited.Editable)

	stored := s.reload(r.ReportID)
	s.Equal("Dinner", stored.Title)
	s.Equal("desc", stored.Description)
	s.True(stored.Amount.Equal(decimal.NewFromInt(20)))
	s.False(stored.Editable)

	entries := s.approvals(r.ReportID)
	s.Require().Len(entries, 3)
	s.Equal(domain.ActionUserEdited, entries[0].Action)
	s.Require().NotNil(entries[0].Comment)
	s.Equal("receipt attached, amount is right", *entries[0].Comment)
}

func (s *ReportServiceTestSuite) TestRequestAndDenyChangeOnlyAppendAudit() {
	r := s.submit("Parking", "7")
	_, err := s.service.Decide(s.ctx, s.reviewer, r.ReportID, domain.StatusApproved, nil)
	s.Require().NoError(err)
	before := s.reload(r.ReportID)

	s.Require().NoError(s.service.RequestChange(s.ctx, s.owner, r.ReportID, ptr("wrong amount")))
	s.Require().NoError(s.service.DenyChange(s.ctx, s.reviewer, r.ReportID, nil))

	s.Equal(before, s.reload(r.ReportID))
	entries := s.approvals(r.ReportID)
	s.Require().Len(entries, 3)
	s.Equal(domain.ActionChangeDenied, entries[0].Action)
	s.Nil(entries[0].Comment)
	s.Equal(domain.ActionRequestChange, entries[1].Action)
	s.Equal(s.owner.ID, entries[1].ActorID)
}

func (s *ReportServiceTestSuite) TestRequestChangeByNonOwnerIsNotFound() {
	r := s.submit("Parking", "7")
	err := s.service.RequestChange(s.ctx, s.other, r.ReportID, nil)
	s.ErrorIs(err, apperrors.ErrNotFound)
	s.Empty(s.approvals(r.ReportID))
}

func (s *ReportServiceTestSuite) TestReviewerOnlyOperationsAreForbidden() {
	r := s.submit("Parking", "7")
	before := s.reload(r.ReportID)

	_, err := s.service.Decide(s.ctx, s.owner, r.ReportID, domain.StatusApproved, nil)
	s.ErrorIs(err, apperrors.ErrForbidden)
	_, err = s.service.GrantEdit(s.ctx, s.owner, r.ReportID, nil)
	s.ErrorIs(err, apperrors.ErrForbidden)
	s.ErrorIs(s.service.DenyChange(s.ctx, s.owner, r.ReportID, nil), apperrors.ErrForbidden)
	s.ErrorIs(s.service.DeleteReport(s.ctx, s.owner, r.ReportID), apperrors.ErrForbidden)
	_, err = s.service.DashboardStats(s.ctx, s.owner, nil)
	s.ErrorIs(err, apperrors.ErrForbidden)
	_, err = s.service.ExportCSV(s.ctx, s.owner, nil)
	s.ErrorIs(err, apperrors.ErrForbidden)

	s.Equal(before, s.reload(r.ReportID))
	s.Empty(s.approvals(r.ReportID))
}

func (s *ReportServiceTestSuite) TestFailedAuditAppendRollsBackMutation() {
	r := s.submit("Parking", "7")
	failing := services.NewReportService(failingAppendRepo{s.repos.ReportRepo}, services.WithClock(s.clock.Now))

	_, err := failing.GrantEdit(s.ctx, s.reviewer, r.ReportID, nil)
	s.ErrorIs(err, errAppendFailed)
	s.ErrorIs(err, apperrors.ErrStorage)

	stored := s.reload(r.ReportID)
	s.False(stored.Editable)
	s.Equal(domain.StatusPending, stored.Status)
	s.Empty(s.approvals(r.ReportID))
}

func (s *ReportServiceTestSuite) TestDeleteReport() {
	r := s.submit("Parking", "7")
	keep := s.submit("Fuel", "30")
	s.Require().NoError(s.service.RequestChange(s.ctx, s.owner, r.ReportID, nil))

	s.Require().NoError(s.service.DeleteReport(s.ctx, s.reviewer, r.ReportID))

	views, err := s.service.ListReports(s.ctx, s.reviewer, nil)
	s.Require().NoError(err)
	s.Require().Len(views, 1)
	s.Equal(keep.ReportID, views[0].ReportID)

	_, err = s.service.ListApprovals(s.ctx, s.reviewer, r.ReportID)
	s.ErrorIs(err, apperrors.ErrNotFound)
	s.Empty(s.approvals(r.ReportID))

	s.ErrorIs(s.service.DeleteReport(s.ctx, s.reviewer, r.ReportID), apperrors.ErrNotFound)
}

func (s *ReportServiceTestSuite) TestListReportsByRole() {
	first := s.submit("first", "1")
	second := s.submit("second", "2")
	theirs, err := s.service.SubmitReport(s.ctx, s.other, domain.ReportDraft{Title: "theirs", Amount: decimal.NewFromInt(3)})
	s.Require().NoError(err)
	s.Require().NoError(s.service.RequestChange(s.ctx, s.owner, first.ReportID, nil))

	own, err := s.service.ListReports(s.ctx, s.owner, nil)
	s.Require().NoError(err)
	s.Require().Len(own, 2)
	s.Equal(second.ReportID, own[0].ReportID)
	s.Equal(first.ReportID, own[1].ReportID)
	s.Nil(own[0].Owner)
	s.Nil(own[1].Approvals)

	all, err := s.service.ListReports(s.ctx, s.reviewer, nil)
	s.Require().NoError(err)
	s.Require().Len(all, 3)
	s.Equal(theirs.ReportID, all[0].ReportID)
	s.Require().NotNil(all[0].Owner)
	s.Equal("Otto", all[0].Owner.Name)
	s.NotNil(all[0].Approvals)
	s.Empty(all[0].Approvals)
	s.Require().Len(all[2].Approvals, 1)
	s.Equal(domain.ActionRequestChange, all[2].Approvals[0].Action)
}

func (s *ReportServiceTestSuite) TestMonthFilterIsHalfOpen() {
	s.clock.base = time.Date(2024, 3, 31, 23, 59, 58, 0, time.UTC)
	s.clock.ticks.Store(0)
	march := s.submit("last second of march", "1") // 23:59:59
	april := s.submit("first instant of april", "1") // 00:00:00

	m := domain.Month{Year: 2024, Month: time.March}
	views, err := s.service.ListReports(s.ctx, s.reviewer, &m)
	s.Require().NoError(err)
	s.Require().Len(views, 1)
	s.Equal(march.ReportID, views[0].ReportID)

	m = domain.Month{Year: 2024, Month: time.April}
	views, err = s.service.ListReports(s.ctx, s.reviewer, &m)
	s.Require().NoError(err)
	s.Require().Len(views, 1)
	s.Equal(april.ReportID, views[0].ReportID)
	s.True(views[0].CreatedAt.Equal(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)))
}

func (s *ReportServiceTestSuite) TestDashboardStats() {
	empty, err := s.service.DashboardStats(s.ctx, s.reviewer, nil)
	s.Require().NoError(err)
	s.Equal(domain.ReportStats{TotalAmount: empty.TotalAmount}, *empty)
	s.True(empty.TotalAmount.IsZero())
	s.Equal("0", empty.TotalAmount.String())

	a := s.submit("a", "10.5")
	b := s.submit("b", "4.5")
	s.submit("c", "1")
	_, err = s.service.Decide(s.ctx, s.reviewer, a.ReportID, domain.StatusApproved, nil)
	s.Require().NoError(err)
	_, err = s.service.Decide(s.ctx, s.reviewer, b.ReportID, domain.StatusRejected, nil)
	s.Require().NoError(err)

	stats, err := s.service.DashboardStats(s.ctx, s.reviewer, nil)
	s.Require().NoError(err)
	s.Equal(int64(3), stats.TotalReports)
	s.Equal(int64(1), stats.PendingReports)
	s.Equal(int64(1), stats.ApprovedReports)
	s.Equal(int64(1), stats.RejectedReports)
	s.Equal("16", stats.TotalAmount.String())

	m := domain.Month{Year: 2020, Month: time.January}
	none, err := s.service.DashboardStats(s.ctx, s.reviewer, &m)
	s.Require().NoError(err)
	s.Equal(int64(0), none.TotalReports)
	s.True(none.TotalAmount.IsZero())
}

func (s *ReportServiceTestSuite) TestListApprovals() {
	r := s.submit("Parking", "7")
	s.Require().NoError(s.service.RequestChange(s.ctx, s.owner, r.ReportID, nil))
	_, err := s.service.GrantEdit(s.ctx, s.reviewer, r.ReportID, nil)
	s.Require().NoError(err)

	own, err := s.service.ListApprovals(s.ctx, s.owner, r.ReportID)
	s.Require().NoError(err)
	s.Require().Len(own, 2)
	s.Equal(domain.ActionChangeGranted, own[0].Action)
	s.True(own[0].CreatedAt.After(own[1].CreatedAt))

	_, err = s.service.ListApprovals(s.ctx, s.other, r.ReportID)
	s.ErrorIs(err, apperrors.ErrNotFound)

	byReviewer, err := s.service.ListApprovals(s.ctx, s.reviewer, r.ReportID)
	s.Require().NoError(err)
	s.Len(byReviewer, 2)
}

func (s *ReportServiceTestSuite) TestExportCSV() {
	s.submit(`He said "hi"`, "12.5")
	s.submit("Plain", "3")

	out, err := s.service.ExportCSV(s.ctx, s.reviewer, nil)
	s.Require().NoError(err)
	lines := strings.Split(string(out), "\n")
	s.Require().Len(lines, 3)
	s.Equal("id,title,description,amount,status,createdAt,userEmail,userName", lines[0])
	s.Contains(lines[1], `"Plain"`)
	s.Contains(lines[2], `"He said ""hi"""`)
	s.Contains(lines[2], `owner@example.com,"Olive"`)
}

func (s *ReportServiceTestSuite) TestLatestAuditEntryMatchesLastAppliedDecision() {
	r := s.submit("Flight", "300")
	gated := newGatedTxRepo(s.repos.ReportRepo)
	svc := services.NewReportService(gated, services.WithClock(s.clock.Now), services.WithLocation(time.UTC))

	firstDone := make(chan error, 1)
	go func() {
		_, err := svc.Decide(s.ctx, s.reviewer, r.ReportID, domain.StatusApproved, nil)
		firstDone <- err
	}()
	s.Require().Eventually(func() bool { return gated.calls.Load() == 1 }, time.Second, time.Millisecond)

	_, err := svc.Decide(s.ctx, s.reviewer, r.ReportID, domain.StatusRejected, nil)
	s.Require().NoError(err)
	s.Require().NoError(<-firstDone)

	s.Equal(domain.StatusApproved, s.reload(r.ReportID).Status)
	entries := s.approvals(r.ReportID)
	s.Require().Len(entries, 2)
	s.Equal(domain.ActionApproved, entries[0].Action)
	s.Equal(domain.ActionRejected, entries[1].Action)
	s.True(entries[0].CreatedAt.After(entries[1].CreatedAt))
}

func (s *ReportServiceTestSuite) TestConcurrentTransitionsOnDistinctReports() {
	const n = 8
	ids := make([]int64, n)
	for i := range ids {
		ids[i] = s.submit(fmt.Sprintf("report %d", i), "1").ReportID
	}

	var wg sync.WaitGroup
	errs := make(chan error, n*3)
	for _, id := range ids {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			if _, err := s.service.GrantEdit(s.ctx, s.reviewer, id, nil); err != nil {
				errs <- err
				return
			}
			if _, err := s.service.EditReport(s.ctx, s.owner, id, domain.ReportPatch{Description: ptr("edited")}, nil); err != nil {
				errs <- err
				return
			}
			if _, err := s.service.Decide(s.ctx, s.reviewer, id, domain.StatusApproved, nil); err != nil {
				errs <- err
			}
		}(id)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		s.NoError(err)
	}

	for _, id := range ids {
		r := s.reload(id)
		s.Equal(domain.StatusApproved, r.Status)
		s.False(r.Editable)
		s.Equal("edited", r.Description)

		entries := s.approvals(id)
		s.Require().Len(entries, 3)
		for _, e := range entries {
			s.Equal(id, e.ReportID)
		}
		s.Equal(domain.ActionApproved, entries[0].Action)
		s.Equal(domain.ActionUserEdited, entries[1].Action)
		s.Equal(domain.ActionChangeGranted, entries[2].Action)
	}
}
