package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/SscSPs/report_approval_app/internal/core/domain"
	portssvc "github.com/SscSPs/report_approval_app/internal/core/ports/services"
	"github.com/SscSPs/report_approval_app/internal/dto"
	"github.com/SscSPs/report_approval_app/internal/middleware"
	"github.com/gin-gonic/gin"
)

// reportHandler handles HTTP requests related to reports.
type reportHandler struct {
	reportService portssvc.ReportSvcFacade
}

func newReportHandler(rs portssvc.ReportSvcFacade) *reportHandler {
	return &reportHandler{reportService: rs}
}

// registerReportRoutes registers routes related to reports.
func registerReportRoutes(rg *gin.RouterGroup, reportService portssvc.ReportSvcFacade) {
	h := newReportHandler(reportService)

	reports := rg.Group("/reports")
	{
		reports.POST("", h.submitReport)
		reports.GET("", h.listReports)
		reports.GET("/dashboard", h.dashboardStats)
		reports.GET("/export", h.exportCSV)
		reports.PUT("/:id", h.decideReport)
		reports.DELETE("/:id", h.deleteReport)
		reports.POST("/:id/request-change", h.requestChange)
		reports.POST("/:id/grant-edit", h.grantEdit)
		reports.POST("/:id/deny-change", h.denyChange)
		reports.PUT("/:id/edit", h.editReport)
		reports.GET("/:id/approvals", h.listApprovals)
	}
}

// actorOrAbort returns the authenticated actor or writes a 401.
func actorOrAbort(c *gin.Context) (domain.Actor, bool) {
	actor, ok := middleware.GetActorFromContext(c)
	if !ok {
		middleware.GetLoggerFromCtx(c.Request.Context()).Error("Actor not found in context")
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Authentication required"})
		return domain.Actor{}, false
	}
	return actor, true
}

// reportIDOrAbort parses the :id path parameter or writes a 400.
func reportIDOrAbort(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid report id"})
		return 0, false
	}
	return id, true
}

// monthOrAbort parses the optional ?month=YYYY-MM filter or writes a 400.
func monthOrAbort(c *gin.Context) (*domain.Month, bool) {
	var params dto.ListReportsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid query parameters: " + err.Error()})
		return nil, false
	}
	if params.Month == "" {
		return nil, true
	}
	month, err := domain.ParseMonth(params.Month)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return nil, false
	}
	return &month, true
}

// bindOptionalJSON binds a JSON body when one is present; an empty body is allowed.
func bindOptionalJSON(c *gin.Context, obj any) bool {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return false
	}
	return true
}

// submitReport godoc
// @Summary Submit a report
// @Description Creates a new PENDING report owned by the caller
// @Tags reports
// @Accept json
// @Produce json
// @Param report body dto.CreateReportRequest true "Report details"
// @Success 201 {object} dto.ReportResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /reports [post]
func (h *reportHandler) submitReport(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	var req dto.CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for SubmitReport", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	report, err := h.reportService.SubmitReport(c.Request.Context(), actor, req.ToDraft())
	if err != nil {
		respondError(c, err, "Error creating report")
		return
	}
	c.JSON(http.StatusCreated, dto.ToReportResponse(report))
}

// listReports godoc
// @Summary List reports
// @Description Reviewers get every report with owner and audit trail; owners get their own reports
// @Tags reports
// @Produce json
// @Param month query string false "Month filter (YYYY-MM)"
// @Success 200 {array} dto.ReportResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /reports [get]
func (h *reportHandler) listReports(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	month, ok := monthOrAbort(c)
	if !ok {
		return
	}

	views, err := h.reportService.ListReports(c.Request.Context(), actor, month)
	if err != nil {
		respondError(c, err, "Error fetching reports")
		return
	}
	c.JSON(http.StatusOK, dto.ToReportResponses(views))
}

// dashboardStats godoc
// @Summary Report dashboard
// @Description Counts per status and the amount total. Reviewer only
// @Tags reports
// @Produce json
// @Param month query string false "Month filter (YYYY-MM)"
// @Success 200 {object} dto.ReportStatsResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /reports/dashboard [get]
func (h *reportHandler) dashboardStats(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	month, ok := monthOrAbort(c)
	if !ok {
		return
	}

	stats, err := h.reportService.DashboardStats(c.Request.Context(), actor, month)
	if err != nil {
		respondError(c, err, "Error fetching stats")
		return
	}
	c.JSON(http.StatusOK, dto.ToReportStatsResponse(stats))
}

// exportCSV godoc
// @Summary Export reports as CSV
// @Description Downloads the reviewer report set. Reviewer only
// @Tags reports
// @Produce text/csv
// @Param month query string false "Month filter (YYYY-MM)"
// @Success 200 {file} file
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /reports/export [get]
func (h *reportHandler) exportCSV(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	month, ok := monthOrAbort(c)
	if !ok {
		return
	}

	data, err := h.reportService.ExportCSV(c.Request.Context(), actor, month)
	if err != nil {
		respondError(c, err, "Error exporting reports")
		return
	}
	c.Header("Content-Disposition", "attachment; filename=reports.csv")
	c.Data(http.StatusOK, "text/csv", data)
}

// decideReport godoc
// @Summary Approve or reject a report
// @Tags reports
// @Accept json
// @Produce json
// @Param id path int true "Report ID"
// @Param decision body dto.DecideReportRequest true "Decision"
// @Success 200 {object} dto.ReportResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /reports/{id} [put]
func (h *reportHandler) decideReport(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	id, ok := reportIDOrAbort(c)
	if !ok {
		return
	}
	var req dto.DecideReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	report, err := h.reportService.Decide(c.Request.Context(), actor, id, domain.ReportStatus(req.Status), req.Comment)
	if err != nil {
		respondError(c, err, "Error updating report")
		return
	}
	c.JSON(http.StatusOK, dto.ToReportResponse(report))
}

// deleteReport godoc
// @Summary Delete a report
// @Description Removes the report and its audit trail. Reviewer only
// @Tags reports
// @Produce json
// @Param id path int true "Report ID"
// @Success 200 {object} dto.MessageResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /reports/{id} [delete]
func (h *reportHandler) deleteReport(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	id, ok := reportIDOrAbort(c)
	if !ok {
		return
	}

	if err := h.reportService.DeleteReport(c.Request.Context(), actor, id); err != nil {
		respondError(c, err, "Error deleting report")
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Report deleted successfully"})
}

// requestChange godoc
// @Summary Request a change to a report
// @Description Records the owner's change request without altering the report
// @Tags reports
// @Accept json
// @Produce json
// @Param id path int true "Report ID"
// @Param body body dto.CommentRequest false "Optional comment"
// @Success 200 {object} dto.MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /reports/{id}/request-change [post]
func (h *reportHandler) requestChange(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	id, ok := reportIDOrAbort(c)
	if !ok {
		return
	}
	var req dto.CommentRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	if err := h.reportService.RequestChange(c.Request.Context(), actor, id, req.Comment); err != nil {
		respondError(c, err, "Error requesting change")
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Change request submitted"})
}

// grantEdit godoc
// @Summary Grant a one-time edit
// @Description Opens the edit window. The report is moved back to PENDING (re-queued for review, counted as pending) even if it was APPROVED or REJECTED. Reviewer only
// @Tags reports
// @Accept json
// @Produce json
// @Param id path int true "Report ID"
// @Param body body dto.CommentRequest false "Optional comment"
// @Success 200 {object} dto.ReportResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /reports/{id}/grant-edit [post]
func (h *reportHandler) grantEdit(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	id, ok := reportIDOrAbort(c)
	if !ok {
		return
	}
	var req dto.CommentRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	report, err := h.reportService.GrantEdit(c.Request.Context(), actor, id, req.Comment)
	if err != nil {
		respondError(c, err, "Error granting edit")
		return
	}
	c.JSON(http.StatusOK, dto.ToReportResponse(report))
}

// denyChange godoc
// @Summary Deny a change request
// @Tags reports
// @Accept json
// @Produce json
// @Param id path int true "Report ID"
// @Param body body dto.CommentRequest false "Optional comment"
// @Success 200 {object} dto.MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /reports/{id}/deny-change [post]
func (h *reportHandler) denyChange(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	id, ok := reportIDOrAbort(c)
	if !ok {
		return
	}
	var req dto.CommentRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	if err := h.reportService.DenyChange(c.Request.Context(), actor, id, req.Comment); err != nil {
		respondError(c, err, "Error denying change")
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Change request denied"})
}

// editReport godoc
// @Summary Edit a report
// @Description Applies the owner's amendment while the edit window is open. Omitted fields stay unchanged; a comment-only body resubmits the report as is
// @Tags reports
// @Accept json
// @Produce json
// @Param id path int true "Report ID"
// @Param patch body dto.EditReportRequest false "Fields to change"
// @Success 200 {object} dto.ReportResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse "Editing not allowed for this report"
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /reports/{id}/edit [put]
func (h *reportHandler) editReport(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	id, ok := reportIDOrAbort(c)
	if !ok {
		return
	}
	var req dto.EditReportRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	report, err := h.reportService.EditReport(c.Request.Context(), actor, id, req.ToPatch(), req.Comment)
	if err != nil {
		respondError(c, err, "Error editing report")
		return
	}
	c.JSON(http.StatusOK, dto.ToReportResponse(report))
}

// listApprovals godoc
// @Summary List the audit trail of a report
// @Description Newest entry first. Owners may only read their own reports
// @Tags reports
// @Produce json
// @Param id path int true "Report ID"
// @Success 200 {array} dto.ApprovalResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /reports/{id}/approvals [get]
func (h *reportHandler) listApprovals(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	id, ok := reportIDOrAbort(c)
	if !ok {
		return
	}

	approvals, err := h.reportService.ListApprovals(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err, "Error fetching approvals")
		return
	}
	c.JSON(http.StatusOK, dto.ToApprovalResponses(approvals))
}
