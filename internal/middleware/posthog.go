package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/SscSPs/report_approval_app/internal/utils"
	"github.com/gin-gonic/gin"
)

// pathsToSkip contains paths that should not be tracked by PostHog
var pathsToSkip = map[string]bool{
	"/health": true,
}

// reportEvents names the report workflow routes, keyed by "METHOD route".
var reportEvents = map[string]string{
	"POST /api/v1/reports":                    "report_submitted",
	"PUT /api/v1/reports/:id":                 "report_decided",
	"DELETE /api/v1/reports/:id":              "report_deleted",
	"POST /api/v1/reports/:id/request-change": "report_change_requested",
	"POST /api/v1/reports/:id/grant-edit":     "report_edit_granted",
	"POST /api/v1/reports/:id/deny-change":    "report_change_denied",
	"PUT /api/v1/reports/:id/edit":            "report_edited",
	"GET /api/v1/reports/export":              "reports_exported",
}

// eventName returns the analytics event for a matched route. Unnamed routes
// fall back to the route path, e.g. "/api/v1/reports/dashboard" ->
// "api_v1_reports_dashboard".
func eventName(method, fullPath string) string {
	if name, ok := reportEvents[method+" "+fullPath]; ok {
		return name
	}
	name := strings.TrimPrefix(fullPath, "/")
	return strings.ReplaceAll(name, "/", "_")
}

// PosthogMiddleware creates a Gin middleware handler that tracks successful
// API calls with PostHog, keyed by the acting user.
func PosthogMiddleware(posthogClient *utils.PosthogClientWrapper) gin.HandlerFunc {
	return func(c *gin.Context) {
		if posthogClient == nil || !posthogClient.IsInitialized() || pathsToSkip[c.Request.URL.Path] {
			c.Next()
			return
		}

		c.Next()

		if len(c.Errors) > 0 || c.Writer.Status() >= http.StatusBadRequest {
			return
		}

		actor, ok := GetActorFromContext(c)
		if !ok {
			return
		}

		// unmatched routes have no FullPath
		event := eventName(c.Request.Method, c.FullPath())
		if event == "" {
			return
		}

		props := map[string]any{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status_code": c.Writer.Status(),
			"role":        string(actor.Role),
		}
		if id := c.Param("id"); id != "" {
			if reportID, err := strconv.ParseInt(id, 10, 64); err == nil {
				props["report_id"] = reportID
			}
		}
		if month := c.Query("month"); month != "" {
			props["month"] = month
		}

		posthogClient.Enqueue(strconv.FormatInt(actor.ID, 10), event, props)
	}
}
