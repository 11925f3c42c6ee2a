package middleware

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventName(t *testing.T) {
	assert.Equal(t, "report_submitted", eventName(http.MethodPost, "/api/v1/reports"))
	assert.Equal(t, "report_edit_granted", eventName(http.MethodPost, "/api/v1/reports/:id/grant-edit"))
	assert.Equal(t, "report_decided", eventName(http.MethodPut, "/api/v1/reports/:id"))
	assert.Equal(t, "api_v1_reports_dashboard", eventName(http.MethodGet, "/api/v1/reports/dashboard"))
	assert.Equal(t, "api_v1_reports", eventName(http.MethodGet, "/api/v1/reports"))
	assert.Equal(t, "", eventName(http.MethodGet, ""))
}
