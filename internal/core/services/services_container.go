package services

import (
	portsrepo "github.com/SscSPs/report_approval_app/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/report_approval_app/internal/core/ports/services"
	"github.com/SscSPs/report_approval_app/internal/platform/config"
)

// NewServiceContainer creates a new service container with properly initialized dependencies
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider, reportOptions ...ReportServiceOption) *portssvc.ServiceContainer {
	if cfg.ReportLocation != nil {
		reportOptions = append([]ReportServiceOption{WithLocation(cfg.ReportLocation)}, reportOptions...)
	}
	return &portssvc.ServiceContainer{
		Report:       NewReportService(repos.ReportRepo, reportOptions...),
		User:         NewUserService(repos.UserRepo),
		TokenService: NewTokenService(cfg),
	}
}
