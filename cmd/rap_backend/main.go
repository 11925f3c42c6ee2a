package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/SscSPs/report_approval_app/internal/core/domain"
	portsrepo "github.com/SscSPs/report_approval_app/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/report_approval_app/internal/core/ports/services"
	"github.com/SscSPs/report_approval_app/internal/core/services"
	"github.com/SscSPs/report_approval_app/internal/handlers"
	"github.com/SscSPs/report_approval_app/internal/middleware"
	"github.com/SscSPs/report_approval_app/internal/platform/config"
	"github.com/SscSPs/report_approval_app/internal/repositories/database/pgsql"
	"github.com/SscSPs/report_approval_app/internal/repositories/database/sqlite"
	"github.com/SscSPs/report_approval_app/internal/utils"
	"github.com/SscSPs/report_approval_app/pkg/database"
	"github.com/gin-gonic/gin"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// @title Report Approval API
// @version 1.0
// @description Report submission and review workflow with an append-only audit trail.

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @security BearerAuth
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("Server exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx := context.Background()

	repos, closeStore, err := openRepositories(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	serviceContainer := services.NewServiceContainer(cfg, repos)

	if cfg.SeedDefaultUsers {
		if err := seedDefaultUsers(ctx, serviceContainer.User, logger); err != nil {
			return err
		}
	}

	posthogClient := utils.InitializePosthogClient(cfg.PosthogAPIKey, cfg.PosthogEndpoint, logger)
	defer posthogClient.Close()

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(
		middleware.StructuredLoggingMiddleware(logger),
		gin.Recovery(),
		middleware.CORS(cfg.CORSAllowedOrigins),
	)

	if err := r.SetTrustedProxies(nil); err != nil {
		return fmt.Errorf("failed to set trusted proxies: %w", err)
	}

	if err := handlers.RegisterRoutes(r, cfg, serviceContainer, posthogClient); err != nil {
		return fmt.Errorf("failed to register routes: %w", err)
	}

	logger.Info("Server starting", slog.String("port", cfg.Port), slog.String("db_driver", cfg.DBDriver))
	return r.Run(":" + cfg.Port)
}

// openRepositories connects to the configured store, applies migrations and
// returns the repositories with a function that releases the connections.
func openRepositories(ctx context.Context, cfg *config.Config, logger *slog.Logger) (portsrepo.RepositoryProvider, func(), error) {
	switch cfg.DBDriver {
	case database.DriverSQLite:
		db, err := database.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return portsrepo.RepositoryProvider{}, nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		if err := database.RunMigrations(db, database.DriverSQLite, logger); err != nil {
			_ = db.Close()
			return portsrepo.RepositoryProvider{}, nil, err
		}
		logger.Info("SQLite database ready", slog.String("path", cfg.SQLitePath))
		closeFn := func() {
			if cerr := db.Close(); cerr != nil {
				logger.Error("Error closing sqlite database", slog.String("error", cerr.Error()))
			}
		}
		return sqlite.NewRepositoryProvider(db), closeFn, nil

	default:
		dbPool, err := database.NewPgxPool(ctx, cfg.DatabaseURL, cfg.EnableDBCheck)
		if err != nil {
			return portsrepo.RepositoryProvider{}, nil, fmt.Errorf("failed to initialize database pool: %w", err)
		}

		// migrate works on database/sql; use the pgx stdlib driver for it
		migrationDB, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			database.ClosePgxPool(dbPool)
			return portsrepo.RepositoryProvider{}, nil, fmt.Errorf("failed to open database connection for migrations: %w", err)
		}
		err = database.RunMigrations(migrationDB, database.DriverPostgres, logger)
		if cerr := migrationDB.Close(); cerr != nil {
			logger.Error("Error closing migration DB connection", slog.String("error", cerr.Error()))
		}
		if err != nil {
			database.ClosePgxPool(dbPool)
			return portsrepo.RepositoryProvider{}, nil, err
		}

		logger.Info("Database connection pool established.")
		return pgsql.NewRepositoryProvider(dbPool), func() { database.ClosePgxPool(dbPool) }, nil
	}
}

// seedDefaultUsers creates the default reviewer and owner accounts if missing.
func seedDefaultUsers(ctx context.Context, userService portssvc.UserSvcFacade, logger *slog.Logger) error {
	seeds := []struct {
		input portssvc.RegisterUserInput
		role  domain.Role
	}{
		{portssvc.RegisterUserInput{Email: "admin@example.com", Name: "Admin User", Password: "admin123"}, domain.RoleReviewer},
		{portssvc.RegisterUserInput{Email: "user@example.com", Name: "Regular User", Password: "user123"}, domain.RoleOwner},
	}
	for _, seed := range seeds {
		user, err := userService.EnsureUser(ctx, seed.input, seed.role)
		if err != nil {
			return fmt.Errorf("failed to seed user %s: %w", seed.input.Email, err)
		}
		logger.Info("Default user available", slog.Int64("user_id", user.UserID), slog.String("email", user.Email), slog.String("role", string(user.Role)))
	}
	return nil
}
