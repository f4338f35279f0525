package routes

import (
	"fmt"
	"time"

	"stockvel-tracker/internal/adapters/http/handlers"
	"stockvel-tracker/internal/adapters/http/middleware"
	"stockvel-tracker/internal/adapters/persistence/repositories"
	"stockvel-tracker/internal/config"
	"stockvel-tracker/internal/core/services"
	"stockvel-tracker/internal/pkg/metrics"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"gorm.io/gorm"
)

// Handlers groups every HTTP handler mounted by Setup
type Handlers struct {
	Health       *handlers.HealthHandler
	Auth         *handlers.AuthHandler
	User         *handlers.UserHandler
	Member       *handlers.MemberHandler
	Contribution *handlers.ContributionHandler
	Loan         *handlers.LoanHandler
	Risk         *handlers.RiskHandler
	Annual       *handlers.AnnualHandler
	Notification *handlers.NotificationHandler
	Dashboard    *handlers.DashboardHandler
	Job          *handlers.JobHandler
}

// Setup wires repositories, services and handlers and mounts all routes.
// The returned cron service is not started.
func Setup(app *fiber.App, db *gorm.DB, cfg *config.Config) (*services.CronService, error) {
	// Repositories
	userRepo := repositories.NewUserRepository(db)
	refreshTokenRepo := repositories.NewRefreshTokenRepository(db)
	memberRepo := repositories.NewMemberRepository(db)
	contributionRepo := repositories.NewContributionRepository(db)
	loanRepo := repositories.NewLoanRepository(db)
	notificationRepo := repositories.NewNotificationRepository(db)

	avatars, err := services.NewAvatarStore(cfg.Cloudinary)
	if err != nil {
		return nil, fmt.Errorf("avatar store: %w", err)
	}

	// Services
	hub := services.NewNotificationHub()
	notificationService := services.NewNotificationService(notificationRepo, cfg.Stockvel.CurrencySymbol).WithHub(hub)
	authService := services.NewAuthService(userRepo, refreshTokenRepo, memberRepo, cfg)
	userService := services.NewUserService(userRepo, memberRepo)
	memberService := services.NewMemberService(memberRepo, avatars)
	contributionService := services.NewContributionService(memberRepo, contributionRepo, notificationService, cfg.Stockvel)
	loanService := services.NewLoanService(loanRepo, memberRepo, notificationService)
	riskService := services.NewRiskService(memberRepo, contributionRepo, loanRepo, notificationService, cfg.Stockvel)
	annualService := services.NewAnnualService(memberRepo, contributionRepo, loanRepo, cfg.Stockvel)
	dashboardService := services.NewDashboardService(db, riskService, cfg.Stockvel)
	cronService := services.NewCronService(cfg.Cron, contributionService, riskService, authService)

	Mount(app, cfg, &Handlers{
		Health:       handlers.NewHealthHandler(db, hub),
		Auth:         handlers.NewAuthHandler(authService, cfg),
		User:         handlers.NewUserHandler(userService),
		Member:       handlers.NewMemberHandler(memberService),
		Contribution: handlers.NewContributionHandler(contributionService),
		Loan:         handlers.NewLoanHandler(loanService),
		Risk:         handlers.NewRiskHandler(riskService),
		Annual:       handlers.NewAnnualHandler(annualService),
		Notification: handlers.NewNotificationHandler(notificationService),
		Dashboard:    handlers.NewDashboardHandler(dashboardService),
		Job:          handlers.NewJobHandler(cronService),
	})

	return cronService, nil
}

// Mount registers the routes for already constructed handlers
func Mount(app *fiber.App, cfg *config.Config, h *Handlers) {
	// Health check & root routes
	app.Get("/", h.Health.Root)
	app.Get("/health", h.Health.HealthCheck)
	app.Get("/metrics", metrics.Handler())

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	apiV1 := app.Group("/api/v1")
	apiV1.Get("/", h.Health.APIInfo)

	auth := middleware.AuthMiddleware(cfg)

	setupAuthRoutes(apiV1.Group("/auth"), h.Auth, auth)
	setupProfileRoutes(apiV1.Group("/profile", auth), h.User)
	setupUserRoutes(apiV1.Group("/users", auth, middleware.AdminOnly()), h.User)
	setupMeRoutes(apiV1.Group("/me", auth, middleware.MemberOrAdmin()), h)
	setupMemberRoutes(apiV1.Group("/members", auth, middleware.AdminOnly()), h.Member, h.Contribution)
	setupContributionRoutes(apiV1.Group("/contributions", auth, middleware.AdminOnly()), h.Contribution)
	// Quotes are public so the calculator works before sign-in
	apiV1.Post("/loans/preview", middleware.OptionalAuth(cfg), h.Loan.Preview)
	setupLoanRoutes(apiV1.Group("/loans", auth, middleware.MemberOrAdmin()), h.Loan)
	setupRiskRoutes(apiV1.Group("/risk", auth, middleware.AdminOnly()), h.Risk)
	apiV1.Get("/annual", auth, middleware.AdminOnly(), h.Annual.Summary)
	setupNotificationRoutes(apiV1.Group("/notifications", auth, middleware.MemberOrAdmin()), h.Notification)
	setupDashboardRoutes(apiV1.Group("/dashboard", auth), h.Dashboard)
	setupJobRoutes(apiV1.Group("/admin/jobs", auth, middleware.AdminOnly()), h.Job)
}

// setupAuthRoutes configures authentication routes
func setupAuthRoutes(router fiber.Router, handler *handlers.AuthHandler, auth fiber.Handler) {
	// Public routes
	router.Post("/register", middleware.StrictRateLimiter(), handler.Register)
	router.Post("/login", middleware.AuthRateLimiter(), handler.Login)
	router.Post("/refresh", middleware.AuthRateLimiter(), handler.RefreshToken)
	router.Post("/logout", handler.Logout)

	// Protected routes
	router.Get("/me", auth, handler.Me)
	router.Post("/logout-all", auth, handler.LogoutAll)
	router.Get("/sessions", auth, handler.Sessions)
	router.Delete("/sessions/:id", auth, handler.RevokeSession)
}

// setupProfileRoutes configures profile routes (Authenticated)
func setupProfileRoutes(router fiber.Router, handler *handlers.UserHandler) {
	router.Get("/", handler.GetProfile)
	router.Put("/", handler.UpdateProfile)
	router.Put("/password", middleware.StrictRateLimiter(), handler.ChangePassword)
}

// setupUserRoutes configures login account management (Admin only)
func setupUserRoutes(router fiber.Router, handler *handlers.UserHandler) {
	router.Get("/", handler.ListUsers)
	router.Get("/:id", handler.GetUser)
	router.Put("/:id", handler.UpdateUser)
	router.Delete("/:id", handler.DeleteUser)
}

// setupMeRoutes configures the signed-in member's own views
func setupMeRoutes(router fiber.Router, h *Handlers) {
	router.Get("/", middleware.PrivateCacheHeaders(30*time.Second), h.Member.Me)
	router.Post("/avatar", h.Member.UploadMyAvatar)
	router.Get("/contributions", middleware.PrivateCacheHeaders(30*time.Second), h.Contribution.MyYear)
	router.Get("/risk", middleware.NoCacheHeaders(), h.Risk.MyRisk)
}

// setupMemberRoutes configures member administration (Admin only)
func setupMemberRoutes(router fiber.Router, handler *handlers.MemberHandler, contributions *handlers.ContributionHandler) {
	router.Post("/", handler.Enroll)
	router.Get("/", handler.List)
	router.Get("/:id", handler.Get)
	router.Put("/:id", handler.Update)
	router.Patch("/:id/status", handler.UpdateStatus)
	router.Delete("/:id", handler.Remove)
	router.Post("/:id/avatar", handler.UploadAvatar)
	router.Get("/:id/contributions", contributions.MemberYear)
}

// setupContributionRoutes configures contribution bookkeeping (Admin only)
func setupContributionRoutes(router fiber.Router, handler *handlers.ContributionHandler) {
	router.Post("/periods", handler.OpenPeriod)
	router.Get("/periods/:period", handler.ListPeriod)
	router.Post("/payments", handler.RecordPayment)
}

// setupLoanRoutes configures loans. Members reach their own loans only.
func setupLoanRoutes(router fiber.Router, handler *handlers.LoanHandler) {
	router.Post("/", handler.Request)
	router.Get("/", handler.List)
	router.Get("/:id", handler.Get)
	router.Get("/:id/schedule", handler.Schedule)
	router.Get("/:id/progress", handler.Progress)
	router.Get("/:id/repayments", handler.Repayments)

	admin := router.Group("", middleware.AdminOnly())
	admin.Post("/:id/approve", handler.Approve)
	admin.Post("/:id/reject", handler.Reject)
	admin.Post("/:id/activate", handler.Activate)
	admin.Post("/:id/overdue", handler.MarkOverdue)
	admin.Post("/:id/reinstate", handler.Reinstate)
	admin.Post("/:id/repayments", handler.RecordRepayment)
}

// setupRiskRoutes configures the risk monitor (Admin only)
func setupRiskRoutes(router fiber.Router, handler *handlers.RiskHandler) {
	router.Get("/", handler.AssessAll)
	router.Get("/snapshot", handler.Snapshot)
	router.Get("/members/:id", handler.Assess)
	router.Post("/members/:id/resync", handler.Resync)
}

// setupNotificationRoutes configures the member inbox
func setupNotificationRoutes(router fiber.Router, handler *handlers.NotificationHandler) {
	router.Get("/", middleware.NoCacheHeaders(), handler.List)
	router.Get("/stream", handler.Stream)
	router.Patch("/read-all", handler.MarkAllRead)
	router.Patch("/:id/read", handler.MarkRead)
}

// setupDashboardRoutes configures dashboards
func setupDashboardRoutes(router fiber.Router, handler *handlers.DashboardHandler) {
	router.Get("/admin", middleware.AdminOnly(), handler.GetAdminDashboard)
	router.Get("/members/:id", middleware.AdminOnly(), handler.GetMemberDashboardByID)
	router.Get("/member", middleware.MemberOrAdmin(), handler.GetMemberDashboard)
}

// setupJobRoutes configures manual job triggers (Admin only)
func setupJobRoutes(router fiber.Router, handler *handlers.JobHandler) {
	router.Get("/", handler.List)
	router.Post("/:name/run", handler.Run)
}
