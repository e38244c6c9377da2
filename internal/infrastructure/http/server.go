package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	handlers "github.com/oficiosya/subscription-engine/internal/adapter/handler/http"
	"github.com/oficiosya/subscription-engine/internal/config"
	"github.com/oficiosya/subscription-engine/internal/domain/provider"
	"github.com/oficiosya/subscription-engine/internal/infrastructure/database"
	"github.com/oficiosya/subscription-engine/internal/middleware/auth"
	"github.com/oficiosya/subscription-engine/internal/usecase"
)

// Validator adapts go-playground/validator to echo's Validator interface.
type Validator struct {
	validate *validator.Validate
}

func (v *Validator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

type Server struct {
	config  *config.Config
	logger  *zap.Logger
	echo    *echo.Echo
	repos   *database.Repositories
	cache   usecase.StatusCache
	gateway provider.PaymentGateway
}

func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	repos *database.Repositories,
	cache usecase.StatusCache,
	gateway provider.PaymentGateway,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Validator = &Validator{validate: validator.New()}

	// Middleware
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowMethods: []string{echo.GET, echo.POST, echo.PUT, echo.DELETE},
	}))

	return &Server{
		config:  cfg,
		logger:  logger,
		echo:    e,
		repos:   repos,
		cache:   cache,
		gateway: gateway,
	}
}

func (s *Server) Start() error {
	// Setup routes
	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", s.config.Server.HTTP.Host, s.config.Server.HTTP.Port)
	s.logger.Info("Starting HTTP server", zap.String("address", addr))

	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) setupRoutes() {
	// Health check
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": s.config.Service.Name,
		})
	})

	// Prometheus metrics
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Services
	trialService := usecase.NewTrialService(s.repos.UnitOfWork, s.repos.Organization, s.repos.Subscription, s.logger)
	verificationService := usecase.NewVerificationService(s.repos.UnitOfWork, s.repos.Verification, s.repos.Organization, nil, nil, s.logger)
	blockService := usecase.NewBlockService(s.repos.UnitOfWork, s.repos.Organization, verificationService, s.cache, s.logger)
	paymentService := usecase.NewPaymentService(s.repos.UnitOfWork, s.repos.Payment, s.repos.Organization, s.gateway, s.cache, s.logger)
	eventService := usecase.NewEventService(s.repos.Event, s.logger)

	// Handlers
	trialHandler := handlers.NewTrialHandler(s.logger, trialService)
	blockHandler := handlers.NewBlockHandler(s.logger, blockService)
	paymentHandler := handlers.NewPaymentHandler(s.logger, paymentService)
	verificationHandler := handlers.NewVerificationHandler(s.logger, verificationService)
	plansHandler := handlers.NewPlansHandler(s.logger, s.repos.Organization)
	eventHandler := handlers.NewEventHandler(s.logger, eventService)
	webhookHandler := handlers.NewWebhookHandler(s.logger, paymentService, s.gateway, s.config.Service.MercadoPago.WebhookSecret)

	// JWT middleware configuration
	jwtConfig := auth.JWTConfig{
		Secret: s.config.JWT.Secret,
		Logger: s.logger,
		SkipPaths: []string{
			"/health",
			"/metrics",
			"/api/v1/plans",
			"/api/v1/webhooks",
		},
	}
	s.echo.Use(auth.JWTMiddleware(jwtConfig))

	// API v1 routes
	v1 := s.echo.Group("/api/v1")

	// Public routes (skip paths above)
	v1.GET("/plans", plansHandler.GetPlans)
	v1.POST("/webhooks/mercadopago", webhookHandler.Handle)

	// Organization-scoped routes
	orgs := v1.Group("/organizations/:organization_id")
	orgs.POST("/trial", trialHandler.CreateTrial)
	orgs.GET("/trial", trialHandler.GetTrialStatus)
	orgs.POST("/trial/convert", trialHandler.ConvertTrial)
	orgs.POST("/trial/expire", trialHandler.ExpireTrial)

	orgs.GET("/block", blockHandler.GetBlockStatus)
	orgs.POST("/block", blockHandler.ApplyBlock)
	orgs.DELETE("/block", blockHandler.RemoveBlock)
	orgs.POST("/block/escalate", blockHandler.EscalateBlock)

	orgs.GET("/payments", paymentHandler.ListPayments)
	orgs.GET("/events", eventHandler.GetEventHistory)

	orgs.POST("/verifications", verificationHandler.SubmitVerification)
	orgs.GET("/verifications", verificationHandler.GetRequirements)
	orgs.GET("/compliance-score", verificationHandler.GetComplianceScore)
	orgs.GET("/badges", verificationHandler.GetBadges)
	orgs.GET("/can-receive-jobs", verificationHandler.CanReceiveJobs)

	orgs.GET("/features/:feature", plansHandler.CheckFeature)
	orgs.GET("/limits/:key", plansHandler.CheckLimit)

	// Payments by local id
	v1.POST("/payments", paymentHandler.CreatePayment)
	v1.GET("/payments/:payment_id", paymentHandler.GetPayment)
	v1.GET("/payments/:payment_id/refund-eligibility", paymentHandler.CheckRefundEligibility)
	v1.POST("/payments/:payment_id/refund", paymentHandler.RefundPayment)

	// Admin listings
	v1.GET("/blocks", blockHandler.ListBlocked)
	v1.POST("/verifications/:submission_id/approve", verificationHandler.ApproveSubmission)
	v1.POST("/verifications/:submission_id/reject", verificationHandler.RejectSubmission)
}
