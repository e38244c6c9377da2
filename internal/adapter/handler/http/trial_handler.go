package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/oficiosya/subscription-engine/internal/domain/model"
	"github.com/oficiosya/subscription-engine/internal/middleware/auth"
	"github.com/oficiosya/subscription-engine/internal/usecase"
)

type TrialHandler struct {
	logger       *zap.Logger
	trialService *usecase.TrialService
}

func NewTrialHandler(logger *zap.Logger, trialService *usecase.TrialService) *TrialHandler {
	return &TrialHandler{
		logger:       logger,
		trialService: trialService,
	}
}

// CreateTrial starts the trial for a freshly signed-up organization.
// POST /api/v1/organizations/:organization_id/trial
func (h *TrialHandler) CreateTrial(c echo.Context) error {
	orgID, handled, err := uuidParam(c, "organization_id")
	if handled {
		return err
	}

	sub, err := h.trialService.CreateTrial(c.Request().Context(), orgID)
	if err != nil {
		return writeDomainError(c, h.logger, err)
	}

	return c.JSON(http.StatusCreated, sub)
}

// GetTrialStatus returns the dashboard trial view.
// GET /api/v1/organizations/:organization_id/trial
func (h *TrialHandler) GetTrialStatus(c echo.Context) error {
	orgID, handled, err := uuidParam(c, "organization_id")
	if handled {
		return err
	}

	status, err := h.trialService.GetTrialStatus(c.Request().Context(), orgID)
	if err != nil {
		return writeDomainError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, status)
}

type ConvertTrialRequest struct {
	Tier         string `json:"tier" validate:"required,oneof=INICIAL PROFESIONAL EMPRESA"`
	BillingCycle string `json:"billing_cycle" validate:"required,oneof=monthly yearly"`
}

// ConvertTrial upgrades a trialing organization onto a paid tier.
// POST /api/v1/organizations/:organization_id/trial/convert
func (h *TrialHandler) ConvertTrial(c echo.Context) error {
	orgID, handled, err := uuidParam(c, "organization_id")
	if handled {
		return err
	}

	var req ConvertTrialRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid request body",
			"code":  "INVALID_BODY",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": err.Error(),
			"code":  "VALIDATION_FAILED",
		})
	}

	err = h.trialService.ConvertTrialToActive(c.Request().Context(), orgID,
		model.SubscriptionTier(req.Tier), model.BillingCycle(req.BillingCycle))
	if err != nil {
		return writeDomainError(c, h.logger, err)
	}

	h.logger.Info("trial converted via API",
		zap.String("organization_id", orgID.String()),
		zap.String("tier", req.Tier))

	return c.JSON(http.StatusOK, echo.Map{
		"status": "active",
		"tier":   req.Tier,
	})
}

// ExpireTrial force-expires a trial. Admin only; the cron normally does this.
// POST /api/v1/organizations/:organization_id/trial/expire
func (h *TrialHandler) ExpireTrial(c echo.Context) error {
	if _, err := auth.RequireAdmin(c); err != nil {
		return c.JSON(http.StatusForbidden, echo.Map{
			"error": "Admin role required",
			"code":  "ADMIN_REQUIRED",
		})
	}

	orgID, handled, err := uuidParam(c, "organization_id")
	if handled {
		return err
	}

	if err := h.trialService.ExpireTrial(c.Request().Context(), orgID); err != nil {
		return writeDomainError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"status": "expired"})
}
