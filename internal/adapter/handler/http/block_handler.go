package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/oficiosya/subscription-engine/internal/domain/model"
	"github.com/oficiosya/subscription-engine/internal/middleware/auth"
	"github.com/oficiosya/subscription-engine/internal/usecase"
)

type BlockHandler struct {
	logger       *zap.Logger
	blockService *usecase.BlockService
}

func NewBlockHandler(logger *zap.Logger, blockService *usecase.BlockService) *BlockHandler {
	return &BlockHandler{
		logger:       logger,
		blockService: blockService,
	}
}

// GetBlockStatus returns the capability answer other services gate on.
// GET /api/v1/organizations/:organization_id/block
func (h *BlockHandler) GetBlockStatus(c echo.Context) error {
	orgID, handled, err := uuidParam(c, "organization_id")
	if handled {
		return err
	}

	status, err := h.blockService.GetBlockStatus(c.Request().Context(), orgID)
	if err != nil {
		return writeDomainError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, status)
}

type ApplyBlockRequest struct {
	BlockType string `json:"block_type" validate:"required,oneof=soft_block hard_block"`
	Reason    string `json:"reason" validate:"required,max=500"`
}

// ApplyBlock manually blocks an organization. Admin only.
// POST /api/v1/organizations/:organization_id/block
func (h *BlockHandler) ApplyBlock(c echo.Context) error {
	admin, err := auth.RequireAdmin(c)
	if err != nil {
		return c.JSON(http.StatusForbidden, echo.Map{
			"error": "Admin role required",
			"code":  "ADMIN_REQUIRED",
		})
	}

	orgID, handled, err := uuidParam(c, "organization_id")
	if handled {
		return err
	}

	var req ApplyBlockRequest
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

	err = h.blockService.ApplyBlock(c.Request().Context(), orgID, model.BlockType(req.BlockType), req.Reason)
	if err != nil {
		return writeDomainError(c, h.logger, err)
	}

	h.logger.Info("block applied via API",
		zap.String("organization_id", orgID.String()),
		zap.String("block_type", req.BlockType),
		zap.String("admin_id", admin.UserID))

	return c.JSON(http.StatusOK, echo.Map{
		"status":     "blocked",
		"block_type": req.BlockType,
	})
}

type RemoveBlockRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// RemoveBlock clears the block. Admin only; payment settlement clears
// blocks automatically without this endpoint.
// DELETE /api/v1/organizations/:organization_id/block
func (h *BlockHandler) RemoveBlock(c echo.Context) error {
	admin, err := auth.RequireAdmin(c)
	if err != nil {
		return c.JSON(http.StatusForbidden, echo.Map{
			"error": "Admin role required",
			"code":  "ADMIN_REQUIRED",
		})
	}

	orgID, handled, err := uuidParam(c, "organization_id")
	if handled {
		return err
	}

	var req RemoveBlockRequest
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

	if err := h.blockService.RemoveBlock(c.Request().Context(), orgID, req.Reason); err != nil {
		return writeDomainError(c, h.logger, err)
	}

	h.logger.Info("block removed via API",
		zap.String("organization_id", orgID.String()),
		zap.String("admin_id", admin.UserID))

	return c.JSON(http.StatusOK, echo.Map{"status": "unblocked"})
}

type EscalateBlockRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// EscalateBlock moves the organization one step up the block ladder.
// Admin only.
// POST /api/v1/organizations/:organization_id/block/escalate
func (h *BlockHandler) EscalateBlock(c echo.Context) error {
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

	var req EscalateBlockRequest
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

	result, err := h.blockService.EscalateBlock(c.Request().Context(), orgID, req.Reason)
	if err != nil {
		return writeDomainError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, result)
}

// ListBlocked lists currently blocked organizations, optionally filtered by
// ?block_type=soft_block|hard_block. Admin only.
// GET /api/v1/blocks
func (h *BlockHandler) ListBlocked(c echo.Context) error {
	if _, err := auth.RequireAdmin(c); err != nil {
		return c.JSON(http.StatusForbidden, echo.Map{
			"error": "Admin role required",
			"code":  "ADMIN_REQUIRED",
		})
	}

	var filter *model.BlockType
	if raw := c.QueryParam("block_type"); raw != "" {
		bt := model.BlockType(raw)
		if bt != model.BlockTypeSoft && bt != model.BlockTypeHard {
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error": "block_type must be soft_block or hard_block",
				"code":  "INVALID_BLOCK_TYPE",
			})
		}
		filter = &bt
	}

	orgs, err := h.blockService.GetBlockedOrganizations(c.Request().Context(), filter)
	if err != nil {
		return writeDomainError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"organizations": orgs,
		"count":         len(orgs),
	})
}
