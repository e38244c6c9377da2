package http

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/oficiosya/subscription-engine/internal/middleware/auth"
	"github.com/oficiosya/subscription-engine/internal/usecase"
)

type VerificationHandler struct {
	logger              *zap.Logger
	verificationService *usecase.VerificationService
}

func NewVerificationHandler(logger *zap.Logger, verificationService *usecase.VerificationService) *VerificationHandler {
	return &VerificationHandler{
		logger:              logger,
		verificationService: verificationService,
	}
}

type SubmitVerificationRequest struct {
	UserID          *string `json:"user_id,omitempty"`
	RequirementCode string  `json:"requirement_code" validate:"required,max=50"`
	DocumentURL     string  `json:"document_url" validate:"required,url"`
	DocumentType    *string `json:"document_type,omitempty"`
	ExpiresAt       *string `json:"expires_at,omitempty"`
}

// SubmitVerification stores a document submission against a requirement.
// POST /api/v1/organizations/:organization_id/verifications
func (h *VerificationHandler) SubmitVerification(c echo.Context) error {
	orgID, handled, err := uuidParam(c, "organization_id")
	if handled {
		return err
	}

	var req SubmitVerificationRequest
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

	input := usecase.SubmitVerificationInput{
		OrganizationID:  orgID,
		RequirementCode: req.RequirementCode,
		DocumentURL:     req.DocumentURL,
		DocumentType:    req.DocumentType,
	}
	if req.UserID != nil {
		userID, err := uuid.Parse(*req.UserID)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error": "user_id must be a UUID",
				"code":  "INVALID_USER_ID",
			})
		}
		input.UserID = &userID
	}
	if req.ExpiresAt != nil {
		expiresAt, err := time.Parse(time.RFC3339, *req.ExpiresAt)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error": "expires_at must be RFC3339",
				"code":  "INVALID_EXPIRES_AT",
			})
		}
		input.ExpiresAt = &expiresAt
	}

	submission, err := h.verificationService.SubmitVerification(c.Request().Context(), input)
	if err != nil {
		return writeDomainError(c, h.logger, err)
	}

	return c.JSON(http.StatusCreated, submission)
}

// ApproveSubmission approves a submission under review. Admin only.
// POST /api/v1/verifications/:submission_id/approve
func (h *VerificationHandler) ApproveSubmission(c echo.Context) error {
	admin, err := auth.RequireAdmin(c)
	if err != nil {
		return c.JSON(http.StatusForbidden, echo.Map{
			"error": "Admin role required",
			"code":  "ADMIN_REQUIRED",
		})
	}

	submissionID, handled, err := int64Param(c, "submission_id")
	if handled {
		return err
	}

	adminID, err := uuid.Parse(admin.UserID)
	if err != nil {
		return c.JSON(http.StatusForbidden, echo.Map{
			"error": "Invalid admin identity",
			"code":  "INVALID_ADMIN_ID",
		})
	}

	if err := h.verificationService.ApproveSubmission(c.Request().Context(), submissionID, &adminID); err != nil {
		return writeDomainError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"status": "approved"})
}

type RejectSubmissionRequest struct {
	Reason string  `json:"reason" validate:"required,max=500"`
	Code   *string `json:"code,omitempty"`
}

// RejectSubmission rejects a submission under review. Admin only.
// POST /api/v1/verifications/:submission_id/reject
func (h *VerificationHandler) RejectSubmission(c echo.Context) error {
	admin, err := auth.RequireAdmin(c)
	if err != nil {
		return c.JSON(http.StatusForbidden, echo.Map{
			"error": "Admin role required",
			"code":  "ADMIN_REQUIRED",
		})
	}

	submissionID, handled, err := int64Param(c, "submission_id")
	if handled {
		return err
	}

	var req RejectSubmissionRequest
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

	adminID, err := uuid.Parse(admin.UserID)
	if err != nil {
		return c.JSON(http.StatusForbidden, echo.Map{
			"error": "Invalid admin identity",
			"code":  "INVALID_ADMIN_ID",
		})
	}

	if err := h.verificationService.RejectSubmission(c.Request().Context(), submissionID, &adminID, req.Reason, req.Code); err != nil {
		return writeDomainError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"status": "rejected"})
}

// GetRequirements returns every active requirement with the organization's
// current submission state for each.
// GET /api/v1/organizations/:organization_id/verifications
func (h *VerificationHandler) GetRequirements(c echo.Context) error {
	orgID, handled, err := uuidParam(c, "organization_id")
	if handled {
		return err
	}

	requirements, err := h.verificationService.GetRequirementsForOrg(c.Request().Context(), orgID)
	if err != nil {
		return writeDomainError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"requirements": requirements})
}

// GetComplianceScore returns the weighted 0-100 compliance score.
// GET /api/v1/organizations/:organization_id/compliance-score
func (h *VerificationHandler) GetComplianceScore(c echo.Context) error {
	orgID, handled, err := uuidParam(c, "organization_id")
	if handled {
		return err
	}

	score, err := h.verificationService.CalculateComplianceScore(c.Request().Context(), orgID)
	if err != nil {
		return writeDomainError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"score": score})
}

// GetBadges returns the badges earned through approved credentials.
// GET /api/v1/organizations/:organization_id/badges
func (h *VerificationHandler) GetBadges(c echo.Context) error {
	orgID, handled, err := uuidParam(c, "organization_id")
	if handled {
		return err
	}

	badges, err := h.verificationService.GetEarnedBadges(c.Request().Context(), orgID)
	if err != nil {
		return writeDomainError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"badges": badges})
}

// CanReceiveJobs is the combined gate the marketplace dispatcher calls
// before routing a job to an organization.
// GET /api/v1/organizations/:organization_id/can-receive-jobs
func (h *VerificationHandler) CanReceiveJobs(c echo.Context) error {
	orgID, handled, err := uuidParam(c, "organization_id")
	if handled {
		return err
	}

	ok, err := h.verificationService.CanReceiveJobs(c.Request().Context(), orgID)
	if err != nil {
		return writeDomainError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"can_receive_jobs": ok})
}
