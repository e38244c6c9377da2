package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	domainErrors "github.com/oficiosya/subscription-engine/internal/domain/errors"
)

// writeDomainError maps domain error types to HTTP responses so every
// handler reports the same shape: {"error": ..., "code": ...}.
func writeDomainError(c echo.Context, logger *zap.Logger, err error) error {
	switch {
	case domainErrors.IsNotFound(err):
		return c.JSON(http.StatusNotFound, echo.Map{
			"error": err.Error(),
			"code":  domainErrors.ErrTypeNotFound,
		})
	case domainErrors.IsInvalidTransition(err),
		errors.Is(err, domainErrors.ErrSubscriptionExists),
		errors.Is(err, domainErrors.ErrPaymentAlreadyProcessed):
		return c.JSON(http.StatusConflict, echo.Map{
			"error": err.Error(),
			"code":  domainErrors.ErrTypeInvalidTransition,
		})
	case domainErrors.IsPolicyViolation(err),
		errors.Is(err, domainErrors.ErrRefundNotCompleted):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{
			"error": err.Error(),
			"code":  domainErrors.ErrTypePolicyViolation,
		})
	}

	var ext *domainErrors.ExternalError
	if errors.As(err, &ext) {
		logger.Error("external dependency failure",
			zap.String("service", ext.Service),
			zap.Bool("retryable", ext.Retryable),
			zap.Error(err))
		return c.JSON(http.StatusBadGateway, echo.Map{
			"error":     "Upstream payment provider failed",
			"code":      domainErrors.ErrTypeExternal,
			"retryable": ext.Retryable,
		})
	}

	logger.Error("request failed", zap.Error(err))
	return c.JSON(http.StatusInternalServerError, echo.Map{
		"error": "Internal server error",
		"code":  "INTERNAL_ERROR",
	})
}
