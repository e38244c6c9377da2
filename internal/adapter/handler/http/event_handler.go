package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/oficiosya/subscription-engine/internal/usecase"
)

type EventHandler struct {
	logger       *zap.Logger
	eventService *usecase.EventService
}

func NewEventHandler(logger *zap.Logger, eventService *usecase.EventService) *EventHandler {
	return &EventHandler{
		logger:       logger,
		eventService: eventService,
	}
}

// GetEventHistory returns the lifecycle audit trail, newest first.
// GET /api/v1/organizations/:organization_id/events?limit=&offset=
func (h *EventHandler) GetEventHistory(c echo.Context) error {
	orgID, handled, err := uuidParam(c, "organization_id")
	if handled {
		return err
	}

	limit := queryInt(c, "limit", 50)
	offset := queryInt(c, "offset", 0)

	events, err := h.eventService.GetEventHistory(c.Request().Context(), orgID, limit, offset)
	if err != nil {
		return writeDomainError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"events": events,
		"count":  len(events),
	})
}
