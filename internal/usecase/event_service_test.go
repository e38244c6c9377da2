package usecase

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	domainErrors "github.com/oficiosya/subscription-engine/internal/domain/errors"
	"github.com/oficiosya/subscription-engine/internal/domain/model"
)

func TestRecordEvent(t *testing.T) {
	orgID := uuid.New()

	t.Run("appends a valid event", func(t *testing.T) {
		events := new(mockEventRepo)
		svc := NewEventService(events, zap.NewNop())

		events.On("Append", mock.Anything, mock.MatchedBy(func(e *model.SubscriptionEvent) bool {
			return e.EventType == model.EventBlockRemoved && e.OrganizationID == orgID
		})).Return(nil)

		err := svc.RecordEvent(context.Background(), orgID, model.EventBlockRemoved, model.JSONB{"reason": "manual"}, nil)

		assert.NoError(t, err)
		events.AssertExpectations(t)
	})

	t.Run("rejects types outside the closed taxonomy", func(t *testing.T) {
		events := new(mockEventRepo)
		svc := NewEventService(events, zap.NewNop())

		err := svc.RecordEvent(context.Background(), orgID, model.EventType("org.renamed"), nil, nil)

		assert.True(t, domainErrors.IsPolicyViolation(err))
		events.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
	})
}

func TestGetEventHistory_ClampsPaging(t *testing.T) {
	orgID := uuid.New()
	events := new(mockEventRepo)
	svc := NewEventService(events, zap.NewNop())

	events.On("ListByOrganization", mock.Anything, orgID, 50, 0).
		Return([]*model.SubscriptionEvent{}, nil)

	_, err := svc.GetEventHistory(context.Background(), orgID, -1, -5)

	assert.NoError(t, err)
	events.AssertExpectations(t)
}
