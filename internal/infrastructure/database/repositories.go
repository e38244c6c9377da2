package database

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	adapterRepo "github.com/oficiosya/subscription-engine/internal/adapter/repository"
	domainRepo "github.com/oficiosya/subscription-engine/internal/domain/repository"
)

// Repositories holds all repository instances
type Repositories struct {
	Organization domainRepo.OrganizationRepository
	Subscription domainRepo.SubscriptionRepository
	Payment      domainRepo.PaymentRepository
	Event        domainRepo.EventRepository
	Verification domainRepo.VerificationRepository
	UnitOfWork   domainRepo.UnitOfWork
}

// NewRepositories creates new repository instances with database connection
func NewRepositories(db *gorm.DB, logger *zap.Logger) *Repositories {
	set := adapterRepo.NewSet(db, logger)
	return &Repositories{
		Organization: set.Organizations,
		Subscription: set.Subscriptions,
		Payment:      set.Payments,
		Event:        set.Events,
		Verification: set.Verifications,
		UnitOfWork:   adapterRepo.NewUnitOfWork(db, logger),
	}
}
