package repository

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/oficiosya/subscription-engine/internal/domain/repository"
)

type gormUnitOfWork struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewUnitOfWork creates a unit of work backed by GORM transactions.
func NewUnitOfWork(db *gorm.DB, logger *zap.Logger) repository.UnitOfWork {
	return &gormUnitOfWork{db: db, logger: logger}
}

// Do runs fn with a repository set bound to one transaction. An error from
// fn rolls the whole transaction back.
func (u *gormUnitOfWork) Do(ctx context.Context, fn func(s *repository.Set) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewSet(tx, u.logger))
	})
}

// NewSet binds every repository to the given database handle.
func NewSet(db *gorm.DB, logger *zap.Logger) *repository.Set {
	return &repository.Set{
		Organizations: NewOrganizationRepository(db, logger),
		Subscriptions: NewSubscriptionRepository(db, logger),
		Payments:      NewPaymentRepository(db, logger),
		Events:        NewEventRepository(db, logger),
		Verifications: NewVerificationRepository(db, logger),
	}
}
