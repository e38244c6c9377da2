package repository

import "context"

// Set bundles every repository bound to the same storage handle. Inside a
// unit of work the handle is a transaction.
type Set struct {
	Organizations OrganizationRepository
	Subscriptions SubscriptionRepository
	Payments      PaymentRepository
	Events        EventRepository
	Verifications VerificationRepository
}

// UnitOfWork runs a function with a repository set bound to a single atomic
// transaction. Returning an error from fn rolls everything back; managers
// use this for mutations spanning more than one entity (payment settlement
// touching payment + organization + block + event log).
type UnitOfWork interface {
	Do(ctx context.Context, fn func(s *Set) error) error
}
