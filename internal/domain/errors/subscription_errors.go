package errors

import "errors"

var (
	// ErrSubscriptionExists indicates that the organization already has a
	// subscription and a new trial cannot be attached over it.
	ErrSubscriptionExists = errors.New("organization already has a subscription")

	// ErrPaymentAlreadyProcessed indicates a settlement webhook for a
	// payment that already left the pending state.
	ErrPaymentAlreadyProcessed = errors.New("payment already processed")

	// ErrRefundNotCompleted indicates a refund attempt against a payment
	// that was never completed.
	ErrRefundNotCompleted = errors.New("only completed payments can be refunded")

	// ErrStalePaymentStatus indicates a guarded payment UPDATE matched no
	// row: a concurrent transition settled the payment first.
	ErrStalePaymentStatus = errors.New("payment status changed concurrently")
)
