package model

// Engine time windows and thresholds. These values are a contract with the
// platform's legal and operations teams; change them only with sign-off.
const (
	// TrialDays is the length of a new trial.
	TrialDays = 14

	// TrialExpiringSoonDays marks a trial as expiring soon when fewer
	// whole days than this remain.
	TrialExpiringSoonDays = 7

	// TrialGraceDays is how long an expired organization stays unblocked
	// before the cron applies a soft block.
	TrialGraceDays = 7

	// SoftBlockEscalationDays is how long a soft block ages before the
	// cron escalates it to a hard block.
	SoftBlockEscalationDays = 14

	// Ley24240RefundDays is the statutory consumer-protection cooling-off
	// window (Ley 24.240): refunds within this many days of payment are
	// honored without special approval.
	Ley24240RefundDays = 10

	// PaymentFailureBlockThreshold is the number of consecutive failed
	// payments after which a soft block is applied.
	PaymentFailureBlockThreshold = 3
)
