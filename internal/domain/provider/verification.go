package provider

import (
	"context"

	"github.com/oficiosya/subscription-engine/internal/domain/model"
)

// AutoVerifier is an optional hook invoked right after a submission is
// stored. It may approve the submission immediately (automated
// document-authenticity checks); when it declines or errors, the
// submission stays in review.
type AutoVerifier interface {
	Verify(ctx context.Context, submission *model.VerificationSubmission, requirement *model.VerificationRequirement) (approved bool, err error)
}

// BadgeSyncer receives fire-and-forget notifications after a submission is
// approved or rejected. Failures here must never roll back the
// verification transition; callers log and move on.
type BadgeSyncer interface {
	SyncVerificationResult(ctx context.Context, submission *model.VerificationSubmission, requirement *model.VerificationRequirement) error
}
