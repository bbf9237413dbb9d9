package workflows

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/samirrijal/locus/internal/core/domain"
	"github.com/samirrijal/locus/internal/core/usecases"
)

// ErrTypeRejected is the application error type of a validation rejection.
// Activities fail with it as a non-retryable error.
const ErrTypeRejected = "LocationSetRejected"

// RejectionDetails travels with a rejected application error.
type RejectionDetails struct {
	Reason   domain.RejectReason   `json:"reason"`
	Index    int                   `json:"index"`
	Conflict *domain.LocationSetID `json:"conflict,omitempty"`
}

// RegistrationActivities holds the activity implementations for the
// registration workflow.
type RegistrationActivities struct {
	Registrations *usecases.RegistrationService
}

// CheckProposal dry-runs the validator so an obviously inadmissible set
// fails before it queues for the registration lock.
func (a *RegistrationActivities) CheckProposal(ctx context.Context, input RegistrationInput) (domain.LocationSetID, error) {
	id, err := a.Registrations.Check(ctx, input.set())
	if err != nil {
		return id, asActivityError(err)
	}
	return id, nil
}

// CommitProposal registers the set. It validates again under the lock, so
// a set admitted by CheckProposal can still be rejected here.
//
// A retry after a commit whose result was lost sees DuplicateIdentifier.
// If the stored registration belongs to the same proposer, that earlier
// attempt is reported as the acceptance.
func (a *RegistrationActivities) CommitProposal(ctx context.Context, input RegistrationInput) (RegistrationResult, error) {
	logger := activity.GetLogger(ctx)
	set := input.set()
	reg, err := a.Registrations.Propose(ctx, input.Proposer, set)
	if reason, ok := domain.ReasonOf(err); ok && reason == domain.ReasonDuplicateIdentifier {
		prior, getErr := a.Registrations.Get(ctx, set.ID())
		if getErr != nil {
			return RegistrationResult{}, fmt.Errorf("load registered set: %w", getErr)
		}
		if prior.Proposer == input.Proposer {
			logger.Info("location set already registered by this proposer", "location_set_id", prior.ID.String())
			reg, err = prior, nil
		}
	}
	if err != nil {
		return RegistrationResult{}, asActivityError(err)
	}
	logger.Info("location set registered", "location_set_id", reg.ID.String())
	return RegistrationResult{
		ID:           reg.ID,
		Accepted:     true,
		RegisteredAt: reg.RegisteredAt,
	}, nil
}

// asActivityError makes rejections non-retryable. Anything else is left to
// the retry policy.
func asActivityError(err error) error {
	var rej *domain.RejectionError
	if !errors.As(err, &rej) {
		return fmt.Errorf("registry: %w", err)
	}
	return temporal.NewNonRetryableApplicationError(rej.Error(), ErrTypeRejected, nil, RejectionDetails{
		Reason:   rej.Reason,
		Index:    rej.Index,
		Conflict: rej.Conflict,
	})
}
