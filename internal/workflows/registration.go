package workflows

import (
	"errors"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/locus/internal/core/domain"
)

// RegistrationInput is the input for the registration workflow.
type RegistrationInput struct {
	Proposer      domain.AccountID   `json:"proposer"`
	Locations     []domain.Location  `json:"locations"`
	Bootstrappers []domain.AccountID `json:"bootstrappers"`
}

func (in RegistrationInput) set() domain.LocationSet {
	return domain.LocationSet{Locations: in.Locations, Bootstrappers: in.Bootstrappers}
}

// RegistrationResult is the outcome of the registration workflow. A
// rejected proposal completes the workflow successfully with Accepted false.
type RegistrationResult struct {
	ID           domain.LocationSetID  `json:"id"`
	Accepted     bool                  `json:"accepted"`
	Reason       domain.RejectReason   `json:"reason,omitempty"`
	Index        int                   `json:"index,omitempty"`
	Conflict     *domain.LocationSetID `json:"conflict,omitempty"`
	RegisteredAt time.Time             `json:"registered_at,omitempty"`
}

// RegistrationWorkflow checks a proposal against the registry and, if it
// passes, commits it.
func RegistrationWorkflow(ctx workflow.Context, input RegistrationInput) (RegistrationResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting registration workflow", "locations", len(input.Locations))

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        time.Second,
			MaximumAttempts:        5,
			NonRetryableErrorTypes: []string{ErrTypeRejected},
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	id := input.set().ID()

	// Step 1: dry run
	err := workflow.ExecuteActivity(ctx, "CheckProposal", input).Get(ctx, nil)
	if res, ok := rejected(id, err); ok {
		logger.Info("Proposal rejected by check", "reason", res.Reason)
		return res, nil
	}
	if err != nil {
		return RegistrationResult{}, err
	}

	// Step 2: commit under the registry lock
	var result RegistrationResult
	err = workflow.ExecuteActivity(ctx, "CommitProposal", input).Get(ctx, &result)
	if res, ok := rejected(id, err); ok {
		logger.Info("Proposal rejected at commit", "reason", res.Reason)
		return res, nil
	}
	if err != nil {
		return RegistrationResult{}, err
	}

	logger.Info("Location set registered", "id", result.ID.String())
	return result, nil
}

// rejected turns a rejection application error into a result.
func rejected(id domain.LocationSetID, err error) (RegistrationResult, bool) {
	var appErr *temporal.ApplicationError
	if err == nil || !errors.As(err, &appErr) || appErr.Type() != ErrTypeRejected {
		return RegistrationResult{}, false
	}
	res := RegistrationResult{ID: id}
	var details RejectionDetails
	if appErr.HasDetails() && appErr.Details(&details) == nil {
		res.Reason = details.Reason
		res.Index = details.Index
		res.Conflict = details.Conflict
	}
	return res, true
}
