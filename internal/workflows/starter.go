package workflows

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/client"

	"github.com/samirrijal/locus/internal/core/domain"
)

// Starter launches registration workflows on a task queue.
type Starter struct {
	client    client.Client
	taskQueue string
}

// NewStarter creates a Starter.
func NewStarter(c client.Client, taskQueue string) *Starter {
	return &Starter{client: c, taskQueue: taskQueue}
}

// WorkflowID is derived from the set id, so proposing the same set twice
// while the first run is open does not start a second run.
func WorkflowID(id domain.LocationSetID) string {
	return "register-" + id.String()
}

// StartRegistration starts RegistrationWorkflow and returns its workflow ID.
func (s *Starter) StartRegistration(ctx context.Context, proposer domain.AccountID, set domain.LocationSet) (string, error) {
	opts := client.StartWorkflowOptions{
		ID:        WorkflowID(set.ID()),
		TaskQueue: s.taskQueue,
	}
	input := RegistrationInput{
		Proposer:      proposer,
		Locations:     set.Locations,
		Bootstrappers: set.Bootstrappers,
	}
	run, err := s.client.ExecuteWorkflow(ctx, opts, RegistrationWorkflow, input)
	if err != nil {
		return "", fmt.Errorf("start registration workflow: %w", err)
	}
	return run.GetID(), nil
}
