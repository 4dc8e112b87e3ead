// Package hooks implements the ten-phase knowledge-hook lifecycle: a
// Registry of priority-ordered hooks per phase, eight condition kinds, and
// the execute_batch pipeline that runs every invocation under a timeout,
// with logging, error sanitization, and receipt emission; sandbox profile
// rules other than the time limit are not checked by the pipeline. Grounded on
// coordinator/phases.go's Phase/ValidTransitions state-table discipline,
// applied here to hook-invocation state (Pending -> Active -> Executed ->
// {Completed, Failed}) instead of workflow-execution phases.
package hooks

// Phase is one of the ten fixed points in the transaction lifecycle at
// which hooks may be registered to run.
type Phase string

const (
	PhasePreIngestion   Phase = "PRE_INGESTION"
	PhaseOnChange       Phase = "ON_CHANGE"
	PhasePreValidation  Phase = "PRE_VALIDATION"
	PhasePostValidation Phase = "POST_VALIDATION"
	PhasePreTransaction Phase = "PRE_TRANSACTION"
	PhasePostCommit     Phase = "POST_COMMIT"
	PhasePostTransaction Phase = "POST_TRANSACTION"
	PhaseOnError        Phase = "ON_ERROR"
	PhasePreQuery       Phase = "PRE_QUERY"
	PhasePostQuery      Phase = "POST_QUERY"
)

// Phases lists the ten phases in fixed execution order.
var Phases = []Phase{
	PhasePreIngestion, PhaseOnChange, PhasePreValidation, PhasePostValidation,
	PhasePreTransaction, PhasePostCommit, PhasePostTransaction, PhaseOnError,
	PhasePreQuery, PhasePostQuery,
}

func (p Phase) valid() bool {
	for _, ph := range Phases {
		if ph == p {
			return true
		}
	}
	return false
}

// IsPreVeto reports whether a phase may veto the in-flight transaction by
// setting should_rollback in its context metadata.
func (p Phase) IsPreVeto() bool {
	return p == PhasePreIngestion || p == PhasePreValidation || p == PhasePreTransaction || p == PhasePreQuery
}

// InvocationStatus is a single hook invocation's lifecycle state, following
// the same shape as coordinator.Phase/ValidTransitions but scoped to one
// hook's run within a batch rather than a whole workflow.
type InvocationStatus string

const (
	InvocationPending   InvocationStatus = "Pending"
	InvocationActive    InvocationStatus = "Active"
	InvocationExecuted  InvocationStatus = "Executed"
	InvocationCompleted InvocationStatus = "Completed"
	InvocationFailed    InvocationStatus = "Failed"
)

// validInvocationTransitions mirrors coordinator.ValidTransitions: the same
// map-of-allowed-next-states shape, adapted to hook invocation instead of
// workflow phase.
var validInvocationTransitions = map[InvocationStatus][]InvocationStatus{
	InvocationPending:  {InvocationActive, InvocationFailed},
	InvocationActive:   {InvocationExecuted, InvocationFailed},
	InvocationExecuted: {InvocationCompleted, InvocationFailed},
}

func (s InvocationStatus) canTransitionTo(target InvocationStatus) bool {
	for _, v := range validInvocationTransitions[s] {
		if v == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether an invocation status is a terminal state.
func (s InvocationStatus) IsTerminal() bool {
	return s == InvocationCompleted || s == InvocationFailed
}
