// Package classify inspects failed executions and infeasible plans and
// produces a typed classification with an optional correction suggestion.
// Classification drives dialogue eligibility: some failures are worth one
// follow-up question, others are terminal.
package classify

// Kind is the failure taxonomy.
type Kind string

const (
	// KindMissingInfo means a required slot was never supplied.
	// Recoverable: ask directly for it.
	KindMissingInfo Kind = "missing_info"

	// KindRecognitionError means the input text is probably wrong due to
	// speech misrecognition. Recoverable: confirm a suggested correction.
	KindRecognitionError Kind = "recognition_error"

	// KindInvalidParam means a supplied value is well-formed but rejected
	// by a capability with no confident correction. Recoverable only when
	// the phrased message itself reads as a question.
	KindInvalidParam Kind = "invalid_param"

	// KindExecutionFailed covers permission, network and unsupported-task
	// failures. Not dialogue-recoverable.
	KindExecutionFailed Kind = "execution_failed"

	// KindUnknown is the fallthrough. Not dialogue-recoverable.
	KindUnknown Kind = "unknown"
)

// Recoverable reports whether the kind alone qualifies for a clarification
// turn. InvalidParam is conditionally recoverable and handled by the caller.
func (k Kind) Recoverable() bool {
	return k == KindMissingInfo || k == KindRecognitionError
}

// Classification is the typed verdict on one failure. Produced fresh per
// failure, never cached, and a pure function of its inputs.
type Classification struct {
	Kind          Kind
	Message       string
	Description   string
	Suggestion    string
	OriginalQuery string
}
