package gemini

import "fmt"

// FailureKind classifies why a generation call produced nothing usable.
type FailureKind string

const (
	// FailureBlocked means the provider declined the request on content
	// policy grounds.
	FailureBlocked FailureKind = "blocked_by_policy"
	// FailureNoOutput means the provider answered but produced no usable
	// parts and gave no block reason.
	FailureNoOutput FailureKind = "no_output"
	// FailureProvider covers transport, auth and provider-internal faults.
	FailureProvider FailureKind = "provider_error"
)

// Failure is a classified generation failure. It satisfies error so callers
// can surface its message as conversation content.
type Failure struct {
	Kind   FailureKind
	Reason string
}

func (f *Failure) Error() string {
	switch f.Kind {
	case FailureBlocked:
		return fmt.Sprintf("Request was blocked by the provider: %s", f.Reason)
	case FailureNoOutput:
		if f.Reason != "" {
			return fmt.Sprintf("The model returned no output (finish reason: %s)", f.Reason)
		}
		return "The model returned no output"
	default:
		return f.Reason
	}
}
