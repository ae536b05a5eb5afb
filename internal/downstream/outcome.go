package downstream

import (
	"fmt"
	"net/http"
)

// Kind classifies the result of a single downstream call.
type Kind int

const (
	// KindOK means the peer answered with a 2xx status.
	KindOK Kind = iota
	// KindRejected means the peer was reachable but answered non-2xx.
	KindRejected
	// KindUnreachable means no usable response was obtained.
	KindUnreachable
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindRejected:
		return "rejected"
	case KindUnreachable:
		return "unreachable"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Outcome is exactly one of Ok(status, body), Rejected(status, body) or
// Unreachable(detail).
type Outcome struct {
	Kind       Kind
	StatusCode int
	Body       []byte
	Detail     string
}

// OK builds a successful outcome.
func OK(status int, body []byte) Outcome {
	return Outcome{Kind: KindOK, StatusCode: status, Body: body}
}

// Rejected builds an outcome for a reachable peer that refused the request.
func Rejected(status int, body []byte) Outcome {
	return Outcome{Kind: KindRejected, StatusCode: status, Body: body}
}

// Unreachable builds an outcome for a call that produced no usable response.
func Unreachable(detail string) Outcome {
	return Outcome{Kind: KindUnreachable, Detail: detail}
}

// IsOK reports whether the call succeeded.
func (o Outcome) IsOK() bool {
	return o.Kind == KindOK
}

// Err converts a non-OK outcome into a *StepError for step. It returns nil
// for an OK outcome.
func (o Outcome) Err(step Step) error {
	if o.IsOK() {
		return nil
	}
	return &StepError{Step: step, Outcome: o}
}

// Step names a stage of the orchestration pipeline.
type Step string

const (
	StepRead      Step = "read"
	StepTransform Step = "transform"
	StepWrite     Step = "write"
)

// StepError is the failure of one pipeline step. Its message is what the
// gateway returns to the caller.
type StepError struct {
	Step    Step
	Outcome Outcome
}

// Rejected reports whether the peer answered with an error status.
func (e *StepError) Rejected() bool {
	return e.Outcome.Kind == KindRejected
}

func (e *StepError) Error() string {
	if e.Rejected() {
		return rejectedPrefix(e.Step) + string(e.Outcome.Body)
	}
	return unreachablePrefix(e.Step) + e.Outcome.Detail
}

func rejectedPrefix(step Step) string {
	switch step {
	case StepRead:
		return "Database read failed: "
	case StepTransform:
		return "Business logic processing failed: "
	case StepWrite:
		return "Database write failed: "
	default:
		return string(step) + " failed: "
	}
}

func unreachablePrefix(step Step) string {
	switch step {
	case StepRead:
		return "Failed to connect to database service: "
	case StepTransform:
		return "Failed to connect to business logic service: "
	case StepWrite:
		return "Failed to store result in database: "
	default:
		return "Failed to reach " + string(step) + " service: "
	}
}

func classify(status int, body []byte) Outcome {
	if status >= http.StatusOK && status < http.StatusMultipleChoices {
		return OK(status, body)
	}
	return Rejected(status, body)
}
