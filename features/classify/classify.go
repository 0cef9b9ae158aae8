package classify

import (
	"time"
)

// Label is one classification label produced by a worker, confidence as a
// percentage.
type Label struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// Result is the parsed result object a worker wrote for one submission.
// Exactly one of Labels/Error is set on a well-formed result; Raw carries
// the verbatim store content when the object could not be parsed, so a
// worker's output is never discarded silently.
type Result struct {
	Labels []Label `json:"labels,omitempty"`
	Error  string  `json:"error,omitempty"`
	Raw    string  `json:"raw,omitempty"`
}

// ObjectRef addresses an object in one of the shared stores.
type ObjectRef struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

// Metadata travels with the dispatch message for observability and routing.
// The bridge never interprets it.
type Metadata struct {
	Filename    string            `json:"filename"`
	SubmittedAt time.Time         `json:"submitted_at"`
	Attrs       map[string]string `json:"attrs,omitempty"`
}

// DispatchMessage is the envelope published to the task topic. A worker
// reads the input at InputRef, classifies it, and writes its output to
// ResultRef.
type DispatchMessage struct {
	CorrelationID string    `json:"correlation_id"`
	InputRef      ObjectRef `json:"input_ref"`
	ResultRef     ObjectRef `json:"result_ref"`
	Metadata      Metadata  `json:"metadata"`
}

type Status string

const (
	StatusCompleted Status = "completed"
	StatusPending   Status = "pending"
)

// Outcome is what a submission or redemption resolves to. CorrelationID is
// always set once an id has been allocated, so callers can redeem later no
// matter how the request itself ended.
type Outcome struct {
	CorrelationID string  `json:"correlation_id"`
	Status        Status  `json:"status"`
	Result        *Result `json:"result,omitempty"`
}
