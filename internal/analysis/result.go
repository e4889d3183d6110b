package analysis

import (
	"github.com/google/uuid"
	"github.com/muhammadolammi/atsresume/internal/prompts"
)

type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	// OutcomeSkipped marks a batch item not run because the same pair was
	// already in flight.
	OutcomeSkipped Outcome = "skipped"
)

// Result is the outcome of one submission. Text is set on success, Reason
// otherwise.
type Result struct {
	SubmissionID uuid.UUID      `json:"submission_id"`
	Resume       string         `json:"resume"`
	Action       prompts.Action `json:"action"`
	Outcome      Outcome        `json:"outcome"`
	Text         string         `json:"text,omitempty"`
	Reason       string         `json:"reason,omitempty"`
}

func succeeded(id uuid.UUID, resume string, action prompts.Action, text string) Result {
	return Result{SubmissionID: id, Resume: resume, Action: action, Outcome: OutcomeSucceeded, Text: text}
}

func failed(id uuid.UUID, resume string, action prompts.Action, reason string) Result {
	return Result{SubmissionID: id, Resume: resume, Action: action, Outcome: OutcomeFailed, Reason: reason}
}

func (r Result) OK() bool {
	return r.Outcome == OutcomeSucceeded
}
