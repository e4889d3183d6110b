// Package analysis runs a prompt against a résumé through an external
// analysis service and records the outcome in the session.
package analysis

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/muhammadolammi/atsresume/internal/prompts"
	"github.com/muhammadolammi/atsresume/internal/session"
)

var ErrAnalyzerUnavailable = errors.New("analysis service unavailable")

// Request is what the analysis service receives for one submission.
type Request struct {
	SessionID      uuid.UUID
	Resume         session.File
	JobDescription string
	Prompt         prompts.Prompt
}

// Analyzer is the boundary to the analysis service. It returns the response
// text or an error; it must honour ctx cancellation.
type Analyzer interface {
	Analyze(ctx context.Context, req Request) (string, error)
}

type AnalyzerFunc func(ctx context.Context, req Request) (string, error)

func (f AnalyzerFunc) Analyze(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// Unavailable is used when no analysis service is configured. Every
// submission fails visibly instead of recording placeholder text.
type Unavailable struct{}

func (Unavailable) Analyze(context.Context, Request) (string, error) {
	return "", ErrAnalyzerUnavailable
}
