// Package events publishes submission status updates so clients can follow
// the progress of each (résumé, action) analysis.
package events

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/muhammadolammi/atsresume/internal/metrics"
	"github.com/muhammadolammi/atsresume/internal/prompts"
)

type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

type Update struct {
	SessionID    uuid.UUID      `json:"session_id"`
	SubmissionID uuid.UUID      `json:"submission_id"`
	Resume       string         `json:"resume"`
	Action       prompts.Action `json:"action"`
	Status       Status         `json:"status"`
	Message      string         `json:"message"`
	Timestamp    time.Time      `json:"timestamp"`
}

type Publisher interface {
	Publish(ctx context.Context, u Update) error
}

// Sink is a named Publisher; the name labels delivery failures.
type Sink struct {
	Name      string
	Publisher Publisher
}

// Fanout delivers each update to every sink. A failing sink is logged and
// counted; it never stops delivery to the others.
type Fanout struct {
	sinks  []Sink
	logger *slog.Logger
}

func NewFanout(logger *slog.Logger, sinks ...Sink) *Fanout {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fanout{sinks: sinks, logger: logger}
}

func (f *Fanout) Publish(ctx context.Context, u Update) error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Publisher.Publish(ctx, u); err != nil {
			metrics.EventPublishErrors.WithLabelValues(s.Name).Inc()
			f.logger.Warn("failed to publish update",
				"sink", s.Name, "session_id", u.SessionID, "status", u.Status, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogPublisher writes updates to the log. It stands in for a broker when
// none is configured.
type LogPublisher struct {
	Logger *slog.Logger
}

func (p LogPublisher) Publish(_ context.Context, u Update) error {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("session update",
		"session_id", u.SessionID,
		"submission_id", u.SubmissionID,
		"resume", u.Resume,
		"action", u.Action,
		"status", u.Status,
		"message", u.Message,
	)
	return nil
}
