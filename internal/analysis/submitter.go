package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/muhammadolammi/atsresume/internal/events"
	"github.com/muhammadolammi/atsresume/internal/logging"
	"github.com/muhammadolammi/atsresume/internal/metrics"
	"github.com/muhammadolammi/atsresume/internal/prompts"
	"github.com/muhammadolammi/atsresume/internal/session"
	"golang.org/x/sync/errgroup"
)

var (
	ErrNoSelection        = errors.New("no resume selected")
	ErrSubmissionInFlight = errors.New("submission already in flight")
	ErrAnalysisFailed     = errors.New("analysis failed")
	ErrEmptyResponse      = errors.New("empty response from analysis service")
)

type Config struct {
	// Timeout bounds a single analysis call; zero means no timeout.
	Timeout time.Duration
	// Concurrency bounds parallel calls in SubmitAll.
	Concurrency int
	Clock       clockwork.Clock
	Logger      *slog.Logger
}

type pairKey struct {
	session uuid.UUID
	resume  string
	action  prompts.Action
}

// Submitter runs analyses for sessions. At most one submission per
// (session, résumé, action) is in flight; a second one is rejected, not queued.
type Submitter struct {
	analyzer  Analyzer
	publisher events.Publisher
	cfg       Config

	mu      sync.Mutex
	pending map[pairKey]context.CancelFunc
}

func NewSubmitter(analyzer Analyzer, publisher events.Publisher, cfg Config) *Submitter {
	if analyzer == nil {
		analyzer = Unavailable{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if publisher == nil {
		publisher = events.LogPublisher{Logger: cfg.Logger}
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return &Submitter{
		analyzer:  analyzer,
		publisher: publisher,
		cfg:       cfg,
		pending:   make(map[pairKey]context.CancelFunc),
	}
}

// Submit analyses the selected résumé with the named action. The action must
// be offered by the session's current mode. Nothing is recorded unless both a
// selection and a valid action are present.
func (s *Submitter) Submit(ctx context.Context, state *session.State, action string) (Result, error) {
	name, ok := state.Selected()
	if !ok {
		return Result{}, ErrNoSelection
	}
	prompt, err := prompts.Lookup(state.Mode(), action)
	if err != nil {
		return Result{}, err
	}
	return s.run(ctx, state, name, prompt)
}

// SubmitResume analyses the named résumé regardless of the selection.
func (s *Submitter) SubmitResume(ctx context.Context, state *session.State, resume, action string) (Result, error) {
	prompt, err := prompts.Lookup(state.Mode(), action)
	if err != nil {
		return Result{}, err
	}
	return s.run(ctx, state, resume, prompt)
}

// SubmitAll applies action to every résumé that has no response for it yet.
// Each résumé gets its own Result; analysis failures do not stop the batch.
func (s *Submitter) SubmitAll(ctx context.Context, state *session.State, action string) ([]Result, error) {
	prompt, err := prompts.Lookup(state.Mode(), action)
	if err != nil {
		return nil, err
	}

	var todo []string
	for _, r := range state.Resumes() {
		if _, done := r.Responses[prompt.Action]; !done {
			todo = append(todo, r.Name)
		}
	}

	results := make([]Result, len(todo))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for i, name := range todo {
		g.Go(func() error {
			res, err := s.run(gctx, state, name, prompt)
			switch {
			case errors.Is(err, ErrSubmissionInFlight):
				res = Result{Resume: name, Action: prompt.Action, Outcome: OutcomeSkipped, Reason: err.Error()}
			case err != nil && !errors.Is(err, ErrAnalysisFailed):
				res = Result{Resume: name, Action: prompt.Action, Outcome: OutcomeFailed, Reason: err.Error()}
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slices.SortFunc(results, func(a, b Result) int { return strings.Compare(a.Resume, b.Resume) })
	return results, nil
}

func (s *Submitter) run(ctx context.Context, state *session.State, name string, prompt prompts.Prompt) (Result, error) {
	resume, err := state.Resume(name)
	if err != nil {
		return Result{}, err
	}

	key := pairKey{session: state.ID(), resume: name, action: prompt.Action}
	runCtx, release, err := s.reserve(ctx, key)
	if err != nil {
		return Result{}, err
	}
	defer release()

	id := uuid.New()
	logger := logging.WithSession(s.cfg.Logger, state.ID()).With("submission_id", id, "resume", name, "action", prompt.Action)
	s.publish(ctx, state.ID(), id, name, prompt.Action, events.StatusProcessing, "analysis started")

	start := s.cfg.Clock.Now()
	text, err := s.analyzer.Analyze(runCtx, Request{
		SessionID:      state.ID(),
		Resume:         resume.File,
		JobDescription: state.JobDescription(),
		Prompt:         prompt,
	})
	metrics.SubmissionDuration.WithLabelValues(string(prompt.Action)).Observe(s.cfg.Clock.Since(start).Seconds())
	if err == nil && strings.TrimSpace(text) == "" {
		err = ErrEmptyResponse
	}

	if err != nil {
		status := events.StatusFailed
		if errors.Is(err, context.Canceled) {
			status = events.StatusCancelled
		}
		if recErr := state.RecordFailureFor(resume.File, prompt.Action, err.Error()); recErr != nil {
			logging.WithError(logger, recErr).Warn("failure not recorded")
		}
		metrics.SubmissionsTotal.WithLabelValues(string(prompt.Action), string(OutcomeFailed)).Inc()
		logging.WithError(logger, err).Warn("analysis failed")
		s.publish(ctx, state.ID(), id, name, prompt.Action, status, err.Error())
		return failed(id, name, prompt.Action, err.Error()), fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}

	if err := state.AddResponseFor(resume.File, prompt.Action, text); err != nil {
		metrics.SubmissionsTotal.WithLabelValues(string(prompt.Action), string(OutcomeFailed)).Inc()
		logging.WithError(logger, err).Warn("response discarded")
		s.publish(ctx, state.ID(), id, name, prompt.Action, events.StatusFailed, err.Error())
		return failed(id, name, prompt.Action, err.Error()), fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}

	metrics.SubmissionsTotal.WithLabelValues(string(prompt.Action), string(OutcomeSucceeded)).Inc()
	logger.Info("analysis completed")
	s.publish(ctx, state.ID(), id, name, prompt.Action, events.StatusCompleted, "analysis completed")
	return succeeded(id, name, prompt.Action, text), nil
}

// reserve claims key and derives the context the analysis runs under.
func (s *Submitter) reserve(ctx context.Context, key pairKey) (context.Context, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.pending[key]; busy {
		return nil, nil, fmt.Errorf("%w: %s / %s", ErrSubmissionInFlight, key.resume, key.action)
	}

	runCtx, cancel := context.WithCancel(ctx)
	if s.cfg.Timeout > 0 {
		var cancelTimeout context.CancelFunc
		runCtx, cancelTimeout = context.WithTimeout(runCtx, s.cfg.Timeout)
		inner := cancel
		cancel = func() { cancelTimeout(); inner() }
	}
	s.pending[key] = cancel
	metrics.SubmissionsInFlight.Inc()

	release := func() {
		s.mu.Lock()
		delete(s.pending, key)
		s.mu.Unlock()
		cancel()
		metrics.SubmissionsInFlight.Dec()
	}
	return runCtx, release, nil
}

// Pending reports whether the pair has a submission in flight.
func (s *Submitter) Pending(sessionID uuid.UUID, resume string, action prompts.Action) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[pairKey{session: sessionID, resume: resume, action: action}]
	return ok
}

// Cancel aborts the in-flight submission for the pair, if any.
func (s *Submitter) Cancel(sessionID uuid.UUID, resume string, action prompts.Action) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cancel, ok := s.pending[pairKey{session: sessionID, resume: resume, action: action}]
	if ok {
		cancel()
	}
	return ok
}

// CancelSession aborts every in-flight submission of the session and
// returns how many were cancelled.
func (s *Submitter) CancelSession(sessionID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for key, cancel := range s.pending {
		if key.session == sessionID {
			cancel()
			n++
		}
	}
	return n
}

func (s *Submitter) publish(ctx context.Context, sessionID, submissionID uuid.UUID, resume string, action prompts.Action, status events.Status, msg string) {
	// Delivery failures are logged by the publisher; they never fail a submission.
	_ = s.publisher.Publish(context.WithoutCancel(ctx), events.Update{
		SessionID:    sessionID,
		SubmissionID: submissionID,
		Resume:       resume,
		Action:       action,
		Status:       status,
		Message:      msg,
		Timestamp:    s.cfg.Clock.Now(),
	})
}
