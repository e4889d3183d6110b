package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/muhammadolammi/atsresume/internal/analysis"
	"github.com/muhammadolammi/atsresume/internal/events"
	"github.com/muhammadolammi/atsresume/internal/intake"
	"github.com/muhammadolammi/atsresume/internal/metrics"
	"github.com/muhammadolammi/atsresume/internal/prompts"
	"github.com/muhammadolammi/atsresume/internal/report"
	"github.com/muhammadolammi/atsresume/internal/session"
	"github.com/muhammadolammi/atsresume/internal/storage"
)

// errorType is the category of an API error for metrics and responses.
type errorType string

const (
	typeValidation  errorType = "validation"
	typeNotFound    errorType = "not_found"
	typeConflict    errorType = "conflict"
	typeExternal    errorType = "external"
	typeUnavailable errorType = "unavailable"
	typeInternal    errorType = "internal"
)

// apiError is a structured error returned by handlers and rendered by
// errorMiddleware.
type apiError struct {
	Type    errorType
	Message string
	Cause   error
	Context map[string]any
}

func (e *apiError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *apiError) Unwrap() error {
	return e.Cause
}

func (e *apiError) HTTPStatus() int {
	switch e.Type {
	case typeValidation:
		return http.StatusBadRequest
	case typeNotFound:
		return http.StatusNotFound
	case typeConflict:
		return http.StatusConflict
	case typeExternal:
		return http.StatusBadGateway
	case typeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func newAPIError(t errorType, message string, cause error) *apiError {
	return &apiError{Type: t, Message: message, Cause: cause, Context: make(map[string]any)}
}

func validationError(message string) *apiError {
	return newAPIError(typeValidation, message, nil)
}

func internalError(message string, cause error) *apiError {
	return newAPIError(typeInternal, message, cause)
}

func (e *apiError) WithField(key string, value any) *apiError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

type errorResponse struct {
	Error   string         `json:"error"`
	Type    errorType      `json:"type"`
	Context map[string]any `json:"context,omitempty"`
}

func (e *apiError) toResponse() errorResponse {
	return errorResponse{Error: e.Message, Type: e.Type, Context: e.Context}
}

// asAPIError maps domain errors onto API errors. Unrecognised errors become
// internal errors with a generic message.
func asAPIError(err error) *apiError {
	var ae *apiError
	if errors.As(err, &ae) {
		return ae
	}

	var notOffered *prompts.NotOfferedError
	switch {
	case errors.As(err, &notOffered):
		ae = newAPIError(typeValidation, err.Error(), err).
			WithField("mode", notOffered.Mode).
			WithField("action", notOffered.Action)
		if notOffered.Suggestion != "" {
			ae.WithField("suggestion", notOffered.Suggestion)
		}
		return ae
	case errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, session.ErrResumeNotFound),
		errors.Is(err, storage.ErrObjectNotFound),
		errors.Is(err, report.ErrNoAnalysis):
		return newAPIError(typeNotFound, err.Error(), err)
	case errors.Is(err, prompts.ErrInvalidMode),
		errors.Is(err, session.ErrUnknownAction),
		errors.Is(err, analysis.ErrNoSelection),
		errors.Is(err, intake.ErrEmptyBatch),
		errors.Is(err, intake.ErrTooManyFiles):
		return newAPIError(typeValidation, err.Error(), err)
	case errors.Is(err, analysis.ErrSubmissionInFlight),
		errors.Is(err, session.ErrStaleResume),
		errors.Is(err, events.ErrTooManyClients):
		return newAPIError(typeConflict, err.Error(), err)
	case errors.Is(err, analysis.ErrAnalyzerUnavailable):
		return newAPIError(typeUnavailable, err.Error(), err)
	case errors.Is(err, analysis.ErrAnalysisFailed):
		return newAPIError(typeExternal, err.Error(), err)
	}
	return internalError("internal server error", err)
}

// errorMiddleware converts handler errors into JSON responses, logging and
// counting them by type.
func errorMiddleware(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}

			var httpErr *echo.HTTPError
			if errors.As(err, &httpErr) {
				metrics.HTTPErrorsTotal.WithLabelValues(string(httpErrorType(httpErr.Code))).Inc()
				return err
			}

			ae := asAPIError(err)
			metrics.HTTPErrorsTotal.WithLabelValues(string(ae.Type)).Inc()
			logError(logger, c, ae)

			if err := c.JSON(ae.HTTPStatus(), ae.toResponse()); err != nil {
				return fmt.Errorf("failed to write error response: %w", err)
			}
			return nil
		}
	}
}

func httpErrorType(code int) errorType {
	switch code {
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge:
		return typeValidation
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return typeNotFound
	case http.StatusConflict:
		return typeConflict
	case http.StatusBadGateway:
		return typeExternal
	case http.StatusServiceUnavailable:
		return typeUnavailable
	default:
		return typeInternal
	}
}

func logError(logger *slog.Logger, c echo.Context, e *apiError) {
	attrs := []any{
		"error_type", e.Type,
		"message", e.Message,
		"path", c.Request().URL.Path,
		"method", c.Request().Method,
		"status", e.HTTPStatus(),
	}
	for k, v := range e.Context {
		attrs = append(attrs, k, v)
	}
	if id := c.Param("id"); id != "" {
		attrs = append(attrs, "session_id", id)
	}

	switch e.Type {
	case typeValidation:
		logger.Info("Validation error", attrs...)
	case typeNotFound:
		logger.Info("Not found", attrs...)
	case typeConflict:
		logger.Warn("Conflict", attrs...)
	default:
		if e.Cause != nil {
			attrs = append(attrs, "cause", e.Cause)
		}
		logger.Error("Request failed", attrs...)
	}
}
