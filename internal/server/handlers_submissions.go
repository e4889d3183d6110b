package server

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/muhammadolammi/atsresume/internal/analysis"
	"github.com/muhammadolammi/atsresume/internal/prompts"
)

type submissionResponse struct {
	Result  analysis.Result `json:"result"`
	Session sessionView     `json:"session"`
}

type batchResponse struct {
	Results []analysis.Result `json:"results"`
	Session sessionView       `json:"session"`
}

// handleSubmit runs one analysis and waits for it. A failed analysis is
// reported as an error; the session keeps its earlier responses.
func (s *Server) handleSubmit(c echo.Context) error {
	st, err := s.state(c)
	if err != nil {
		return err
	}
	var req submissionRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	var res analysis.Result
	if req.Resume != "" {
		res, err = s.submitter.SubmitResume(ctx, st, req.Resume, req.Action)
	} else {
		res, err = s.submitter.Submit(ctx, st, req.Action)
	}
	if err != nil {
		ae := asAPIError(err)
		if res.SubmissionID != uuid.Nil {
			ae.WithField("submission_id", res.SubmissionID.String()).
				WithField("resume", res.Resume).
				WithField("action", res.Action)
		}
		return ae
	}

	return c.JSON(http.StatusOK, submissionResponse{Result: res, Session: newSessionView(st)})
}

// handleSubmitAll applies the action to every résumé still lacking a response.
func (s *Server) handleSubmitAll(c echo.Context) error {
	st, err := s.state(c)
	if err != nil {
		return err
	}
	var req batchRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}

	results, err := s.submitter.SubmitAll(c.Request().Context(), st, req.Action)
	if err != nil {
		return err
	}
	if results == nil {
		results = []analysis.Result{}
	}
	return c.JSON(http.StatusOK, batchResponse{Results: results, Session: newSessionView(st)})
}

// handleCancelSubmission cancels the pending submission for ?resume= and
// ?action=, or every pending submission of the session when both are empty.
func (s *Server) handleCancelSubmission(c echo.Context) error {
	st, err := s.state(c)
	if err != nil {
		return err
	}
	resume, action := c.QueryParam("resume"), c.QueryParam("action")

	if resume == "" && action == "" {
		n := s.submitter.CancelSession(st.ID())
		return c.JSON(http.StatusOK, map[string]int{"cancelled": n})
	}
	if resume == "" || action == "" {
		return validationError("resume and action must be given together")
	}
	if !s.submitter.Cancel(st.ID(), resume, prompts.Action(action)) {
		return newAPIError(typeNotFound, "no submission in flight", errors.New("nothing to cancel")).
			WithField("resume", resume).
			WithField("action", action)
	}
	return c.JSON(http.StatusOK, map[string]int{"cancelled": 1})
}
