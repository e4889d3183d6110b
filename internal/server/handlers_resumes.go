package server

import (
	"fmt"
	"mime"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/muhammadolammi/atsresume/internal/intake"
	"github.com/muhammadolammi/atsresume/internal/prompts"
	"github.com/muhammadolammi/atsresume/internal/report"
	"github.com/muhammadolammi/atsresume/internal/session"
)

const uploadField = "files"

type admitResponse struct {
	Accepted []string           `json:"accepted"`
	Rejected []intake.Rejection `json:"rejected"`
	Session  sessionView        `json:"session"`
}

func (s *Server) handleUploadResumes(c echo.Context) error {
	st, err := s.state(c)
	if err != nil {
		return err
	}
	form, err := c.MultipartForm()
	if err != nil {
		return validationError("expected a multipart form").WithField("field", uploadField)
	}
	batch, err := intake.FromMultipart(form.File[uploadField])
	if err != nil {
		return internalError("failed to read uploaded files", err)
	}
	return s.admit(c, st, batch)
}

func (s *Server) handleImportResumes(c echo.Context) error {
	st, err := s.state(c)
	if err != nil {
		return err
	}
	if s.objects == nil {
		return newAPIError(typeUnavailable, "object storage not configured", nil)
	}
	var req importRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	if len(req.Keys) > s.intake.Policy().MaxFiles {
		return fmt.Errorf("%w: %d files, limit is %d", intake.ErrTooManyFiles, len(req.Keys), s.intake.Policy().MaxFiles)
	}
	batch, err := intake.FromObjectStore(c.Request().Context(), s.objects, req.Keys)
	if err != nil {
		return newAPIError(typeExternal, "failed to read from object storage", err)
	}
	return s.admit(c, st, batch)
}

func (s *Server) admit(c echo.Context, st *session.State, batch intake.Batch) error {
	res, err := s.intake.Admit(c.Request().Context(), st, batch)
	if err != nil {
		return err
	}
	for _, name := range res.Accepted {
		if err := st.SetPreview(name, previewPath(st.ID(), name)); err != nil {
			s.logger.Warn("preview not set", "session_id", st.ID(), "resume", name, "error", err)
		}
	}
	if res.Accepted == nil {
		res.Accepted = []string{}
	}
	if res.Rejected == nil {
		res.Rejected = []intake.Rejection{}
	}
	return c.JSON(http.StatusOK, admitResponse{
		Accepted: res.Accepted,
		Rejected: res.Rejected,
		Session:  newSessionView(st),
	})
}

// handleListResumes lists the session's résumés, optionally only those with
// a response for ?action=.
func (s *Server) handleListResumes(c echo.Context) error {
	st, err := s.state(c)
	if err != nil {
		return err
	}

	out := []resumeView{}
	action := c.QueryParam("action")
	if action == "" {
		for _, r := range st.Resumes() {
			out = append(out, newResumeView(r))
		}
		return c.JSON(http.StatusOK, out)
	}

	if !prompts.Known(prompts.Action(action)) {
		return fmt.Errorf("%w: %q", session.ErrUnknownAction, action)
	}
	for _, name := range st.ResumesWithResponse(prompts.Action(action)) {
		r, err := st.Resume(name)
		if err != nil {
			continue
		}
		out = append(out, newResumeView(r))
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleGetResume(c echo.Context) error {
	st, err := s.state(c)
	if err != nil {
		return err
	}
	r, err := st.Resume(resumeParam(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newResumeView(r))
}

// handleResumeFile streams the stored file so a client can render a preview.
func (s *Server) handleResumeFile(c echo.Context) error {
	st, err := s.state(c)
	if err != nil {
		return err
	}
	r, err := st.Resume(resumeParam(c))
	if err != nil {
		return err
	}
	rc, err := r.File.Open(c.Request().Context())
	if err != nil {
		return newAPIError(typeExternal, "failed to open resume", err).WithField("resume", r.Name)
	}
	defer rc.Close()

	mediaType := r.File.MediaType()
	if mediaType == "" {
		mediaType = "application/pdf"
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, mime.FormatMediaType("inline", map[string]string{"filename": r.Name}))
	return c.Stream(http.StatusOK, mediaType, rc)
}

// handleResumeReport exports the résumé's analyses: one action with
// ?action=, otherwise everything recorded. Markdown unless ?format=json.
func (s *Server) handleResumeReport(c echo.Context) error {
	st, err := s.state(c)
	if err != nil {
		return err
	}
	var req reportRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	r, err := st.Resume(resumeParam(c))
	if err != nil {
		return err
	}

	var rep report.Report
	if req.Action != "" {
		rep, err = report.Single(r, prompts.Action(req.Action), s.clock.Now())
	} else {
		rep, err = report.Complete(r, s.clock.Now())
	}
	if err != nil {
		return err
	}

	if req.Format == "json" {
		return c.JSON(http.StatusOK, rep)
	}
	data, err := rep.Markdown()
	if err != nil {
		return internalError("failed to render report", err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, mime.FormatMediaType("attachment", map[string]string{"filename": rep.Filename()}))
	return c.Blob(http.StatusOK, "text/markdown; charset=utf-8", data)
}
