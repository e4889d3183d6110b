package server

import (
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/muhammadolammi/atsresume/internal/prompts"
	"github.com/muhammadolammi/atsresume/internal/session"
)

// state resolves the :id path parameter to a live session.
func (s *Server) state(c echo.Context) (*session.State, error) {
	raw := c.Param("id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, validationError("invalid session ID format").WithField("id", raw)
	}
	st, err := s.registry.Get(id)
	if err != nil {
		return nil, err
	}
	return st, nil
}

// resumeParam returns the :name path parameter. Echo matches on the raw path
// only when the request carries one, and then leaves the parameter escaped.
func resumeParam(c echo.Context) string {
	raw := c.Param("name")
	if c.Request().URL.RawPath == "" {
		return raw
	}
	if name, err := url.PathUnescape(raw); err == nil {
		return name
	}
	return raw
}

func (s *Server) handleListModes(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"modes":   prompts.Modes(),
		"default": prompts.DefaultMode,
	})
}

func (s *Server) handleModePrompts(c echo.Context) error {
	mode, err := prompts.ParseMode(c.Param("mode"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"mode":    mode,
		"prompts": prompts.For(mode),
	})
}

func (s *Server) handleCreateSession(c echo.Context) error {
	st := s.registry.Create()
	s.logger.Info("Session created", "session_id", st.ID())
	return c.JSON(http.StatusCreated, newSessionView(st))
}

func (s *Server) handleGetSession(c echo.Context) error {
	st, err := s.state(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newSessionView(st))
}

func (s *Server) handleDeleteSession(c echo.Context) error {
	st, err := s.state(c)
	if err != nil {
		return err
	}
	if err := s.registry.Delete(st.ID()); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleResetSession(c echo.Context) error {
	st, err := s.state(c)
	if err != nil {
		return err
	}
	s.submitter.CancelSession(st.ID())
	st.Reset()
	return c.JSON(http.StatusOK, newSessionView(st))
}

func (s *Server) handleSetMode(c echo.Context) error {
	st, err := s.state(c)
	if err != nil {
		return err
	}
	var req modeRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	mode, err := prompts.ParseMode(req.Mode)
	if err != nil {
		return err
	}
	if err := st.SetUserMode(mode); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newSessionView(st))
}

func (s *Server) handleSessionActions(c echo.Context) error {
	st, err := s.state(c)
	if err != nil {
		return err
	}
	mode := st.Mode()
	return c.JSON(http.StatusOK, map[string]any{
		"mode":    mode,
		"actions": prompts.Actions(mode),
	})
}

func (s *Server) handleSetJobDescription(c echo.Context) error {
	st, err := s.state(c)
	if err != nil {
		return err
	}
	var req jobDescriptionRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	st.SetJobDescription(req.Text)
	return c.JSON(http.StatusOK, newSessionView(st))
}

func (s *Server) handleSelectResume(c echo.Context) error {
	st, err := s.state(c)
	if err != nil {
		return err
	}
	var req selectionRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	if err := st.SetSelectedResume(req.Resume); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newSessionView(st))
}

func (s *Server) handleClearSelection(c echo.Context) error {
	st, err := s.state(c)
	if err != nil {
		return err
	}
	st.ClearSelection()
	return c.JSON(http.StatusOK, newSessionView(st))
}
