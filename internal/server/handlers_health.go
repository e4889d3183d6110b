package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func (s *Server) handleLiveness(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":   "ok",
		"uptime":   s.clock.Since(s.startTime).Seconds(),
		"sessions": s.registry.Len(),
	})
}
