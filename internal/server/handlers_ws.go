package server

import (
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// handleWebSocket streams the session's submission updates until the client
// goes away.
func (s *Server) handleWebSocket(c echo.Context) error {
	st, err := s.state(c)
	if err != nil {
		ae := asAPIError(err)
		return c.JSON(ae.HTTPStatus(), ae.toResponse())
	}

	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade WebSocket: %w", err)
	}

	if err := s.hub.Register(st.ID(), conn); err != nil {
		s.logger.Warn("Failed to register WebSocket client", "session_id", st.ID(), "error", err)
		msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error())
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		conn.Close()
		return nil
	}

	// Read pump: blocks until the connection closes
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.hub.Unregister(st.ID(), conn)
	return nil
}
