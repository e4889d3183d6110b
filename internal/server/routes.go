package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := s.echo.Group("/api", errorMiddleware(s.logger))

	api.GET("/modes", s.handleListModes)
	api.GET("/modes/:mode/prompts", s.handleModePrompts)

	api.POST("/sessions", s.handleCreateSession)
	api.GET("/sessions/:id", s.handleGetSession)
	api.DELETE("/sessions/:id", s.handleDeleteSession)
	api.POST("/sessions/:id/reset", s.handleResetSession)
	api.PUT("/sessions/:id/mode", s.handleSetMode)
	api.GET("/sessions/:id/actions", s.handleSessionActions)
	api.PUT("/sessions/:id/job-description", s.handleSetJobDescription)

	api.POST("/sessions/:id/resumes", s.handleUploadResumes)
	api.POST("/sessions/:id/resumes/import", s.handleImportResumes)
	api.GET("/sessions/:id/resumes", s.handleListResumes)
	api.GET("/sessions/:id/resumes/:name", s.handleGetResume)
	api.GET("/sessions/:id/resumes/:name/file", s.handleResumeFile)
	api.GET("/sessions/:id/resumes/:name/report", s.handleResumeReport)

	api.PUT("/sessions/:id/selection", s.handleSelectResume)
	api.DELETE("/sessions/:id/selection", s.handleClearSelection)

	api.POST("/sessions/:id/submissions", s.handleSubmit)
	api.POST("/sessions/:id/submissions/batch", s.handleSubmitAll)
	api.DELETE("/sessions/:id/submissions", s.handleCancelSubmission)

	s.echo.GET("/ws/sessions/:id", s.handleWebSocket)
}
