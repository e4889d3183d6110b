package server

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type modeRequest struct {
	Mode string `json:"mode" validate:"required"`
}

type jobDescriptionRequest struct {
	Text string `json:"text" validate:"max=20000"`
}

type selectionRequest struct {
	Resume string `json:"resume" validate:"required"`
}

type importRequest struct {
	Keys []string `json:"keys" validate:"required,min=1,dive,required"`
}

type submissionRequest struct {
	Action string `json:"action" validate:"required"`
	// Resume overrides the selection when set.
	Resume string `json:"resume"`
}

type batchRequest struct {
	Action string `json:"action" validate:"required"`
}

type reportRequest struct {
	Action string `query:"action"`
	Format string `query:"format" validate:"omitempty,oneof=markdown json"`
}

// bind decodes the JSON body (or query string) into req and validates it.
func (s *Server) bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return validationError("invalid request body")
	}
	if err := s.validator.Struct(req); err != nil {
		return validationError(validationMessage(err))
	}
	return nil
}

func validationMessage(err error) string {
	if ves, ok := err.(validator.ValidationErrors); ok && len(ves) > 0 {
		ve := ves[0]
		return fmt.Sprintf("validation error: %s - %s", strings.ToLower(ve.Field()), ve.Tag())
	}
	return "validation error: invalid request"
}
