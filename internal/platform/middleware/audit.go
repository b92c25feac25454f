package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// AuditSubjectKey is the context key a handler sets when the affected patient
// id is not part of the route, as on create.
const AuditSubjectKey = "patient_id"

// Audit writes one "patient_mutation" line for every create or edit request,
// after the handler has run, carrying the outcome status.
func Audit(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			action := mutationAction(c.Request().Method)
			if action == "" {
				return next(c)
			}

			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			} else if err != nil {
				status = http.StatusInternalServerError
			}

			evt := logger.Info()
			if status >= 400 {
				evt = logger.Warn()
			}
			evt.
				Str("type", "audit").
				Str("action", action).
				Str("patient_id", auditSubject(c)).
				Str("request_id", requestIDFrom(c)).
				Str("path", c.Request().URL.Path).
				Str("remote_ip", c.RealIP()).
				Int("status", status).
				Bool("success", status < 400).
				Msg("patient_mutation")

			return err
		}
	}
}

func mutationAction(method string) string {
	switch method {
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return ""
	}
}

func auditSubject(c echo.Context) string {
	if id := c.Param("patient_id"); id != "" {
		return id
	}
	id, _ := c.Get(AuditSubjectKey).(string)
	return id
}
