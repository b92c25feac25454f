package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// ErrorHandler renders transport errors as {"detail": "..."}. The internal
// cause of an HTTPError is never written to the client.
func ErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		detail := any("Internal server error")
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			switch m := he.Message.(type) {
			case string:
				detail = m
			case nil:
				detail = http.StatusText(code)
			default:
				detail = m
			}
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(code)
		} else {
			werr = c.JSON(code, map[string]any{"detail": detail})
		}
		if werr != nil {
			logger.Error().Err(werr).
				Str("request_id", requestIDFrom(c)).
				Msg("failed to write error response")
		}
	}
}
