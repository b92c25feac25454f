package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// RequestTimeout bounds each request with a context deadline. Store calls
// observe the deadline through the request context; if the handler has not
// returned by then the client gets 504.
//
// The handler goroutine is not stopped on timeout. Writes check the deadline
// before saving, but a save already in progress when the deadline passes can
// still complete, so a 504 on /create or /edit does not guarantee the write
// was discarded.
func RequestTimeout(timeout time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
			defer cancel()
			c.SetRequest(c.Request().WithContext(ctx))

			done := make(chan error, 1)
			go func() {
				done <- next(c)
			}()

			select {
			case err := <-done:
				if errors.Is(err, context.DeadlineExceeded) {
					return errTimedOut(err)
				}
				return err
			case <-ctx.Done():
				if errors.Is(ctx.Err(), context.DeadlineExceeded) {
					return errTimedOut(ctx.Err())
				}
				return ctx.Err()
			}
		}
	}
}

func errTimedOut(cause error) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusGatewayTimeout, "Request processing exceeded the allowed time limit").
		SetInternal(cause)
}
