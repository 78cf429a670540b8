// Package apierror renders every error that reaches echo into the service's
// uniform JSON error payload.
package apierror

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/sqlconv/sqlconv/internal/platform/sqlexpr"
)

// Handler returns an echo.HTTPErrorHandler. Expression errors become 400,
// *echo.HTTPError keeps its code, anything else is logged and reported as
// a 500 without leaking its text.
func Handler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, message := Translate(err)
		evt := logger.Debug()
		if status >= http.StatusInternalServerError {
			evt = logger.Error()
		}
		evt.Err(err).
			Str("request_id", fmt.Sprintf("%v", c.Get("request_id"))).
			Int("status", status).
			Str("path", c.Request().URL.Path).
			Msg("request failed")

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, NewPayload(c.Request().URL.Path, status, message, time.Now()))
		}
		if err != nil {
			logger.Error().Err(err).Msg("write error response")
		}
	}
}

// Translate maps an error to an HTTP status and client facing message.
func Translate(err error) (int, string) {
	var exprErr *sqlexpr.ExpressionError
	if errors.As(err, &exprErr) {
		return http.StatusBadRequest, exprErr.Message
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		if msg, ok := httpErr.Message.(string); ok {
			return httpErr.Code, msg
		}
		if httpErr.Message == nil {
			return httpErr.Code, http.StatusText(httpErr.Code)
		}
		return httpErr.Code, fmt.Sprintf("%v", httpErr.Message)
	}

	return http.StatusInternalServerError, "internal server error"
}
