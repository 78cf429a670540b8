package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ScopeHistoryRead grants access to the conversion history routes.
const ScopeHistoryRead = "history:read"

// RequireScope rejects requests whose token does not carry scope. It must
// run after JWTMiddleware.
func RequireScope(scope string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !HasScope(ScopesFromContext(c.Request().Context()), scope) {
				return echo.NewHTTPError(http.StatusForbidden, "insufficient scope: "+scope+" required")
			}
			return next(c)
		}
	}
}

func HasScope(granted []string, scope string) bool {
	for _, s := range granted {
		if s == scope {
			return true
		}
	}
	return false
}
