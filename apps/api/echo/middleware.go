package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/pobon98/school-management/core"
)

// sessionMiddleware lets the request through when allow accepts the caller's Session.
func sessionMiddleware(allow func(core.Session) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			if allow(claims.Session()) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

func adminMiddleware() echo.MiddlewareFunc {
	return sessionMiddleware(core.Session.IsAdmin)
}

func staffMiddleware() echo.MiddlewareFunc {
	return sessionMiddleware(core.Session.IsStaff)
}

func studentMiddleware() echo.MiddlewareFunc {
	return sessionMiddleware(core.Session.IsStudent)
}
