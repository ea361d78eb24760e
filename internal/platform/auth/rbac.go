package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// Role groups used by route registration.
var (
	ReadRoles    = []string{"physician", "nurse", "registrar"}
	ClinicRoles  = []string{"physician", "nurse"}
	RegistryRole = []string{"admin"}
)

// HasRole reports whether roles include any of wanted. admin satisfies every check.
func HasRole(roles []string, wanted ...string) bool {
	for _, has := range roles {
		if has == "admin" {
			return true
		}
		for _, w := range wanted {
			if has == w {
				return true
			}
		}
	}
	return false
}

// RequireRole rejects requests whose user has none of the given roles.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if HasRole(RolesFromContext(c.Request().Context()), roles...) {
				return next(c)
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required role: %s", strings.Join(roles, " or ")))
		}
	}
}
