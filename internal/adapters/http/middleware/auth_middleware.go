package middleware

import (
	"errors"
	"net/http"
	"os"
	"strings"

	"github.com/labstack/echo/v4"
	"launch-workflow/internal/domain"
)

type Mode string

const (
	ModeNone    Mode = "none"
	ModeAPIKey  Mode = "api_key"
	ModeCognito Mode = "cognito"
)

// IdentityKey is the echo context key under which the authenticated
// domain.Identity is stored.
const IdentityKey = "identity"

const (
	identityHeader = "X-Identity-Id"
	rolesHeader    = "X-Identity-Roles"
)

func ParseAuthMode() (Mode, error) {
	mode := Mode(os.Getenv("AUTH_MODE"))
	switch mode {
	case "", ModeNone, ModeAPIKey, ModeCognito:
		if mode == "" {
			return ModeNone, nil
		}
		return mode, nil
	default:
		return "", errors.New("invalid auth mode")
	}
}

// HeaderIdentity trusts the X-Identity-Id and X-Identity-Roles headers, for
// deployments fronted by a gateway that already authenticated the caller.
func HeaderIdentity() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := strings.TrimSpace(c.Request().Header.Get(identityHeader))
			if id == "" {
				return next(c)
			}
			var roles []domain.Role
			for _, raw := range strings.Split(c.Request().Header.Get(rolesHeader), ",") {
				if role := strings.TrimSpace(raw); role != "" {
					roles = append(roles, domain.Role(role))
				}
			}
			c.Set(IdentityKey, domain.Identity{ID: id, Roles: roles})
			return next(c)
		}
	}
}

// AuthMiddleware selects the identity source for the process. Cognito mode
// validates a JWT; the other modes trust gateway-supplied headers.
func AuthMiddleware(cognito echo.MiddlewareFunc) (echo.MiddlewareFunc, error) {
	mode, err := ParseAuthMode()
	if err != nil {
		return nil, err
	}
	if mode == ModeCognito && cognito == nil {
		return nil, errors.New("cognito middleware is required when AUTH_MODE=cognito")
	}
	header := HeaderIdentity()
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			switch mode {
			case ModeNone, ModeAPIKey:
				return header(next)(c)
			case ModeCognito:
				return cognito(next)(c)
			default:
				return echo.NewHTTPError(http.StatusInternalServerError, "invalid auth mode")
			}
		}
	}, nil
}
