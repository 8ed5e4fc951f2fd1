package api

import (
	"github.com/chemequip/backend/internal/auth"
	"github.com/chemequip/backend/internal/models"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// ContextUserKey is where the authenticated *models.User is stored.
const ContextUserKey = "user"

// NewBasicAuth checks HTTP Basic credentials against stored users. When
// enabled is false every request passes through unchecked.
func NewBasicAuth(a *auth.Authenticator, realm string, enabled bool) echo.MiddlewareFunc {
	return middleware.BasicAuthWithConfig(middleware.BasicAuthConfig{
		Realm: realm,
		Skipper: func(echo.Context) bool {
			return !enabled
		},
		Validator: func(username, password string, c echo.Context) (bool, error) {
			user, err := a.Authenticate(c.Request().Context(), username, password)
			if err != nil {
				return false, err
			}
			if user == nil {
				return false, nil
			}
			c.Set(ContextUserKey, user)
			return true, nil
		},
	})
}

// CurrentUser returns the authenticated user, if any.
func CurrentUser(c echo.Context) *models.User {
	u, _ := c.Get(ContextUserKey).(*models.User)
	return u
}
