package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/farmmart/backend/internal/authz"
)

const identityKey = "identity"

// RequireAuth parses the access token from the accessToken cookie or the
// Authorization header and stores the caller's identity on the context.
func RequireAuth(jwtSecret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ident, err := identityFromRequest(c, jwtSecret)
			if err != nil {
				return err
			}
			c.Set(identityKey, ident)
			return next(c)
		}
	}
}

func IdentityFrom(c echo.Context) (authz.Identity, error) {
	ident, ok := c.Get(identityKey).(authz.Identity)
	if !ok {
		return authz.Identity{}, echo.NewHTTPError(http.StatusUnauthorized, "missing identity")
	}
	return ident, nil
}

func identityFromRequest(c echo.Context, jwtSecret []byte) (authz.Identity, error) {
	tokenString := ""
	if cookie, err := c.Cookie("accessToken"); err == nil {
		tokenString = cookie.Value
	}
	if tokenString == "" {
		h := c.Request().Header.Get(echo.HeaderAuthorization)
		tokenString = strings.TrimPrefix(h, "Bearer ")
	}
	if tokenString == "" {
		return authz.Identity{}, echo.NewHTTPError(http.StatusUnauthorized, "missing token")
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return authz.Identity{}, echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return authz.Identity{}, echo.NewHTTPError(http.StatusUnauthorized, "invalid token claims")
	}
	subRaw, ok := claims["sub"].(float64)
	if !ok {
		return authz.Identity{}, echo.NewHTTPError(http.StatusUnauthorized, "invalid subject claim")
	}
	role := authz.Role(fmt.Sprint(claims["role"]))
	if !role.Valid() {
		return authz.Identity{}, echo.NewHTTPError(http.StatusUnauthorized, "invalid role claim")
	}

	return authz.Identity{UserID: uint(subRaw), Role: role}, nil
}
