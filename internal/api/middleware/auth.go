package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// ViewerKey is the context key holding the wallet address from the token's
// "address" claim.
const ViewerKey = "viewer"

// Auth validates the JWT and injects the viewer address into context.
func Auth(jwtSecret string) echo.MiddlewareFunc {
	return authenticate(jwtSecret, true)
}

// OptionalAuth behaves like Auth when an Authorization header is present and
// lets anonymous requests through otherwise.
func OptionalAuth(jwtSecret string) echo.MiddlewareFunc {
	return authenticate(jwtSecret, false)
}

func authenticate(jwtSecret string, required bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				if required {
					return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
				}
				return next(c)
			}
			if jwtSecret == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "token authentication is not configured")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			claims := jwt.MapClaims{}
			tkn, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
				if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
					return nil, jwt.ErrTokenSignatureInvalid
				}
				return []byte(jwtSecret), nil
			})
			if err != nil || !tkn.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			address, _ := claims["address"].(string)
			if address == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "token missing address claim")
			}
			c.Set(ViewerKey, address)

			return next(c)
		}
	}
}
