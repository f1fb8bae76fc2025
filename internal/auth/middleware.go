package auth

import (
	"context"
	"net/http"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	apperrors "userhub/internal/errors"
)

// ContextKey is the echo context key holding the caller's *Claims.
const ContextKey = "identity"

type identityKey struct{}

// Middleware returns the bearer-token guard for protected routes. Missing,
// malformed, expired or tampered tokens are rejected with 401.
func Middleware(jwtService *JWTService) echo.MiddlewareFunc {
	guard := echojwt.WithConfig(echojwt.Config{
		ContextKey:  ContextKey,
		TokenLookup: "header:" + echo.HeaderAuthorization + ":Bearer ",
		ParseTokenFunc: func(c echo.Context, token string) (interface{}, error) {
			return jwtService.ValidateToken(token)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusUnauthorized, apperrors.ErrorResponse{
				Error: "unauthorized",
				Code:  apperrors.CodeUnauthorized,
			})
		},
	})

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return guard(func(c echo.Context) error {
			if claims, ok := c.Get(ContextKey).(*Claims); ok {
				ctx := WithIdentity(c.Request().Context(), claims.Identity())
				c.SetRequest(c.Request().WithContext(ctx))
			}
			return next(c)
		})
	}
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the caller identity stored by Middleware.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// IdentityFrom returns the caller identity of an echo request.
func IdentityFrom(c echo.Context) (Identity, bool) {
	if claims, ok := c.Get(ContextKey).(*Claims); ok {
		return claims.Identity(), true
	}
	return IdentityFromContext(c.Request().Context())
}
