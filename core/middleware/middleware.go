package middleware

import (
	"net/http"
	"time"

	"household-api/core/cache"
	"household-api/core/constants"
	"household-api/core/controller"
	"household-api/core/errors"
	"household-api/core/logger"
	"household-api/core/utils"

	"github.com/labstack/echo/v4"
)

type Middleware struct {
	cache cache.Cache
}

func NewMiddleware(cache cache.Cache) *Middleware {
	return &Middleware{cache: cache}
}

// AuthMiddleware validates the bearer token and stores its claims under constants.ContextTokenData.
func (m *Middleware) AuthMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, err := utils.GetTokenFromHeader(c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				return controller.NewErrorResponse(http.StatusUnauthorized, errors.ErrMissingAuthorizationHeader, "Missing or malformed token")
			}

			claims, err := utils.ValidateAndParseToken(token)
			if err != nil {
				code := errors.ErrUnauthorized
				var appErr *errors.AppError
				if errors.As(err, &appErr) {
					code = appErr.Code
				}
				return controller.NewErrorResponse(http.StatusUnauthorized, code, "Invalid token")
			}

			if m.cache != nil {
				blacklisted, err := m.cache.IsTokenBlacklisted(c.Request().Context(), token)
				if err != nil {
					logger.Error("Middleware:AuthMiddleware - blacklist check", err)
					return controller.NewErrorResponse(http.StatusInternalServerError, errors.ErrInternalServer, "internal server error")
				}
				if blacklisted {
					return controller.NewErrorResponse(http.StatusUnauthorized, errors.ErrUnauthorized, "Token revoked")
				}
			}

			c.Set(constants.ContextTokenData, claims)
			return next(c)
		}
	}
}

// RequestLogger tags each request with a short id and logs its outcome.
func (m *Middleware) RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			requestID := c.Request().Header.Get(echo.HeaderXRequestID)
			if requestID == "" {
				requestID = utils.GenerateID()
			}
			c.Set(constants.ContextRequestID, requestID)
			c.Response().Header().Set(echo.HeaderXRequestID, requestID)

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			logger.Info("http request",
				"request_id", requestID,
				"method", c.Request().Method,
				"path", c.Path(),
				"status", c.Response().Status,
				"latency_ms", time.Since(start).Milliseconds(),
			)
			return nil
		}
	}
}

// ClaimsFromContext returns the claims stored by AuthMiddleware.
func ClaimsFromContext(c echo.Context) (*utils.TokenClaims, error) {
	tokenData := c.Get(constants.ContextTokenData)
	if tokenData == nil {
		return nil, errors.NewAppError(errors.ErrUnauthorized, "User not authenticated", nil)
	}
	claims, ok := tokenData.(*utils.TokenClaims)
	if !ok {
		return nil, errors.NewAppError(errors.ErrUnauthorized, "Invalid token data", nil)
	}
	return claims, nil
}
