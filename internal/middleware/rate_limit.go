package middleware

import (
	"log/slog"
	"net/http"

	"retailorders/internal/ratelimit"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// カート変更の前に置くレート制限。
// OptionalAuthJWTの後ろに置くと、認証済みはユーザー単位、匿名はIP単位で数える。
func RateLimit(store echomw.RateLimiterStore, log *slog.Logger) echo.MiddlewareFunc {
	return echomw.RateLimiterWithConfig(echomw.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			if id, ok := c.Get(CtxUserIDKey).(int64); ok && id > 0 {
				return ratelimit.UserKey(id), nil
			}
			return ratelimit.AnonKey(c.RealIP()), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusForbidden, errorJSON("forbidden"))
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			if err != nil {
				log.Error("rate limit store failed", "identifier", identifier, "err", err)
			}
			return c.JSON(http.StatusTooManyRequests, errorJSON("rate limited"))
		},
	})
}
