package middleware

import (
	"net/http"

	"retailorders/internal/domain/model"

	"github.com/labstack/echo/v4"
)

// AuthJWTの後ろに置く。roleが無い/未知なら401、許可外なら403
func RequireRole(allowed ...model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, _ := c.Get(CtxUserRoleKey).(string)
			role, ok := model.ParseRole(raw)
			if !ok {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			for _, r := range allowed {
				if role == r {
					return next(c)
				}
			}
			return c.JSON(http.StatusForbidden, errorJSON(forbiddenMessage(allowed)))
		}
	}
}

// 商品・店舗・カテゴリの書き込みと一括登録
func AdminRoleGuard() echo.MiddlewareFunc {
	return RequireRole(model.RoleAdmin)
}

func forbiddenMessage(allowed []model.Role) string {
	if len(allowed) == 1 && allowed[0] == model.RoleAdmin {
		return "admin only"
	}
	return "forbidden"
}
