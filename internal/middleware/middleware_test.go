package middleware_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"retailorders/internal/config"
	"retailorders/internal/domain/model"
	"retailorders/internal/middleware"
	"retailorders/internal/ratelimit"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "mw-secret"

// =====================
// レスポンス確認用
// =====================

type mwErrorResponse struct {
	Error string `json:"error"`
}

type mwOKResponse struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
	Email  string `json:"email"`
}

// =====================
// helper
// =====================

func mustMakeJWT(t *testing.T, key string, sub string, role string, signingMethod jwt.SigningMethod) string {
	t.Helper()

	claims := jwt.MapClaims{
		"sub":   sub,
		"role":  role,
		"email": "u@example.com",
		"iat":   1,
		"exp":   9999999999,
	}
	s, err := jwt.NewWithClaims(signingMethod, claims).SignedString([]byte(key))
	require.NoError(t, err)
	return s
}

func whoAmI(c echo.Context) error {
	id, _ := c.Get(middleware.CtxUserIDKey).(int64)
	role, _ := c.Get(middleware.CtxUserRoleKey).(string)
	email, _ := c.Get(middleware.CtxUserEmailKey).(string)
	return c.JSON(http.StatusOK, mwOKResponse{UserID: id, Role: role, Email: email})
}

func runRequest(e *echo.Echo, method string, path string, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeMWError(t *testing.T, rec *httptest.ResponseRecorder) mwErrorResponse {
	t.Helper()
	var r mwErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&r))
	return r
}

// =====================
// AuthJWT
// =====================

func TestAuthJWT(t *testing.T) {
	cfg := config.Config{JWTSecret: secret}
	e := echo.New()
	e.GET("/me", whoAmI, middleware.AuthJWT(cfg))

	rec := runRequest(e, http.MethodGet, "/me", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decodeMWError(t, rec).Error)

	rec = runRequest(e, http.MethodGet, "/me", "Bearer "+mustMakeJWT(t, secret, "7", "USER", jwt.SigningMethodHS256))
	require.Equal(t, http.StatusOK, rec.Code)
	var ok mwOKResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&ok))
	assert.Equal(t, mwOKResponse{UserID: 7, Role: "USER", Email: "u@example.com"}, ok)

	rec = runRequest(e, http.MethodGet, "/me", "Bearer "+mustMakeJWT(t, "other", "7", "USER", jwt.SigningMethodHS256))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = runRequest(e, http.MethodGet, "/me", "Bearer "+mustMakeJWT(t, secret, "7", "USER", jwt.SigningMethodHS512))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = runRequest(e, http.MethodGet, "/me", "Basic abc")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = runRequest(e, http.MethodGet, "/me", "Bearer "+mustMakeJWT(t, secret, "0", "USER", jwt.SigningMethodHS256))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOptionalAuthJWT_RequireUser(t *testing.T) {
	cfg := config.Config{JWTSecret: secret}
	e := echo.New()
	e.GET("/open", whoAmI, middleware.OptionalAuthJWT(cfg))
	e.GET("/closed", whoAmI, middleware.OptionalAuthJWT(cfg), middleware.RequireUser())

	rec := runRequest(e, http.MethodGet, "/open", "Bearer broken")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = runRequest(e, http.MethodGet, "/closed", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = runRequest(e, http.MethodGet, "/closed", "Bearer "+mustMakeJWT(t, secret, "3", "USER", jwt.SigningMethodHS256))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminRoleGuard(t *testing.T) {
	cfg := config.Config{JWTSecret: secret}
	e := echo.New()
	e.GET("/admin", whoAmI, middleware.AuthJWT(cfg), middleware.AdminRoleGuard())

	rec := runRequest(e, http.MethodGet, "/admin", "Bearer "+mustMakeJWT(t, secret, "1", "USER", jwt.SigningMethodHS256))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "admin only", decodeMWError(t, rec).Error)

	rec = runRequest(e, http.MethodGet, "/admin", "Bearer "+mustMakeJWT(t, secret, "1", "ADMIN", jwt.SigningMethodHS256))
	assert.Equal(t, http.StatusOK, rec.Code)

	// 未知のroleはトークンが正しくても401
	rec = runRequest(e, http.MethodGet, "/admin", "Bearer "+mustMakeJWT(t, secret, "1", "ROOT", jwt.SigningMethodHS256))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole_AnyOf(t *testing.T) {
	cfg := config.Config{JWTSecret: secret}
	e := echo.New()
	e.GET("/members", whoAmI, middleware.AuthJWT(cfg), middleware.RequireRole(model.RoleUser, model.RoleAdmin))
	e.GET("/users-only", whoAmI, middleware.AuthJWT(cfg), middleware.RequireRole(model.RoleUser))

	for _, role := range []string{"USER", "ADMIN"} {
		rec := runRequest(e, http.MethodGet, "/members", "Bearer "+mustMakeJWT(t, secret, "1", role, jwt.SigningMethodHS256))
		assert.Equal(t, http.StatusOK, rec.Code, role)
	}

	rec := runRequest(e, http.MethodGet, "/users-only", "Bearer "+mustMakeJWT(t, secret, "1", "ADMIN", jwt.SigningMethodHS256))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", decodeMWError(t, rec).Error)
}

// =====================
// RateLimit
// =====================

func TestRateLimit_AnonByIPAndUserByID(t *testing.T) {
	cfg := config.Config{JWTSecret: secret}
	store := ratelimit.NewMemoryStore(ratelimit.Limits{Anon: 10, User: 100, Window: time.Minute})
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	e := echo.New()
	e.POST("/cart", whoAmI, middleware.OptionalAuthJWT(cfg), middleware.RateLimit(store, log))

	for i := 0; i < 10; i++ {
		rec := runRequest(e, http.MethodPost, "/cart", "")
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
	}
	rec := runRequest(e, http.MethodPost, "/cart", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "rate limited", decodeMWError(t, rec).Error)

	// 同じIPでも認証済みはユーザー単位の別枠
	token := "Bearer " + mustMakeJWT(t, secret, "5", "USER", jwt.SigningMethodHS256)
	for i := 0; i < 100; i++ {
		rec = runRequest(e, http.MethodPost, "/cart", token)
		require.Equal(t, http.StatusOK, rec.Code, "user request %d", i+1)
	}
	rec = runRequest(e, http.MethodPost, "/cart", token)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
