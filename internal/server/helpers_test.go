package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"retailorders/internal/config"
	"retailorders/internal/domain/model"
	"retailorders/internal/handler"
	"retailorders/internal/infra/db/dbtest"
	infraRepo "retailorders/internal/infra/repository"
	"retailorders/internal/ratelimit"
	"retailorders/internal/server"
	"retailorders/internal/task"
	"retailorders/internal/usecase"
	"retailorders/internal/validator"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const testSecret = "server-test-secret"

type ErrorResponse struct {
	Error string `json:"error"`
}

type MessageTotalResponse struct {
	Message    string `json:"message"`
	TotalPrice string `json:"total_price"`
}

type OrderItemResponse struct {
	ID      int64 `json:"id"`
	Product struct {
		ID    int64  `json:"id"`
		Name  string `json:"name"`
		Price string `json:"price"`
	} `json:"product"`
	Quantity int64 `json:"quantity"`
}

type OrderResponse struct {
	ID         int64               `json:"id"`
	Status     string              `json:"status"`
	TotalPrice string              `json:"total_price"`
	Items      []OrderItemResponse `json:"items"`
}

// タスクは記録するだけ
type taskRecorder struct {
	mu    sync.Mutex
	tasks []task.Task
}

func (r *taskRecorder) Dispatch(t task.Task) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks = append(r.tasks, t)
	return true
}

func (r *taskRecorder) Types() []task.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]task.Type, 0, len(r.tasks))
	for _, t := range r.tasks {
		out = append(out, t.Type)
	}
	return out
}

type testApp struct {
	DB      *gorm.DB
	Tasks   *taskRecorder
	BaseURL string
	HTTP    *http.Client
}

// main.goと同じ組み立てをSQLiteとメモリのレート制限で行う
func newTestApp(t *testing.T) *testApp {
	t.Helper()

	cfg := config.Config{
		JWTSecret:     testSecret,
		RateAnonLimit: 10,
		RateUserLimit: 100,
		RateWindow:    time.Minute,
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	gormDB := dbtest.Open(t)
	tasks := &taskRecorder{}

	productRepo := infraRepo.NewProductGormRepository(gormDB)
	storeRepo := infraRepo.NewStoreGormRepository(gormDB)
	categoryRepo := infraRepo.NewCategoryGormRepository(gormDB)
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	txm := infraRepo.NewTxManagerGorm(gormDB)

	h := server.Handlers{
		Auth: handler.NewAuthHandler(usecase.NewAuthUsecase(cfg, userRepo, validator.NewAuthValidator(userRepo))),
		Product: handler.NewProductHandler(
			usecase.NewProductUsecase(productRepo, storeRepo, categoryRepo, txm, tasks, log),
			usecase.NewCatalogUsecase(storeRepo, categoryRepo),
		),
		Order: handler.NewOrderHandler(
			usecase.NewCartUsecase(txm),
			usecase.NewCheckoutUsecase(txm, tasks, log),
			usecase.NewOrderUsecase(infraRepo.NewOrderGormRepository(gormDB), infraRepo.NewOrderItemGormRepository(gormDB)),
		),
		Contact: handler.NewContactHandler(usecase.NewContactUsecase(infraRepo.NewContactGormRepository(gormDB), validator.NewContactValidator())),
	}

	limiter := ratelimit.NewMemoryStore(ratelimit.Limits{
		Anon:   cfg.RateAnonLimit,
		User:   cfg.RateUserLimit,
		Window: cfg.RateWindow,
	})

	srv := httptest.NewServer(server.New(cfg, h, limiter, server.Deps{Log: log}))
	t.Cleanup(srv.Close)

	return &testApp{
		DB:      gormDB,
		Tasks:   tasks,
		BaseURL: srv.URL,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (a *testApp) doJSON(t *testing.T, method string, path string, bearer string, body any) (*http.Response, []byte) {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, a.BaseURL+path, reqBody)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := a.HTTP.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

// DBにユーザーを作り、そのユーザーのアクセストークンを返す
func (a *testApp) seedUser(t *testing.T, email string, role model.Role) (int64, string) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	u := model.User{Email: email, PasswordHash: string(hash), Role: role, IsActive: true}
	require.NoError(t, a.DB.Create(&u).Error)

	claims := jwt.MapClaims{
		"sub":   strconv.FormatInt(u.ID, 10),
		"role":  string(role),
		"email": email,
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return u.ID, token
}

func mustDecode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(body, &v), "body=%s", string(body))
	return v
}

// 自分のpending注文を1件取る
func (a *testApp) pendingOrder(t *testing.T, token string) OrderResponse {
	t.Helper()
	resp, body := a.doJSON(t, http.MethodGet, "/orders/?status=pending", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	orders := mustDecode[[]OrderResponse](t, body)
	require.Len(t, orders, 1)
	return orders[0]
}
