package usecase_test

import (
	"io"
	"log/slog"
	"sync"
	"testing"

	"retailorders/internal/domain/model"
	"retailorders/internal/infra/db/dbtest"
	infrarepo "retailorders/internal/infra/repository"
	"retailorders/internal/task"
	"retailorders/internal/usecase"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// Dispatchされたタスクを記録するだけ
type recordingDispatcher struct {
	mu    sync.Mutex
	tasks []task.Task
}

func (d *recordingDispatcher) Dispatch(t task.Task) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tasks = append(d.tasks, t)
	return true
}

func (d *recordingDispatcher) Tasks() []task.Task {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]task.Task(nil), d.tasks...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type cartEnv struct {
	db       *gorm.DB
	cart     *usecase.CartUsecase
	checkout *usecase.CheckoutUsecase
	orders   *usecase.OrderUsecase
	tasks    *recordingDispatcher
}

func newCartEnv(t *testing.T) cartEnv {
	t.Helper()
	gormDB := dbtest.Open(t)
	tx := infrarepo.NewTxManagerGorm(gormDB)
	tasks := &recordingDispatcher{}
	return cartEnv{
		db:       gormDB,
		cart:     usecase.NewCartUsecase(tx),
		checkout: usecase.NewCheckoutUsecase(tx, tasks, discardLogger()),
		orders:   usecase.NewOrderUsecase(infrarepo.NewOrderGormRepository(gormDB), infrarepo.NewOrderItemGormRepository(gormDB)),
		tasks:    tasks,
	}
}

func loadOrder(t *testing.T, gormDB *gorm.DB, orderID int64) model.Order {
	t.Helper()
	var o model.Order
	require.NoError(t, gormDB.First(&o, orderID).Error)
	return o
}

func countRows(t *testing.T, gormDB *gorm.DB, m any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, gormDB.Model(m).Count(&n).Error)
	return n
}
