package repository

import (
	"context"
	"time"

	"retailorders/internal/domain/model"

	"github.com/shopspring/decimal"
)

type OrderListFilter struct {
	Status      *model.OrderStatus
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

type OrderRepository interface {
	FindByID(ctx context.Context, orderID int64) (model.Order, error)

	// 行ロック付き取得（Tx内で使う）
	FindByIDForUpdate(ctx context.Context, orderID int64) (model.Order, error)

	// ユーザーのpending注文を行ロック付きで取得し、無ければ作る
	GetOrCreatePendingForUpdate(ctx context.Context, userID int64) (model.Order, error)

	ListByUserID(ctx context.Context, userID int64, f OrderListFilter) ([]model.Order, error)

	// 商品を含むpending注文をid昇順で行ロックしてidを返す
	LockPendingByProduct(ctx context.Context, productID int64) ([]int64, error)

	UpdateTotal(ctx context.Context, orderID int64, total decimal.Decimal) error

	// from -> to の遷移。fromでなければErrStateChanged
	Transition(ctx context.Context, orderID int64, from, to model.OrderStatus) error
}
