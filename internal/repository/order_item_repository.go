package repository

import (
	"context"

	"retailorders/internal/domain/model"
)

type OrderItemRepository interface {
	// Productをpreloadして返す
	ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error)

	FindInOrder(ctx context.Context, orderID int64, itemID int64) (model.OrderItem, error)

	// 同一商品はプラス
	AddQuantity(ctx context.Context, orderID int64, productID int64, addQty int64) (model.OrderItem, error)

	DeleteByID(ctx context.Context, itemID int64) error

	// 商品の明細をまとめて消す（pending注文のみを想定）
	DeleteByProduct(ctx context.Context, productID int64) error

	// 確定済み注文に含まれているか
	ExistsInCompletedOrder(ctx context.Context, productID int64) (bool, error)
}
