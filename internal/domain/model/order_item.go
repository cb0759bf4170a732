package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// (order, product)で1行。同じ商品は数量を加算する。
type OrderItem struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID   int64     `gorm:"not null;uniqueIndex:idx_order_items_order_product,priority:1" json:"order_id"`
	ProductID int64     `gorm:"not null;uniqueIndex:idx_order_items_order_product,priority:2;index" json:"product_id"`
	Product   *Product  `gorm:"constraint:OnDelete:RESTRICT" json:"product,omitempty"`
	Quantity  int64     `gorm:"not null;check:chk_order_items_quantity,quantity > 0" json:"quantity"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// 行の小計 = 単価 × 数量
func LineTotal(price decimal.Decimal, quantity int64) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(quantity))
}
