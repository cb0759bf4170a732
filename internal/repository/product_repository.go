package repository

import (
	"context"

	"retailorders/internal/domain/model"

	"github.com/shopspring/decimal"
)

// 一覧検索
type ProductListQuery struct {
	Page       int
	Limit      int
	StoreID    *int64
	CategoryID *int64
	Price      *decimal.Decimal
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
}

// 商品の永続化（保存・取得）だけを約束。
type ProductRepository interface {
	List(ctx context.Context, q ProductListQuery) ([]model.Product, int64, error)
	FindByID(ctx context.Context, id int64) (model.Product, error)

	// id昇順で行ロックを取る（デッドロック回避のため順序固定）
	FindByIDsForUpdate(ctx context.Context, ids []int64) ([]model.Product, error)

	Create(ctx context.Context, p model.Product) (model.Product, error)
	Update(ctx context.Context, p model.Product) error
	Delete(ctx context.Context, id int64) error
}

// 店舗・カテゴリ
type StoreRepository interface {
	List(ctx context.Context) ([]model.Store, error)
	FindByID(ctx context.Context, id int64) (model.Store, error)
	Create(ctx context.Context, s model.Store) (model.Store, error)
}

type CategoryRepository interface {
	List(ctx context.Context) ([]model.Category, error)
	FindByID(ctx context.Context, id int64) (model.Category, error)
	Create(ctx context.Context, c model.Category) (model.Category, error)
}
