package repository

import (
	"context"

	"retailorders/internal/domain/model"
	repo "retailorders/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderItemGormRepository struct {
	db *gorm.DB
}

func NewOrderItemGormRepository(db *gorm.DB) *OrderItemGormRepository {
	return &OrderItemGormRepository{db: db}
}

func (r *OrderItemGormRepository) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	var items []model.OrderItem
	err := r.db.WithContext(ctx).
		Preload("Product").
		Where("order_id = ?", orderID).
		Order("id asc").
		Find(&items).Error
	if err != nil {
		return []model.OrderItem{}, err
	}
	return items, nil
}

func (r *OrderItemGormRepository) FindInOrder(ctx context.Context, orderID int64, itemID int64) (model.OrderItem, error) {
	var item model.OrderItem
	err := r.db.WithContext(ctx).
		Where("id = ? AND order_id = ?", itemID, orderID).
		First(&item).Error
	if err != nil {
		return model.OrderItem{}, translate(err)
	}
	return item, nil
}

// 同一商品は数量加算。呼び出し側で注文行をロックしている前提
func (r *OrderItemGormRepository) AddQuantity(ctx context.Context, orderID int64, productID int64, addQty int64) (model.OrderItem, error) {
	var item model.OrderItem

	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("order_id = ? AND product_id = ?", orderID, productID).
		First(&item).Error

	if err == nil {
		// 既存ありだったら数量を増やす
		res := r.db.WithContext(ctx).Model(&model.OrderItem{}).
			Where("id = ?", item.ID).
			Update("quantity", gorm.Expr("quantity + ?", addQty))
		if res.Error != nil {
			return model.OrderItem{}, res.Error
		}
		if res.RowsAffected == 0 {
			return model.OrderItem{}, repo.ErrNotFound
		}
		item.Quantity += addQty
		return item, nil
	}

	if !isNotFound(err) {
		return model.OrderItem{}, err
	}

	//無い場合は新規作成
	item = model.OrderItem{
		OrderID:   orderID,
		ProductID: productID,
		Quantity:  addQty,
	}
	if err := r.db.WithContext(ctx).Omit("Product").Create(&item).Error; err != nil {
		return model.OrderItem{}, err
	}
	return item, nil
}

func (r *OrderItemGormRepository) DeleteByID(ctx context.Context, itemID int64) error {
	res := r.db.WithContext(ctx).Delete(&model.OrderItem{}, itemID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *OrderItemGormRepository) DeleteByProduct(ctx context.Context, productID int64) error {
	return r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Delete(&model.OrderItem{}).Error
}

func (r *OrderItemGormRepository) ExistsInCompletedOrder(ctx context.Context, productID int64) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.OrderItem{}).
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("order_items.product_id = ? AND orders.status = ?", productID, model.OrderStatusCompleted).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
