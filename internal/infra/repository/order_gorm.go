package repository

import (
	"context"

	"retailorders/internal/domain/model"
	repo "retailorders/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderGormRepository struct {
	db *gorm.DB
}

func NewOrderGormRepository(db *gorm.DB) *OrderGormRepository {
	return &OrderGormRepository{db: db}
}

func (r *OrderGormRepository) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	var o model.Order
	err := r.db.WithContext(ctx).Where("id = ?", orderID).First(&o).Error
	if err != nil {
		return model.Order{}, translate(err)
	}
	return o, nil
}

func (r *OrderGormRepository) FindByIDForUpdate(ctx context.Context, orderID int64) (model.Order, error) {
	var o model.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", orderID).
		First(&o).Error
	if err != nil {
		return model.Order{}, translate(err)
	}
	return o, nil
}

// pending注文を探す→無ければ作る。
// 同時に作ろうとした場合は部分ユニークインデックスで片方がDO NOTHINGになり、再検索で同じ行を拾う。
func (r *OrderGormRepository) GetOrCreatePendingForUpdate(ctx context.Context, userID int64) (model.Order, error) {
	o, err := r.findPendingForUpdate(ctx, userID)
	if err == nil {
		return o, nil
	}
	if !isNotFound(err) {
		return model.Order{}, err
	}

	newOrder := model.Order{
		UserID:     userID,
		Status:     model.OrderStatusPending,
		TotalPrice: decimal.Zero,
	}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Omit("Items").
		Create(&newOrder).Error; err != nil {
		return model.Order{}, err
	}

	o, err = r.findPendingForUpdate(ctx, userID)
	if err != nil {
		return model.Order{}, translate(err)
	}
	return o, nil
}

func (r *OrderGormRepository) findPendingForUpdate(ctx context.Context, userID int64) (model.Order, error) {
	var o model.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND status = ?", userID, model.OrderStatusPending).
		First(&o).Error
	return o, err
}

func (r *OrderGormRepository) ListByUserID(ctx context.Context, userID int64, f repo.OrderListFilter) ([]model.Order, error) {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	q := r.db.WithContext(ctx).Model(&model.Order{}).Where("user_id = ?", userID)

	//status 絞り込み
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}

	//期間絞り込み
	if f.CreatedFrom != nil {
		q = q.Where("created_at >= ?", *f.CreatedFrom)
	}
	if f.CreatedTo != nil {
		q = q.Where("created_at <= ?", *f.CreatedTo)
	}

	var orders []model.Order
	err := q.Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		Preload("Items.Product").
		Order("id desc").
		Limit(f.Limit).
		Offset(f.Offset).
		Find(&orders).Error
	if err != nil {
		return []model.Order{}, err
	}
	return orders, nil
}

func (r *OrderGormRepository) LockPendingByProduct(ctx context.Context, productID int64) ([]int64, error) {
	sub := r.db.Model(&model.OrderItem{}).Select("order_id").Where("product_id = ?", productID)

	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("status = ? AND id IN (?)", model.OrderStatusPending, sub).
		Order("id asc").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *OrderGormRepository) UpdateTotal(ctx context.Context, orderID int64, total decimal.Decimal) error {
	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", orderID).
		Update("total_price", total)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *OrderGormRepository) Transition(ctx context.Context, orderID int64, from, to model.OrderStatus) error {
	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND status = ?", orderID, from).
		Update("status", to)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrStateChanged
	}
	return nil
}
