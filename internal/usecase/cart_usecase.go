package usecase

import (
	"context"
	"errors"
	"fmt"

	"retailorders/internal/domain/model"
	repo "retailorders/internal/repository"

	"github.com/shopspring/decimal"
)

// CartUsecase はpending注文（カート）の明細を増減する。
// 合計金額は毎回、同じTx内で明細から計算し直す。
type CartUsecase struct {
	tx repo.TransactionManager
}

func NewCartUsecase(tx repo.TransactionManager) *CartUsecase {
	return &CartUsecase{tx: tx}
}

type AddToCartInput struct {
	ProductID int64
	Quantity  int64
}

type CartSummary struct {
	OrderID    int64
	TotalPrice decimal.Decimal
}

// AddToCart は商品をカートへ追加する（同一商品は数量加算）。
// 在庫は予約しない。ここでの在庫チェックは事前チェックだけ。
func (u *CartUsecase) AddToCart(ctx context.Context, userID int64, in AddToCartInput) (CartSummary, error) {
	if userID <= 0 {
		return CartSummary{}, NewHTTPError(KindUnauthorized, "unauthorized")
	}
	if in.ProductID <= 0 {
		return CartSummary{}, NewHTTPError(KindInvalidInput, "invalid product_id")
	}
	if in.Quantity < 1 {
		return CartSummary{}, NewHTTPError(KindInvalidInput, "quantity must be a positive integer")
	}

	var out CartSummary
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		p, err := r.Products().FindByID(ctx, in.ProductID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(KindNotFound, "product not found")
		}
		if err != nil {
			return errDB()
		}
		if p.Stock < in.Quantity {
			return NewHTTPError(KindInsufficientStock, fmt.Sprintf("insufficient stock for %s", p.Name))
		}

		order, err := r.Orders().GetOrCreatePendingForUpdate(ctx, userID)
		if err != nil {
			return errDB()
		}

		if _, err := r.OrderItems().AddQuantity(ctx, order.ID, p.ID, in.Quantity); err != nil {
			return errDB()
		}

		total, err := refreshTotal(ctx, r, order.ID)
		if err != nil {
			return err
		}
		out = CartSummary{OrderID: order.ID, TotalPrice: total}
		return nil
	})
	if err != nil {
		return CartSummary{}, err
	}
	return out, nil
}

// RemoveFromCart は明細を1行消す。最後の1行を消しても注文は残る。
func (u *CartUsecase) RemoveFromCart(ctx context.Context, userID int64, orderID int64, itemID int64) (CartSummary, error) {
	if userID <= 0 {
		return CartSummary{}, NewHTTPError(KindUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return CartSummary{}, NewHTTPError(KindInvalidInput, "invalid order id")
	}
	if itemID <= 0 {
		return CartSummary{}, NewHTTPError(KindInvalidInput, "item_id is required")
	}

	var out CartSummary
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		order, err := lockOwnedOrder(ctx, r, userID, orderID)
		if err != nil {
			return err
		}
		if !order.IsPending() {
			return NewHTTPError(KindInvalidState, "order already processed")
		}

		item, err := r.OrderItems().FindInOrder(ctx, order.ID, itemID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(KindNotFound, "item not found")
		}
		if err != nil {
			return errDB()
		}
		if err := r.OrderItems().DeleteByID(ctx, item.ID); err != nil {
			return errDB()
		}

		total, err := refreshTotal(ctx, r, order.ID)
		if err != nil {
			return err
		}
		out = CartSummary{OrderID: order.ID, TotalPrice: total}
		return nil
	})
	if err != nil {
		return CartSummary{}, err
	}
	return out, nil
}

// 他人の注文は存在しないものとして扱う（404）
func lockOwnedOrder(ctx context.Context, r repo.TxRepos, userID, orderID int64) (model.Order, error) {
	order, err := r.Orders().FindByIDForUpdate(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Order{}, NewHTTPError(KindNotFound, "order not found")
	}
	if err != nil {
		return model.Order{}, errDB()
	}
	if order.UserID != userID {
		return model.Order{}, NewHTTPError(KindNotFound, "order not found")
	}
	return order, nil
}

// 現在の明細から合計を出して保存する
func refreshTotal(ctx context.Context, r repo.TxRepos, orderID int64) (decimal.Decimal, error) {
	items, err := r.OrderItems().ListByOrderID(ctx, orderID)
	if err != nil {
		return decimal.Zero, errDB()
	}
	total, err := sumItems(items)
	if err != nil {
		return decimal.Zero, err
	}
	if err := r.Orders().UpdateTotal(ctx, orderID, total); err != nil {
		return decimal.Zero, errDB()
	}
	return total, nil
}

func sumItems(items []model.OrderItem) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, it := range items {
		if it.Product == nil {
			return decimal.Zero, NewHTTPError(KindInternal, "order item without product")
		}
		total = total.Add(model.LineTotal(it.Product.Price, it.Quantity))
	}
	return total, nil
}
