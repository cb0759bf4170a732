package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"retailorders/internal/domain/model"
	repo "retailorders/internal/repository"
	"retailorders/internal/task"

	"github.com/shopspring/decimal"
)

// 投げっぱなしのタスク送信
type TaskDispatcher interface {
	Dispatch(t task.Task) bool
}

type CheckoutUsecase struct {
	tx    repo.TransactionManager
	tasks TaskDispatcher
	log   *slog.Logger
}

func NewCheckoutUsecase(tx repo.TransactionManager, tasks TaskDispatcher, log *slog.Logger) *CheckoutUsecase {
	return &CheckoutUsecase{tx: tx, tasks: tasks, log: log}
}

type CheckoutResult struct {
	OrderID    int64
	Status     model.OrderStatus
	TotalPrice decimal.Decimal
}

// Checkout はpending注文を確定する。
// 全明細の在庫確認、在庫減算、ステータス遷移を1つのTxで行い、どれかが失敗したら何も変えない。
// emailが分かっていれば確定後に確認メールのタスクを投げる。
func (u *CheckoutUsecase) Checkout(ctx context.Context, userID int64, email string, orderID int64) (CheckoutResult, error) {
	if userID <= 0 {
		return CheckoutResult{}, NewHTTPError(KindUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return CheckoutResult{}, NewHTTPError(KindInvalidInput, "invalid order id")
	}

	var out CheckoutResult
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		// 注文行 -> 商品行（id昇順）の順でロックする
		order, err := lockOwnedOrder(ctx, r, userID, orderID)
		if err != nil {
			return err
		}
		if !order.IsPending() {
			return NewHTTPError(KindInvalidState, "order already processed")
		}

		items, err := r.OrderItems().ListByOrderID(ctx, order.ID)
		if err != nil {
			return errDB()
		}
		sort.Slice(items, func(i, j int) bool { return items[i].ProductID < items[j].ProductID })

		ids := make([]int64, 0, len(items))
		for _, it := range items {
			ids = append(ids, it.ProductID)
		}
		locked, err := r.Products().FindByIDsForUpdate(ctx, ids)
		if err != nil {
			return errDB()
		}
		products := make(map[int64]model.Product, len(locked))
		for _, p := range locked {
			products[p.ID] = p
		}

		//先に全行を確認（途中まで減らさない）
		total := decimal.Zero
		for _, it := range items {
			p, ok := products[it.ProductID]
			if !ok {
				return NewHTTPError(KindNotFound, "product not found")
			}
			if p.Stock < it.Quantity {
				return insufficientStock(p)
			}
			total = total.Add(model.LineTotal(p.Price, it.Quantity))
		}

		//減算＋履歴
		for _, it := range items {
			ok, err := r.Inventory().DecreaseStockIfEnough(ctx, it.ProductID, it.Quantity)
			if errors.Is(err, repo.ErrInsufficientStock) || (err == nil && !ok) {
				return insufficientStock(products[it.ProductID])
			}
			if err != nil {
				return errDB()
			}
			oid := order.ID
			if err := r.Inventory().CreateAdjustment(ctx, model.InventoryAdjustment{
				ProductID:   it.ProductID,
				ActorUserID: userID,
				OrderID:     &oid,
				Delta:       -it.Quantity,
				Reason:      "checkout",
			}); err != nil {
				return errDB()
			}
		}

		if err := r.Orders().UpdateTotal(ctx, order.ID, total); err != nil {
			return errDB()
		}
		err = r.Orders().Transition(ctx, order.ID, model.OrderStatusPending, model.OrderStatusCompleted)
		if errors.Is(err, repo.ErrStateChanged) {
			return NewHTTPError(KindInvalidState, "order already processed")
		}
		if err != nil {
			return errDB()
		}

		out = CheckoutResult{OrderID: order.ID, Status: model.OrderStatusCompleted, TotalPrice: total}
		return nil
	})
	if err != nil {
		return CheckoutResult{}, err
	}

	u.notify(email, out)
	return out, nil
}

func (u *CheckoutUsecase) notify(email string, res CheckoutResult) {
	if email == "" || u.tasks == nil {
		return
	}
	t, err := task.New(task.TypeSendEmail, task.SendEmailPayload{
		To:      email,
		Subject: fmt.Sprintf("Order #%d confirmed", res.OrderID),
		Body:    fmt.Sprintf("Your order #%d has been completed. Total: %s", res.OrderID, res.TotalPrice.StringFixed(2)),
	})
	if err != nil {
		u.log.Error("build email task failed", "order_id", res.OrderID, "err", err)
		return
	}
	u.tasks.Dispatch(t)
}

func insufficientStock(p model.Product) error {
	return NewHTTPError(KindInsufficientStock, fmt.Sprintf("insufficient stock for %s", p.Name))
}
