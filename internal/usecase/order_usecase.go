package usecase

import (
	"context"
	"errors"
	"time"

	"retailorders/internal/domain/model"
	repo "retailorders/internal/repository"
)

// OrderUsecase は自分の注文の参照だけを扱う（変更はCart/Checkout）
type OrderUsecase struct {
	orders repo.OrderRepository
	items  repo.OrderItemRepository
}

func NewOrderUsecase(orders repo.OrderRepository, items repo.OrderItemRepository) *OrderUsecase {
	return &OrderUsecase{orders: orders, items: items}
}

type ListOrdersInput struct {
	Status      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

type OrderProductOutput struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Price string `json:"price"`
}

type OrderItemOutput struct {
	ID       int64              `json:"id"`
	Product  OrderProductOutput `json:"product"`
	Quantity int64              `json:"quantity"`
}

type OrderOutput struct {
	ID         int64             `json:"id"`
	Status     string            `json:"status"`
	TotalPrice string            `json:"total_price"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
	Items      []OrderItemOutput `json:"items"`
}

func (u *OrderUsecase) List(ctx context.Context, userID int64, in ListOrdersInput) ([]OrderOutput, error) {
	if userID <= 0 {
		return nil, NewHTTPError(KindUnauthorized, "unauthorized")
	}
	if in.Limit < 0 || in.Limit > 100 {
		return nil, NewHTTPError(KindInvalidInput, "invalid limit")
	}
	if in.Offset < 0 {
		return nil, NewHTTPError(KindInvalidInput, "invalid offset")
	}

	f := repo.OrderListFilter{
		CreatedFrom: in.CreatedFrom,
		CreatedTo:   in.CreatedTo,
		Limit:       in.Limit,
		Offset:      in.Offset,
	}
	switch model.OrderStatus(in.Status) {
	case "":
	case model.OrderStatusPending, model.OrderStatusCompleted:
		st := model.OrderStatus(in.Status)
		f.Status = &st
	default:
		return nil, NewHTTPError(KindInvalidInput, "invalid status")
	}

	orders, err := u.orders.ListByUserID(ctx, userID, f)
	if err != nil {
		return nil, errDB()
	}

	out := make([]OrderOutput, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderOutput(o, o.Items))
	}
	return out, nil
}

// 他人の注文は404
func (u *OrderUsecase) Get(ctx context.Context, userID int64, orderID int64) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(KindUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(KindInvalidInput, "invalid order id")
	}

	o, err := u.orders.FindByID(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) || (err == nil && o.UserID != userID) {
		return OrderOutput{}, NewHTTPError(KindNotFound, "order not found")
	}
	if err != nil {
		return OrderOutput{}, errDB()
	}

	items, err := u.items.ListByOrderID(ctx, o.ID)
	if err != nil {
		return OrderOutput{}, errDB()
	}
	return toOrderOutput(o, items), nil
}

func toOrderOutput(o model.Order, items []model.OrderItem) OrderOutput {
	out := OrderOutput{
		ID:         o.ID,
		Status:     string(o.Status),
		TotalPrice: o.TotalPrice.StringFixed(2),
		CreatedAt:  o.CreatedAt,
		UpdatedAt:  o.UpdatedAt,
		Items:      make([]OrderItemOutput, 0, len(items)),
	}
	for _, it := range items {
		item := OrderItemOutput{ID: it.ID, Quantity: it.Quantity, Product: OrderProductOutput{ID: it.ProductID}}
		if it.Product != nil {
			item.Product.Name = it.Product.Name
			item.Product.Price = it.Product.Price.StringFixed(2)
		}
		out.Items = append(out.Items, item)
	}
	return out
}
