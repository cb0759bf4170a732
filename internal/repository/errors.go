package repository

import "errors"

var (
	ErrNotFound = errors.New("not found")

	// 在庫不足（条件付き減算が0件、またはCHECK制約違反）
	ErrInsufficientStock = errors.New("insufficient stock")

	// 期待した状態から既に変わっていた
	ErrStateChanged = errors.New("state changed")
)
