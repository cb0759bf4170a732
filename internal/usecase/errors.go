package usecase

import (
	"errors"
	"fmt"
	"net/http"
)

// エラーの種類。1種類につきHTTPステータスは1つ
type Kind string

const (
	KindNotFound          Kind = "not_found"
	KindInvalidInput      Kind = "invalid_input"
	KindInsufficientStock Kind = "insufficient_stock"
	KindInvalidState      Kind = "invalid_state"
	KindRateLimited       Kind = "rate_limited"
	KindUnauthorized      Kind = "unauthorized"
	KindForbidden         Kind = "forbidden"
	KindInternal          Kind = "internal"
)

func (k Kind) Status() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidInput, KindInsufficientStock, KindInvalidState:
		return http.StatusBadRequest
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// handlerがそのままレスポンスにできるエラー
type HTTPError struct {
	Status  int
	Kind    Kind
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func NewHTTPError(kind Kind, message string) error {
	return &HTTPError{
		Status:  kind.Status(),
		Kind:    kind,
		Message: message,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

// Kindの判定（テスト・handler用）
func IsKind(err error, kind Kind) bool {
	he, ok := AsHTTPError(err)
	return ok && he.Kind == kind
}

func errDB() error {
	return NewHTTPError(KindInternal, "db error")
}
