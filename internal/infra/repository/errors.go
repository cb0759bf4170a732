package repository

import (
	"errors"
	"strings"

	repo "retailorders/internal/repository"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	pgCheckViolation  = "23514"
	stockCheckName    = "chk_products_stock"
	sqliteCheckPrefix = "CHECK constraint failed"
)

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// DBのエラーをrepositoryのエラーに寄せる
func translate(err error) error {
	if err == nil {
		return nil
	}
	if isNotFound(err) {
		return repo.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgCheckViolation && pgErr.ConstraintName == stockCheckName {
		return repo.ErrInsufficientStock
	}
	// テスト用SQLite
	if msg := err.Error(); strings.Contains(msg, sqliteCheckPrefix) && strings.Contains(msg, stockCheckName) {
		return repo.ErrInsufficientStock
	}
	return err
}
