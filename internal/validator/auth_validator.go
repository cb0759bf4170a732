package validator

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"retailorders/internal/repository"
	"retailorders/internal/usecase"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type authValidator struct {
	users repository.UserRepository
}

// Usecaseは interface を依存注入
func NewAuthValidator(users repository.UserRepository) usecase.AuthValidator {
	return &authValidator{users: users}
}

// サインアップの入力を検証
func (v *authValidator) ValidateRegister(ctx context.Context, email string, password string) error {
	email = strings.TrimSpace(email)

	// 必須チェック
	if email == "" || password == "" {
		return usecase.NewHTTPError(usecase.KindInvalidInput, "email and password are required")
	}

	// email形式
	if !isEmailLike(email) {
		return usecase.NewHTTPError(usecase.KindInvalidInput, "invalid email")
	}

	// パスワード最低文字数（8）。bcryptは72バイトまで
	if len(password) < 8 || len(password) > 72 {
		return usecase.NewHTTPError(usecase.KindInvalidInput, "password must be 8-72 characters")
	}

	// email重複チェック
	_, err := v.users.FindByEmail(ctx, email)
	if err == nil {
		return usecase.NewHTTPError(usecase.KindInvalidInput, "email already used")
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return usecase.NewHTTPError(usecase.KindInternal, "db error")
	}

	return nil
}

// ログインの入力を検証
func (v *authValidator) ValidateLogin(ctx context.Context, email string, password string) error {
	email = strings.TrimSpace(email)

	if email == "" || password == "" {
		return usecase.NewHTTPError(usecase.KindInvalidInput, "email and password are required")
	}
	if !isEmailLike(email) {
		return usecase.NewHTTPError(usecase.KindInvalidInput, "invalid email")
	}
	return nil
}

// 簡易メール形式をチェック
func isEmailLike(s string) bool {
	return emailRe.MatchString(s)
}
