package validator

import (
	"context"
	"regexp"

	"retailorders/internal/usecase"
)

var phoneRe = regexp.MustCompile(`^\+?[0-9][0-9\- ]{5,28}$`)

type contactValidator struct{}

func NewContactValidator() usecase.ContactValidator {
	return contactValidator{}
}

// nameは必須。email/phoneは入っていれば形式チェック
func (contactValidator) ValidateContact(_ context.Context, in usecase.ContactInput) error {
	if in.Name == "" || len(in.Name) > 100 {
		return usecase.NewHTTPError(usecase.KindInvalidInput, "name must be 1-100 characters")
	}
	if in.Email == "" && in.Phone == "" {
		return usecase.NewHTTPError(usecase.KindInvalidInput, "email or phone is required")
	}
	if in.Email != "" && (len(in.Email) > 255 || !isEmailLike(in.Email)) {
		return usecase.NewHTTPError(usecase.KindInvalidInput, "invalid email")
	}
	if in.Phone != "" && !phoneRe.MatchString(in.Phone) {
		return usecase.NewHTTPError(usecase.KindInvalidInput, "invalid phone")
	}
	return nil
}
