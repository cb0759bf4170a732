package usecase

import (
	"context"
	"strings"

	"retailorders/internal/domain/model"
	repo "retailorders/internal/repository"
)

type ContactValidator interface {
	ValidateContact(ctx context.Context, in ContactInput) error
}

type ContactUsecase struct {
	contacts  repo.ContactRepository
	validator ContactValidator
}

func NewContactUsecase(contacts repo.ContactRepository, validator ContactValidator) *ContactUsecase {
	return &ContactUsecase{contacts: contacts, validator: validator}
}

type ContactInput struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

func (u *ContactUsecase) List(ctx context.Context, limit int, offset int) ([]model.Contact, error) {
	if limit == 0 {
		limit = 50
	}
	if limit < 1 || limit > 100 || offset < 0 {
		return nil, NewHTTPError(KindInvalidInput, "invalid paging")
	}
	cs, err := u.contacts.List(ctx, limit, offset)
	if err != nil {
		return nil, errDB()
	}
	return cs, nil
}

// 作成者を所有者にする
func (u *ContactUsecase) Create(ctx context.Context, userID int64, in ContactInput) (model.Contact, error) {
	if userID <= 0 {
		return model.Contact{}, NewHTTPError(KindUnauthorized, "unauthorized")
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	if err := u.validator.ValidateContact(ctx, in); err != nil {
		return model.Contact{}, err
	}

	c, err := u.contacts.Create(ctx, model.Contact{
		UserID:  userID,
		Name:    in.Name,
		Email:   in.Email,
		Phone:   in.Phone,
		Address: strings.TrimSpace(in.Address),
	})
	if err != nil {
		return model.Contact{}, errDB()
	}
	return c, nil
}
