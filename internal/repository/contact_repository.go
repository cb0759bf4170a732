package repository

import (
	"context"

	"retailorders/internal/domain/model"
)

type ContactRepository interface {
	List(ctx context.Context, limit int, offset int) ([]model.Contact, error)
	Create(ctx context.Context, c model.Contact) (model.Contact, error)
}
