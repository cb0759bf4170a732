package usecase

import (
	"context"
	"strings"

	"retailorders/internal/domain/model"
	repo "retailorders/internal/repository"
)

// 店舗とカテゴリ（単純なCRUD）
type CatalogUsecase struct {
	stores     repo.StoreRepository
	categories repo.CategoryRepository
}

func NewCatalogUsecase(stores repo.StoreRepository, categories repo.CategoryRepository) *CatalogUsecase {
	return &CatalogUsecase{stores: stores, categories: categories}
}

func (u *CatalogUsecase) ListStores(ctx context.Context) ([]model.Store, error) {
	stores, err := u.stores.List(ctx)
	if err != nil {
		return nil, errDB()
	}
	return stores, nil
}

func (u *CatalogUsecase) CreateStore(ctx context.Context, name string, address string) (model.Store, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 100 {
		return model.Store{}, NewHTTPError(KindInvalidInput, "name must be 1-100 characters")
	}
	s, err := u.stores.Create(ctx, model.Store{Name: name, Address: strings.TrimSpace(address)})
	if err != nil {
		return model.Store{}, errDB()
	}
	return s, nil
}

func (u *CatalogUsecase) ListCategories(ctx context.Context) ([]model.Category, error) {
	cats, err := u.categories.List(ctx)
	if err != nil {
		return nil, errDB()
	}
	return cats, nil
}

// 名前はユニーク
func (u *CatalogUsecase) CreateCategory(ctx context.Context, name string) (model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 100 {
		return model.Category{}, NewHTTPError(KindInvalidInput, "name must be 1-100 characters")
	}
	c, err := u.categories.Create(ctx, model.Category{Name: name})
	if err != nil {
		return model.Category{}, NewHTTPError(KindInvalidInput, "category already exists")
	}
	return c, nil
}
