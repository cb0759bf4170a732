package usecase_test

import (
	"context"
	"testing"

	infrarepo "retailorders/internal/infra/repository"
	"retailorders/internal/usecase"
	"retailorders/internal/validator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContactUsecase_CreateAndList(t *testing.T) {
	env := newCartEnv(t)
	ctx := context.Background()
	uc := usecase.NewContactUsecase(infrarepo.NewContactGormRepository(env.db), validator.NewContactValidator())

	c, err := uc.Create(ctx, 5, usecase.ContactInput{Name: " Jane ", Email: "jane@example.com", Address: "1 Main St"})
	require.NoError(t, err)
	assert.Equal(t, int64(5), c.UserID)
	assert.Equal(t, "Jane", c.Name)

	_, err = uc.Create(ctx, 0, usecase.ContactInput{Name: "x", Email: "x@example.com"})
	assert.True(t, usecase.IsKind(err, usecase.KindUnauthorized))

	_, err = uc.Create(ctx, 5, usecase.ContactInput{Name: "x"})
	assert.True(t, usecase.IsKind(err, usecase.KindInvalidInput))

	list, err := uc.List(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, c.ID, list[0].ID)

	_, err = uc.List(ctx, 500, 0)
	assert.True(t, usecase.IsKind(err, usecase.KindInvalidInput))
}

func TestCatalogUsecase_StoresAndCategories(t *testing.T) {
	env := newCartEnv(t)
	ctx := context.Background()
	uc := usecase.NewCatalogUsecase(infrarepo.NewStoreGormRepository(env.db), infrarepo.NewCategoryGormRepository(env.db))

	s, err := uc.CreateStore(ctx, "Downtown", "2 Market St")
	require.NoError(t, err)
	assert.NotZero(t, s.ID)

	_, err = uc.CreateCategory(ctx, "Kitchen")
	require.NoError(t, err)
	_, err = uc.CreateCategory(ctx, "Kitchen")
	assert.EqualError(t, err, "400: category already exists")

	_, err = uc.CreateStore(ctx, "  ", "")
	assert.True(t, usecase.IsKind(err, usecase.KindInvalidInput))

	stores, err := uc.ListStores(ctx)
	require.NoError(t, err)
	assert.Len(t, stores, 1)
	cats, err := uc.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, cats, 1)
}
