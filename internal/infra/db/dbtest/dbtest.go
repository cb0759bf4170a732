// Package dbtest opens a throwaway SQLite database with the production schema for tests.
package dbtest

import (
	"path/filepath"
	"testing"

	"retailorders/internal/domain/model"
	"retailorders/internal/infra/db"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open はテストごとに別ファイルのSQLiteを作る。
// 接続は1本に絞るので、並行Txは直列化される。
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "test.db") + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.Migrate(gormDB))
	return gormDB
}

// SeedProduct は店舗ごと商品を1件作る。
func SeedProduct(t *testing.T, gormDB *gorm.DB, name string, price string, stock int64) model.Product {
	t.Helper()

	store := model.Store{Name: "Test Store"}
	require.NoError(t, gormDB.Create(&store).Error)

	p := model.Product{
		StoreID: store.ID,
		Name:    name,
		Price:   decimal.RequireFromString(price),
		Stock:   stock,
	}
	require.NoError(t, gormDB.Create(&p).Error)
	return p
}

// Stock は現在の在庫を読み直す。
func Stock(t *testing.T, gormDB *gorm.DB, productID int64) int64 {
	t.Helper()

	var p model.Product
	require.NoError(t, gormDB.First(&p, productID).Error)
	return p.Stock
}
