package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"retailorders/internal/domain/model"
	repo "retailorders/internal/repository"
	"retailorders/internal/task"

	"github.com/shopspring/decimal"
)

// decimal(10,2)に収まる上限
var maxPrice = decimal.New(1, 8)

type ProductUsecase struct {
	productRepo  repo.ProductRepository
	storeRepo    repo.StoreRepository
	categoryRepo repo.CategoryRepository
	tx           repo.TransactionManager
	tasks        TaskDispatcher
	log          *slog.Logger
}

// DI
func NewProductUsecase(
	productRepo repo.ProductRepository,
	storeRepo repo.StoreRepository,
	categoryRepo repo.CategoryRepository,
	tx repo.TransactionManager,
	tasks TaskDispatcher,
	log *slog.Logger,
) *ProductUsecase {
	return &ProductUsecase{
		productRepo:  productRepo,
		storeRepo:    storeRepo,
		categoryRepo: categoryRepo,
		tx:           tx,
		tasks:        tasks,
		log:          log,
	}
}

// GET /products/ の入力DTO
type ListProductsInput struct {
	Page       int
	Limit      int
	StoreID    *int64
	CategoryID *int64
	Price      *decimal.Decimal
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
}

type ProductListOutput struct {
	Items []model.Product `json:"items"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

func (u *ProductUsecase) ListProducts(ctx context.Context, in ListProductsInput) (ProductListOutput, error) {
	if in.Page < 1 {
		return ProductListOutput{}, NewHTTPError(KindInvalidInput, "invalid page")
	}
	if in.Limit < 1 || in.Limit > 100 {
		return ProductListOutput{}, NewHTTPError(KindInvalidInput, "invalid limit")
	}
	for _, p := range []*decimal.Decimal{in.Price, in.MinPrice, in.MaxPrice} {
		if p != nil && p.IsNegative() {
			return ProductListOutput{}, NewHTTPError(KindInvalidInput, "price must be >= 0")
		}
	}
	if in.MinPrice != nil && in.MaxPrice != nil && in.MinPrice.GreaterThan(*in.MaxPrice) {
		return ProductListOutput{}, NewHTTPError(KindInvalidInput, "min_price must be <= max_price")
	}

	items, total, err := u.productRepo.List(ctx, repo.ProductListQuery{
		Page:       in.Page,
		Limit:      in.Limit,
		StoreID:    in.StoreID,
		CategoryID: in.CategoryID,
		Price:      in.Price,
		MinPrice:   in.MinPrice,
		MaxPrice:   in.MaxPrice,
	})
	if err != nil {
		return ProductListOutput{}, errDB()
	}

	return ProductListOutput{
		Items: items,
		Total: total,
		Page:  in.Page,
		Limit: in.Limit,
	}, nil
}

func (u *ProductUsecase) GetProduct(ctx context.Context, productID int64) (model.Product, error) {
	if productID <= 0 {
		return model.Product{}, NewHTTPError(KindInvalidInput, "invalid product id")
	}

	p, err := u.productRepo.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, NewHTTPError(KindNotFound, "product not found")
	}
	if err != nil {
		return model.Product{}, errDB()
	}
	return p, nil
}

// 作成/全体更新の入力。PATCHでは指定された項目だけ（nilは変更しない）
type ProductInput struct {
	StoreID    *int64
	CategoryID *int64
	// trueならカテゴリを外す（CategoryIDより優先）
	ClearCategory bool
	Name          *string
	Description   *string
	Price         *decimal.Decimal
	Stock         *int64
	Image         *string
}

func (u *ProductUsecase) AdminCreateProduct(ctx context.Context, adminUserID int64, in ProductInput) (model.Product, error) {
	if adminUserID <= 0 {
		return model.Product{}, NewHTTPError(KindUnauthorized, "unauthorized")
	}
	if in.StoreID == nil || in.Name == nil || in.Price == nil {
		return model.Product{}, NewHTTPError(KindInvalidInput, "store_id, name and price are required")
	}

	p := model.Product{}
	applyProductInput(&p, in)
	if in.Stock != nil {
		p.Stock = *in.Stock
	}
	if err := validateProduct(p); err != nil {
		return model.Product{}, err
	}
	if err := u.checkRefs(ctx, p); err != nil {
		return model.Product{}, err
	}

	created, err := u.productRepo.Create(ctx, p)
	if err != nil {
		return model.Product{}, errDB()
	}

	u.requestThumbnails(created)
	return created, nil
}

// 在庫が変わる場合は同じTxで調整履歴を残す
func (u *ProductUsecase) AdminUpdateProduct(ctx context.Context, adminUserID int64, productID int64, in ProductInput) (model.Product, error) {
	if adminUserID <= 0 {
		return model.Product{}, NewHTTPError(KindUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return model.Product{}, NewHTTPError(KindInvalidInput, "invalid product id")
	}

	// 参照先の確認はTxの外で済ませる
	if err := u.checkIDs(ctx, in.StoreID, in.CategoryID); err != nil {
		return model.Product{}, err
	}

	var updated model.Product
	imageChanged := false
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		p, orderIDs, err := lockProductForOrders(ctx, r, productID)
		if err != nil {
			return err
		}
		before := p.Stock
		beforeImage := p.Image
		beforePrice := p.Price

		applyProductInput(&p, in)
		if in.Stock != nil {
			p.Stock = *in.Stock
		}
		if err := validateProduct(p); err != nil {
			return err
		}

		if err := r.Products().Update(ctx, p); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return NewHTTPError(KindNotFound, "product not found")
			}
			return errDB()
		}

		if p.Stock != before {
			if err := r.Inventory().SetStock(ctx, p.ID, p.Stock); err != nil {
				return errDB()
			}
			if err := r.Inventory().CreateAdjustment(ctx, model.InventoryAdjustment{
				ProductID:   p.ID,
				ActorUserID: adminUserID,
				Delta:       p.Stock - before,
				Reason:      "admin edit",
			}); err != nil {
				return errDB()
			}
		}

		// 価格が変わったらpending注文の合計も揃える
		if !p.Price.Equal(beforePrice) {
			for _, id := range orderIDs {
				if _, err := refreshTotal(ctx, r, id); err != nil {
					return err
				}
			}
		}

		imageChanged = p.Image != beforeImage
		updated = p
		return nil
	})
	if err != nil {
		return model.Product{}, err
	}

	if imageChanged {
		u.requestThumbnails(updated)
	}
	return updated, nil
}

func (u *ProductUsecase) AdminDeleteProduct(ctx context.Context, adminUserID int64, productID int64) error {
	if adminUserID <= 0 {
		return NewHTTPError(KindUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return NewHTTPError(KindInvalidInput, "invalid product id")
	}

	// 確定済み注文に含まれる商品は消さない。
	// pending注文からは明細を外して合計を出し直す。
	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		_, orderIDs, err := lockProductForOrders(ctx, r, productID)
		if err != nil {
			return err
		}

		used, err := r.OrderItems().ExistsInCompletedOrder(ctx, productID)
		if err != nil {
			return errDB()
		}
		if used {
			return NewHTTPError(KindInvalidState, "product is referenced by completed orders")
		}

		if err := r.OrderItems().DeleteByProduct(ctx, productID); err != nil {
			return errDB()
		}
		err = r.Products().Delete(ctx, productID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(KindNotFound, "product not found")
		}
		if err != nil {
			return errDB()
		}

		for _, id := range orderIDs {
			if _, err := refreshTotal(ctx, r, id); err != nil {
				return err
			}
		}
		return nil
	})
}

// 注文行 -> 商品行の順でロックする。
// 商品のロック待ちの間に明細が増えることがあるので、ロック後に注文を取り直す。
func lockProductForOrders(ctx context.Context, r repo.TxRepos, productID int64) (model.Product, []int64, error) {
	if _, err := r.Orders().LockPendingByProduct(ctx, productID); err != nil {
		return model.Product{}, nil, errDB()
	}
	locked, err := r.Products().FindByIDsForUpdate(ctx, []int64{productID})
	if err != nil {
		return model.Product{}, nil, errDB()
	}
	if len(locked) == 0 {
		return model.Product{}, nil, NewHTTPError(KindNotFound, "product not found")
	}
	orderIDs, err := r.Orders().LockPendingByProduct(ctx, productID)
	if err != nil {
		return model.Product{}, nil, errDB()
	}
	return locked[0], orderIDs, nil
}

// 一括登録はワーカーに任せる。受け付けたタスクIDを返す
func (u *ProductUsecase) RequestImport(ctx context.Context, adminUserID int64, rows []task.ImportRow) (string, error) {
	if adminUserID <= 0 {
		return "", NewHTTPError(KindUnauthorized, "unauthorized")
	}
	if len(rows) == 0 {
		return "", NewHTTPError(KindInvalidInput, "rows required")
	}
	if len(rows) > 1000 {
		return "", NewHTTPError(KindInvalidInput, "too many rows")
	}
	for i, row := range rows {
		if err := validateProduct(rowToProduct(row)); err != nil {
			he, _ := AsHTTPError(err)
			return "", NewHTTPError(KindInvalidInput, fmt.Sprintf("row %d: %s", i, he.Message))
		}
	}

	t, err := task.New(task.TypeDoImport, task.ImportPayload{RequestedBy: adminUserID, Rows: rows})
	if err != nil {
		return "", NewHTTPError(KindInternal, "encode task")
	}
	if !u.tasks.Dispatch(t) {
		return "", NewHTTPError(KindInternal, "task queue unavailable")
	}
	return t.ID, nil
}

// ワーカー側。検証を全行済ませてから、1つのTxで作る
func (u *ProductUsecase) ApplyImport(ctx context.Context, payload task.ImportPayload) (int, error) {
	products := make([]model.Product, 0, len(payload.Rows))
	for i, row := range payload.Rows {
		p := rowToProduct(row)
		if err := validateProduct(p); err != nil {
			return 0, fmt.Errorf("row %d: %w", i, err)
		}
		if err := u.checkRefs(ctx, p); err != nil {
			return 0, fmt.Errorf("row %d: %w", i, err)
		}
		products = append(products, p)
	}

	created := make([]model.Product, 0, len(products))
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		for i, p := range products {
			np, err := r.Products().Create(ctx, p)
			if err != nil {
				return fmt.Errorf("row %d: %w", i, err)
			}
			if np.Stock > 0 {
				if err := r.Inventory().CreateAdjustment(ctx, model.InventoryAdjustment{
					ProductID:   np.ID,
					ActorUserID: payload.RequestedBy,
					Delta:       np.Stock,
					Reason:      "import",
				}); err != nil {
					return err
				}
			}
			created = append(created, np)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, p := range created {
		u.requestThumbnails(p)
	}
	return len(created), nil
}

func (u *ProductUsecase) checkRefs(ctx context.Context, p model.Product) error {
	return u.checkIDs(ctx, &p.StoreID, p.CategoryID)
}

// nilは確認しない
func (u *ProductUsecase) checkIDs(ctx context.Context, storeID *int64, categoryID *int64) error {
	if storeID != nil {
		if _, err := u.storeRepo.FindByID(ctx, *storeID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return NewHTTPError(KindInvalidInput, "store not found")
			}
			return errDB()
		}
	}
	if categoryID != nil {
		if _, err := u.categoryRepo.FindByID(ctx, *categoryID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return NewHTTPError(KindInvalidInput, "category not found")
			}
			return errDB()
		}
	}
	return nil
}

func (u *ProductUsecase) requestThumbnails(p model.Product) {
	if p.Image == "" || u.tasks == nil {
		return
	}
	t, err := task.New(task.TypeGenerateThumbnails, task.ThumbnailsPayload{
		ProductID: p.ID,
		Image:     p.Image,
		Aliases:   task.DefaultThumbnailAliases,
	})
	if err != nil {
		u.log.Error("build thumbnails task failed", "product_id", p.ID, "err", err)
		return
	}
	u.tasks.Dispatch(t)
}

func applyProductInput(p *model.Product, in ProductInput) {
	if in.StoreID != nil {
		p.StoreID = *in.StoreID
	}
	if in.ClearCategory {
		p.CategoryID = nil
		p.Category = nil
	} else if in.CategoryID != nil {
		p.CategoryID = in.CategoryID
	}
	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.Image != nil {
		p.Image = strings.TrimSpace(*in.Image)
	}
}

func rowToProduct(row task.ImportRow) model.Product {
	return model.Product{
		StoreID:     row.StoreID,
		CategoryID:  row.CategoryID,
		Name:        strings.TrimSpace(row.Name),
		Description: row.Description,
		Price:       row.Price,
		Stock:       row.Stock,
		Image:       strings.TrimSpace(row.Image),
	}
}

func validateProduct(p model.Product) error {
	if p.StoreID <= 0 {
		return NewHTTPError(KindInvalidInput, "invalid store_id")
	}
	if p.Name == "" || len(p.Name) > 100 {
		return NewHTTPError(KindInvalidInput, "name must be 1-100 characters")
	}
	if p.Price.IsNegative() || p.Price.GreaterThanOrEqual(maxPrice) {
		return NewHTTPError(KindInvalidInput, "price out of range")
	}
	if !p.Price.Equal(p.Price.Round(2)) {
		return NewHTTPError(KindInvalidInput, "price must have at most 2 decimal places")
	}
	if p.Stock < 0 {
		return NewHTTPError(KindInvalidInput, "stock must be >= 0")
	}
	if len(p.Image) > 255 {
		return NewHTTPError(KindInvalidInput, "image path too long")
	}
	return nil
}
