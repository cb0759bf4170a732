package handler

import (
	"encoding/json"
	"net/http"

	"retailorders/internal/task"
	"retailorders/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// /products、/stores、/categories
type ProductHandler struct {
	uc      *usecase.ProductUsecase
	catalog *usecase.CatalogUsecase
}

// DI
func NewProductHandler(uc *usecase.ProductUsecase, catalog *usecase.CatalogUsecase) *ProductHandler {
	return &ProductHandler{uc: uc, catalog: catalog}
}

// 作成・更新のボディ。PATCHでは省略した項目は変えない
type productRequest struct {
	StoreID     *int64           `json:"store_id"`
	CategoryID  nullableID       `json:"category_id"`
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int64           `json:"stock"`
	Image       *string          `json:"image"`
}

func (r productRequest) toInput() usecase.ProductInput {
	return usecase.ProductInput{
		StoreID:       r.StoreID,
		CategoryID:    r.CategoryID.Value,
		ClearCategory: r.CategoryID.Set && r.CategoryID.Value == nil,
		Name:          r.Name,
		Description:   r.Description,
		Price:         r.Price,
		Stock:         r.Stock,
		Image:         r.Image,
	}
}

// 省略(Set=false)とnull(Set=true, Value=nil)を区別する
type nullableID struct {
	Set   bool
	Value *int64
}

func (n *nullableID) UnmarshalJSON(b []byte) error {
	n.Set = true
	if string(b) == "null" {
		n.Value = nil
		return nil
	}
	var v int64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}

type importRequest struct {
	Rows []task.ImportRow `json:"rows"`
}

type importResponse struct {
	TaskID string `json:"task_id"`
}

type storeRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

type categoryRequest struct {
	Name string `json:"name"`
}

func (h *ProductHandler) List(c echo.Context) error {
	page, ok := queryInt(c, "page", 1)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid page"})
	}
	limit, ok := queryInt(c, "limit", 20)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
	}
	storeID, ok := queryInt64(c, "store")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid store"})
	}
	categoryID, ok := queryInt64(c, "category")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid category"})
	}

	in := usecase.ListProductsInput{Page: page, Limit: limit, StoreID: storeID, CategoryID: categoryID}
	for name, dst := range map[string]**decimal.Decimal{"price": &in.Price, "min_price": &in.MinPrice, "max_price": &in.MaxPrice} {
		v := c.QueryParam(name)
		if v == "" {
			continue
		}
		d, err := decimal.NewFromString(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + name})
		}
		*dst = &d
	}

	out, err := h.uc.ListProducts(c.Request().Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ProductHandler) Detail(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	p, err := h.uc.GetProduct(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *ProductHandler) Create(c echo.Context) error {
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req productRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	p, err := h.uc.AdminCreateProduct(c.Request().Context(), adminID, req.toInput())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

// PUTは全項目必須、PATCHは部分更新
func (h *ProductHandler) Update(c echo.Context) error {
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	var req productRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if c.Request().Method == http.MethodPut && (req.StoreID == nil || req.Name == nil || req.Price == nil) {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "store_id, name and price are required"})
	}

	p, err := h.uc.AdminUpdateProduct(c.Request().Context(), adminID, id, req.toInput())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *ProductHandler) Delete(c echo.Context) error {
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	if err := h.uc.AdminDeleteProduct(c.Request().Context(), adminID, id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// 受け付けたら202。実際の登録はワーカー
func (h *ProductHandler) Import(c echo.Context) error {
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req importRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	id, err := h.uc.RequestImport(c.Request().Context(), adminID, req.Rows)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusAccepted, importResponse{TaskID: id})
}

func (h *ProductHandler) ListStores(c echo.Context) error {
	out, err := h.catalog.ListStores(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ProductHandler) CreateStore(c echo.Context) error {
	var req storeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	s, err := h.catalog.CreateStore(c.Request().Context(), req.Name, req.Address)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, s)
}

func (h *ProductHandler) ListCategories(c echo.Context) error {
	out, err := h.catalog.ListCategories(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ProductHandler) CreateCategory(c echo.Context) error {
	var req categoryRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	cat, err := h.catalog.CreateCategory(c.Request().Context(), req.Name)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, cat)
}
