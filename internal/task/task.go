package task

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// 非同期で処理する副作用の種類
type Type string

const (
	TypeSendEmail          Type = "send_email"
	TypeGenerateThumbnails Type = "generate_thumbnails"
	TypeDoImport           Type = "do_import"
)

// キューに載せる1件。Payloadは種類ごとのJSON
type Task struct {
	ID        string          `json:"id"`
	Type      Type            `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

func New(t Type, payload any) (Task, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Task{}, err
	}
	return Task{
		ID:        uuid.NewString(),
		Type:      t,
		Payload:   b,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// 注文確定メールなど
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type ThumbnailsPayload struct {
	ProductID int64    `json:"product_id"`
	Image     string   `json:"image"`
	Aliases   []string `json:"aliases"`
}

// 商品画像のサムネイル種別
var DefaultThumbnailAliases = []string{"product_medium"}

type ImportRow struct {
	StoreID     int64           `json:"store_id"`
	CategoryID  *int64          `json:"category_id,omitempty"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int64           `json:"stock"`
	Image       string          `json:"image"`
}

type ImportPayload struct {
	RequestedBy int64       `json:"requested_by"`
	Rows        []ImportRow `json:"rows"`
}
