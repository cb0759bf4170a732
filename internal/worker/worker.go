package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"retailorders/internal/task"
)

// 一括登録の実処理（ProductUsecase.ApplyImport）
type Importer interface {
	ApplyImport(ctx context.Context, payload task.ImportPayload) (int, error)
}

// タスク種別ごとの振り分け
type Worker struct {
	log      *slog.Logger
	importer Importer
}

func New(log *slog.Logger, importer Importer) *Worker {
	return &Worker{log: log, importer: importer}
}

func (w *Worker) Handle(ctx context.Context, t task.Task) error {
	switch t.Type {
	case task.TypeSendEmail:
		var p task.SendEmailPayload
		if err := json.Unmarshal(t.Payload, &p); err != nil {
			return fmt.Errorf("decode %s: %w", t.Type, err)
		}
		//メール送信の外部連携は持たないのでログのみ
		w.log.Info("send email", "task_id", t.ID, "to", p.To, "subject", p.Subject)
		return nil

	case task.TypeGenerateThumbnails:
		var p task.ThumbnailsPayload
		if err := json.Unmarshal(t.Payload, &p); err != nil {
			return fmt.Errorf("decode %s: %w", t.Type, err)
		}
		w.log.Info("generate thumbnails", "task_id", t.ID, "product_id", p.ProductID, "image", p.Image, "aliases", p.Aliases)
		return nil

	case task.TypeDoImport:
		var p task.ImportPayload
		if err := json.Unmarshal(t.Payload, &p); err != nil {
			return fmt.Errorf("decode %s: %w", t.Type, err)
		}
		n, err := w.importer.ApplyImport(ctx, p)
		if err != nil {
			return err
		}
		w.log.Info("import applied", "task_id", t.ID, "requested_by", p.RequestedBy, "created", n)
		return nil

	default:
		return fmt.Errorf("unknown task type %q", t.Type)
	}
}
