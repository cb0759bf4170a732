package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"retailorders/internal/task"

	"github.com/segmentio/kafka-go"
)

// 1件ずつ処理する
type Handler func(ctx context.Context, t task.Task) error

// kafka.Readerのうち使う分
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	log    *slog.Logger
	reader messageReader
}

func NewConsumer(log *slog.Logger, brokers []string, topic, group string) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: group,
	})
	return &Consumer{log: log, reader: r}
}

// ctxが切れるまで読み続ける。
// 処理に失敗したメッセージもコミットする（再試行はしない）。
// コミットに失敗したら止める（続けると同じタスクが再配信される）
func (c *Consumer) Run(ctx context.Context, h Handler) error {
	defer c.reader.Close()
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if isDone(err) {
				return nil
			}
			return err
		}

		t, err := fromMessage(msg)
		if err != nil {
			c.log.Error("task decode failed", "offset", msg.Offset, "err", err)
		} else if err := h(ctx, t); err != nil {
			c.log.Error("task failed", "task_id", t.ID, "type", t.Type, "err", err)
		} else {
			c.log.Info("task done", "task_id", t.ID, "type", t.Type)
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if isDone(err) {
				return nil
			}
			c.log.Error("task commit failed", "offset", msg.Offset, "err", err)
			return fmt.Errorf("commit offset %d: %w", msg.Offset, err)
		}
	}
}

func isDone(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func fromMessage(msg kafka.Message) (task.Task, error) {
	var t task.Task
	if err := json.Unmarshal(msg.Value, &t); err != nil {
		return task.Task{}, err
	}
	if t.Type == "" {
		return task.Task{}, errors.New("missing task type")
	}
	return t, nil
}
