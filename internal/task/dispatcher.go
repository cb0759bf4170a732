package task

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// 送信先（Kafkaなど）
type Producer interface {
	Publish(ctx context.Context, t Task) error
	Close() error
}

// Dispatcherは投げっぱなしのタスク送信。
// Dispatchは呼び出し側を待たせない。バッファが埋まっていたら捨ててログに残す。
type Dispatcher struct {
	log      *slog.Logger
	producer Producer
	timeout  time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan Task
	done   chan struct{}
}

func NewDispatcher(log *slog.Logger, producer Producer, buffer int) *Dispatcher {
	if buffer < 1 {
		buffer = 1
	}
	d := &Dispatcher{
		log:      log,
		producer: producer,
		timeout:  5 * time.Second,
		queue:    make(chan Task, buffer),
		done:     make(chan struct{}),
	}
	go d.loop()
	return d
}

// 受け付けたらtrue
func (d *Dispatcher) Dispatch(t Task) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.log.Warn("task dropped: dispatcher closed", "task_id", t.ID, "type", t.Type)
		return false
	}
	select {
	case d.queue <- t:
		return true
	default:
		d.log.Warn("task dropped: queue full", "task_id", t.ID, "type", t.Type)
		return false
	}
}

func (d *Dispatcher) loop() {
	defer close(d.done)
	for t := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		if err := d.producer.Publish(ctx, t); err != nil {
			d.log.Error("task publish failed", "task_id", t.ID, "type", t.Type, "err", err)
		} else {
			d.log.Debug("task published", "task_id", t.ID, "type", t.Type)
		}
		cancel()
	}
}

// 残りを送り切ってからProducerを閉じる。ctxが先に切れたら諦める
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	select {
	case <-d.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return d.producer.Close()
}

// Kafkaが無い環境向け。ログに出すだけ
type LogProducer struct {
	Log *slog.Logger
}

func (p LogProducer) Publish(_ context.Context, t Task) error {
	p.Log.Info("task", "task_id", t.ID, "type", t.Type, "payload", string(t.Payload))
	return nil
}

func (p LogProducer) Close() error { return nil }
