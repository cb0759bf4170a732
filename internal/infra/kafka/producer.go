package kafka

import (
	"context"
	"encoding/json"

	"retailorders/internal/task"

	"github.com/segmentio/kafka-go"
)

// タスクをKafkaのトピックへ書く
type Producer struct {
	w *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireAll,
		},
	}
}

func (p *Producer) Publish(ctx context.Context, t task.Task) error {
	msg, err := toMessage(t)
	if err != nil {
		return err
	}
	return p.w.WriteMessages(ctx, msg)
}

func (p *Producer) Close() error {
	return p.w.Close()
}

func toMessage(t task.Task) (kafka.Message, error) {
	b, err := json.Marshal(t)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(t.ID),
		Value: b,
		Headers: []kafka.Header{
			{Key: "task_type", Value: []byte(t.Type)},
		},
	}, nil
}
