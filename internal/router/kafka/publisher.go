package kafka

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/orderflow/fulfillment/internal/router"
	"github.com/orderflow/fulfillment/pkg/tracing"
)

// Publisher emits handler results on the results topic, keyed by the
// correlating identifier so one entity's results stay ordered.
type Publisher struct {
	log    *slog.Logger
	writer *kafka.Writer
	topic  string
}

func NewPublisher(log *slog.Logger, addr, topic string) *Publisher {
	return &Publisher{
		log: log,
		writer: &kafka.Writer{
			Addr:         kafka.TCP(addr),
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireAll,
		},
		topic: topic,
	}
}

func (p *Publisher) Publish(ctx context.Context, res router.Result) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Topic:   p.topic,
		Key:     []byte(res.CorrelationID()),
		Value:   payload,
		Headers: tracing.InjectKafkaHeaders(ctx, nil),
	}
	return p.writer.WriteMessages(ctx, msg)
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
