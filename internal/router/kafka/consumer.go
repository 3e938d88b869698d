package kafka

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/orderflow/fulfillment/internal/router"
	"github.com/orderflow/fulfillment/pkg/idempotency"
	"github.com/orderflow/fulfillment/pkg/tracing"
)

// Handler is one channel's entry point into the router.
type Handler func(ctx context.Context, payload []byte) router.Result

// Consumer drains one logical channel. Redelivered messages are dropped via
// the idempotency store before they reach the handler; every handled message
// produces a Result that is published for the surrounding layer.
type Consumer struct {
	log     *slog.Logger
	reader  *kafka.Reader
	channel string
	handle  Handler
	idem    idempotency.Store
	results *Publisher
	tracer  trace.Tracer
}

func NewConsumer(log *slog.Logger, brokers []string, topic, group, channel string, handle Handler, idem idempotency.Store, results *Publisher) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: group,
	})
	return &Consumer{
		log:     log,
		reader:  r,
		channel: channel,
		handle:  handle,
		idem:    idem,
		results: results,
		tracer:  otel.Tracer("fulfillment-" + channel),
	}
}

func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			return err
		}

		key := idempotency.MessageKey(msg.Topic, msg.Partition, msg.Offset)
		first, err := c.idem.First(ctx, key)
		if err != nil {
			c.log.Error("idempotency check failed", "channel", c.channel, "err", err)
			continue
		}
		if !first {
			c.log.Info("duplicate message skipped", "channel", c.channel, "key", key)
			_ = c.reader.CommitMessages(ctx, msg)
			continue
		}

		msgCtx := tracing.ExtractKafkaHeaders(ctx, msg.Headers)
		msgCtx, span := c.tracer.Start(msgCtx, "Handle "+c.channel)

		if eventID := tracing.HeaderValue(msg.Headers, "event_id"); eventID != "" {
			c.log.Debug("handling event", "channel", c.channel, "event_id", eventID)
		}

		res := c.safeHandle(msgCtx, msg.Value)
		if res.Success {
			c.log.Info("event handled", "channel", c.channel, "correlation_id", res.CorrelationID())
		} else {
			c.log.Warn("event failed", "channel", c.channel,
				"correlation_id", res.CorrelationID(), "err", res.Error)
		}

		if c.results != nil {
			if err := c.results.Publish(msgCtx, res); err != nil {
				c.log.Error("result publish failed", "channel", c.channel, "err", err)
			}
		}

		span.End()
		_ = c.reader.CommitMessages(ctx, msg)
	}
}

// safeHandle keeps a panicking handler from taking the consume loop down;
// the message is still committed and reported as a failed result.
func (c *Consumer) safeHandle(ctx context.Context, payload []byte) (res router.Result) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("handler panic", "channel", c.channel, "panic", r)
			res = router.Result{Error: fmt.Sprintf("internal error: %v", r)}
		}
	}()
	return c.handle(ctx, payload)
}
