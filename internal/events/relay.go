package events

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Sink receives outbox rows the relay forwards.
type Sink interface {
	Deliver(ctx context.Context, evt OutboxEvent) error
}

// Deliver publishes an outbox row as-is. The row id doubles as the JetStream
// message id, so a row relayed twice is deduplicated by the stream.
func (p *NATSPublisher) Deliver(ctx context.Context, evt OutboxEvent) error {
	if p == nil || p.js == nil {
		return errors.New("nil nats publisher")
	}
	_, err := p.js.Publish(subject(p.prefix, evt.Topic), evt.Payload, nats.Context(ctx), nats.MsgId(evt.ID.String()))
	return err
}

// LogSink writes relayed events to the log. Useful when no broker is deployed.
type LogSink struct {
	log *zap.Logger
}

func NewLogSink(log *zap.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Deliver(_ context.Context, evt OutboxEvent) error {
	s.log.Info("event relayed",
		zap.String("event_id", evt.ID.String()),
		zap.String("topic", evt.Topic),
		zap.String("org_id", evt.OrgID.String()),
		zap.ByteString("payload", evt.Payload),
	)
	return nil
}

// Relay drains unpublished outbox rows into a Sink in id order.
type Relay struct {
	outbox    *OutboxPublisher
	sink      Sink
	interval  time.Duration
	batchSize int
	log       *zap.Logger
}

func NewRelay(outbox *OutboxPublisher, sink Sink, interval time.Duration, batchSize int, log *zap.Logger) *Relay {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Relay{
		outbox:    outbox,
		sink:      sink,
		interval:  interval,
		batchSize: batchSize,
		log:       log,
	}
}

// RunOnce relays pending rows until the outbox is empty and returns how many
// were delivered. It stops at the first failed delivery so later rows never
// overtake an earlier one.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	delivered := 0
	for {
		pending, err := r.outbox.Pending(ctx, r.batchSize)
		if err != nil {
			return delivered, err
		}
		if len(pending) == 0 {
			return delivered, nil
		}

		ids := make([]snowflake.ID, 0, len(pending))
		var deliverErr error
		for _, evt := range pending {
			if deliverErr = r.sink.Deliver(ctx, evt); deliverErr != nil {
				r.log.Warn("event relay failed",
					zap.String("event_id", evt.ID.String()),
					zap.String("topic", evt.Topic),
					zap.Error(deliverErr),
				)
				break
			}
			ids = append(ids, evt.ID)
		}

		if err := r.outbox.MarkPublished(ctx, ids); err != nil {
			return delivered, err
		}
		delivered += len(ids)
		if deliverErr != nil {
			return delivered, deliverErr
		}
		if len(pending) < r.batchSize {
			return delivered, nil
		}
	}
}

func (r *Relay) RunForever(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		n, err := r.RunOnce(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			r.log.Warn("event relay run failed", zap.Error(err))
		}
		if n > 0 {
			r.log.Debug("events relayed", zap.Int("count", n))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
