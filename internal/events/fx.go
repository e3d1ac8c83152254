package events

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/nats-io/nats.go"
	"github.com/smallbiznis/partnerdesk/internal/clock"
	"github.com/smallbiznis/partnerdesk/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("events",
	fx.Provide(NewPublisher),
	fx.Provide(NewOutboxRelay),
	fx.Invoke(registerRelay),
)

type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Cfg       config.Config
	DB        *gorm.DB
	GenID     *snowflake.Node
	Clock     clock.Clock
	Log       *zap.Logger
}

func NewPublisher(p Params) (Publisher, error) {
	log := p.Log.Named("events")

	if p.Cfg.Events.Backend != config.EventsBackendNATS {
		log.Info("publishing events to outbox table")
		return NewOutboxPublisher(p.DB, p.GenID, p.Clock), nil
	}

	pub, err := NewNATSPublisher(
		p.Cfg.Events.NATSURL,
		p.Cfg.Events.SubjectPrefix,
		p.GenID,
		p.Clock,
		nats.Name(p.Cfg.AppName),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, err
	}
	p.Lifecycle.Append(fx.Hook{
		OnStop: func(context.Context) error {
			pub.Close()
			return nil
		},
	})
	log.Info("publishing events to nats", zap.String("url", p.Cfg.Events.NATSURL))
	return pub, nil
}

type RelayParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Cfg       config.Config
	Publisher Publisher
	GenID     *snowflake.Node
	Clock     clock.Clock
	Log       *zap.Logger
}

// NewOutboxRelay returns nil unless events go to the outbox and a relay
// target is configured.
func NewOutboxRelay(p RelayParams) (*Relay, error) {
	outbox, ok := p.Publisher.(*OutboxPublisher)
	if !ok || p.Cfg.Events.Relay == config.EventsRelayNone {
		return nil, nil
	}
	log := p.Log.Named("events.relay")

	var sink Sink = NewLogSink(log)
	if p.Cfg.Events.Relay == config.EventsRelayNATS {
		pub, err := NewNATSPublisher(
			p.Cfg.Events.NATSURL,
			p.Cfg.Events.SubjectPrefix,
			p.GenID,
			p.Clock,
			nats.Name(p.Cfg.AppName+"-relay"),
			nats.Timeout(5*time.Second),
		)
		if err != nil {
			return nil, err
		}
		p.Lifecycle.Append(fx.Hook{
			OnStop: func(context.Context) error {
				pub.Close()
				return nil
			},
		})
		sink = pub
	}

	log.Info("relaying outbox events",
		zap.String("target", p.Cfg.Events.Relay),
		zap.Duration("interval", p.Cfg.Events.RelayInterval),
	)
	return NewRelay(outbox, sink, p.Cfg.Events.RelayInterval, p.Cfg.Events.RelayBatchSize, log), nil
}

func registerRelay(lc fx.Lifecycle, relay *Relay) {
	if relay == nil {
		return
	}

	var (
		cancel context.CancelFunc
		done   = make(chan struct{})
	)
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			var ctx context.Context
			ctx, cancel = context.WithCancel(context.Background())
			go func() {
				defer close(done)
				relay.RunForever(ctx)
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-ctx.Done():
			}
			return nil
		},
	})
}
