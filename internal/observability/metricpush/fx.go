package metricpush

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/partnerdesk/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("observability.metricpush",
	fx.Provide(NewPusher),
	fx.Invoke(register),
)

func register(lc fx.Lifecycle, cfg config.Config, pusher Pusher, log *zap.Logger) {
	if pusher == nil {
		return
	}
	loop := NewLoop(pusher, prometheus.DefaultGatherer, cfg.MetricsPush.Interval, log)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go loop.Run()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return loop.Stop(ctx)
		},
	})
}

// Loop pushes on a fixed interval and once more on Stop so the last
// interval is not lost on shutdown.
type Loop struct {
	pusher   Pusher
	gatherer prometheus.Gatherer
	interval time.Duration
	log      *zap.Logger

	stop chan struct{}
	done chan struct{}
}

func NewLoop(pusher Pusher, gatherer prometheus.Gatherer, interval time.Duration, log *zap.Logger) *Loop {
	if interval <= 0 {
		interval = time.Minute
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Loop{
		pusher:   pusher,
		gatherer: gatherer,
		interval: interval,
		log:      log.Named("metricpush"),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (l *Loop) Run() {
	defer close(l.done)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.pushOnce(context.Background())
		case <-l.stop:
			return
		}
	}
}

// Stop ends Run and performs a final push bounded by ctx.
func (l *Loop) Stop(ctx context.Context) error {
	close(l.stop)
	select {
	case <-l.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	l.pushOnce(ctx)
	return nil
}

func (l *Loop) pushOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, defaultPushTimeout)
	defer cancel()
	if err := l.pusher.Push(ctx, l.gatherer); err != nil {
		l.log.Warn("metrics push failed", zap.Error(err))
	}
}
