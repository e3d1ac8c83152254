package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes domain-level instruments.
type Metrics struct {
	requestsCreated  metric.Int64Counter
	requestsRejected metric.Int64Counter
	lineItemsMerged  metric.Int64Counter
	invitationsSent  metric.Int64Counter
	emailsThrottled  metric.Int64Counter
}

// NewProvider configures and registers the OTLP meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(15*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New creates the domain instruments on the given provider.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "partnerdesk"
	}
	meter := provider.Meter(name)

	requestsCreated, err := meter.Int64Counter("partnerdesk_requests_created_total")
	if err != nil {
		return nil, err
	}
	requestsRejected, err := meter.Int64Counter("partnerdesk_requests_rejected_total")
	if err != nil {
		return nil, err
	}
	lineItemsMerged, err := meter.Int64Counter("partnerdesk_line_items_merged_total")
	if err != nil {
		return nil, err
	}
	invitationsSent, err := meter.Int64Counter("partnerdesk_invitations_sent_total")
	if err != nil {
		return nil, err
	}
	emailsThrottled, err := meter.Int64Counter("partnerdesk_emails_throttled_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		requestsCreated:  requestsCreated,
		requestsRejected: requestsRejected,
		lineItemsMerged:  lineItemsMerged,
		invitationsSent:  invitationsSent,
		emailsThrottled:  emailsThrottled,
	}, nil
}

func (m *Metrics) RecordRequestCreated(ctx context.Context, orgID, requestType string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("org_id", strings.TrimSpace(orgID)),
		attribute.String("request_type", strings.TrimSpace(requestType)),
	)
	m.requestsCreated.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRequestRejected counts submissions that failed validation or rolled back.
func (m *Metrics) RecordRequestRejected(ctx context.Context, orgID, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("org_id", strings.TrimSpace(orgID)),
		attribute.String("reason", strings.TrimSpace(reason)),
	)
	m.requestsRejected.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordLineItemsMerged(ctx context.Context, orgID string, merged int) {
	if m == nil || merged <= 0 {
		return
	}
	attrs := FilterAttributes(attribute.String("org_id", strings.TrimSpace(orgID)))
	m.lineItemsMerged.Add(ctx, int64(merged), metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordInvitationSent(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("kind", strings.TrimSpace(kind)))
	m.invitationsSent.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordEmailThrottled(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("kind", strings.TrimSpace(kind)))
	m.emailsThrottled.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"org_id":       {},
	"request_type": {},
	"reason":       {},
	"kind":         {},
	"route":        {},
	"method":       {},
	"status_code":  {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
