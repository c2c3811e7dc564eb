package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled           bool
	CollectorEndpoint string
	ExportInterval    time.Duration // Default: 60s
	ServiceName       string
	Insecure          bool
}

// MeterProvider wraps the OpenTelemetry MeterProvider with lifecycle management
type MeterProvider struct {
	provider *sdkmetric.MeterProvider
	logger   *zap.Logger
	config   MetricsConfig
}

// NewMeterProvider creates and configures a new MeterProvider.
// If metrics are disabled, it returns a provider wrapping the no-op global meter.
func NewMeterProvider(ctx context.Context, cfg MetricsConfig, logger *zap.Logger) (*MeterProvider, error) {
	mp := &MeterProvider{
		logger: logger,
		config: cfg,
	}

	if !cfg.Enabled {
		logger.Info("Metrics disabled, using no-op meter provider")
		return mp, nil
	}

	exportInterval := cfg.ExportInterval
	if exportInterval == 0 {
		exportInterval = 60 * time.Second
	}

	exporterOpts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(cfg.CollectorEndpoint),
	}
	if cfg.Insecure {
		exporterOpts = append(exporterOpts, otlpmetricgrpc.WithInsecure())
	}

	exporter, err := otlpmetricgrpc.New(ctx, exporterOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metrics exporter: %w", err)
	}

	res, err := newResource(cfg.ServiceName)
	if err != nil {
		return nil, err
	}

	mp.provider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(
				exporter,
				sdkmetric.WithInterval(exportInterval),
			),
		),
	)

	otel.SetMeterProvider(mp.provider)

	logger.Info("OpenTelemetry MeterProvider initialized",
		zap.String("collector_endpoint", cfg.CollectorEndpoint),
		zap.Duration("export_interval", exportInterval),
		zap.String("service_name", cfg.ServiceName),
	)

	return mp, nil
}

// Shutdown gracefully shuts down the meter provider, flushing pending metrics
func (mp *MeterProvider) Shutdown(ctx context.Context) error {
	if mp.provider == nil {
		return nil
	}
	if err := mp.provider.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown meter provider: %w", err)
	}
	return nil
}

// AllocatorMetrics holds the instruments for voucher number allocation.
// All methods are safe on a nil receiver so wiring metrics stays optional.
type AllocatorMetrics struct {
	allocations metric.Int64Counter
	conflicts   metric.Int64Counter
	duration    metric.Float64Histogram
}

// NewAllocatorMetrics creates the allocation instruments on the global meter
func NewAllocatorMetrics() (*AllocatorMetrics, error) {
	meter := otel.GetMeterProvider().Meter(TracerName)

	allocations, err := meter.Int64Counter(
		"voucher_numbers_allocated_total",
		metric.WithDescription("Voucher numbers successfully allocated"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create allocations counter: %w", err)
	}

	conflicts, err := meter.Int64Counter(
		"voucher_number_conflicts_total",
		metric.WithDescription("Allocation attempts retried due to scope races or lock timeouts"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create conflicts counter: %w", err)
	}

	duration, err := meter.Float64Histogram(
		"voucher_number_allocation_seconds",
		metric.WithDescription("End-to-end voucher number allocation latency"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}

	return &AllocatorMetrics{
		allocations: allocations,
		conflicts:   conflicts,
		duration:    duration,
	}, nil
}

// RecordAllocation records one successful allocation
func (m *AllocatorMetrics) RecordAllocation(ctx context.Context, voucherKind string, attempts int, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("voucher_kind", voucherKind),
		attribute.Int("attempts", attempts),
	)
	m.allocations.Add(ctx, 1, attrs)
	m.duration.Record(ctx, elapsed.Seconds(), attrs)
}

// RecordConflict records one retried contention event
func (m *AllocatorMetrics) RecordConflict(ctx context.Context, voucherKind string) {
	if m == nil {
		return
	}
	m.conflicts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("voucher_kind", voucherKind),
	))
}
