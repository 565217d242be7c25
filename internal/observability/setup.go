package observability

import (
	"context"
	"errors"

	"interviewprep/internal/config"

	autosdk "go.opentelemetry.io/auto/sdk"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap/zapcore"
)

func autoTracerProvider() trace.TracerProvider {
	return autosdk.TracerProvider()
}

// Shutdown flushes and stops whatever SetupObservability started
type Shutdown func(ctx context.Context) error

// SetupObservability initializes tracing, metrics, and logging for a service.
// The returned tracer and meter providers are nil when their pipeline is disabled.
func SetupObservability(cfg *config.OpenTelemetryConfig, serviceName string, level zapcore.Level) (result0 trace.TracerProvider, result1 *metric.MeterProvider, result2 *Logger, result3 Shutdown, err error) {
	if serviceName != "" {
		cfg.ServiceName = serviceName
	}

	logger := NewLoggerWithLevel(cfg, level)

	var tp trace.TracerProvider
	var mp *metric.MeterProvider
	var shutdowns []func(context.Context) error

	InitPropagation()

	if cfg.EnableTracing {
		tp, err = tracerProviderFor(cfg)
		if err != nil {
			return nil, nil, logger, nil, err
		}
		otel.SetTracerProvider(tp)
		if s, ok := tp.(interface{ Shutdown(context.Context) error }); ok {
			shutdowns = append(shutdowns, s.Shutdown)
		}
		InitGlobalTracer()

		logger.Info(context.Background(), "Tracing enabled", map[string]interface{}{
			"service_name": cfg.ServiceName,
			"auto_sdk":     cfg.UseAutoSDK,
		})
	}

	if cfg.EnableMetrics {
		mp, err = InitMetrics(cfg)
		if err != nil {
			return tp, nil, logger, nil, err
		}
		otel.SetMeterProvider(mp)
		shutdowns = append(shutdowns, mp.Shutdown)
	}

	shutdown := func(ctx context.Context) error {
		var errs []error
		for _, s := range shutdowns {
			if err := s(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		_ = logger.Sync()
		return errors.Join(errs...)
	}

	return tp, mp, logger, shutdown, nil
}
