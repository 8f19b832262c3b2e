package metrics

import (
	"context"

	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// InitProvider builds an SDK meter provider backed by a Prometheus
// exporter and returns it alongside a shutdown func to call from main.
// Grounded on glyphoxa's observe.InitProvider, trimmed to metrics only —
// this pipeline has no tracing story.
func InitProvider() (*sdkmetric.MeterProvider, func() error, error) {
	promExp, err := promexporter.New()
	if err != nil {
		return nil, nil, err
	}
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(promExp))
	shutdown := func() error { return mp.Shutdown(context.Background()) }
	return mp, shutdown, nil
}
