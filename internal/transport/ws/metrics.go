package ws

import (
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

type hubMetrics struct {
	connections metric.Int64UpDownCounter
	delivered   metric.Int64Counter
	dropped     metric.Int64Counter
}

func newHubMetrics(meter metric.Meter) (*hubMetrics, error) {
	var m hubMetrics
	var err error

	m.connections, err = meter.Int64UpDownCounter("nestmate.hub.connections",
		metric.WithDescription("Registered socket connections"),
	)
	if err != nil {
		return nil, err
	}

	m.delivered, err = meter.Int64Counter("nestmate.hub.frames.delivered",
		metric.WithDescription("Frames queued to a connection"),
	)
	if err != nil {
		return nil, err
	}

	m.dropped, err = meter.Int64Counter("nestmate.hub.frames.dropped",
		metric.WithDescription("Frames refused by a closed or slow connection"),
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func noopHubMetrics() *hubMetrics {
	m, _ := newHubMetrics(noop.Meter{})
	return m
}
