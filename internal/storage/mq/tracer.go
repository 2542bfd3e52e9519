package mq

import (
	"github.com/twmb/franz-go/plugin/kotel"
	"go.opentelemetry.io/otel"
)

var (
	tracer = otel.Tracer("orders-inventory/storage/mq")

	// kTracer hooks produce and fetch spans into both kafka clients. The
	// global provider and propagator delegate to the ones installed at startup.
	kTracer = kotel.NewTracer(
		kotel.TracerProvider(otel.GetTracerProvider()),
		kotel.TracerPropagator(otel.GetTextMapPropagator()),
	)
)
