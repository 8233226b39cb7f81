package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInitProvider_SamplesAndShutsDown(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	shutdown := InitProvider(1.0, sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { otel.SetTracerProvider(sdktrace.NewTracerProvider()) })

	_, span := StartSpan(context.Background(), "pipeline.run", attribute.String("source", "pixiv"))
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "pipeline.run", spans[0].Name)
	assert.Contains(t, spans[0].Attributes, attribute.String("source", "pixiv"))

	assert.NoError(t, shutdown(context.Background()))
}

func TestInitProvider_ZeroRatioDropsRootSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	shutdown := InitProvider(0, sdktrace.WithSyncer(exporter))
	t.Cleanup(func() {
		_ = shutdown(context.Background())
		otel.SetTracerProvider(sdktrace.NewTracerProvider())
	})

	_, span := StartSpan(context.Background(), "ignored")
	span.End()

	assert.Empty(t, exporter.GetSpans())
}
