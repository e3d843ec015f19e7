package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestParseSampleRatio(t *testing.T) {
	assert.Equal(t, 0.25, ParseSampleRatio(" 0.25 "))
	assert.Equal(t, 1.0, ParseSampleRatio("4"))
	assert.Equal(t, defaultSampleRatio, ParseSampleRatio("0"))
	assert.Equal(t, defaultSampleRatio, ParseSampleRatio("half"))
}

func TestParseHeaders(t *testing.T) {
	got := parseHeaders("api-key = abc, broken, =x, tenant=t1")
	assert.Equal(t, map[string]string{"api-key": "abc", "tenant": "t1"}, got)
	assert.Empty(t, parseHeaders(""))
}

func TestExporterKind(t *testing.T) {
	assert.Equal(t, "stdout", OtelConfig{}.exporterKind())
	assert.Equal(t, "otlp", OtelConfig{Endpoint: "collector:4318"}.exporterKind())
	assert.Equal(t, "stdout", OtelConfig{Exporter: "STDOUT", Endpoint: "collector:4318"}.exporterKind())
}

func TestInitOTelDisabledReturnsNoop(t *testing.T) {
	shutdown := InitOTel(context.Background(), nil, OtelConfig{})
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestEndSpanRecordsError(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	_, span := StartSpan(context.Background(), "db.tx")
	EndSpan(span, errors.New("deadlock"))

	ended := rec.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "db.tx", ended[0].Name())
	assert.Equal(t, codes.Error, ended[0].Status().Code)
}
