package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newRecordedService() (*Service, *tracetest.SpanRecorder) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	return NewServiceWithTracer(tp.Tracer("test"), nil), recorder
}

func TestStartFetchSpan_Name(t *testing.T) {
	svc, recorder := newRecordedService()

	_, span := svc.StartFetchSpan(context.Background(), "tiktok", "user_posts", "u1")
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "fetch.tiktok.user_posts", ended[0].Name())
}

func TestStartScanSpan_Name(t *testing.T) {
	svc, recorder := newRecordedService()

	_, span := svc.StartScanSpan(context.Background(), "run", "scan-1", "u1")
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "scan.run", ended[0].Name())
}

func TestTraced_RecordsError(t *testing.T) {
	svc, recorder := newRecordedService()

	wantErr := errors.New("boom")
	err := svc.Traced(context.Background(), "archive.record_scan", func(ctx context.Context) error {
		return wantErr
	})

	assert.Equal(t, wantErr, err)
	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
}

func TestTraced_OkOnSuccess(t *testing.T) {
	svc, recorder := newRecordedService()

	err := svc.Traced(context.Background(), "archive.record_scan", func(ctx context.Context) error {
		return nil
	})

	require.NoError(t, err)
	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Ok, ended[0].Status().Code)
}

func TestNoop_SpansAreInert(t *testing.T) {
	svc := Noop()

	_, span := svc.StartScanSpan(context.Background(), "run", "scan-1", "u1")
	span.End()

	require.NoError(t, svc.Shutdown(context.Background()))
}
