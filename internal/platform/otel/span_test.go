package otel_test

import (
	"context"
	"errors"
	"testing"

	platformotel "github.com/louisbranch/hiring.space/internal/platform/otel"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestStartSpanRecordsErrorStatus(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	_, span := platformotel.StartSpan(context.Background(), "pipeline.transition", attribute.String("candidate_id", "cand-1"))
	platformotel.EndSpan(span, errors.New("illegal transition"))

	_, ok := platformotel.StartSpan(context.Background(), "pipeline.audit_trail")
	platformotel.EndSpan(ok, nil)

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("ended spans = %d, want 2", len(spans))
	}
	if spans[0].Name() != "pipeline.transition" || spans[0].Status().Code != codes.Error {
		t.Fatalf("span = %s status %v", spans[0].Name(), spans[0].Status())
	}
	if spans[1].Status().Code == codes.Error {
		t.Fatal("expected successful span without error status")
	}
}
