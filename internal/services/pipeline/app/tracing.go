package app

import (
	"context"

	"github.com/louisbranch/hiring.space/internal/platform/logger"
	platformotel "github.com/louisbranch/hiring.space/internal/platform/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

func startSpan(ctx context.Context, action, candidateID string) (context.Context, trace.Span) {
	var attrs []attribute.KeyValue
	if candidateID != "" {
		attrs = append(attrs, candidateAttr(candidateID))
	}
	return platformotel.StartSpan(ctx, "pipeline."+action, attrs...)
}

func candidateAttr(candidateID string) attribute.KeyValue {
	return attribute.String(logger.FieldCandidateID, candidateID)
}

func endSpan(span trace.Span, err error) {
	platformotel.EndSpan(span, err)
}
