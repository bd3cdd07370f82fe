package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName = "jan-server/claims-api"
)

// GetTracer returns the tracer for the claims-api service.
func GetTracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// DecisionAttributes returns common attributes for decision spans.
func DecisionAttributes(callID, outcome string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("decision.call_id", callID),
		attribute.String("decision.outcome", outcome),
	}
}

// StartDecisionSpan starts a new span for a human decision.
func StartDecisionSpan(ctx context.Context, callID, outcome string) (context.Context, trace.Span) {
	ctx, span := GetTracer().Start(ctx, "decision.record",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(DecisionAttributes(callID, outcome)...),
	)
	return ctx, span
}

// StartChatSpan starts the server span wrapping one chat request.
func StartChatSpan(ctx context.Context, conversationID, claimID string) (context.Context, trace.Span) {
	ctx, span := GetTracer().Start(ctx, "chat.request",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("conversation.id", conversationID),
			attribute.String("claim.id", claimID),
		),
	)
	return ctx, span
}

// RecordError records an error on a span.
func RecordError(span trace.Span, err error, severity string) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attribute.String("error.severity", severity))
}

// AddStatusTransition adds a status transition event to a span.
func AddStatusTransition(span trace.Span, fromStatus, toStatus string) {
	span.AddEvent("status.transition",
		trace.WithAttributes(
			attribute.String("status.from", fromStatus),
			attribute.String("status.to", toStatus),
		),
	)
}
