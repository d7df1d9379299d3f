package audit

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/drblury/fedstore/audit"

// TracingSink turns every audit record into a short OpenTelemetry span.
type TracingSink struct {
	tracer trace.Tracer
}

// NewTracingSink uses tracer, or the global provider's tracer when nil.
func NewTracingSink(tracer trace.Tracer) *TracingSink {
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	return &TracingSink{tracer: tracer}
}

func (s *TracingSink) LogEvent(source, eventName string, properties Properties) error {
	_, span := s.tracer.Start(context.Background(), eventName,
		trace.WithAttributes(spanAttributes(source, properties)...))
	span.End()
	return nil
}

func (s *TracingSink) LogException(source string, err error, properties Properties) error {
	_, span := s.tracer.Start(context.Background(), "audit.exception",
		trace.WithAttributes(spanAttributes(source, properties)...))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
	return nil
}

func spanAttributes(source string, properties Properties) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(properties)+1)
	attrs = append(attrs, attribute.String("fedstore.audit.source", source))
	for _, k := range properties.Keys() {
		attrs = append(attrs, attribute.String("fedstore.audit."+k, properties[k]))
	}
	return attrs
}
