package audit

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/drblury/fedstore/internal/runtime/cloudevents"
	errspkg "github.com/drblury/fedstore/internal/runtime/errors"
	"github.com/drblury/fedstore/internal/runtime/jsoncodec"
	"github.com/drblury/fedstore/internal/runtime/logging"
)

func TestConsoleLoggerWritesRecords(t *testing.T) {
	var buf bytes.Buffer
	console := NewConsoleLogger(&buf)

	console.LogEvent("Store.Registry", "StoreRegistered", Properties{"AppName": "Counter"})
	console.LogException("Store.Registry", errors.New("boom"), nil)

	assert.Equal(t, ConsoleIdentity, console.Identity())
	out := buf.String()
	assert.Contains(t, out, "StoreRegistered")
	assert.Contains(t, out, "AppName=Counter")
	assert.Contains(t, out, "source=Store.Registry")
	assert.Contains(t, out, "boom")
}

func TestLoggerSinkUsesServiceLogger(t *testing.T) {
	var buf bytes.Buffer
	log := logging.NewSlogServiceLogger(logging.NewSlogLogger("info", "json", &buf))
	sink := NewLoggerSink(log)

	require.NoError(t, sink.LogEvent("src", "INC :: COMPLETED", Properties{PropDispatchStatus: StatusCompleted}))

	var line map[string]any
	require.NoError(t, jsoncodec.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "INC :: COMPLETED", line["msg"])
	assert.Equal(t, StatusCompleted, line[PropDispatchStatus])

	assert.Panics(t, func() { NewLoggerSink(nil) })
}

func TestMetricsSinkCountsByStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewMetricsSink(reg, "fedstore")
	require.NoError(t, err)

	require.NoError(t, sink.LogEvent(Source, "INC :: DISPATCHED", Properties{PropDispatchStatus: StatusDispatched}))
	require.NoError(t, sink.LogEvent(Source, "INC :: COMPLETED", Properties{PropDispatchStatus: StatusCompleted}))
	require.NoError(t, sink.LogEvent("Store.Registry", "StoreRegistered", nil))
	require.NoError(t, sink.LogException(Source, errors.New("boom"), nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(sink.events.WithLabelValues(Source, StatusDispatched)))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.events.WithLabelValues(Source, StatusCompleted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.events.WithLabelValues("Store.Registry", "none")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.exceptions.WithLabelValues(Source)))
}

func TestMetricsSinkReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewMetricsSink(reg, "fedstore")
	require.NoError(t, err)
	second, err := NewMetricsSink(reg, "fedstore")
	require.NoError(t, err)

	require.NoError(t, first.LogException(Source, errors.New("a"), nil))
	require.NoError(t, second.LogException(Source, errors.New("b"), nil))

	assert.Equal(t, 2.0, testutil.ToFloat64(first.exceptions.WithLabelValues(Source)))
}

func TestTracingSinkRecordsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	sink := NewTracingSink(provider.Tracer("test"))

	require.NoError(t, sink.LogEvent(Source, "INC :: DISPATCHED", Properties{PropModuleName: "Counter"}))
	require.NoError(t, sink.LogException(Source, errors.New("boom"), nil))

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	assert.Equal(t, "INC :: DISPATCHED", spans[0].Name())
	assert.Contains(t, spans[0].Attributes(), attribute.String("fedstore.audit.ModuleName", "Counter"))
	assert.Contains(t, spans[0].Attributes(), attribute.String("fedstore.audit.source", Source))

	assert.Equal(t, "audit.exception", spans[1].Name())
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Equal(t, "boom", spans[1].Status().Description)
	require.NotEmpty(t, spans[1].Events())
	assert.Equal(t, "exception", spans[1].Events()[0].Name)
}

func TestTracingSinkDefaultsToGlobalTracer(t *testing.T) {
	sink := NewTracingSink(nil)
	assert.NoError(t, sink.LogEvent("src", "evt", nil))
}

func TestPublisherSinkPublishesCloudEvents(t *testing.T) {
	pubSub := NewGoChannel(nil)
	defer pubSub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	messages, err := pubSub.Subscribe(ctx, "fedstore.audit")
	require.NoError(t, err)

	sink, err := NewPublisherSink(pubSub, "fedstore.audit")
	require.NoError(t, err)

	published := make(chan error, 1)
	go func() {
		if err := sink.LogEvent(Source, "INC :: COMPLETED", Properties{PropModuleName: "Counter"}); err != nil {
			published <- err
			return
		}
		published <- sink.LogException(Source, errors.New("boom"), Properties{PropModuleName: "Counter"})
	}()

	receive := func() cloudevents.Event {
		select {
		case msg := <-messages:
			msg.Ack()
			var evt cloudevents.Event
			require.NoError(t, jsoncodec.Unmarshal(msg.Payload, &evt))
			assert.Equal(t, evt.ID, msg.UUID)
			assert.Equal(t, evt.Type, msg.Metadata.Get(MetadataKeyEventType))
			assert.Equal(t, Source, msg.Metadata.Get(MetadataKeySource))
			return evt
		case <-ctx.Done():
			t.Fatal("timed out waiting for audit message")
			return cloudevents.Event{}
		}
	}

	evt := receive()
	assert.Equal(t, cloudevents.TypeAuditEvent, evt.Type)
	assert.Equal(t, "INC :: COMPLETED", evt.Subject)
	data, ok := evt.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "INC :: COMPLETED", data["event"])

	exc := receive()
	assert.Equal(t, cloudevents.TypeAuditException, exc.Type)
	assert.Equal(t, "Counter", exc.Subject)
	data, ok = exc.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "boom", data["error"])
	require.NoError(t, <-published)
}

func TestPublisherSinkKeepsAuditOrder(t *testing.T) {
	pubSub := NewGoChannel(nil)
	defer pubSub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	messages, err := pubSub.Subscribe(ctx, "fedstore.audit")
	require.NoError(t, err)

	sink, err := NewPublisherSink(pubSub, "fedstore.audit")
	require.NoError(t, err)
	logger := New("publisher", sink)

	go func() {
		props := Properties{PropModuleName: "Counter"}
		logger.LogEvent(Source, EventName("INC", StatusDispatched), props)
		logger.LogEvent(Source, EventName("INC", StatusFailed), props)
		logger.LogException(Source, errors.New("boom"), props)
	}()

	var got []string
	for len(got) < 3 {
		select {
		case msg := <-messages:
			var evt cloudevents.Event
			require.NoError(t, jsoncodec.Unmarshal(msg.Payload, &evt))
			got = append(got, evt.Type+" "+evt.Subject)
			msg.Ack()
		case <-ctx.Done():
			t.Fatalf("timed out after %v", got)
		}
	}
	assert.Equal(t, []string{
		cloudevents.TypeAuditEvent + " " + EventName("INC", StatusDispatched),
		cloudevents.TypeAuditEvent + " " + EventName("INC", StatusFailed),
		cloudevents.TypeAuditException + " Counter",
	}, got)
}

func TestNewPublisherSinkValidates(t *testing.T) {
	_, err := NewPublisherSink(nil, "topic")
	assert.ErrorIs(t, err, errspkg.ErrPublisherRequired)

	pubSub := NewGoChannel(nil)
	defer pubSub.Close()
	_, err = NewPublisherSink(pubSub, "")
	assert.ErrorIs(t, err, errspkg.ErrTopicRequired)
}

func TestPublisherSinkErrorIsSwallowedByLogger(t *testing.T) {
	pubSub := NewGoChannel(nil)
	sink, err := NewPublisherSink(pubSub, "fedstore.audit")
	require.NoError(t, err)
	require.NoError(t, pubSub.Close())

	assert.Error(t, sink.LogEvent(Source, "evt", nil))
	assert.NotPanics(t, func() { New("publisher", sink).LogEvent(Source, "evt", nil) })
}
