package audit

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/drblury/fedstore/internal/runtime/cloudevents"
	errspkg "github.com/drblury/fedstore/internal/runtime/errors"
	"github.com/drblury/fedstore/internal/runtime/jsoncodec"
	metadatapkg "github.com/drblury/fedstore/internal/runtime/metadata"
)

// Message metadata keys set on published audit records.
const (
	MetadataKeyEventType = "ce_type"
	MetadataKeySource    = "ce_source"
)

// Record is the data of a published audit CloudEvent.
type Record struct {
	Event      string     `json:"event,omitempty"`
	Error      string     `json:"error,omitempty"`
	Properties Properties `json:"properties,omitempty"`
}

// PublisherSink publishes audit records as CloudEvents through a Watermill
// publisher.
type PublisherSink struct {
	publisher message.Publisher
	topic     string
}

// NewPublisherSink validates its arguments and returns the sink.
func NewPublisherSink(publisher message.Publisher, topic string) (*PublisherSink, error) {
	if publisher == nil {
		return nil, errspkg.ErrPublisherRequired
	}
	if topic == "" {
		return nil, errspkg.ErrTopicRequired
	}
	return &PublisherSink{publisher: publisher, topic: topic}, nil
}

// NewGoChannel returns an in-process pub/sub suitable for NewPublisherSink.
// Publish blocks until subscribers ack, so records arrive in audit order.
func NewGoChannel(logger watermill.LoggerAdapter) *gochannel.GoChannel {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return gochannel.NewGoChannel(gochannel.Config{BlockPublishUntilSubscriberAck: true}, logger)
}

func (s *PublisherSink) LogEvent(source, eventName string, properties Properties) error {
	evt := cloudevents.New(cloudevents.TypeAuditEvent, source, Record{Event: eventName, Properties: properties}).
		WithSubject(eventName)
	return s.publish(evt)
}

func (s *PublisherSink) LogException(source string, err error, properties Properties) error {
	msg := "<nil>"
	if err != nil {
		msg = err.Error()
	}
	evt := cloudevents.New(cloudevents.TypeAuditException, source, Record{Error: msg, Properties: properties}).
		WithSubject(properties[PropModuleName])
	return s.publish(evt)
}

func (s *PublisherSink) publish(evt cloudevents.Event) error {
	payload, err := jsoncodec.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	msg := message.NewMessage(evt.ID, payload)
	msg.Metadata = metadatapkg.ToWatermill(metadatapkg.New(
		MetadataKeyEventType, evt.Type,
		MetadataKeySource, evt.Source,
	))
	if err := s.publisher.Publish(s.topic, msg); err != nil {
		return fmt.Errorf("publish audit event: %w", err)
	}
	return nil
}
