// Package kafka publishes audit records to Kafka.
package kafka

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/drblury/fedstore/transport"
)

// TransportName is the name used to register this transport.
const TransportName = "kafka"

// PublisherFactory allows overriding the publisher creation for testing.
var PublisherFactory = func(cfg kafka.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
	return kafka.NewPublisher(cfg, logger)
}

func init() {
	transport.Register(TransportName, Build)
}

// Build creates the Kafka publisher.
func Build(_ context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (message.Publisher, error) {
	pubCfg := kafka.PublisherConfig{
		Brokers:   cfg.GetKafkaBrokers(),
		Marshaler: kafka.DefaultMarshaler{},
	}
	if clientID := cfg.GetKafkaClientID(); clientID != "" {
		saramaCfg := kafka.DefaultSaramaSyncPublisherConfig()
		saramaCfg.ClientID = clientID
		pubCfg.OverwriteSaramaConfig = saramaCfg
	}
	return PublisherFactory(pubCfg, logger)
}
