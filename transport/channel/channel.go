// Package channel publishes audit records to an in-memory Go channel pub/sub.
// The returned publisher is a *gochannel.GoChannel, so the same value can be
// subscribed to in-process.
package channel

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/drblury/fedstore/transport"
)

// TransportName is the name used to register this transport.
const TransportName = "channel"

// Factory allows overriding the channel creation for testing.
var Factory = func(cfg gochannel.Config, logger watermill.LoggerAdapter) *gochannel.GoChannel {
	return gochannel.NewGoChannel(cfg, logger)
}

func init() {
	transport.Register(TransportName, Build)
}

// Build creates the Go channel publisher. Publish waits for subscriber acks
// so audit records are delivered in order.
func Build(_ context.Context, _ transport.Config, logger watermill.LoggerAdapter) (message.Publisher, error) {
	return Factory(gochannel.Config{BlockPublishUntilSubscriberAck: true}, logger), nil
}
