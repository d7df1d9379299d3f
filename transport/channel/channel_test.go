package channel

import (
	"context"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/fedstore/transport"
)

func TestRegistered(t *testing.T) {
	assert.True(t, transport.DefaultRegistry.Has(TransportName))
}

func TestBuildPublishesInProcess(t *testing.T) {
	pub, err := Build(context.Background(), transport.StaticConfig{}, watermill.NopLogger{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pub.Close() })

	sub, ok := pub.(message.Subscriber)
	require.True(t, ok)
	msgs, err := sub.Subscribe(context.Background(), "audit")
	require.NoError(t, err)

	published := make(chan error, 1)
	go func() {
		for _, id := range []string{"id-1", "id-2", "id-3"} {
			if err := pub.Publish("audit", message.NewMessage(id, []byte(`{}`))); err != nil {
				published <- err
				return
			}
		}
		published <- nil
	}()

	for _, want := range []string{"id-1", "id-2", "id-3"} {
		msg := <-msgs
		assert.Equal(t, want, msg.UUID)
		msg.Ack()
	}
	require.NoError(t, <-published)
}

func TestBuildUsesFactory(t *testing.T) {
	original := Factory
	t.Cleanup(func() { Factory = original })

	called := false
	Factory = func(cfg gochannel.Config, logger watermill.LoggerAdapter) *gochannel.GoChannel {
		called = true
		assert.True(t, cfg.BlockPublishUntilSubscriberAck)
		return original(cfg, logger)
	}

	pub, err := Build(context.Background(), nil, watermill.NopLogger{})
	require.NoError(t, err)
	assert.True(t, called)
	assert.NoError(t, pub.Close())
}
