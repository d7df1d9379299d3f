// Package transport builds the audit publisher selected by configuration.
package transport

import (
	"context"
	"errors"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/drblury/fedstore/internal/runtime/config"
	fedtransport "github.com/drblury/fedstore/transport"

	// Register the built-in transports.
	_ "github.com/drblury/fedstore/transport/transports"
)

// Factory abstracts how the coordinator initialises its audit publisher.
type Factory interface {
	Build(ctx context.Context, conf *config.Config, logger watermill.LoggerAdapter) (message.Publisher, error)
}

// FactoryFunc adapts a function to Factory.
type FactoryFunc func(ctx context.Context, conf *config.Config, logger watermill.LoggerAdapter) (message.Publisher, error)

func (f FactoryFunc) Build(ctx context.Context, conf *config.Config, logger watermill.LoggerAdapter) (message.Publisher, error) {
	return f(ctx, conf, logger)
}

// DefaultFactory returns the factory backed by the transport registry.
func DefaultFactory() Factory {
	return registryFactory{registry: fedtransport.DefaultRegistry}
}

// NewFactory returns a factory backed by registry.
func NewFactory(registry *fedtransport.Registry) Factory {
	if registry == nil {
		registry = fedtransport.DefaultRegistry
	}
	return registryFactory{registry: registry}
}

type registryFactory struct {
	registry *fedtransport.Registry
}

func (f registryFactory) Build(ctx context.Context, conf *config.Config, logger watermill.LoggerAdapter) (message.Publisher, error) {
	if conf == nil {
		return nil, errors.New("config is required")
	}
	return f.registry.Build(ctx, conf, logger)
}
