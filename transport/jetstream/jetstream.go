// Package jetstream publishes audit records to a NATS JetStream stream so
// they survive consumer downtime.
package jetstream

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/nats-io/nats.go"

	"github.com/drblury/fedstore/transport"
)

// TransportName is the name used to register this transport.
const TransportName = "nats-jetstream"

const (
	// DefaultStreamName is the stream audit subjects are bound to.
	DefaultStreamName = "FEDSTORE_AUDIT"
	// DefaultMaxAge bounds how long audit records are retained.
	DefaultMaxAge = 7 * 24 * time.Hour
)

// ErrClosed is returned when publishing to a closed publisher.
var ErrClosed = errors.New("jetstream publisher is closed")

func init() {
	transport.Register(TransportName, Build)
}

// Build connects to the configured NATS server.
func Build(_ context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (message.Publisher, error) {
	return New(Config{URL: cfg.GetNATSURL()}, logger)
}

// Config holds NATS JetStream-specific configuration.
type Config struct {
	// URL is the NATS server URL.
	URL string
	// StreamName defaults to DefaultStreamName.
	StreamName string
	// MaxAge defaults to DefaultMaxAge.
	MaxAge time.Duration
	// Replicas is the number of stream replicas (for clustering).
	Replicas int
}

func (c Config) withDefaults() Config {
	if c.StreamName == "" {
		c.StreamName = DefaultStreamName
	}
	if c.MaxAge <= 0 {
		c.MaxAge = DefaultMaxAge
	}
	if c.Replicas <= 0 {
		c.Replicas = 1
	}
	return c
}

// Publisher publishes to JetStream, adding each topic to the stream's
// subjects on first use.
type Publisher struct {
	nc     *nats.Conn
	js     nats.JetStreamContext
	config Config
	logger watermill.LoggerAdapter

	mu       sync.Mutex
	subjects map[string]struct{}
	closed   bool
}

// New connects to NATS and obtains a JetStream context.
func New(cfg Config, logger watermill.LoggerAdapter) (*Publisher, error) {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	nc, err := nats.Connect(cfg.URL, nats.Name("fedstore-audit"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	return &Publisher{
		nc:       nc,
		js:       js,
		config:   cfg,
		logger:   logger,
		subjects: make(map[string]struct{}),
	}, nil
}

// Publish publishes messages to the topic's subject. Message UUIDs are used
// as JetStream message IDs, so retried publishes are deduplicated.
func (p *Publisher) Publish(topic string, messages ...*message.Message) error {
	subject := topicToSubject(topic)
	if err := p.ensureSubject(subject); err != nil {
		return err
	}

	for _, msg := range messages {
		headers := nats.Header{}
		for k, v := range msg.Metadata {
			headers.Set(k, v)
		}
		headers.Set(nats.MsgIdHdr, msg.UUID)

		if _, err := p.js.PublishMsg(&nats.Msg{Subject: subject, Data: msg.Payload, Header: headers}); err != nil {
			return fmt.Errorf("failed to publish to JetStream: %w", err)
		}
	}
	return nil
}

func (p *Publisher) ensureSubject(subject string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}
	if _, ok := p.subjects[subject]; ok {
		return nil
	}

	info, err := p.js.StreamInfo(p.config.StreamName)
	switch {
	case errors.Is(err, nats.ErrStreamNotFound):
		_, err = p.js.AddStream(&nats.StreamConfig{
			Name:      p.config.StreamName,
			Subjects:  []string{subject},
			MaxAge:    p.config.MaxAge,
			Replicas:  p.config.Replicas,
			Retention: nats.LimitsPolicy,
		})
	case err != nil:
	default:
		if !slices.Contains(info.Config.Subjects, subject) {
			updated := info.Config
			updated.Subjects = append(updated.Subjects, subject)
			_, err = p.js.UpdateStream(&updated)
		}
	}
	if err != nil {
		return fmt.Errorf("failed to ensure stream %q: %w", p.config.StreamName, err)
	}

	p.logger.Debug("JetStream subject ready", watermill.LogFields{
		"stream":  p.config.StreamName,
		"subject": subject,
	})
	p.subjects[subject] = struct{}{}
	return nil
}

// Close drains the NATS connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.nc.Drain()
}

// topicToSubject replaces characters NATS reserves for wildcards.
func topicToSubject(topic string) string {
	return strings.NewReplacer("*", "_", ">", "_", " ", "_").Replace(topic)
}
