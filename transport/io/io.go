// Package io appends audit records to a file, one JSON document per line.
package io

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/drblury/fedstore/internal/runtime/jsoncodec"
	"github.com/drblury/fedstore/transport"
)

// TransportName is the name used to register this transport.
const TransportName = "io"

// DefaultFilePath is the default file path if none is specified.
const DefaultFilePath = "fedstore-audit.log"

// ErrClosed is returned when publishing to a closed publisher.
var ErrClosed = errors.New("io publisher is closed")

// PublisherFactory allows overriding the publisher creation for testing.
var PublisherFactory = func(filePath string, logger watermill.LoggerAdapter) (message.Publisher, error) {
	return &Publisher{filePath: filePath, logger: logger}, nil
}

func init() {
	transport.Register(TransportName, Build)
}

// Build creates the file publisher.
func Build(_ context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (message.Publisher, error) {
	filePath := cfg.GetIOFile()
	if filePath == "" {
		filePath = DefaultFilePath
	}
	return PublisherFactory(filePath, logger)
}

// Publisher appends messages to a file.
type Publisher struct {
	filePath string
	logger   watermill.LoggerAdapter

	mu     sync.Mutex
	closed bool
}

// Publish appends messages to the file.
func (p *Publisher) Publish(topic string, messages ...*message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}

	f, err := os.OpenFile(p.filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, msg := range messages {
		b, err := jsoncodec.Marshal(transport.StoredMessage{
			UUID:      msg.UUID,
			Topic:     topic,
			Metadata:  msg.Metadata,
			Payload:   msg.Payload,
			CreatedAt: time.Now().UTC(),
		})
		if err != nil {
			return err
		}
		if _, err := w.Write(append(b, '\n')); err != nil {
			return err
		}
	}
	return w.Flush()
}

// Close marks the publisher closed. The file is opened per Publish call.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// ReadFile returns the records stored in filePath for topic, oldest first.
// An empty topic matches every record.
func ReadFile(filePath, topic string) ([]transport.StoredMessage, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []transport.StoredMessage
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for line := 1; scanner.Scan(); line++ {
		var sm transport.StoredMessage
		if err := jsoncodec.Unmarshal(scanner.Bytes(), &sm); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if topic == "" || sm.Topic == topic {
			out = append(out, sm)
		}
	}
	return out, scanner.Err()
}
