package io

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/fedstore/transport"
)

func TestRegistered(t *testing.T) {
	assert.True(t, transport.DefaultRegistry.Has(TransportName))
}

func TestPublishAndReadBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	pub, err := Build(context.Background(), transport.StaticConfig{IOFile: path}, watermill.NopLogger{})
	require.NoError(t, err)

	first := message.NewMessage("id-1", []byte(`{"n":1}`))
	first.Metadata.Set("ce_type", "fedstore.audit.event")
	require.NoError(t, pub.Publish("audit", first, message.NewMessage("id-2", []byte(`{"n":2}`))))
	require.NoError(t, pub.Publish("other", message.NewMessage("id-3", nil)))

	records, err := ReadFile(path, "audit")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "id-1", records[0].UUID)
	assert.Equal(t, "audit", records[0].Topic)
	assert.Equal(t, []byte(`{"n":1}`), records[0].Payload)
	assert.Equal(t, "fedstore.audit.event", records[0].Metadata["ce_type"])
	assert.False(t, records[0].CreatedAt.IsZero())
	assert.Equal(t, "id-2", records[1].UUID)

	all, err := ReadFile(path, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	require.NoError(t, pub.Close())
	assert.ErrorIs(t, pub.Publish("audit", message.NewMessage("id-4", nil)), ErrClosed)
}

func TestBuildDefaultPath(t *testing.T) {
	original := PublisherFactory
	t.Cleanup(func() { PublisherFactory = original })

	var gotPath string
	PublisherFactory = func(filePath string, logger watermill.LoggerAdapter) (message.Publisher, error) {
		gotPath = filePath
		return original(filePath, logger)
	}

	_, err := Build(context.Background(), transport.StaticConfig{}, watermill.NopLogger{})
	require.NoError(t, err)
	assert.Equal(t, DefaultFilePath, gotPath)
}

func TestReadFileErrors(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "missing.log"), "")
	assert.ErrorIs(t, err, os.ErrNotExist)

	path := filepath.Join(t.TempDir(), "broken.log")
	require.NoError(t, os.WriteFile(path, []byte("not json\n"), 0600))
	_, err = ReadFile(path, "")
	assert.ErrorContains(t, err, "line 1")
}
