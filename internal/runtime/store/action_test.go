package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

type ctxKey struct{}

func TestActionHelpersCopy(t *testing.T) {
	base := NewAction("INC", 1)
	audited := base.Audited()
	tagged := audited.WithMetadata("dispatch_id", "abc")

	assert.False(t, base.AuditEnabled)
	assert.True(t, audited.AuditEnabled)
	assert.Nil(t, audited.Metadata)
	assert.Equal(t, "abc", tagged.Metadata["dispatch_id"])
}

func TestActionContext(t *testing.T) {
	a := NewAction("INC", nil)
	assert.Equal(t, context.Background(), a.Context())

	ctx := context.WithValue(context.Background(), ctxKey{}, "v")
	bound := a.WithContext(ctx)
	assert.Equal(t, "v", bound.Context().Value(ctxKey{}))
	assert.Equal(t, context.Background(), a.Context())
}
