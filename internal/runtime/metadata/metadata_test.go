package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneDoesNotAlias(t *testing.T) {
	original := Metadata{"a": "1", "b": "2"}
	clone := original.Clone()
	clone["a"] = "changed"

	assert.Equal(t, "1", original["a"])
	assert.Len(t, clone, len(original))
}

func TestCloneEmpty(t *testing.T) {
	var m Metadata
	cloned := m.Clone()
	assert.NotNil(t, cloned)
	assert.Empty(t, cloned)
}

func TestWithAndWithAll(t *testing.T) {
	base := Metadata{"ActionName": "INC"}
	enriched := base.With("DispatchStatus", "Dispatched")
	assert.NotContains(t, base, "DispatchStatus")
	assert.Equal(t, "Dispatched", enriched["DispatchStatus"])

	merged := enriched.WithAll(Metadata{"TimeTaken": "3"})
	assert.Equal(t, "3", merged["TimeTaken"])
	assert.Equal(t, "INC", merged["ActionName"])
}

func TestKeysAndFields(t *testing.T) {
	md := New("b", "2", "a", "1", "dangling")
	assert.Equal(t, []string{"a", "b"}, md.Keys())
	assert.Equal(t, map[string]any{"a": "1", "b": "2"}, md.Fields())
	assert.Nil(t, Metadata{}.Fields())
}

func TestToWatermill(t *testing.T) {
	md := Metadata{"source": "Counter"}
	wm := ToWatermill(md)
	assert.Equal(t, "Counter", wm["source"])

	wm["source"] = "mutation"
	assert.Equal(t, "Counter", md["source"])

	assert.Empty(t, ToWatermill(nil))
}
