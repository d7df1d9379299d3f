package audit

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerForwardsInChainOrder(t *testing.T) {
	j := &journal{}
	head := New("first", j.sink("first"))
	head.SetNextLogger(New("second", j.sink("second")))
	head.SetNextLogger(New("third", j.sink("third")))

	head.LogEvent("test", "StoreRegistered", Properties{"AppName": "Counter"})
	head.LogException("test", errors.New("boom"), nil)

	assert.Equal(t, []string{"first", "second", "third"}, j.loggersFor("StoreRegistered"))
	assert.Equal(t, []string{"first", "second", "third"}, head.Identities())
	require.Len(t, j.exceptions, 3)
	assert.Equal(t, "Counter", j.events[2].properties["AppName"])
}

func TestLoggerSwallowsSinkFailures(t *testing.T) {
	var buf bytes.Buffer
	fallback := slog.New(slog.NewTextHandler(&buf, nil))

	j := &journal{}
	head := New("erroring", failingSink, WithFallback(fallback))
	head.SetNextLogger(New("panicking", panickingSink, WithFallback(fallback)))
	head.SetNextLogger(New("recording", j.sink("recording")))

	assert.NotPanics(t, func() {
		head.LogEvent("test", "evt", nil)
		head.LogException("test", errors.New("boom"), nil)
	})

	assert.Equal(t, []string{"recording"}, j.loggersFor("evt"))
	assert.Len(t, j.exceptions, 1)
	assert.Contains(t, buf.String(), "sink offline")
	assert.Contains(t, buf.String(), "event sink exploded")
	assert.Contains(t, buf.String(), "logger=erroring")
}

func TestSetNextLoggerRejectsSelf(t *testing.T) {
	l1 := New("L1", nil)
	l1.SetNextLogger(l1)

	assert.Nil(t, l1.Next())
	assert.Equal(t, 1, l1.Depth())
	assert.NotPanics(t, func() { l1.LogEvent("test", "evt", nil) })
}

func TestSetNextLoggerRejectsBackEdge(t *testing.T) {
	j := &journal{}
	l1 := New("L1", j.sink("L1"))
	l2 := New("L2", j.sink("L2"))

	l1.SetNextLogger(l2)
	l2.SetNextLogger(l1)

	assert.Nil(t, l2.Next())
	assert.Equal(t, 2, l1.Depth())

	l1.LogEvent("test", "evt", nil)
	assert.Equal(t, []string{"L1", "L2"}, j.loggersFor("evt"))
}

func TestSetNextLoggerRejectsDuplicateIdentity(t *testing.T) {
	head := New("A", nil)
	head.SetNextLogger(New("B", nil))

	dup := New("X", nil)
	dup.SetNextLogger(New("B", nil))
	head.SetNextLogger(dup)

	assert.Equal(t, []string{"A", "B"}, head.Identities())
}

func TestSetNextLoggerAppendsWholeChain(t *testing.T) {
	head := New("A", nil)
	tail := New("B", nil)
	tail.SetNextLogger(New("C", nil))

	head.SetNextLogger(tail)
	head.SetNextLogger(nil)

	assert.Equal(t, []string{"A", "B", "C"}, head.Identities())
}

func TestNewGeneratesIdentity(t *testing.T) {
	a := New("", nil)
	b := New("", nil)

	assert.NotEmpty(t, a.Identity())
	assert.NotEqual(t, a.Identity(), b.Identity())

	a.SetNextLogger(b)
	assert.Equal(t, 2, a.Depth())
}

func TestNilLoggerIsSafe(t *testing.T) {
	var l *Logger
	assert.NotPanics(t, func() {
		l.LogEvent("test", "evt", nil)
		l.LogException("test", errors.New("boom"), nil)
		l.SetNextLogger(New("x", nil))
	})
}

func TestSinkFuncsSkipsNil(t *testing.T) {
	var s SinkFuncs
	assert.NoError(t, s.LogEvent("src", "evt", nil))
	assert.NoError(t, s.LogException("src", errors.New("boom"), nil))
}
