package runtime

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/drblury/fedstore/internal/runtime/audit"
	configpkg "github.com/drblury/fedstore/internal/runtime/config"
	loggingpkg "github.com/drblury/fedstore/internal/runtime/logging"
	"github.com/drblury/fedstore/internal/runtime/store"
)

type recordedEvent struct {
	source     string
	name       string
	properties audit.Properties
}

type recordedException struct {
	source     string
	err        error
	properties audit.Properties
}

type auditRecorder struct {
	mu         sync.Mutex
	events     []recordedEvent
	exceptions []recordedException
}

func (r *auditRecorder) LogEvent(source, eventName string, properties audit.Properties) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{source: source, name: eventName, properties: properties})
	return nil
}

func (r *auditRecorder) LogException(source string, err error, properties audit.Properties) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exceptions = append(r.exceptions, recordedException{source: source, err: err, properties: properties})
	return nil
}

func (r *auditRecorder) named(name string) []recordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []recordedEvent
	for _, e := range r.events {
		if e.name == name {
			out = append(out, e)
		}
	}
	return out
}

func (r *auditRecorder) exceptionCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.exceptions)
}

type testOption func(*configpkg.Config, *Dependencies)

func newTestCoordinator(t *testing.T, opts ...testOption) (*Coordinator, *auditRecorder) {
	t.Helper()

	rec := &auditRecorder{}
	cfg := configpkg.Default()
	deps := Dependencies{
		AuditLogger: audit.New("recorder", rec),
		Logger:      loggingpkg.NopLogger(),
	}
	for _, opt := range opts {
		opt(cfg, &deps)
	}

	c, err := New(cfg, deps)
	require.NoError(t, err)
	return c, rec
}

func counterReducer() store.Reducer {
	return store.TypedReducer(func(state int, action store.Action) int {
		switch action.Type {
		case "INC":
			return state + 1
		case "ADD":
			n, _ := action.Payload.(int)
			return state + n
		}
		return state
	})
}

func labelReducer() store.Reducer {
	return store.TypedReducer(func(state string, action store.Action) string {
		if action.Type == "SET_LABEL" {
			s, _ := action.Payload.(string)
			return s
		}
		if state == "" {
			return "idle"
		}
		return state
	})
}

func mustCreate(t *testing.T, c *Coordinator, name string, reducer store.Reducer, opts StoreOptions) store.Container {
	t.Helper()
	s, err := c.CreateStore(name, reducer, opts)
	require.NoError(t, err)
	return s
}
