package fedstore

import (
	"errors"
	"slices"
	"strings"
	"testing"
)

func newTestCoordinator(t *testing.T) *Coordinator {
	t.Helper()
	cfg := DefaultConfig()
	c, err := New(cfg, Dependencies{Logger: NopLogger()})
	if err != nil {
		t.Fatalf("unexpected error creating coordinator: %v", err)
	}
	return c
}

func TestCoordinatorExports(t *testing.T) {
	c := newTestCoordinator(t)

	counter := TypedReducer(func(state int, action Action) int {
		if action.Type == "INC" {
			return state + 1
		}
		return state
	})
	if _, err := c.CreateStore("Counter", counter, StoreOptions{GlobalActions: []string{"INC"}}); err != nil {
		t.Fatalf("unexpected error creating store: %v", err)
	}

	if err := c.DispatchAction("Counter", NewAction("INC", nil)); err != nil {
		t.Fatalf("unexpected dispatch error: %v", err)
	}
	if got := c.GetPartnerState("Counter"); got != 1 {
		t.Fatalf("expected counter state 1, got %v", got)
	}
}

func TestTypedReducerEExport(t *testing.T) {
	boom := errors.New("boom")
	reducer := TypedReducerE(func(state string, action Action) (string, error) {
		if action.Type == "FAIL" {
			return state, boom
		}
		return "ok", nil
	})

	s, err := NewStore(reducer)
	if err != nil {
		t.Fatalf("unexpected error creating store: %v", err)
	}
	if err := s.Dispatch(NewAction("FAIL", nil)); !errors.Is(err, boom) {
		t.Fatalf("expected reducer error, got %v", err)
	}
}

func TestCreateStoreErrorExports(t *testing.T) {
	c := newTestCoordinator(t)
	if _, err := c.CreateStore("", nil, StoreOptions{}); !errors.Is(err, ErrModuleNameRequired) {
		t.Fatalf("expected module name required error, got %v", err)
	}
	if _, err := c.CreateStore("X", nil, StoreOptions{}); !errors.Is(err, ErrReducerRequired) {
		t.Fatalf("expected reducer required error, got %v", err)
	}
}

func TestTransportExports(t *testing.T) {
	names := TransportNames()
	for _, want := range []string{"channel", "kafka", "sqlite"} {
		if !slices.Contains(names, want) {
			t.Fatalf("expected transport %q to be registered, got %v", want, names)
		}
	}

	cfg := DefaultConfig()
	cfg.AuditTransport = "channel"
	c, err := New(cfg, Dependencies{Logger: NopLogger(), PublisherFactory: DefaultTransportFactory()})
	if err != nil {
		t.Fatalf("unexpected error creating coordinator: %v", err)
	}
	defer c.Close()

	if c.AuditPublisher() == nil {
		t.Fatal("expected audit publisher")
	}
	if got := c.AuditLogger().Identity(); got != AuditPublisherIdentityPrefix+"CHANNEL" {
		t.Fatalf("unexpected audit identity %q", got)
	}
}

func TestEncodingExportAliases(t *testing.T) {
	payload := map[string]string{"hello": "world"}
	if _, err := Marshal(payload); err != nil {
		t.Fatalf("marshal alias failed: %v", err)
	}
	if _, err := MarshalIndent(payload, "", "  "); err != nil {
		t.Fatalf("marshal indent alias failed: %v", err)
	}
	if err := Unmarshal([]byte(`{"hello":"world"}`), &payload); err != nil {
		t.Fatalf("unmarshal alias failed: %v", err)
	}
	if got := Stringify(payload); !strings.Contains(got, `"hello"`) {
		t.Fatalf("unexpected stringify output %q", got)
	}
}

func TestMetadataExport(t *testing.T) {
	md := NewMetadata("key", "value")
	if md["key"] != "value" {
		t.Fatalf("expected metadata to contain key, got %#v", md)
	}
	if NewID() == "" {
		t.Fatal("expected non-empty id")
	}
}

func TestLoggerExports(t *testing.T) {
	logger := NewConsoleLogger(nil)
	if logger.Identity() != ConsoleLoggerIdentity {
		t.Fatalf("expected console identity, got %q", logger.Identity())
	}
	NopLogger().Info("boot", LogFields{"component": "test"})
}
