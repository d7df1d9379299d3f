/*
Package runtime implements the federated state coordinator behind fedstore.

# Architecture Overview

A Coordinator owns one reducer-driven store per module name. Modules opt
action types into cross-module broadcast, subscribe to each other's state
and read a merged view of every store. Dispatch, auditing and notification
run synchronously on the caller's goroutine.

# Package Structure

## Coordinator (coordinator.go, default.go)

The Coordinator wires together:
  - Module stores and their registration order
  - The audit logger chain and the optional audit transport
  - Dispatch middleware, hooks and statistics
  - Prometheus metrics and OpenTelemetry tracing

default.go holds the lazily created process-wide coordinator.

## Registration (registry.go, actions.go)

Store creation, registration, replacement and the global action table.

## Dispatch (dispatch.go, copystate.go)

Global, local and mixed dispatch. State handed to callers is copied.

## Subscriptions and Selectors (subscriptions.go, selectors.go)

Module, partner, platform and global subscriptions, including eager partner
subscriptions that wait for the partner to register, and named selectors
over partner state.

## Middleware (middleware.go, hooks.go)

The store middleware chain:
  - DispatchID: Tags every action with a dispatch ID
  - Audit: Records audited actions through the logger chain
  - Tracer: OpenTelemetry spans per dispatch
  - Metrics: Prometheus dispatch counters and latency
  - Stats: Per-store latency windows
  - LogActions: Debug logging of actions
  - Hooks: Lifecycle callbacks around dispatch
  - Recoverer: Panic recovery

## Monitoring (metrics.go, stats.go, resources.go, inspector.go)

Dispatch metrics, latency percentiles, process resource sampling and the
read-only inspector HTTP API.

# Sub-packages

  - audit/: Audit logger chain, sinks and the audit middleware
  - cloudevents/: CloudEvents envelope for published audit records
  - config/: Coordinator configuration with validation
  - errors/: Sentinel errors and error types
  - ids/: ULID generation for dispatch and event IDs
  - jsoncodec/: JSON marshaling and state stringification
  - logging/: Logger interface and adapters
  - metadata/: Audit property and message metadata utilities
  - store/: The reducer store primitive
  - transport/: Builds the audit publisher selected by configuration

# Usage Example

	cfg := fedstore.DefaultConfig()
	cfg.AuditTransport = "kafka"
	cfg.KafkaBrokers = []string{"localhost:9092"}

	c, err := fedstore.New(cfg, fedstore.Dependencies{})
	if err != nil {
		return err
	}
	defer c.Close()

	_, err = c.CreateStore("Cart", cartReducer, fedstore.StoreOptions{
		GlobalActions: []string{"USER_LOGGED_OUT"},
	})
*/
package runtime
