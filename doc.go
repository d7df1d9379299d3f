// Package fedstore is a federated state coordinator. Independently developed
// modules ("partners") each own a private reducer-driven store, opt a subset
// of their action types into cross-module broadcast, and read a merged,
// read-only view of every module's state.
//
// A Coordinator holds one store per module name. DispatchAction first
// broadcasts an action to every module that registered its type (or the "*"
// wildcard) as a global action, in registration order, and then applies it to
// the dispatching module itself unless that module already received it
// globally. Each action reaches a given store at most once per dispatch.
//
// Subscriptions come in three scopes: a single module (Subscribe,
// SubscribeToPartnerState), the platform module (SubscribeToPlatformState)
// and the whole system (SubscribeToGlobalState). Eager partner subscriptions
// may be taken before the partner registers; they start delivering once it
// does, and they follow the module when its store is replaced.
//
// Actions marked with Audited are recorded through a chain of audit loggers.
// Each Logger node hands records to a Sink and forwards them to the next
// node; sink failures are reported to slog and never reach the caller. Sinks
// exist for any ServiceLogger (slog, zerolog, Watermill), Prometheus,
// OpenTelemetry, and any Watermill publisher, where records travel as
// CloudEvents.
//
// # Middleware
//
// Every store the coordinator manages is wrapped by DefaultMiddlewares:
// dispatch IDs, auditing, OpenTelemetry tracing, Prometheus metrics,
// per-store statistics, debug logging, dispatch hooks and panic recovery.
// Supply Dependencies.Middlewares to change the chain.
//
// # Process-wide instance
//
// Get and Default return a lazily created process-wide coordinator whose
// settings come from FEDSTORE_* environment variables. Applications that
// prefer explicit wiring call New at their composition root instead.
package fedstore
