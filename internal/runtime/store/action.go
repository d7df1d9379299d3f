package store

import (
	"context"

	metadatapkg "github.com/drblury/fedstore/internal/runtime/metadata"
)

// Internal action types dispatched by the store itself. Reducers should fall
// through to returning the current state for both.
const (
	ActionInit    = "@@fedstore/INIT"
	ActionReplace = "@@fedstore/REPLACE"
)

// Action is a state-mutating event. Type is the routing key for reducers and
// for the global action registry. Actions are passed by value, so a
// dispatched action cannot be changed by the receivers.
type Action struct {
	Type    string
	Payload any

	// AuditEnabled opts the action into the audit pipeline.
	AuditEnabled bool

	// Metadata carries free-form string properties such as the dispatch ID.
	Metadata metadatapkg.Metadata

	ctx context.Context
}

// NewAction builds an action with the given type and payload.
func NewAction(actionType string, payload any) Action {
	return Action{Type: actionType, Payload: payload}
}

// Audited returns a copy of the action with auditing enabled.
func (a Action) Audited() Action {
	a.AuditEnabled = true
	return a
}

// WithMetadata returns a copy of the action carrying key=value.
func (a Action) WithMetadata(key, value string) Action {
	a.Metadata = a.Metadata.With(key, value)
	return a
}

// Context returns the context attached to the action, or context.Background.
func (a Action) Context() context.Context {
	if a.ctx == nil {
		return context.Background()
	}
	return a.ctx
}

// WithContext returns a copy of the action bound to ctx. The context is only
// used for tracing; dispatch never blocks on it.
func (a Action) WithContext(ctx context.Context) Action {
	a.ctx = ctx
	return a
}
