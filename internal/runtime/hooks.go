package runtime

import (
	"context"
	"time"

	loggingpkg "github.com/drblury/fedstore/internal/runtime/logging"
	"github.com/drblury/fedstore/internal/runtime/store"
)

// DispatchContext provides information about one container dispatch to hooks.
type DispatchContext struct {
	// Module is the name of the module whose container received the action.
	Module string
	// ActionType is the type of the dispatched action.
	ActionType string
	// DispatchID identifies the originating coordinator dispatch. Every
	// container reached by the same DispatchAction call sees the same ID.
	DispatchID string
	// Context is the context attached to the action.
	Context context.Context
	// StartedAt is when the container dispatch started.
	StartedAt time.Time
	// Duration is how long the dispatch took (only set in OnDispatchDone and OnDispatchError).
	Duration time.Duration
}

// DispatchHooks defines callbacks for the container dispatch lifecycle.
// All hooks are optional - nil hooks are simply not called.
type DispatchHooks struct {
	OnDispatchStart func(ctx DispatchContext)
	OnDispatchDone  func(ctx DispatchContext)
	OnDispatchError func(ctx DispatchContext, err error)
}

// Merge combines two DispatchHooks, creating a new DispatchHooks that calls both.
// The hooks from 'other' are called after the hooks from 'h'.
func (h DispatchHooks) Merge(other DispatchHooks) DispatchHooks {
	return DispatchHooks{
		OnDispatchStart: chainHooks(h.OnDispatchStart, other.OnDispatchStart),
		OnDispatchDone:  chainHooks(h.OnDispatchDone, other.OnDispatchDone),
		OnDispatchError: chainErrorHooks(h.OnDispatchError, other.OnDispatchError),
	}
}

func (h DispatchHooks) empty() bool {
	return h.OnDispatchStart == nil && h.OnDispatchDone == nil && h.OnDispatchError == nil
}

func chainHooks(a, b func(DispatchContext)) func(DispatchContext) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx DispatchContext) {
		a(ctx)
		b(ctx)
	}
}

func chainErrorHooks(a, b func(DispatchContext, error)) func(DispatchContext, error) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx DispatchContext, err error) {
		a(ctx, err)
		b(ctx, err)
	}
}

// DispatchHooksMiddleware invokes the provided hooks around every container
// dispatch. Hooks passed through Dependencies.Hooks are merged in as well.
func DispatchHooksMiddleware(hooks DispatchHooks) MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "dispatch_hooks",
		Builder: func(c *Coordinator, module string) (store.Middleware, error) {
			merged := c.hooks.Merge(hooks)
			if merged.empty() {
				return nil, nil
			}
			return dispatchHooksMiddleware(module, merged), nil
		},
	}
}

func dispatchHooksMiddleware(module string, hooks DispatchHooks) store.Middleware {
	return func(store.MiddlewareAPI) func(store.Dispatcher) store.Dispatcher {
		return func(next store.Dispatcher) store.Dispatcher {
			return func(action store.Action) error {
				dctx := DispatchContext{
					Module:     module,
					ActionType: action.Type,
					DispatchID: action.Metadata[MetadataKeyDispatchID],
					Context:    action.Context(),
					StartedAt:  time.Now(),
				}

				if hooks.OnDispatchStart != nil {
					hooks.OnDispatchStart(dctx)
				}

				err := next(action)
				dctx.Duration = time.Since(dctx.StartedAt)

				if err != nil {
					if hooks.OnDispatchError != nil {
						hooks.OnDispatchError(dctx, err)
					}
				} else if hooks.OnDispatchDone != nil {
					hooks.OnDispatchDone(dctx)
				}
				return err
			}
		}
	}
}

// LoggingHooks returns pre-built hooks that log the dispatch lifecycle.
func LoggingHooks(logger loggingpkg.ServiceLogger) DispatchHooks {
	return DispatchHooks{
		OnDispatchStart: func(ctx DispatchContext) {
			logger.Debug("Dispatch started", loggingpkg.LogFields{
				"module":      ctx.Module,
				"action_type": ctx.ActionType,
				"dispatch_id": ctx.DispatchID,
			})
		},
		OnDispatchDone: func(ctx DispatchContext) {
			logger.Debug("Dispatch completed", loggingpkg.LogFields{
				"module":      ctx.Module,
				"action_type": ctx.ActionType,
				"dispatch_id": ctx.DispatchID,
				"duration_ms": ctx.Duration.Milliseconds(),
			})
		},
		OnDispatchError: func(ctx DispatchContext, err error) {
			logger.Error("Dispatch failed", err, loggingpkg.LogFields{
				"module":      ctx.Module,
				"action_type": ctx.ActionType,
				"dispatch_id": ctx.DispatchID,
				"duration_ms": ctx.Duration.Milliseconds(),
			})
		},
	}
}

// MetricsHooks returns pre-built hooks that report dispatch outcomes.
func MetricsHooks(onStart, onDone, onError func(module, actionType string)) DispatchHooks {
	return DispatchHooks{
		OnDispatchStart: func(ctx DispatchContext) {
			if onStart != nil {
				onStart(ctx.Module, ctx.ActionType)
			}
		},
		OnDispatchDone: func(ctx DispatchContext) {
			if onDone != nil {
				onDone(ctx.Module, ctx.ActionType)
			}
		},
		OnDispatchError: func(ctx DispatchContext, _ error) {
			if onError != nil {
				onError(ctx.Module, ctx.ActionType)
			}
		},
	}
}

// AlertingHooks returns pre-built hooks that trigger alerts on dispatch errors.
func AlertingHooks(alertFunc func(ctx DispatchContext, err error)) DispatchHooks {
	return DispatchHooks{
		OnDispatchError: alertFunc,
	}
}
