package runtime

import (
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/drblury/fedstore/internal/runtime/audit"
	idspkg "github.com/drblury/fedstore/internal/runtime/ids"
	"github.com/drblury/fedstore/internal/runtime/jsoncodec"
	loggingpkg "github.com/drblury/fedstore/internal/runtime/logging"
	"github.com/drblury/fedstore/internal/runtime/store"
)

// MetadataKeyDispatchID is the action metadata key carrying the dispatch ID.
const MetadataKeyDispatchID = "dispatch_id"

// MiddlewareBuilder constructs a dispatch middleware for one module. A nil
// middleware with a nil error means "not enabled".
type MiddlewareBuilder func(c *Coordinator, module string) (store.Middleware, error)

// MiddlewareRegistration captures how a middleware is attached to every
// container the coordinator manages.
type MiddlewareRegistration struct {
	Name       string
	Middleware store.Middleware
	Builder    MiddlewareBuilder
}

func (r MiddlewareRegistration) build(c *Coordinator, module string) (store.Middleware, error) {
	switch {
	case r.Middleware != nil:
		return r.Middleware, nil
	case r.Builder != nil:
		return r.Builder(c, module)
	default:
		return nil, errors.New("middleware registration requires Middleware or Builder")
	}
}

// DefaultMiddlewares returns the standard chain, outermost first.
func DefaultMiddlewares() []MiddlewareRegistration {
	return []MiddlewareRegistration{
		DispatchIDMiddleware(),
		AuditMiddleware(),
		TracerMiddleware(),
		MetricsMiddleware(),
		StatsMiddleware(),
		LogActionsMiddleware(nil),
		DispatchHooksMiddleware(DispatchHooks{}),
		RecovererMiddleware(),
	}
}

// DispatchIDMiddleware tags actions that reach a container without a
// dispatch ID, e.g. when the container is dispatched to directly.
func DispatchIDMiddleware() MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "dispatch_id",
		Middleware: func(store.MiddlewareAPI) func(store.Dispatcher) store.Dispatcher {
			return func(next store.Dispatcher) store.Dispatcher {
				return func(action store.Action) error {
					return next(withDispatchID(action))
				}
			}
		},
	}
}

func withDispatchID(action store.Action) store.Action {
	if action.Metadata[MetadataKeyDispatchID] != "" {
		return action
	}
	return action.WithMetadata(MetadataKeyDispatchID, idspkg.New())
}

// AuditMiddleware emits the action audit records through the coordinator's
// audit chain.
func AuditMiddleware() MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "audit",
		Builder: func(c *Coordinator, module string) (store.Middleware, error) {
			return audit.Middleware(module, c.auditLogger), nil
		},
	}
}

// TracerMiddleware wraps every container dispatch in an OpenTelemetry span
// when tracing is enabled.
func TracerMiddleware() MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "tracer",
		Builder: func(c *Coordinator, module string) (store.Middleware, error) {
			if !c.conf.TracingEnabled {
				return nil, nil
			}
			return tracerMiddleware(c.tracer, module), nil
		},
	}
}

func tracerMiddleware(tracer trace.Tracer, module string) store.Middleware {
	return func(store.MiddlewareAPI) func(store.Dispatcher) store.Dispatcher {
		return func(next store.Dispatcher) store.Dispatcher {
			return func(action store.Action) error {
				ctx, span := tracer.Start(action.Context(), "fedstore.dispatch",
					trace.WithAttributes(
						attribute.String("fedstore.module", module),
						attribute.String("fedstore.action.type", action.Type),
						attribute.String("fedstore.dispatch_id", action.Metadata[MetadataKeyDispatchID]),
					))
				defer span.End()

				err := next(action.WithContext(ctx))
				if err != nil {
					span.RecordError(err)
					span.SetStatus(codes.Error, err.Error())
				}
				return err
			}
		}
	}
}

// MetricsMiddleware records Prometheus dispatch metrics when metrics are enabled.
func MetricsMiddleware() MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "metrics",
		Builder: func(c *Coordinator, module string) (store.Middleware, error) {
			if c.metrics == nil {
				return nil, nil
			}
			return timedMiddleware(func(actionType string, d time.Duration, err error) {
				c.metrics.RecordDispatch(module, actionType, d, err)
			}), nil
		},
	}
}

// StatsMiddleware feeds the per-store statistics returned by Coordinator.Stats.
func StatsMiddleware() MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "stats",
		Builder: func(c *Coordinator, module string) (store.Middleware, error) {
			return timedMiddleware(func(actionType string, d time.Duration, err error) {
				c.stats.record(module, actionType, d, err)
			}), nil
		},
	}
}

func timedMiddleware(observe func(actionType string, d time.Duration, err error)) store.Middleware {
	return func(store.MiddlewareAPI) func(store.Dispatcher) store.Dispatcher {
		return func(next store.Dispatcher) store.Dispatcher {
			return func(action store.Action) error {
				start := time.Now()
				err := next(action)
				observe(action.Type, time.Since(start), err)
				return err
			}
		}
	}
}

// LogActionsMiddleware logs every dispatched action at debug level. It is
// only active in debug mode. A nil logger uses the coordinator's logger.
func LogActionsMiddleware(logger loggingpkg.ServiceLogger) MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "log_actions",
		Builder: func(c *Coordinator, module string) (store.Middleware, error) {
			if !c.conf.DebugMode {
				return nil, nil
			}
			l := logger
			if l == nil {
				l = c.log
			}
			if l == nil {
				return nil, errors.New("log actions middleware requires a logger")
			}
			return logActionsMiddleware(l, module), nil
		},
	}
}

func logActionsMiddleware(logger loggingpkg.ServiceLogger, module string) store.Middleware {
	return func(store.MiddlewareAPI) func(store.Dispatcher) store.Dispatcher {
		return func(next store.Dispatcher) store.Dispatcher {
			return func(action store.Action) error {
				logger.Debug("Dispatching action", loggingpkg.LogFields{
					"module":      module,
					"action_type": action.Type,
					"payload":     jsoncodec.Stringify(action.Payload),
					"metadata":    action.Metadata.Fields(),
				})
				return next(action)
			}
		}
	}
}

// RecoveredPanicError is returned in place of a panic raised by a reducer
// or by an inner middleware.
type RecoveredPanicError struct {
	Value      any
	Stacktrace string
}

func (e *RecoveredPanicError) Error() string {
	return fmt.Sprintf("panic occurred during dispatch: %v", e.Value)
}

// RecovererMiddleware converts panics into dispatch errors so they are
// audited as failures and returned to the caller.
func RecovererMiddleware() MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "recoverer",
		Middleware: func(store.MiddlewareAPI) func(store.Dispatcher) store.Dispatcher {
			return func(next store.Dispatcher) store.Dispatcher {
				return func(action store.Action) (err error) {
					defer func() {
						if r := recover(); r != nil {
							err = &RecoveredPanicError{Value: r, Stacktrace: string(debug.Stack())}
						}
					}()
					return next(action)
				}
			}
		},
	}
}

func (c *Coordinator) buildMiddlewares(module string) ([]store.Middleware, error) {
	out := make([]store.Middleware, 0, len(c.middlewares))
	for _, reg := range c.middlewares {
		mw, err := reg.build(c, module)
		if err != nil {
			return nil, fmt.Errorf("middleware %q: %w", reg.Name, err)
		}
		if mw != nil {
			out = append(out, mw)
		}
	}
	return out, nil
}
