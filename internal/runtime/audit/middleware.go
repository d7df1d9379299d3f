package audit

import (
	"time"

	"github.com/drblury/fedstore/internal/runtime/jsoncodec"
	"github.com/drblury/fedstore/internal/runtime/store"
)

// Source is the audit source of every record emitted by Middleware.
const Source = "FedStore.ActionAudit"

// Property keys of action audit records.
const (
	PropModuleName     = "ModuleName"
	PropActionName     = "ActionName"
	PropOldState       = "OldState"
	PropNewState       = "NewState"
	PropPayload        = "Payload"
	PropDispatchedOn   = "DispatchedOn"
	PropDispatchStatus = "DispatchStatus"
	PropTimeTaken      = "TimeTaken"
)

// Dispatch status values.
const (
	StatusDispatched = "DISPATCHED"
	StatusCompleted  = "COMPLETED"
	StatusFailed     = "FAILED"
)

// LoggerProvider returns the chain head current at dispatch time, or nil.
type LoggerProvider func() *Logger

// EventName formats the audit event name for an action type and status.
func EventName(actionType, status string) string {
	return actionType + " :: " + status
}

// Middleware audits actions dispatched to module's container. Actions
// without AuditEnabled, or dispatched while provider yields no logger, pass
// straight through. Dispatch errors are returned unchanged.
func Middleware(module string, provider LoggerProvider) store.Middleware {
	return func(api store.MiddlewareAPI) func(store.Dispatcher) store.Dispatcher {
		return func(next store.Dispatcher) store.Dispatcher {
			return func(action store.Action) error {
				if !action.AuditEnabled || provider == nil {
					return next(action)
				}
				logger := provider()
				if logger == nil {
					return next(action)
				}
				return dispatchAudited(logger, module, api, next, action)
			}
		}
	}
}

func dispatchAudited(logger *Logger, module string, api store.MiddlewareAPI, next store.Dispatcher, action store.Action) error {
	base := action.Metadata.WithAll(Properties{
		PropModuleName: module,
		PropActionName: action.Type,
	})

	start := time.Now()
	logger.LogEvent(Source, EventName(action.Type, StatusDispatched), base.WithAll(Properties{
		PropOldState:       stringify(api.GetState()),
		PropPayload:        stringify(action.Payload),
		PropDispatchedOn:   start.UTC().Format(time.RFC3339Nano),
		PropDispatchStatus: StatusDispatched,
	}))

	err := next(action)
	elapsed := time.Since(start)

	if err != nil {
		failed := base.WithAll(Properties{
			PropDispatchStatus: StatusFailed,
			PropTimeTaken:      elapsed.String(),
		})
		logger.LogEvent(Source, EventName(action.Type, StatusFailed), failed)
		logger.LogException(Source, err, failed)
		return err
	}

	logger.LogEvent(Source, EventName(action.Type, StatusCompleted), base.WithAll(Properties{
		PropNewState:       stringify(api.GetState()),
		PropDispatchStatus: StatusCompleted,
		PropTimeTaken:      elapsed.String(),
	}))
	return nil
}

func stringify(v any) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = "[Unserializable]"
		}
	}()
	return jsoncodec.Stringify(v)
}
