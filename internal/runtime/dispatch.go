package runtime

import (
	"errors"

	"github.com/drblury/fedstore/internal/runtime/audit"
	errspkg "github.com/drblury/fedstore/internal/runtime/errors"
	"github.com/drblury/fedstore/internal/runtime/store"
)

// DispatchGlobalAction applies action to every module accepting its type,
// in registration order. Every accepting module is visited even when an
// earlier one fails; the failures are joined.
func (c *Coordinator) DispatchGlobalAction(source string, action store.Action) error {
	action = withDispatchID(action)

	var (
		errs     []error
		accepted int
	)
	for _, e := range c.orderedEntries() {
		if !c.IsActionRegisteredAsGlobal(e.name, action.Type) {
			continue
		}
		accepted++
		if err := e.dispatch(action); err != nil {
			errs = append(errs, err)
		}
	}

	if c.metrics != nil {
		c.metrics.ObserveGlobalFanout(accepted)
	}
	return joinDispatchErrors(errs)
}

// DispatchLocalAction applies action to the source module's own store. An
// unregistered source is audited as an exception and returned as a
// *errors.ConfigurationError.
func (c *Coordinator) DispatchLocalAction(source string, action store.Action) error {
	e, ok := c.entry(source)
	if !ok {
		err := errspkg.NewConfigurationError(source)
		c.auditLogger().LogException(AuditSource, err, audit.Properties{
			PropAppName:          source,
			audit.PropActionName: action.Type,
		})
		return err
	}
	return e.dispatch(withDispatchID(action))
}

// DispatchAction is the primary entry point: the action is broadcast to
// every accepting module and is then applied locally to source, unless
// source accepts the type globally and has already received it.
func (c *Coordinator) DispatchAction(source string, action store.Action) error {
	action = withDispatchID(action)

	globalErr := c.DispatchGlobalAction(source, action)
	if c.IsActionRegisteredAsGlobal(source, action.Type) {
		return globalErr
	}
	localErr := c.DispatchLocalAction(source, action)
	if globalErr == nil {
		return localErr
	}
	return errors.Join(globalErr, localErr)
}

func joinDispatchErrors(errs []error) error {
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	default:
		return errors.Join(errs...)
	}
}
