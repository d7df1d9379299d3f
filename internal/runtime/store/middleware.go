package store

// Dispatcher applies an action.
type Dispatcher func(action Action) error

// MiddlewareAPI is the view of a container handed to middlewares.
type MiddlewareAPI interface {
	GetState() any
	Dispatch(action Action) error
}

// Middleware wraps a container's dispatch path. The outer function is called
// once per container, the returned wrapper once per chain build.
type Middleware func(api MiddlewareAPI) func(next Dispatcher) Dispatcher

// Chain composes middlewares around base. The first middleware is the
// outermost one. Nil entries are skipped.
func Chain(api MiddlewareAPI, base Dispatcher, middlewares ...Middleware) Dispatcher {
	dispatch := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		if middlewares[i] == nil {
			continue
		}
		if wrapped := middlewares[i](api)(dispatch); wrapped != nil {
			dispatch = wrapped
		}
	}
	return dispatch
}
