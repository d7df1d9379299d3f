// Package store provides the single-container primitive consumed by the
// coordinator: a reducer-driven state holder with a middleware chain and
// synchronous change listeners.
package store

import (
	"sync"

	errspkg "github.com/drblury/fedstore/internal/runtime/errors"
)

// Container is the opaque view the coordinator has of a module's store.
// Subscribe returns an idempotent unsubscribe function.
type Container interface {
	GetState() any
	Dispatch(action Action) error
	Subscribe(listener func()) func()
}

// ReducerReplacer is implemented by containers whose reducer can be swapped
// while keeping their state.
type ReducerReplacer interface {
	ReplaceReducer(reducer Reducer) error
}

type options struct {
	initialState any
	middlewares  []Middleware
}

// Option configures New.
type Option func(*options)

// WithInitialState seeds the state passed to the reducer with ActionInit.
func WithInitialState(state any) Option {
	return func(o *options) { o.initialState = state }
}

// WithMiddlewares appends middlewares to the dispatch chain.
func WithMiddlewares(middlewares ...Middleware) Option {
	return func(o *options) { o.middlewares = append(o.middlewares, middlewares...) }
}

type listener struct {
	id uint64
	fn func()
}

// Store holds one module's state. Listeners are notified synchronously after
// every successful dispatch, before Dispatch returns. A Store is meant to be
// driven from one goroutine at a time; the mutex only keeps reads coherent.
type Store struct {
	mu          sync.RWMutex
	state       any
	reducer     Reducer
	dispatching bool
	listeners   []listener
	nextID      uint64

	dispatch Dispatcher
}

var _ Container = (*Store)(nil)
var _ ReducerReplacer = (*Store)(nil)

// New creates a store and runs ActionInit through the reducer. The init
// dispatch bypasses the middlewares.
func New(reducer Reducer, opts ...Option) (*Store, error) {
	if reducer == nil {
		return nil, errspkg.ErrReducerRequired
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	s := &Store{state: o.initialState, reducer: reducer}
	if err := s.baseDispatch(Action{Type: ActionInit}); err != nil {
		return nil, err
	}
	s.dispatch = Chain(s, s.baseDispatch, o.middlewares...)
	return s, nil
}

// GetState returns the current state.
func (s *Store) GetState() any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Dispatch runs the action through the middleware chain and the reducer.
func (s *Store) Dispatch(action Action) error {
	return s.dispatch(action)
}

// Subscribe registers a change listener.
func (s *Store) Subscribe(fn func()) func() {
	if fn == nil {
		return func() {}
	}

	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, listener{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { s.removeListener(id) })
	}
}

// ReplaceReducer swaps the reducer and dispatches ActionReplace so the new
// reducer sees the retained state.
func (s *Store) ReplaceReducer(reducer Reducer) error {
	if reducer == nil {
		return errspkg.ErrReducerRequired
	}
	s.mu.Lock()
	s.reducer = reducer
	s.mu.Unlock()
	return s.baseDispatch(Action{Type: ActionReplace})
}

func (s *Store) baseDispatch(action Action) error {
	if action.Type == "" {
		return errspkg.ErrActionTypeRequired
	}

	s.mu.Lock()
	if s.dispatching {
		s.mu.Unlock()
		return errspkg.ErrDispatchInReducer
	}
	s.dispatching = true
	current, reducer := s.state, s.reducer
	s.mu.Unlock()

	next, err := s.reduce(reducer, current, action)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.state = next
	listeners := make([]listener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, l := range listeners {
		l.fn()
	}
	return nil
}

func (s *Store) reduce(reducer Reducer, current any, action Action) (any, error) {
	defer func() {
		s.mu.Lock()
		s.dispatching = false
		s.mu.Unlock()
	}()
	return reducer(current, action)
}

func (s *Store) removeListener(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, l := range s.listeners {
		if l.id == id {
			s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
			return
		}
	}
}
