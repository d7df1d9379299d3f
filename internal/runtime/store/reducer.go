package store

// Reducer computes the next state from the current state and an action. The
// state passed with ActionInit is the initial state, nil unless the store was
// created WithInitialState. Returning an error leaves the state untouched.
type Reducer func(state any, action Action) (any, error)

// TypedReducer adapts a reducer over a concrete state type. A nil or
// mismatched current state is presented as the zero value of S.
func TypedReducer[S any](fn func(state S, action Action) S) Reducer {
	if fn == nil {
		return nil
	}
	return func(state any, action Action) (any, error) {
		typed, _ := state.(S)
		return fn(typed, action), nil
	}
}

// TypedReducerE is TypedReducer for reducers that can fail.
func TypedReducerE[S any](fn func(state S, action Action) (S, error)) Reducer {
	if fn == nil {
		return nil
	}
	return func(state any, action Action) (any, error) {
		typed, _ := state.(S)
		next, err := fn(typed, action)
		if err != nil {
			return state, err
		}
		return next, nil
	}
}
