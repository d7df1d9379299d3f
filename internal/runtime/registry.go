package runtime

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/drblury/fedstore/internal/runtime/audit"
	"github.com/drblury/fedstore/internal/runtime/config"
	errspkg "github.com/drblury/fedstore/internal/runtime/errors"
	loggingpkg "github.com/drblury/fedstore/internal/runtime/logging"
	"github.com/drblury/fedstore/internal/runtime/store"
)

// Audit properties of EventStoreRegistered.
const (
	PropAppName    = "AppName"
	PropIsReplaced = "IsReplaced"
)

// StoreOptions tune CreateStore.
type StoreOptions struct {
	// Middlewares run inside the coordinator's own middlewares.
	Middlewares []store.Middleware
	// GlobalActions are the action types the module accepts from any source.
	GlobalActions []string
	// InitialState seeds the reducer's INIT call.
	InitialState any
	// ReplaceStore discards an existing store of the same name.
	ReplaceStore bool
	// ReplaceReducer swaps the reducer of an existing store, keeping its
	// state. Ignored when ReplaceStore is set.
	ReplaceReducer bool
}

type entry struct {
	name      string
	container store.Container
	dispatch  store.Dispatcher
	unwire    func()
}

// CreateStore builds a store for module name with the coordinator's
// middlewares and registers it. If the module already has a store it is
// returned untouched, unless ReplaceReducer or ReplaceStore ask otherwise.
func (c *Coordinator) CreateStore(name string, reducer store.Reducer, opts StoreOptions) (store.Container, error) {
	if err := validateModuleName(name); err != nil {
		return nil, err
	}
	if reducer == nil {
		return nil, errspkg.ErrReducerRequired
	}

	if existing, ok := c.Store(name); ok && !opts.ReplaceStore {
		if !opts.ReplaceReducer {
			return existing, nil
		}
		return existing, c.replaceReducer(name, existing, reducer, opts.GlobalActions)
	}

	mws, err := c.buildMiddlewares(name)
	if err != nil {
		return nil, err
	}
	s, err := store.New(reducer,
		store.WithInitialState(opts.InitialState),
		store.WithMiddlewares(append(mws, opts.Middlewares...)...),
	)
	if err != nil {
		return nil, fmt.Errorf("create store %q: %w", name, err)
	}

	c.mu.Lock()
	c.built[s] = struct{}{}
	c.mu.Unlock()

	c.register(name, s, s.Dispatch, opts.GlobalActions, opts.ReplaceStore)
	return s, nil
}

func (c *Coordinator) replaceReducer(name string, existing store.Container, reducer store.Reducer, globalActions []string) error {
	replacer, ok := existing.(store.ReducerReplacer)
	if !ok {
		return fmt.Errorf("fedstore: store %q does not support reducer replacement", name)
	}

	c.log.Info("Replacing the reducer of an existing store; its state is retained", loggingpkg.LogFields{
		"module": name,
	})
	if err := replacer.ReplaceReducer(reducer); err != nil {
		return err
	}
	c.RegisterGlobalActions(name, globalActions)
	c.logRegistration(name, true)
	return nil
}

// RegisterStore registers an externally built container. The coordinator's
// middlewares are wrapped around container.Dispatch for every action the
// coordinator routes to it, unless CreateStore built the container and it
// already carries them. An existing registration is kept unless replace
// is set, in which case the new container takes over the same position in
// the routing order and every subscription to name moves to it.
func (c *Coordinator) RegisterStore(name string, container store.Container, globalActions []string, replace bool) error {
	if err := validateModuleName(name); err != nil {
		return err
	}
	if container == nil {
		return errspkg.ErrContainerRequired
	}

	if _, exists := c.Store(name); exists && !replace {
		return nil
	}

	if c.isBuilt(container) {
		c.register(name, container, container.Dispatch, globalActions, replace)
		return nil
	}

	mws, err := c.buildMiddlewares(name)
	if err != nil {
		return err
	}
	c.register(name, container, store.Chain(container, container.Dispatch, mws...), globalActions, replace)
	return nil
}

// isBuilt reports whether container is a store created by this coordinator.
func (c *Coordinator) isBuilt(container store.Container) bool {
	s, ok := container.(*store.Store)
	if !ok {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok = c.built[s]
	return ok
}

func (c *Coordinator) register(name string, container store.Container, dispatch store.Dispatcher, globalActions []string, replace bool) {
	e := &entry{name: name, container: container, dispatch: dispatch}
	e.unwire = container.Subscribe(func() { c.notifyGlobal() })

	c.mu.Lock()
	old, existed := c.entries[name]
	if existed && !replace {
		c.mu.Unlock()
		e.unwire()
		return
	}
	c.entries[name] = e
	if !existed {
		c.order = append(c.order, name)
	}
	count := len(c.entries)
	c.mu.Unlock()

	if existed {
		old.unwire()
	}

	c.RegisterGlobalActions(name, globalActions)
	c.subs.bindModule(name, container)
	if c.metrics != nil {
		c.metrics.SetStoresRegistered(count)
	}
	c.reportSubscriptions()
	c.logRegistration(name, existed)
}

func (c *Coordinator) logRegistration(name string, replaced bool) {
	c.auditLogger().LogEvent(AuditSource, EventStoreRegistered, audit.Properties{
		PropAppName:    name,
		PropIsReplaced: strconv.FormatBool(replaced),
	})
}

// Store returns the container registered for name.
func (c *Coordinator) Store(name string) (store.Container, bool) {
	e, ok := c.entry(name)
	if !ok {
		return nil, false
	}
	return e.container, true
}

// Modules returns the registered module names in registration order.
func (c *Coordinator) Modules() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.order)
}

func (c *Coordinator) entry(name string) (*entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[name]
	return e, ok
}

func (c *Coordinator) orderedEntries() []*entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*entry, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.entries[name])
	}
	return out
}

func validateModuleName(name string) error {
	if name == "" || name == config.WildcardAction {
		return errspkg.ErrModuleNameRequired
	}
	return nil
}

// GetPlatformState returns the platform module's state, or nil.
func (c *Coordinator) GetPlatformState() any {
	return c.GetPartnerState(c.conf.PlatformName)
}

// GetPartnerState returns a shallow copy of the module's state, or nil when
// the module is not registered.
func (c *Coordinator) GetPartnerState(name string) any {
	container, ok := c.Store(name)
	if !ok {
		return nil
	}
	return copyState(container.GetState())
}

// GetGlobalState returns a new map holding a shallow copy of every
// registered module's state.
func (c *Coordinator) GetGlobalState() map[string]any {
	entries := c.orderedEntries()
	out := make(map[string]any, len(entries))
	for _, e := range entries {
		out[e.name] = copyState(e.container.GetState())
	}
	return out
}
