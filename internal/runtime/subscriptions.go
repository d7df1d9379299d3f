package runtime

import (
	"sync"

	errspkg "github.com/drblury/fedstore/internal/runtime/errors"
	idspkg "github.com/drblury/fedstore/internal/runtime/ids"
	"github.com/drblury/fedstore/internal/runtime/store"
)

// Subscription scopes reported by the subscriptions gauge.
const (
	ScopeModule = "module"
	ScopeGlobal = "global"
)

// Listener receives a shallow copy of a module's state after each change.
type Listener func(state any)

// GlobalListener receives the merged state of every module after any
// module's state changed.
type GlobalListener func(state map[string]any)

// Unsubscribe removes exactly one subscription. Calling it more than once
// is a no-op.
type Unsubscribe func()

// moduleSubscription is bound by module name, not by container: a record
// without unbind is waiting for its module to register, and replacing a
// module's store moves every record to the new container.
type moduleSubscription struct {
	id       string
	module   string
	listener Listener

	active bool
	gen    uint64
	unbind func()
}

type globalSubscription struct {
	id       string
	listener GlobalListener
}

type subscriptionRegistry struct {
	mu       sync.Mutex
	byModule map[string][]*moduleSubscription
	global   []*globalSubscription
}

func newSubscriptionRegistry() *subscriptionRegistry {
	return &subscriptionRegistry{byModule: make(map[string][]*moduleSubscription)}
}

// Subscribe listens to module name's state. It fails with a
// *errors.SubscriptionError when the module is not registered.
func (c *Coordinator) Subscribe(name string, listener Listener) (Unsubscribe, error) {
	return c.subscribe("", name, listener, false)
}

// SubscribeToPlatformState listens to the platform module's state. It fails
// when the platform module is not registered yet.
func (c *Coordinator) SubscribeToPlatformState(listener Listener) (Unsubscribe, error) {
	return c.subscribe("", c.conf.PlatformName, listener, false)
}

// SubscribeToPartnerState lets module source listen to module partner. With
// eager set, subscribing to a partner that has not registered yet succeeds
// and the listener starts receiving changes once the partner registers.
func (c *Coordinator) SubscribeToPartnerState(source, partner string, listener Listener, eager bool) (Unsubscribe, error) {
	return c.subscribe(source, partner, listener, eager)
}

func (c *Coordinator) subscribe(source, name string, listener Listener, eager bool) (Unsubscribe, error) {
	if _, ok := c.Store(name); !ok && !eager {
		return nil, errspkg.NewSubscriptionError(source, name)
	}
	if listener == nil {
		return func() {}, nil
	}

	sub := &moduleSubscription{id: idspkg.New(), module: name, listener: listener, active: true}
	c.subs.add(sub)
	// Looked up again after add so a registration racing with this call
	// binds the record either here or in register.
	if container, ok := c.Store(name); ok {
		c.subs.bind(sub, container)
	}
	c.reportSubscriptions()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.subs.remove(sub)
			c.reportSubscriptions()
		})
	}, nil
}

// SubscribeToGlobalState listens to the merged state of every module.
func (c *Coordinator) SubscribeToGlobalState(listener GlobalListener) Unsubscribe {
	if listener == nil {
		return func() {}
	}
	sub := &globalSubscription{id: idspkg.New(), listener: listener}
	c.subs.addGlobal(sub)
	c.reportSubscriptions()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.subs.removeGlobal(sub)
			c.reportSubscriptions()
		})
	}
}

// PendingSubscriptions returns the number of eager subscriptions still
// waiting for their module, keyed by module name.
func (c *Coordinator) PendingSubscriptions() map[string]int {
	return c.subs.pending()
}

func (c *Coordinator) notifyGlobal() {
	for _, sub := range c.subs.globalSnapshot() {
		sub.listener(c.GetGlobalState())
	}
}

func (c *Coordinator) reportSubscriptions() {
	if c.metrics == nil {
		return
	}
	modules, global := c.subs.counts()
	c.metrics.SetSubscriptions(ScopeModule, modules)
	c.metrics.SetSubscriptions(ScopeGlobal, global)
}

func (r *subscriptionRegistry) add(sub *moduleSubscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byModule[sub.module] = append(r.byModule[sub.module], sub)
}

// bind attaches sub to container, detaching it from any previous container.
// Container.Subscribe is called without holding the registry lock.
func (r *subscriptionRegistry) bind(sub *moduleSubscription, container store.Container) {
	r.mu.Lock()
	if !sub.active {
		r.mu.Unlock()
		return
	}
	sub.gen++
	gen := sub.gen
	previous := sub.unbind
	sub.unbind = nil
	r.mu.Unlock()

	if previous != nil {
		previous()
	}
	unbind := container.Subscribe(func() {
		sub.listener(copyState(container.GetState()))
	})

	r.mu.Lock()
	if sub.active && sub.gen == gen {
		sub.unbind, unbind = unbind, nil
	}
	r.mu.Unlock()

	if unbind != nil {
		unbind()
	}
}

func (r *subscriptionRegistry) bindModule(name string, container store.Container) {
	r.mu.Lock()
	subs := append([]*moduleSubscription(nil), r.byModule[name]...)
	r.mu.Unlock()

	for _, sub := range subs {
		r.bind(sub, container)
	}
}

func (r *subscriptionRegistry) remove(sub *moduleSubscription) {
	r.mu.Lock()
	sub.active = false
	unbind := sub.unbind
	sub.unbind = nil
	list := r.byModule[sub.module]
	for i, s := range list {
		if s == sub {
			r.byModule[sub.module] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(r.byModule[sub.module]) == 0 {
		delete(r.byModule, sub.module)
	}
	r.mu.Unlock()

	if unbind != nil {
		unbind()
	}
}

func (r *subscriptionRegistry) addGlobal(sub *globalSubscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.global = append(r.global, sub)
}

func (r *subscriptionRegistry) removeGlobal(sub *globalSubscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, s := range r.global {
		if s == sub {
			r.global = append(r.global[:i:i], r.global[i+1:]...)
			return
		}
	}
}

func (r *subscriptionRegistry) globalSnapshot() []*globalSubscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*globalSubscription(nil), r.global...)
}

func (r *subscriptionRegistry) pending() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int)
	for name, subs := range r.byModule {
		for _, sub := range subs {
			if sub.active && sub.unbind == nil {
				out[name]++
			}
		}
	}
	return out
}

func (r *subscriptionRegistry) counts() (modules, global int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, subs := range r.byModule {
		modules += len(subs)
	}
	return modules, len(r.global)
}
