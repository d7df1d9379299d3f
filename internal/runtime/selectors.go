package runtime

import (
	"fmt"

	loggingpkg "github.com/drblury/fedstore/internal/runtime/logging"
)

// Selector derives a value from a module's state.
type Selector func(state any) any

// AddSelectors publishes named selectors over module source's state so other
// modules can read it through SelectPartnerState. With merge unset the new
// set replaces the module's previous selectors.
func (c *Coordinator) AddSelectors(source string, selectors map[string]Selector, merge bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	set := c.selectors[source]
	if !merge || set == nil {
		set = make(map[string]Selector, len(selectors))
	}
	for name, sel := range selectors {
		if sel != nil {
			set[name] = sel
		}
	}
	c.selectors[source] = set
}

// SelectPartnerState runs selector name of module partner against the
// partner's current state. defaultValue is returned when the partner is not
// registered, has no such selector, or the selector panics.
func (c *Coordinator) SelectPartnerState(partner, selector string, defaultValue any) (out any) {
	c.mu.RLock()
	sel := c.selectors[partner][selector]
	c.mu.RUnlock()
	if sel == nil {
		return defaultValue
	}

	container, ok := c.Store(partner)
	if !ok {
		return defaultValue
	}

	defer func() {
		if r := recover(); r != nil {
			c.log.Error("Selector panicked", fmt.Errorf("%v", r), loggingpkg.LogFields{
				"module":   partner,
				"selector": selector,
			})
			out = defaultValue
		}
	}()
	return sel(copyState(container.GetState()))
}
