package runtime

import (
	"slices"

	"github.com/drblury/fedstore/internal/runtime/config"
)

// RegisterGlobalActions adds action types module name accepts from any
// dispatch source. Types already present are skipped and nothing is ever
// removed. Use "*" to accept every type.
func (c *Coordinator) RegisterGlobalActions(name string, actionTypes []string) {
	if len(actionTypes) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	accepted := c.globalActions[name]
	for _, t := range actionTypes {
		if t == "" || slices.Contains(accepted, t) {
			continue
		}
		accepted = append(accepted, t)
	}
	c.globalActions[name] = accepted
}

// IsActionRegisteredAsGlobal reports whether module name accepts actionType
// globally, either verbatim or through the wildcard.
func (c *Coordinator) IsActionRegisteredAsGlobal(name, actionType string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, t := range c.globalActions[name] {
		if t == actionType || t == config.WildcardAction {
			return true
		}
	}
	return false
}

// GlobalActions returns a copy of the action types module name accepts globally.
func (c *Coordinator) GlobalActions(name string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.globalActions[name])
}
