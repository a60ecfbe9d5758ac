// Package strings holds the UI string table served to the revisions editor.
// The whole table and individual values can be overridden through hooks.
package strings

import (
	"fmt"
	stdstrings "strings"
	"sync"

	"github.com/newspress/revisions-backend/internal/plugin"
)

// FilterName is the hook developers register on to override the string table.
const FilterName = plugin.FilterStrings

// Registry stores the nested string table. Values are either string leaves or
// map[string]interface{} branches, addressed with dotted keys.
type Registry struct {
	hooks *plugin.HookManager

	mu      sync.RWMutex
	loaded  bool
	strings map[string]interface{}
}

// NewRegistry creates a string registry backed by the given hook manager.
func NewRegistry(hooks *plugin.HookManager) *Registry {
	return &Registry{hooks: hooks}
}

// defaults is the built-in English string table.
func defaults() map[string]interface{} {
	return map[string]interface{}{
		"admin": map[string]interface{}{
			"page_title":  "Revisions",
			"menu_title":  "Revisions",
			"post_action": "Revisions",
		},
		"editor": map[string]interface{}{
			"messages": map[string]interface{}{
				"initialising": "Initialising revisions...",
				"postNotFound": "The post you are trying to view either doesn't exist or you do not have permission to access it.",
				"noRevisions":  "There are no revisions for this post.",
				"noBlocks":     "There are no blocks to show",
				"loading":      "Loading...",
				"postLock":     "The post is currently being edited by another user, restoring revisions is disabled",
			},
			"revision": map[string]interface{}{
				"status_messages": map[string]interface{}{
					"all":          "All",
					"publish":      "Published",
					"draft":        "Draft",
					"updated":      "Updated",
					"reverted":     "Reverted",
					"future":       "Scheduled",
					"saved":        "Saved",
					"autosave":     "Autosave",
					"filter_label": "Event Status",
				},
			},
			"blocks": map[string]interface{}{
				"no_content":   "There is no content to process.",
				"no_revisions": "There are no revisions for this post.",
			},
		},
	}
}

// Load builds the string table and runs it through the override filter.
// Safe to call more than once; later calls rebuild the table.
func (r *Registry) Load() {
	table := defaults()

	if r.hooks != nil {
		out := r.hooks.Apply(FilterName, map[string]interface{}{"strings": table})
		if filtered, ok := out["strings"].(map[string]interface{}); ok {
			table = filtered
		}
	}

	r.mu.Lock()
	r.strings = table
	r.loaded = true
	r.mu.Unlock()
}

// Get resolves a dotted key ("editor.messages.loading") against the table.
// A per-key filter named "<FilterName>_<key>" runs on the result, whether the
// key resolved or fell back to defaultValue.
func (r *Registry) Get(key string, defaultValue interface{}) interface{} {
	r.ensureLoaded()

	r.mu.RLock()
	table := r.strings
	r.mu.RUnlock()

	hook := fmt.Sprintf("%s_%s", FilterName, key)

	var value interface{} = table
	for _, identifier := range stdstrings.Split(key, ".") {
		branch, ok := value.(map[string]interface{})
		if !ok {
			return r.applyValueFilter(hook, defaultValue, table)
		}
		next, exists := branch[identifier]
		if !exists {
			return r.applyValueFilter(hook, defaultValue, table)
		}
		value = next
	}

	return r.applyValueFilter(hook, value, table)
}

// GetString is Get for string leaves; non-string results yield defaultValue.
func (r *Registry) GetString(key string, defaultValue string) string {
	if s, ok := r.Get(key, defaultValue).(string); ok {
		return s
	}
	return defaultValue
}

// All returns the full string table.
func (r *Registry) All() map[string]interface{} {
	r.ensureLoaded()

	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.strings
}

func (r *Registry) ensureLoaded() {
	r.mu.RLock()
	loaded := r.loaded
	r.mu.RUnlock()

	if !loaded {
		r.Load()
	}
}

func (r *Registry) applyValueFilter(hook string, value interface{}, table map[string]interface{}) interface{} {
	if r.hooks == nil {
		return value
	}
	out := r.hooks.Apply(hook, map[string]interface{}{
		"value":   value,
		"strings": table,
	})
	return out["value"]
}
