package plugin

import (
	"sort"
	"sync"
)

// HookType distinguishes Actions (no return value) from Filters (data
// transformation, chained).
type HookType int

const (
	HookTypeAction HookType = iota
	HookTypeFilter
)

// HookContext is passed to every hook handler.
type HookContext struct {
	Event  string
	Input  map[string]interface{}
	output map[string]interface{}
}

// SetOutput sets the transformed data (filter hooks only).
func (c *HookContext) SetOutput(data map[string]interface{}) {
	c.output = data
}

// GetOutput returns the transformed data, or the input when the handler set
// nothing.
func (c *HookContext) GetOutput() map[string]interface{} {
	if c.output != nil {
		return c.output
	}
	return c.Input
}

// HookHandler is a hook handler function.
type HookHandler func(ctx *HookContext) error

type hookEntry struct {
	listenerName string
	handler      HookHandler
	priority     int
	hookType     HookType
}

// HookManager registers and runs hooks. Thread-safe; handlers run
// synchronously in priority order within the calling request.
type HookManager struct {
	hooks  map[string][]hookEntry
	mu     sync.RWMutex
	logger Logger
}

// NewHookManager creates a new HookManager.
func NewHookManager(logger Logger) *HookManager {
	return &HookManager{
		hooks:  make(map[string][]hookEntry),
		logger: logger,
	}
}

// Register registers an action hook.
func (hm *HookManager) Register(event string, listenerName string, handler HookHandler, priority int) {
	hm.mu.Lock()
	defer hm.mu.Unlock()

	hm.hooks[event] = append(hm.hooks[event], hookEntry{
		listenerName: listenerName,
		handler:      handler,
		priority:     priority,
		hookType:     HookTypeAction,
	})
	hm.sortHooks(event)
}

// RegisterFilter registers a filter hook.
func (hm *HookManager) RegisterFilter(event string, listenerName string, handler HookHandler, priority int) {
	hm.mu.Lock()
	defer hm.mu.Unlock()

	hm.hooks[event] = append(hm.hooks[event], hookEntry{
		listenerName: listenerName,
		handler:      handler,
		priority:     priority,
		hookType:     HookTypeFilter,
	})
	hm.sortHooks(event)
}

// Do runs an action hook. Handler errors are logged, never propagated.
func (hm *HookManager) Do(event string, data map[string]interface{}) {
	hm.mu.RLock()
	entries := make([]hookEntry, len(hm.hooks[event]))
	copy(entries, hm.hooks[event])
	hm.mu.RUnlock()

	for _, entry := range entries {
		ctx := &HookContext{
			Event: event,
			Input: data,
		}
		if err := entry.handler(ctx); err != nil {
			hm.logger.Error("Hook error [%s] listener=%s: %v", event, entry.listenerName, err)
		}
	}
}

// Apply runs a filter hook chain and returns the final data.
func (hm *HookManager) Apply(event string, data map[string]interface{}) map[string]interface{} {
	hm.mu.RLock()
	entries := make([]hookEntry, len(hm.hooks[event]))
	copy(entries, hm.hooks[event])
	hm.mu.RUnlock()

	current := data
	for _, entry := range entries {
		ctx := &HookContext{
			Event: event,
			Input: current,
		}
		if err := entry.handler(ctx); err != nil {
			hm.logger.Error("Filter error [%s] listener=%s: %v", event, entry.listenerName, err)
			continue
		}
		current = ctx.GetOutput()
	}
	return current
}

// Unregister removes every hook a listener registered.
func (hm *HookManager) Unregister(listenerName string) {
	hm.mu.Lock()
	defer hm.mu.Unlock()

	for event, entries := range hm.hooks {
		filtered := entries[:0]
		for _, e := range entries {
			if e.listenerName != listenerName {
				filtered = append(filtered, e)
			}
		}
		hm.hooks[event] = filtered
	}
}

// sortHooks sorts ascending by priority (lower priority runs first).
// Caller must hold the lock.
func (hm *HookManager) sortHooks(event string) {
	sort.SliceStable(hm.hooks[event], func(i, j int) bool {
		return hm.hooks[event][i].priority < hm.hooks[event][j].priority
	})
}
