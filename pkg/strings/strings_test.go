package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/newspress/revisions-backend/internal/plugin"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

func TestGetDottedKey(t *testing.T) {
	r := NewRegistry(plugin.NewHookManager(nopLogger{}))

	assert.Equal(t, "Revisions", r.GetString("admin.page_title", ""))
	assert.Equal(t, "Loading...", r.GetString("editor.messages.loading", ""))
	assert.Equal(t, "Scheduled", r.GetString("editor.revision.status_messages.future", ""))
}

func TestGetMissingKeyReturnsDefault(t *testing.T) {
	r := NewRegistry(plugin.NewHookManager(nopLogger{}))

	assert.Equal(t, "fallback", r.GetString("admin.unknown_key", "fallback"))
	assert.Equal(t, "fallback", r.GetString("editor.messages.loading.too_deep", "fallback"))
}

func TestGetBranchReturnsMap(t *testing.T) {
	r := NewRegistry(plugin.NewHookManager(nopLogger{}))

	branch, ok := r.Get("editor.messages", nil).(map[string]interface{})
	assert.True(t, ok)
	assert.Contains(t, branch, "postLock")
}

func TestTableFilterOverride(t *testing.T) {
	hooks := plugin.NewHookManager(nopLogger{})
	hooks.RegisterFilter(FilterName, "test", func(ctx *plugin.HookContext) error {
		table := ctx.Input["strings"].(map[string]interface{})
		admin := table["admin"].(map[string]interface{})
		admin["page_title"] = "History"
		ctx.SetOutput(map[string]interface{}{"strings": table})
		return nil
	}, 10)

	r := NewRegistry(hooks)

	assert.Equal(t, "History", r.GetString("admin.page_title", ""))
}

func TestPerKeyFilterOverride(t *testing.T) {
	hooks := plugin.NewHookManager(nopLogger{})
	hooks.RegisterFilter(FilterName+"_editor.messages.loading", "test", func(ctx *plugin.HookContext) error {
		ctx.SetOutput(map[string]interface{}{
			"value":   "Please wait",
			"strings": ctx.Input["strings"],
		})
		return nil
	}, 10)

	r := NewRegistry(hooks)

	assert.Equal(t, "Please wait", r.GetString("editor.messages.loading", ""))
	// Other keys are untouched
	assert.Equal(t, "All", r.GetString("editor.revision.status_messages.all", ""))
}

func TestAllReturnsFullTable(t *testing.T) {
	r := NewRegistry(plugin.NewHookManager(nopLogger{}))

	all := r.All()
	assert.Contains(t, all, "admin")
	assert.Contains(t, all, "editor")
}
