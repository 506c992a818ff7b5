package api

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/polyglot/internal/logging"
	"github.com/dshills/polyglot/internal/plugin/security"
)

// NotificationLevel classifies a notification for display.
type NotificationLevel string

// Notification levels.
const (
	NotificationInfo    NotificationLevel = "info"
	NotificationWarning NotificationLevel = "warning"
	NotificationError   NotificationLevel = "error"
	NotificationSuccess NotificationLevel = "success"
)

// UIProvider is the host surface for user-facing messages.
type UIProvider interface {
	// Notify shows a transient notification.
	Notify(message string, level NotificationLevel) error

	// SetStatus writes the status-bar message.
	SetStatus(message string) error
}

// UIModule implements pg.ui: notify, status. When no UI provider is wired
// (headless runs), calls succeed silently.
type UIModule struct {
	ctx        *Context
	pluginName string
	logger     *logging.Logger
}

// NewUIModule creates the ui module for one plugin.
func NewUIModule(ctx *Context, pluginName string) *UIModule {
	return &UIModule{
		ctx:        ctx,
		pluginName: pluginName,
		logger:     ctx.logger().WithComponent("api.ui"),
	}
}

// Name returns "ui".
func (m *UIModule) Name() string { return "ui" }

// RequiredCapability returns the ui capability.
func (m *UIModule) RequiredCapability() security.Capability {
	return security.CapabilityUI
}

// Register installs the module under _pg_ui.
func (m *UIModule) Register(L *lua.LState) error {
	tbl := L.NewTable()
	L.SetField(tbl, "notify", L.NewFunction(m.notify))
	L.SetField(tbl, "status", L.NewFunction(m.status))
	L.SetGlobal("_pg_ui", tbl)
	return nil
}

// notify(message [, level]) shows a notification. Unknown levels fall back
// to info.
func (m *UIModule) notify(L *lua.LState) int {
	message := L.CheckString(1)
	level := NotificationLevel(L.OptString(2, string(NotificationInfo)))

	switch level {
	case NotificationInfo, NotificationWarning, NotificationError, NotificationSuccess:
	default:
		level = NotificationInfo
	}

	if m.ctx == nil || m.ctx.UI == nil {
		m.logger.Info("[%s] %s: %s", m.pluginName, level, message)
		return 0
	}
	if err := m.ctx.UI.Notify(message, level); err != nil {
		m.logger.Debug("notify: %v", err)
	}
	return 0
}

// status(message) writes the status bar.
func (m *UIModule) status(L *lua.LState) int {
	message := L.CheckString(1)

	if m.ctx == nil || m.ctx.UI == nil {
		m.logger.Debug("ui provider not available")
		return 0
	}
	if err := m.ctx.UI.SetStatus(message); err != nil {
		m.logger.Debug("status: %v", err)
	}
	return 0
}

// Cleanup is a no-op.
func (m *UIModule) Cleanup() {}
