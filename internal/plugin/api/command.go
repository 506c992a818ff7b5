package api

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/polyglot/internal/command"
	"github.com/dshills/polyglot/internal/logging"
	luabridge "github.com/dshills/polyglot/internal/plugin/lua"
	"github.com/dshills/polyglot/internal/plugin/security"
)

// CommandProvider is the host command-registry surface the module forwards
// to. *command.Registry satisfies it.
type CommandProvider interface {
	// Register adds a command.
	Register(cmd *command.Command) error

	// Unregister removes a command by id.
	Unregister(id string) bool

	// UnregisterBySource removes all commands from a source.
	UnregisterBySource(source string) int

	// Has reports whether a command id exists.
	Has(id string) bool

	// All returns every registered command.
	All() []*command.Command

	// Execute runs a command with arguments.
	Execute(id string, args map[string]any) error
}

// CommandModule implements pg.command: register, unregister, execute, list.
type CommandModule struct {
	ctx        *Context
	pluginName string
	L          *lua.LState
	handlerTbl *lua.LTable
	registered []string
	logger     *logging.Logger
}

// NewCommandModule creates the command module for one plugin.
func NewCommandModule(ctx *Context, pluginName string) *CommandModule {
	return &CommandModule{
		ctx:        ctx,
		pluginName: pluginName,
		logger:     ctx.logger().WithComponent("api.command"),
	}
}

// Name returns "command".
func (m *CommandModule) Name() string { return "command" }

// RequiredCapability returns the commands capability.
func (m *CommandModule) RequiredCapability() security.Capability {
	return security.CapabilityCommands
}

// Register installs the module under _pg_command. Handlers are pinned in a
// global table so the Lua GC cannot collect them while the command registry
// still references them.
func (m *CommandModule) Register(L *lua.LState) error {
	m.L = L
	m.handlerTbl = L.NewTable()
	L.SetGlobal(m.handlerKey(), m.handlerTbl)

	tbl := L.NewTable()
	L.SetField(tbl, "register", L.NewFunction(m.register))
	L.SetField(tbl, "unregister", L.NewFunction(m.unregister))
	L.SetField(tbl, "execute", L.NewFunction(m.execute))
	L.SetField(tbl, "list", L.NewFunction(m.list))
	L.SetGlobal("_pg_command", tbl)
	return nil
}

func (m *CommandModule) handlerKey() string {
	return "_pg_command_handlers_" + m.pluginName
}

func (m *CommandModule) source() string {
	return "plugin:" + m.pluginName
}

// register(id, title, handler, opts?) registers a command whose handler is
// the given Lua function. opts may carry description, category and
// keybinding.
func (m *CommandModule) register(L *lua.LState) int {
	id := L.CheckString(1)
	title := L.CheckString(2)
	fn := L.CheckFunction(3)

	if m.ctx == nil || m.ctx.Commands == nil {
		L.RaiseError("command provider not available")
		return 0
	}

	cmd := &command.Command{
		ID:      id,
		Title:   title,
		Source:  m.source(),
		Handler: m.goHandler(id),
	}
	if opts := L.OptTable(4, nil); opts != nil {
		cmd.Description = tableString(L, opts, "description")
		cmd.Category = tableString(L, opts, "category")
		cmd.Keybinding = tableString(L, opts, "keybinding")
	}

	if err := m.ctx.Commands.Register(cmd); err != nil {
		L.RaiseError("register command %s: %s", id, err.Error())
		return 0
	}
	// Pin only after the registry accepted the command, so a failed
	// duplicate cannot clobber the original's handler.
	m.handlerTbl.RawSetString(id, fn)
	m.registered = append(m.registered, id)
	return 0
}

// goHandler bridges a command invocation back into the plugin's pinned Lua
// handler. The nil checks matter: a command can outlive its plugin when
// cleanup is interrupted, and the bridge must fail instead of touching a
// closed state.
func (m *CommandModule) goHandler(id string) command.Handler {
	return func(args map[string]any) error {
		if m.L == nil || m.handlerTbl == nil {
			return fmt.Errorf("command %s: plugin %s is unloaded", id, m.pluginName)
		}
		fn, ok := m.handlerTbl.RawGetString(id).(*lua.LFunction)
		if !ok {
			return fmt.Errorf("command %s: handler missing", id)
		}
		m.L.Push(fn)
		m.L.Push(luabridge.MapToTable(m.L, args))
		if err := m.L.PCall(1, 0, nil); err != nil {
			return fmt.Errorf("command %s: %w", id, err)
		}
		return nil
	}
}

// unregister(id) removes a command previously registered by this plugin.
// Pushes false for unknown or foreign commands.
func (m *CommandModule) unregister(L *lua.LState) int {
	id := L.CheckString(1)

	if m.ctx == nil || m.ctx.Commands == nil {
		L.Push(lua.LFalse)
		return 1
	}
	idx := -1
	for i, own := range m.registered {
		if own == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		L.Push(lua.LFalse)
		return 1
	}

	m.ctx.Commands.Unregister(id)
	m.registered = append(m.registered[:idx], m.registered[idx+1:]...)
	if m.handlerTbl != nil {
		m.handlerTbl.RawSetString(id, lua.LNil)
	}
	L.Push(lua.LTrue)
	return 1
}

// execute(id, args?) runs any registered command. An unknown id pushes nil
// plus an error string rather than raising.
func (m *CommandModule) execute(L *lua.LState) int {
	id := L.CheckString(1)

	if m.ctx == nil || m.ctx.Commands == nil {
		L.Push(lua.LNil)
		L.Push(lua.LString("command provider not available"))
		return 2
	}
	if !m.ctx.Commands.Has(id) {
		L.Push(lua.LNil)
		L.Push(lua.LString("unknown command: " + id))
		return 2
	}

	var args map[string]any
	if tbl := L.OptTable(2, nil); tbl != nil {
		args = luabridge.ToGoMap(tbl)
	}
	if err := m.ctx.Commands.Execute(id, args); err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LTrue)
	return 1
}

// list(source?) returns the registered commands, optionally filtered by
// source.
func (m *CommandModule) list(L *lua.LState) int {
	filter := L.OptString(1, "")

	tbl := L.NewTable()
	if m.ctx == nil || m.ctx.Commands == nil {
		m.logger.Debug("command provider not available")
		L.Push(tbl)
		return 1
	}
	for _, cmd := range m.ctx.Commands.All() {
		if filter != "" && cmd.Source != filter {
			continue
		}
		entry := L.NewTable()
		L.SetField(entry, "id", lua.LString(cmd.ID))
		L.SetField(entry, "title", lua.LString(cmd.Title))
		L.SetField(entry, "description", lua.LString(cmd.Description))
		L.SetField(entry, "category", lua.LString(cmd.Category))
		L.SetField(entry, "source", lua.LString(cmd.Source))
		tbl.Append(entry)
	}
	L.Push(tbl)
	return 1
}

// Cleanup removes the plugin's commands and drops the pinned handlers.
func (m *CommandModule) Cleanup() {
	if m.ctx != nil && m.ctx.Commands != nil {
		if n := m.ctx.Commands.UnregisterBySource(m.source()); n > 0 {
			m.logger.Debug("removed %d commands for plugin %s", n, m.pluginName)
		}
	}
	if m.L != nil && m.handlerTbl != nil {
		m.L.SetGlobal(m.handlerKey(), lua.LNil)
	}
	m.handlerTbl = nil
	m.L = nil
	m.registered = nil
}
