package api

import (
	"fmt"
	"sync/atomic"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/polyglot/internal/event"
	"github.com/dshills/polyglot/internal/logging"
	luabridge "github.com/dshills/polyglot/internal/plugin/lua"
	"github.com/dshills/polyglot/internal/plugin/security"
)

// EventProvider is the host event-bus surface. *event.Bus satisfies it.
type EventProvider interface {
	// Subscribe registers a handler for topics matching pattern.
	Subscribe(pattern event.Topic, handler event.Handler) (string, error)

	// Unsubscribe removes a subscription by id.
	Unsubscribe(id string) error

	// Emit publishes an event.
	Emit(t event.Topic, source string, data map[string]any) error
}

// subCounter feeds the per-process subscription ids handed back to Lua.
var subCounter atomic.Int64

type eventSubscription struct {
	topic string
	busID string
}

// EventModule implements pg.event: on, off, once, emit. Events emitted by a
// plugin are published under plugin.<name>.<type> so other plugins can
// subscribe without colliding with host topics.
type EventModule struct {
	ctx        *Context
	pluginName string
	L          *lua.LState
	handlerTbl *lua.LTable
	subs       map[string]eventSubscription
	logger     *logging.Logger
}

// NewEventModule creates the event module for one plugin.
func NewEventModule(ctx *Context, pluginName string) *EventModule {
	return &EventModule{
		ctx:        ctx,
		pluginName: pluginName,
		subs:       make(map[string]eventSubscription),
		logger:     ctx.logger().WithComponent("api.event"),
	}
}

// Name returns "event".
func (m *EventModule) Name() string { return "event" }

// RequiredCapability returns ""; event access is ungated.
func (m *EventModule) RequiredCapability() security.Capability { return "" }

// Register installs the module under _pg_event.
func (m *EventModule) Register(L *lua.LState) error {
	m.L = L
	m.handlerTbl = L.NewTable()
	L.SetGlobal(m.handlerKey(), m.handlerTbl)

	tbl := L.NewTable()
	L.SetField(tbl, "on", L.NewFunction(m.on))
	L.SetField(tbl, "off", L.NewFunction(m.off))
	L.SetField(tbl, "once", L.NewFunction(m.once))
	L.SetField(tbl, "emit", L.NewFunction(m.emit))
	L.SetGlobal("_pg_event", tbl)
	return nil
}

func (m *EventModule) handlerKey() string {
	return "_pg_event_handlers_" + m.pluginName
}

func (m *EventModule) source() string {
	return "plugin:" + m.pluginName
}

func (m *EventModule) nextSubID() string {
	return fmt.Sprintf("%s_%d", m.pluginName, subCounter.Add(1))
}

// on(topic, handler) subscribes to bus events. Returns a subscription id
// for off().
func (m *EventModule) on(L *lua.LState) int {
	return m.subscribe(L, false)
}

// once(topic, handler) subscribes for a single delivery.
func (m *EventModule) once(L *lua.LState) int {
	return m.subscribe(L, true)
}

func (m *EventModule) subscribe(L *lua.LState, once bool) int {
	topic := L.CheckString(1)
	fn := L.CheckFunction(2)

	if m.ctx == nil || m.ctx.Events == nil {
		L.RaiseError("event provider not available")
		return 0
	}

	subID := m.nextSubID()
	m.handlerTbl.RawSetString(subID, fn)

	busID, err := m.ctx.Events.Subscribe(event.Topic(topic), m.dispatch(subID, once))
	if err != nil {
		m.handlerTbl.RawSetString(subID, lua.LNil)
		L.RaiseError("subscribe %s: %s", topic, err.Error())
		return 0
	}
	m.subs[subID] = eventSubscription{topic: topic, busID: busID}

	L.Push(lua.LString(subID))
	return 1
}

// dispatch bridges a bus event into the plugin's pinned Lua handler. The
// handler is looked up at delivery time so off() takes effect immediately;
// once-subscriptions remove themselves before the handler runs.
func (m *EventModule) dispatch(subID string, once bool) event.Handler {
	return func(ev event.Event) {
		if m.L == nil || m.handlerTbl == nil {
			return
		}
		fn, ok := m.handlerTbl.RawGetString(subID).(*lua.LFunction)
		if !ok {
			return
		}
		if once {
			m.removeSub(subID)
		}
		m.L.Push(fn)
		m.L.Push(m.eventTable(ev))
		if err := m.L.PCall(1, 0, nil); err != nil {
			m.logger.Warn("plugin %s event handler %s: %v", m.pluginName, subID, err)
		}
	}
}

func (m *EventModule) eventTable(ev event.Event) *lua.LTable {
	tbl := m.L.NewTable()
	m.L.SetField(tbl, "topic", lua.LString(ev.Topic.String()))
	m.L.SetField(tbl, "source", lua.LString(ev.Source))
	if ev.Data != nil {
		m.L.SetField(tbl, "data", luabridge.MapToTable(m.L, ev.Data))
	} else {
		m.L.SetField(tbl, "data", m.L.NewTable())
	}
	return tbl
}

// off(sub_id) cancels a subscription. Pushes false for unknown ids.
func (m *EventModule) off(L *lua.LState) int {
	subID := L.CheckString(1)
	L.Push(lua.LBool(m.removeSub(subID)))
	return 1
}

func (m *EventModule) removeSub(subID string) bool {
	sub, ok := m.subs[subID]
	if !ok {
		return false
	}
	delete(m.subs, subID)
	if m.handlerTbl != nil {
		m.handlerTbl.RawSetString(subID, lua.LNil)
	}
	if m.ctx != nil && m.ctx.Events != nil {
		if err := m.ctx.Events.Unsubscribe(sub.busID); err != nil {
			m.logger.Debug("unsubscribe %s: %v", subID, err)
		}
	}
	return true
}

// emit(type, data?) publishes plugin.<name>.<type> on the bus.
func (m *EventModule) emit(L *lua.LState) int {
	eventType := L.CheckString(1)

	if m.ctx == nil || m.ctx.Events == nil {
		L.RaiseError("event provider not available")
		return 0
	}
	var data map[string]any
	if tbl := L.OptTable(2, nil); tbl != nil {
		data = luabridge.ToGoMap(tbl)
	}

	topic := event.Topic("plugin." + m.pluginName + "." + eventType)
	if err := m.ctx.Events.Emit(topic, m.source(), data); err != nil {
		L.Push(lua.LFalse)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LTrue)
	return 1
}

// Cleanup cancels the plugin's subscriptions and drops the pinned handlers.
func (m *EventModule) Cleanup() {
	for subID := range m.subs {
		m.removeSub(subID)
	}
	if m.L != nil && m.handlerTbl != nil {
		m.L.SetGlobal(m.handlerKey(), lua.LNil)
	}
	m.handlerTbl = nil
	m.L = nil
}
