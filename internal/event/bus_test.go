package event

import (
	"errors"
	"testing"
)

func TestBus_SubscribeAndEmit(t *testing.T) {
	bus := NewBus()

	var got []Event
	id, err := bus.Subscribe("tab.*", func(ev Event) {
		got = append(got, ev)
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if id == "" {
		t.Fatal("Subscribe() returned empty id")
	}

	if err := bus.Emit("tab.opened", "workbench", map[string]any{"title": "de.po"}); err != nil {
		t.Fatalf("Emit() error = %v", err)
	}
	if err := bus.Emit("theme.changed", "theme", nil); err != nil {
		t.Fatalf("Emit() error = %v", err)
	}

	if len(got) != 1 {
		t.Fatalf("handler called %d times, expected 1", len(got))
	}
	if got[0].Topic != "tab.opened" {
		t.Errorf("event topic = %q, expected %q", got[0].Topic, "tab.opened")
	}
	if got[0].Source != "workbench" {
		t.Errorf("event source = %q, expected %q", got[0].Source, "workbench")
	}
	if got[0].Data["title"] != "de.po" {
		t.Errorf("event data title = %v, expected %q", got[0].Data["title"], "de.po")
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()

	calls := 0
	id, err := bus.Subscribe("explorer.refreshed", func(Event) { calls++ })
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	if err := bus.Unsubscribe(id); err != nil {
		t.Fatalf("Unsubscribe() error = %v", err)
	}
	if err := bus.Unsubscribe(id); !errors.Is(err, ErrSubscriptionNotFound) {
		t.Errorf("second Unsubscribe() error = %v, expected ErrSubscriptionNotFound", err)
	}

	_ = bus.Emit("explorer.refreshed", "test", nil)
	if calls != 0 {
		t.Errorf("handler called %d times after unsubscribe, expected 0", calls)
	}
}

func TestBus_EmitOrderFollowsSubscriptionOrder(t *testing.T) {
	bus := NewBus()

	var order []int
	for i := 0; i < 5; i++ {
		n := i
		if _, err := bus.Subscribe("search.**", func(Event) { order = append(order, n) }); err != nil {
			t.Fatalf("Subscribe() error = %v", err)
		}
	}

	_ = bus.Emit("search.started", "test", nil)

	if len(order) != 5 {
		t.Fatalf("dispatched to %d handlers, expected 5", len(order))
	}
	for i, n := range order {
		if n != i {
			t.Fatalf("dispatch order = %v, expected ascending subscription order", order)
		}
	}
}

func TestBus_HandlerPanicIsRecovered(t *testing.T) {
	bus := NewBus()

	if _, err := bus.Subscribe("plugin.**", func(Event) { panic("boom") }); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	after := 0
	if _, err := bus.Subscribe("plugin.**", func(Event) { after++ }); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	if err := bus.Emit("plugin.loaded", "test", nil); err != nil {
		t.Fatalf("Emit() error = %v", err)
	}

	if after != 1 {
		t.Errorf("handler after panicking handler called %d times, expected 1", after)
	}
	if bus.Stats().Panics != 1 {
		t.Errorf("Stats().Panics = %d, expected 1", bus.Stats().Panics)
	}
}

func TestBus_UnsubscribeFromWithinHandler(t *testing.T) {
	bus := NewBus()

	var id string
	calls := 0
	id, err := bus.Subscribe("config.changed", func(Event) {
		calls++
		_ = bus.Unsubscribe(id)
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	_ = bus.Emit("config.changed", "test", nil)
	_ = bus.Emit("config.changed", "test", nil)

	if calls != 1 {
		t.Errorf("handler called %d times, expected 1 (self-unsubscribed)", calls)
	}
}

func TestBus_EmitRejectsInvalidTopic(t *testing.T) {
	bus := NewBus()

	if err := bus.Emit("", "test", nil); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Emit(\"\") error = %v, expected ErrInvalidTopic", err)
	}
	if err := bus.Emit("tab.*", "test", nil); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Emit with wildcard error = %v, expected ErrInvalidTopic", err)
	}
}

func TestBus_SubscribeValidation(t *testing.T) {
	bus := NewBus()

	if _, err := bus.Subscribe("tab.opened", nil); !errors.Is(err, ErrNilHandler) {
		t.Errorf("Subscribe(nil handler) error = %v, expected ErrNilHandler", err)
	}
	if _, err := bus.Subscribe("", func(Event) {}); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Subscribe(empty pattern) error = %v, expected ErrInvalidTopic", err)
	}
}

func TestBus_Stats(t *testing.T) {
	bus := NewBus()

	if _, err := bus.Subscribe("tab.*", func(Event) {}); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	_ = bus.Emit("tab.opened", "test", nil)
	_ = bus.Emit("tab.closed", "test", nil)

	stats := bus.Stats()
	if stats.Subscriptions != 1 {
		t.Errorf("Stats().Subscriptions = %d, expected 1", stats.Subscriptions)
	}
	if stats.Published != 2 {
		t.Errorf("Stats().Published = %d, expected 2", stats.Published)
	}
	if stats.Delivered != 2 {
		t.Errorf("Stats().Delivered = %d, expected 2", stats.Delivered)
	}
}
