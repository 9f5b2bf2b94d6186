package adapter

import (
	"reflect"
	"testing"
)

func TestEmitterOrder(t *testing.T) {
	var (
		e   Emitter
		got []string
	)

	e.On(EventReady, func(Event) { got = append(got, "first") })
	e.OnAny(func(ev Event) { got = append(got, "any:"+string(ev.Name)) })
	off := e.On(EventReady, func(Event) { got = append(got, "third") })
	e.On(EventConnected, func(Event) { got = append(got, "connected") })

	if n := e.Emit(Event{Name: EventReady}); n != 3 {
		t.Errorf("expected 3 listeners called, got %d", n)
	}

	if want := []string{"first", "any:ready", "third"}; !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v got %v", want, got)
	}

	off()
	off() // unregistering twice is harmless

	got = nil
	e.Emit(Event{Name: EventReady})

	if want := []string{"first", "any:ready"}; !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v got %v", want, got)
	}

	if e.Count(EventReady) != 2 || e.Count(EventConnected) != 2 || e.Count(EventErrored) != 1 {
		t.Errorf("unexpected counts ready:%d connected:%d errored:%d", e.Count(EventReady),
			e.Count(EventConnected), e.Count(EventErrored))
	}

	if n := e.Emit(Event{Name: EventDisconnected}); n != 1 {
		t.Errorf("expected only the catch all listener, got %d", n)
	}
}

func TestEmitterRegisterDuringEmit(t *testing.T) {
	var (
		e     Emitter
		calls int
	)

	e.On(EventErrored, func(Event) {
		e.On(EventErrored, func(Event) { calls++ })
	})

	e.Emit(Event{Name: EventErrored})

	if calls != 0 {
		t.Errorf("a listener registered while emitting must not get the current event")
	}

	e.Emit(Event{Name: EventErrored})

	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestEmittersAreIndependent(t *testing.T) {
	a1, _ := New(Config{})
	a2, _ := New(Config{})

	var n int

	a1.On(EventReady, func(Event) { n++ })
	a2.events.Emit(Event{Name: EventReady})

	if n != 0 {
		t.Errorf("listeners of one adapter received the events of another")
	}
}
