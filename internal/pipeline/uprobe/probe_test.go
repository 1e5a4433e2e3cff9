package uprobe

import (
	"errors"
	"testing"
)

func TestThrowStopsAtFirstHandled(t *testing.T) {
	p := NewProbe(nil)
	var calls []string

	p.Register(NewHandlerFunc("first", func(e Event) Result {
		calls = append(calls, "first")
		return Unhandled()
	}))
	p.Register(NewHandlerFunc("second", func(e Event) Result {
		calls = append(calls, "second")
		return Handled()
	}))
	p.Register(NewHandlerFunc("third", func(e Event) Result {
		calls = append(calls, "third")
		return Handled()
	}))

	res := p.Throw(Event{Kind: KindReady})
	if res.Status != StatusHandled {
		t.Fatalf("expected Handled, got %v", res.Status)
	}
	if len(calls) != 2 || calls[0] != "first" || calls[1] != "second" {
		t.Fatalf("expected exactly [first second] to run, got %v", calls)
	}
}

func TestThrowStopsAtFirstError(t *testing.T) {
	p := NewProbe(nil)
	var calls []string
	wantErr := errors.New("boom")

	p.Register(NewHandlerFunc("a", func(e Event) Result {
		calls = append(calls, "a")
		return ErrorResult(wantErr)
	}))
	p.Register(NewHandlerFunc("b", func(e Event) Result {
		calls = append(calls, "b")
		return Handled()
	}))

	res := p.Throw(Event{Kind: KindFatal})
	if res.Status != StatusError || res.Err != wantErr {
		t.Fatalf("expected error result wrapping wantErr, got %+v", res)
	}
	if len(calls) != 1 {
		t.Fatalf("expected chain to stop after first error, ran %v", calls)
	}
}

func TestThrowUnhandledWhenNoHandlerClaims(t *testing.T) {
	p := NewProbe(nil)
	p.Register(NewHandlerFunc("observer", func(e Event) Result { return Unhandled() }))

	res := p.Throw(Event{Kind: KindReady})
	if res.Status != StatusUnhandled {
		t.Fatalf("expected Unhandled, got %v", res.Status)
	}
}

func TestUnregisterRemovesHandler(t *testing.T) {
	p := NewProbe(nil)
	p.Register(NewHandlerFunc("x", func(e Event) Result { return Handled() }))

	if !p.Unregister("x") {
		t.Fatalf("expected Unregister to find handler x")
	}
	res := p.Throw(Event{Kind: KindReady})
	if res.Status != StatusUnhandled {
		t.Fatalf("expected Unhandled after removing the only handler, got %v", res.Status)
	}
	if p.Unregister("x") {
		t.Fatalf("expected second Unregister of x to report false")
	}
}
