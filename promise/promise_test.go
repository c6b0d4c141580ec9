package promise_test

import (
	"context"
	"testing"
	"time"
	"unsafe"

	"github.com/faizol/uringcoro/promise"
)

func TestPromise_ResolveOnce(t *testing.T) {
	p := promise.New(nil, nil)
	p.Resolve(7)
	p.Resolve(9) // second call must be a silent no-op, not a double-close panic

	if !p.Done() {
		t.Fatal("expected promise to be done after Resolve")
	}
	if v := p.Value(); v != 7 {
		t.Fatalf("got value %d, want 7 (first resolve should win)", v)
	}
}

func TestPromise_DoneBeforeResolve(t *testing.T) {
	p := promise.New(nil, nil)
	if p.Done() {
		t.Fatal("expected pending promise to report not done")
	}
}

func TestPromise_AwaitReturnsResolvedValue(t *testing.T) {
	p := promise.New(nil, nil)
	go func() {
		time.Sleep(time.Millisecond)
		p.Resolve(42)
	}()

	if v := p.Await(context.Background()); v != 42 {
		t.Fatalf("got %d, want 42", v)
	}
}

func TestPromise_CancelInvokesHookOnce(t *testing.T) {
	var calls int
	hook := func(p *promise.Promise, _ unsafe.Pointer) {
		calls++
	}
	p := promise.New(hook, nil)

	p.Cancel()
	p.Cancel()

	if calls != 1 {
		t.Fatalf("hook invoked %d times, want 1", calls)
	}
}

func TestPromise_CancelAfterResolveIsNoop(t *testing.T) {
	var calls int
	hook := func(p *promise.Promise, _ unsafe.Pointer) {
		calls++
	}
	p := promise.New(hook, nil)
	p.Resolve(0)
	p.Cancel()

	if calls != 0 {
		t.Fatalf("hook invoked after resolve, want 0 calls, got %d", calls)
	}
}

func TestPromise_AwaitContextCancelTriggersHookAndStillWaits(t *testing.T) {
	var hookCalled = make(chan struct{}, 1)
	hook := func(p *promise.Promise, _ unsafe.Pointer) {
		hookCalled <- struct{}{}
		time.AfterFunc(time.Millisecond, func() { p.Resolve(-1) })
	}
	p := promise.New(hook, nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()

	v := p.Await(ctx)
	select {
	case <-hookCalled:
	default:
		t.Fatal("expected cancel hook to run when context expired before resolution")
	}
	if v != -1 {
		t.Fatalf("got %d, want -1", v)
	}
}

func TestPromise_Pin(t *testing.T) {
	p := promise.New(nil, nil)
	buf := make([]byte, 16)
	p.Pin(buf) // must not panic; only observable effect is keeping buf reachable
}
