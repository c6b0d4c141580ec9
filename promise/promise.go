// Package promise provides the single-resolution primitive that every
// io_uring submission resolves through. A Promise is created before its
// SQE is queued, handed to the kernel as the SQE's user-data, and resolved
// exactly once by the run loop when the matching CQE arrives.
package promise

import (
	"context"
	"sync/atomic"
	"unsafe"
)

// CancelHook is invoked at most once, by Cancel, to submit whatever the
// owning service needs in order to ask the kernel to abort the operation
// backing this promise. It must not block waiting for the cancellation to
// take effect — the promise still resolves normally, later, from the
// eventual CQE (commonly carrying -ECANCELED).
type CancelHook func(p *Promise, userData unsafe.Pointer)

// Promise is a one-shot container for the signed int result of a single
// io_uring operation. Its address is what gets stored in an SQE's
// user-data field, so once submitted a Promise must not move and must be
// kept reachable by the caller (or by the service's in-flight registry)
// until it resolves — letting it become unreachable before the matching
// CQE arrives would let the garbage collector reclaim memory the kernel
// still intends to write a completion against.
type Promise struct {
	done      chan struct{}
	resolved  atomic.Bool
	cancelled atomic.Bool
	result    int32

	hook     CancelHook
	userData unsafe.Pointer

	// keepAlive pins any by-reference argument (iovec, msghdr, sockaddr,
	// timespec, path buffer, ...) that the in-flight SQE points to, so it
	// survives exactly as long as this Promise does.
	keepAlive any
}

// New constructs a pending Promise. hook may be nil for operations that
// have no meaningful cancellation (e.g. registration calls never go
// through Promise at all, but a few fire-and-forget ops may pass nil).
func New(hook CancelHook, userData unsafe.Pointer) *Promise {
	return &Promise{
		done:     make(chan struct{}),
		hook:     hook,
		userData: userData,
	}
}

// Pin keeps v alive for the lifetime of the promise. Call it once, before
// submitting the SQE, with whichever Go value backs the pointer(s) written
// into the SQE.
func (p *Promise) Pin(v any) {
	p.keepAlive = v
}

// Resolve delivers the kernel's result exactly once. Every call after the
// first is a silent no-op: a promise may observe its CQE after having
// already been resolved by a racing path (there is none in the run loop
// today, since only it resolves promises, but a stale or duplicated
// CQE user-data must never panic or deadlock the loop).
func (p *Promise) Resolve(result int32) {
	if !p.resolved.CompareAndSwap(false, true) {
		return
	}
	p.result = result
	close(p.done)
}

// Cancel requests that the underlying operation be aborted. It runs the
// cancel hook at most once and returns immediately; the promise itself
// remains pending until the real CQE resolves it, which is usually (but
// not guaranteedly, in a race with the original operation's own
// completion) with -ECANCELED.
func (p *Promise) Cancel() {
	if p.resolved.Load() {
		return
	}
	if p.cancelled.CompareAndSwap(false, true) && p.hook != nil {
		p.hook(p, p.userData)
	}
}

// Done reports whether the promise has resolved.
func (p *Promise) Done() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// DoneCh exposes the resolution signal so callers composing on top of a
// Promise (notably Task) can select on it without a helper goroutine.
func (p *Promise) DoneCh() <-chan struct{} {
	return p.done
}

// Value returns the resolved result. It is only meaningful once Done
// reports true or a receive from DoneCh() has completed.
func (p *Promise) Value() int32 {
	return p.result
}

// Await blocks the calling goroutine until the promise resolves, honoring
// ctx cancellation by triggering Cancel and then continuing to wait for the
// real resolution — the run loop is the only goroutine ever allowed to
// touch the ring, so "cancelling" an await can only ever mean "ask the
// loop to submit a CANCEL SQE," never "stop waiting before the kernel says
// so."
func (p *Promise) Await(ctx context.Context) int32 {
	select {
	case <-p.done:
		return p.result
	case <-ctx.Done():
		p.Cancel()
		<-p.done
		return p.result
	}
}
