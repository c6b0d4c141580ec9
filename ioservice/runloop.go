package ioservice

import (
	"github.com/faizol/uringcoro/pkg/liburing"
	"github.com/faizol/uringcoro/promise"
)

// doner is satisfied by any Task, letting Run accept one without importing
// a concrete type parameter from the caller's instantiation.
type doner interface {
	Done() bool
}

// Run drives the ring until top is done: submit and block for at least one
// completion, walk every ready CQE resolving the Promise it names while
// counting how many were seen, then advance the CQ by that count in one
// shot and reset it to zero. Only one goroutine may ever run this loop for
// a given Service, but other goroutines are free to submit new operations
// (and to cancel ones already in flight) while it blocks: the SQ flush
// before the wait takes s.mu like every other SQ-touching call, the wait
// itself runs without it, and the CQAdvance at the end of draining takes
// it again, since getSQE's SQ-full recovery path can issue its own
// CQAdvance concurrently from a submitting goroutine.
func Run(s *Service, top doner) {
	for !top.Done() {
		s.mu.Lock()
		_, _ = s.ring.Submit()
		s.mu.Unlock()
		_, _ = s.ring.WaitCQENr(1)
		s.drainCompletions()
	}
}

// drainCompletions walks every CQE currently visible without yet
// acknowledging any of them, resolving the promise each one names, then
// advances the CQ head by the total count in a single call. Skipping a
// per-CQE CQAdvance keeps the cost of draining a large batch flat instead
// of linear in extra atomic stores. CQAdvance itself is a plain
// read-then-store of the shared CQ head, not safe against a concurrent
// caller, and getSQE's SQ-full recovery path also calls it (while holding
// s.mu, from inside submitOp/cancelHook) — so the advance has to happen
// inside the same critical section as the drained-counter update, not
// after it.
func (s *Service) drainCompletions() {
	var drained uint32
	s.ring.ForEachCQE(func(cqe *liburing.CompletionQueueEvent) {
		drained++
		if cqe.UserData == 0 || cqe.IsInternalUpdateTimeoutUserdata() {
			return
		}
		p := (*promise.Promise)(cqe.GetData())
		s.release(p)
		p.Resolve(cqe.Res)
	})

	s.mu.Lock()
	s.drained += drained
	total := s.drained
	s.drained = 0
	s.ring.CQAdvance(total)
	s.mu.Unlock()
}
