// Package ioservice is the single-threaded io_uring driver: it owns one
// Ring, prepares SQEs for the syscalls a coroutine wants to perform, and
// runs the loop that drains CQEs and resolves the Promise each submission
// carries as its user-data. The donor C++ design gets single-threaded
// submission for free because every coroutine runs on the same thread as the
// loop; mapping a coroutine onto a goroutine gives up that guarantee, so
// every public operation method takes Service.mu for the full
// acquire-fill-submit sequence before touching the ring, and Run takes the
// same lock around its own SQ flush (but not around its wait for
// completions). CQE retrieval stays unlocked,
// since the run loop is the only goroutine that ever walks the completion
// queue, but advancing the CQ head does not: getSQE's SQ-full recovery path
// can also advance it from inside a submitting goroutine, so every
// CQAdvance call — the run loop's included — takes Service.mu too.
package ioservice

import (
	"log/slog"
	"sync"
	"syscall"
	"unsafe"

	"github.com/brickingsoft/errors"

	"github.com/faizol/uringcoro/pkg/liburing"
	"github.com/faizol/uringcoro/promise"
	"github.com/faizol/uringcoro/task"
)

// Service wraps a Ring with the SQ-acquisition discipline and the
// completion-draining bookkeeping the run loop needs. It corresponds to
// the io_service object of the system this package implements: a single
// ring, plus the running count of CQEs observed but not yet acknowledged
// to the kernel.
type Service struct {
	ring *liburing.Ring

	mu        sync.Mutex
	drained   uint32
	inflight  sync.Map // *promise.Promise -> struct{}
}

// New brings up a ring with the given options and returns a Service ready
// to drive it. A failure here is fatal and synchronous — unlike individual
// operations, which never return a Go error, only the kernel's signed int.
func New(options ...liburing.Option) (*Service, error) {
	ring, err := liburing.New(options...)
	if err != nil {
		return nil, errors.From(ErrSetupFailed, errors.WithWrap(err))
	}
	return &Service{ring: ring}, nil
}

// Close tears down the ring. Any promises still in flight are left
// unresolved; callers are expected to have awaited or cancelled everything
// they submitted before closing.
func (s *Service) Close() error {
	return s.ring.Close()
}

// Ring exposes the underlying binding for callers that need a registration
// call or a capability this package doesn't wrap directly (e.g. Probe).
func (s *Service) Ring() *liburing.Ring {
	return s.ring
}

// getSQE acquires a fresh SQE, recovering from a full submission queue by
// advancing the CQ past everything the loop has already observed,
// resetting the drain counter, and resubmitting before retrying — exactly
// the sequence the kernel requires to make room: a full SQ only drains
// once its paired completions are acknowledged, and it's always safe to
// force that because every entry advanced past here has already been
// handed to its Promise. The caller must hold s.mu for this call and for
// everything it does with the returned SQE up through submission: GetSQE
// and the recovery path both mutate the SQ's plain (non-atomic) tail and
// head fields, so two goroutines racing through here could hand out the
// same slot. The CQAdvance below races the same way against the run
// loop's own end-of-drain CQAdvance, which is why drainCompletions takes
// s.mu around its call too.
func (s *Service) getSQE() *liburing.SubmissionQueueEntry {
	sqe := s.ring.GetSQE()
	if sqe != nil {
		return sqe
	}

	drained := s.drained
	s.drained = 0

	slog.Debug("ioservice: sq full, flushing drained cqes", "count", drained)

	s.ring.CQAdvance(drained)
	_, _ = s.ring.Submit()

	sqe = s.ring.GetSQE()
	if sqe == nil {
		panic("ioservice: sqe is nil after SQ-full recovery")
	}
	return sqe
}

// cancelHook is the CancelHook every operation-backed Promise is built
// with: acquire a fresh SQE through the same safe path, prepare an
// ASYNC_CANCEL keyed on the promise's own address, and submit it
// immediately. The cancel SQE itself carries no user-data, so its CQE is
// skipped by the drain loop rather than mistaken for a second resolution
// of anything.
func (s *Service) cancelHook(p *promise.Promise, _ unsafe.Pointer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqe := s.getSQE()
	sqe.PrepareCancel64(uint64(uintptr(unsafe.Pointer(p))), 0)
	sqe.SetData64(0)
	_, _ = s.ring.Submit()
}

// submitOp acquires an SQE, lets fill populate it, attaches the promise as
// user-data, registers the promise so it cannot be collected before its
// CQE arrives, and submits right away rather than leaving the SQE queued
// for the run loop's next flush; with every SQE flushed here, the SQ does
// not normally fill up and getSQE's recovery path is rarely taken. iflags
// are the per-SQE IOSQE_* flags common to
// every operation (linked timeouts, fixed-file hints, and so on). The
// whole sequence runs under s.mu so concurrent callers never observe or
// hand out the same SQE.
func (s *Service) submitOp(p *promise.Promise, iflags uint8, fill func(*liburing.SubmissionQueueEntry)) {
	s.inflight.Store(p, struct{}{})

	s.mu.Lock()
	defer s.mu.Unlock()

	sqe := s.getSQE()
	fill(sqe)
	sqe.SetFlags(iflags)
	sqe.SetData(unsafe.Pointer(p))

	_, _ = s.ring.Submit()
}

// newPromise constructs a Promise wired to this service's cancellation
// path and pins keepAlive for the duration of the in-flight operation.
func (s *Service) newPromise(keepAlive any) *promise.Promise {
	p := promise.New(s.cancelHook, nil)
	if keepAlive != nil {
		p.Pin(keepAlive)
	}
	return p
}

// release drops the in-flight bookkeeping entry for a resolved promise.
func (s *Service) release(p *promise.Promise) {
	s.inflight.Delete(p)
}

// asTask adapts a Promise into the Task[int] every operation method
// returns: done follows the promise's own channel directly, with no
// bridging goroutine, and the accessor simply reads back its resolved
// value once that channel closes.
func asTask(p *promise.Promise) *task.Task[int] {
	return task.FromSource(p.DoneCh(), func() (int, error) {
		return int(p.Value()), nil
	})
}

// RegisterFiles registers a fixed-file table. This is an administrative,
// synchronous call — it has no Promise/Task, and fails fast with a Go
// error on failure, exactly like ring setup.
func (s *Service) RegisterFiles(fds []int) error {
	_, err := s.ring.RegisterFiles(fds)
	if err != nil {
		slog.Error("ioservice: register files failed", "count", len(fds), "err", err)
		return errors.From(ErrRegistrationFailed, errors.WithWrap(err))
	}
	return nil
}

// RegisterFilesUpdate replaces a slice of a previously registered fixed
// file table starting at off.
func (s *Service) RegisterFilesUpdate(off uint, fds []int) error {
	_, err := s.ring.RegisterFilesUpdate(off, fds)
	if err != nil {
		return errors.From(ErrRegistrationFailed, errors.WithWrap(err))
	}
	return nil
}

// UnregisterFiles drops the fixed-file table registered by RegisterFiles.
func (s *Service) UnregisterFiles() error {
	_, err := s.ring.UnregisterFiles()
	if err != nil {
		return errors.From(ErrRegistrationFailed, errors.WithWrap(err))
	}
	return nil
}

// RegisterBuffers registers a set of fixed buffers for use with ReadFixed
// and WriteFixed.
func (s *Service) RegisterBuffers(iovecs []syscall.Iovec) error {
	_, err := s.ring.RegisterBuffers(iovecs)
	if err != nil {
		return errors.From(ErrRegistrationFailed, errors.WithWrap(err))
	}
	return nil
}

// UnregisterBuffers drops the fixed-buffer table registered by
// RegisterBuffers.
func (s *Service) UnregisterBuffers() error {
	_, err := s.ring.UnregisterBuffers()
	if err != nil {
		return errors.From(ErrRegistrationFailed, errors.WithWrap(err))
	}
	return nil
}
