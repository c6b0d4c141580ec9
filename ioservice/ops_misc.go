package ioservice

import (
	"syscall"
	"time"
	"unsafe"

	"github.com/faizol/uringcoro/pkg/liburing"
	"github.com/faizol/uringcoro/task"
)

// Poll waits for fd to become ready for any of the events in mask (the
// usual POLLIN/POLLOUT/... bits).
func (s *Service) Poll(fd int, mask uint32, iflags uint8) *task.Task[int] {
	p := s.newPromise(nil)
	s.submitOp(p, iflags, func(sqe *liburing.SubmissionQueueEntry) {
		sqe.PreparePollAdd(fd, mask)
	})
	return asTask(p)
}

// Yield submits a NOP and suspends until it completes. It behaves like a
// cooperative yield to the run loop: the calling goroutine parks, every
// other ready completion gets a chance to run, and control returns once
// the kernel has round-tripped this no-op request.
func (s *Service) Yield(iflags uint8) *task.Task[int] {
	p := s.newPromise(nil)
	s.submitOp(p, iflags, func(sqe *liburing.SubmissionQueueEntry) {
		sqe.PrepareNop()
	})
	return asTask(p)
}

// Timeout resolves after d elapses, with -ETIME, unless cancelled first.
// The kernel timespec backing this request is heap-allocated and pinned to
// the promise so it survives exactly as long as the in-flight SQE needs it
// to — letting it be collected (or stack-allocated and popped) before the
// kernel writes the completion would be a use-after-free of kernel-visible
// memory.
func (s *Service) Timeout(d time.Duration, iflags uint8) *task.Task[int] {
	ts := durationToTimespec(d)
	p := s.newPromise(ts)
	s.submitOp(p, iflags, func(sqe *liburing.SubmissionQueueEntry) {
		sqe.PrepareTimeout(ts, 0, 0)
	})
	return asTask(p)
}

func durationToTimespec(d time.Duration) *syscall.Timespec {
	ts := syscall.NsecToTimespec(d.Nanoseconds())
	return &ts
}

// Openat opens path relative to dfd (or an absolute path, or unix.AT_FDCWD
// for the process's current directory). On kernels older than 5.6,
// IORING_OP_OPENAT doesn't exist; the fallback yields once — to keep the
// "always suspends before resuming" contract true regardless of kernel
// version — and then performs the open synchronously.
func (s *Service) Openat(dfd int, path string, flags int, mode uint32, iflags uint8) *task.Task[int] {
	if !liburing.VersionEnable(5, 6, 0) {
		return s.syncFallback(iflags, func() int32 {
			fd, err := syscall.Openat(dfd, path, flags, mode)
			if err != nil {
				return -int32(err.(syscall.Errno))
			}
			return int32(fd)
		})
	}
	pathBytes := append([]byte(path), 0)
	p := s.newPromise(pathBytes)
	s.submitOp(p, iflags, func(sqe *liburing.SubmissionQueueEntry) {
		sqe.PrepareOpenat(dfd, pathBytes, flags, mode)
	})
	return asTask(p)
}

// Close closes fd. On kernels older than 5.6, IORING_OP_CLOSE doesn't
// exist; same yield-then-syscall fallback as Openat.
func (s *Service) Close(fd int, iflags uint8) *task.Task[int] {
	if !liburing.VersionEnable(5, 6, 0) {
		return s.syncFallback(iflags, func() int32 {
			if err := syscall.Close(fd); err != nil {
				return -int32(err.(syscall.Errno))
			}
			return 0
		})
	}
	p := s.newPromise(nil)
	s.submitOp(p, iflags, func(sqe *liburing.SubmissionQueueEntry) {
		sqe.PrepareClose(fd)
	})
	return asTask(p)
}

// syncFallback yields once, then performs work synchronously, still
// returning a Task[int] so callers can't tell they're on the degraded
// path. This trades the non-blocking guarantee for correctness on kernels
// that predate the native opcode. The fallbacks in this package's
// read/write/recv/send make no such trade: they re-encode the request as
// a vectored or msghdr opcode that still goes through the ring.
func (s *Service) syncFallback(iflags uint8, work func() int32) *task.Task[int] {
	yielded := s.Yield(iflags)
	t, resolve := task.New[int]()
	go func() {
		_, _ = yielded.Result()
		resolve(int(work()), nil)
	}()
	return t
}
