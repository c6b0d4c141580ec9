package ioservice

import (
	"syscall"
	"unsafe"

	"github.com/faizol/uringcoro/pkg/liburing"
	"github.com/faizol/uringcoro/task"
)

// Readv issues a vectored read at offset on fd.
func (s *Service) Readv(fd int, iovecs []syscall.Iovec, offset uint64, iflags uint8) *task.Task[int] {
	p := s.newPromise(iovecs)
	s.submitOp(p, iflags, func(sqe *liburing.SubmissionQueueEntry) {
		sqe.PrepareReadv(fd, uintptr(unsafe.Pointer(&iovecs[0])), uint32(len(iovecs)), offset)
	})
	return asTask(p)
}

// Writev issues a vectored write at offset on fd.
func (s *Service) Writev(fd int, iovecs []syscall.Iovec, offset uint64, iflags uint8) *task.Task[int] {
	p := s.newPromise(iovecs)
	s.submitOp(p, iflags, func(sqe *liburing.SubmissionQueueEntry) {
		sqe.PrepareWritev(fd, uintptr(unsafe.Pointer(&iovecs[0])), uint32(len(iovecs)), offset)
	})
	return asTask(p)
}

// Read issues a single-buffer read at offset on fd. On kernels older than
// 5.6, IORING_OP_READ doesn't exist yet, so this transparently falls back
// to a one-iovec Readv — the caller observes identical semantics either
// way, just through a slightly different opcode.
func (s *Service) Read(fd int, buf []byte, offset uint64, iflags uint8) *task.Task[int] {
	if !liburing.VersionEnable(5, 6, 0) {
		return s.Readv(fd, []syscall.Iovec{toIovec(buf)}, offset, iflags)
	}
	p := s.newPromise(buf)
	s.submitOp(p, iflags, func(sqe *liburing.SubmissionQueueEntry) {
		sqe.PrepareRead(fd, uintptr(unsafe.Pointer(&buf[0])), uint32(len(buf)), offset)
	})
	return asTask(p)
}

// Write issues a single-buffer write at offset on fd, with the same
// pre-5.6 fallback to Writev as Read has to Readv.
func (s *Service) Write(fd int, buf []byte, offset uint64, iflags uint8) *task.Task[int] {
	if !liburing.VersionEnable(5, 6, 0) {
		return s.Writev(fd, []syscall.Iovec{toIovec(buf)}, offset, iflags)
	}
	p := s.newPromise(buf)
	s.submitOp(p, iflags, func(sqe *liburing.SubmissionQueueEntry) {
		sqe.PrepareWrite(fd, uintptr(unsafe.Pointer(&buf[0])), uint32(len(buf)), offset)
	})
	return asTask(p)
}

// ReadFixed reads into a buffer previously registered with RegisterBuffers,
// identified by bufIndex.
func (s *Service) ReadFixed(fd int, buf []byte, offset uint64, bufIndex int, iflags uint8) *task.Task[int] {
	p := s.newPromise(buf)
	s.submitOp(p, iflags, func(sqe *liburing.SubmissionQueueEntry) {
		sqe.PrepareReadFixed(fd, uintptr(unsafe.Pointer(&buf[0])), uint32(len(buf)), offset, bufIndex)
	})
	return asTask(p)
}

// WriteFixed writes from a buffer previously registered with
// RegisterBuffers, identified by bufIndex.
func (s *Service) WriteFixed(fd int, buf []byte, offset uint64, bufIndex int, iflags uint8) *task.Task[int] {
	p := s.newPromise(buf)
	s.submitOp(p, iflags, func(sqe *liburing.SubmissionQueueEntry) {
		sqe.PrepareWriteFixed(fd, uintptr(unsafe.Pointer(&buf[0])), uint32(len(buf)), offset, bufIndex)
	})
	return asTask(p)
}

func toIovec(buf []byte) syscall.Iovec {
	if len(buf) == 0 {
		return syscall.Iovec{}
	}
	iov := syscall.Iovec{Base: &buf[0]}
	iov.SetLen(len(buf))
	return iov
}
