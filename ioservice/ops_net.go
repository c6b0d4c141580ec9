package ioservice

import (
	"syscall"
	"unsafe"

	"github.com/faizol/uringcoro/pkg/liburing"
	"github.com/faizol/uringcoro/task"
)

// Recvmsg receives into msg on socket fd.
func (s *Service) Recvmsg(fd int, msg *syscall.Msghdr, flags uint32, iflags uint8) *task.Task[int] {
	p := s.newPromise(msg)
	s.submitOp(p, iflags, func(sqe *liburing.SubmissionQueueEntry) {
		sqe.PrepareRecvMsg(fd, msg, flags)
	})
	return asTask(p)
}

// Sendmsg sends msg on socket fd.
func (s *Service) Sendmsg(fd int, msg *syscall.Msghdr, flags uint32, iflags uint8) *task.Task[int] {
	p := s.newPromise(msg)
	s.submitOp(p, iflags, func(sqe *liburing.SubmissionQueueEntry) {
		sqe.PrepareSendMsg(fd, msg, flags)
	})
	return asTask(p)
}

// Recv receives into buf on socket fd. On kernels older than 5.6,
// IORING_OP_RECV doesn't exist yet, so this falls back to Recvmsg with a
// single-iovec msghdr built around buf.
func (s *Service) Recv(fd int, buf []byte, flags uint32, iflags uint8) *task.Task[int] {
	if !liburing.VersionEnable(5, 6, 0) {
		iov := toIovec(buf)
		msg := &syscall.Msghdr{Iov: &iov, Iovlen: 1}
		return s.Recvmsg(fd, msg, flags, iflags)
	}
	p := s.newPromise(buf)
	s.submitOp(p, iflags, func(sqe *liburing.SubmissionQueueEntry) {
		var base uintptr
		if len(buf) > 0 {
			base = uintptr(unsafe.Pointer(&buf[0]))
		}
		sqe.PrepareRecv(fd, base, uint32(len(buf)), int(flags))
	})
	return asTask(p)
}

// Send sends buf on socket fd, with the same pre-5.6 fallback to Sendmsg
// as Recv has to Recvmsg.
func (s *Service) Send(fd int, buf []byte, flags uint32, iflags uint8) *task.Task[int] {
	if !liburing.VersionEnable(5, 6, 0) {
		iov := toIovec(buf)
		msg := &syscall.Msghdr{Iov: &iov, Iovlen: 1}
		return s.Sendmsg(fd, msg, flags, iflags)
	}
	p := s.newPromise(buf)
	s.submitOp(p, iflags, func(sqe *liburing.SubmissionQueueEntry) {
		var base uintptr
		if len(buf) > 0 {
			base = uintptr(unsafe.Pointer(&buf[0]))
		}
		sqe.PrepareSend(fd, base, uint32(len(buf)), int(flags))
	})
	return asTask(p)
}

// Accept waits for and accepts a connection on listening socket fd. Unlike
// Connect's addrLen, IORING_OP_ACCEPT's off field is the address of addrLen,
// not its value: the kernel writes the peer address's actual length back
// through that pointer the same way accept4(2) does, so addrLen must name a
// variable the caller can read after the task resolves, not a bare size.
func (s *Service) Accept(fd int, addr *syscall.RawSockaddrAny, addrLen *uint64, flags int, iflags uint8) *task.Task[int] {
	p := s.newPromise([2]any{addr, addrLen})
	s.submitOp(p, iflags, func(sqe *liburing.SubmissionQueueEntry) {
		sqe.PrepareAccept(fd, addr, uint64(uintptr(unsafe.Pointer(addrLen))), flags)
	})
	return asTask(p)
}

// Connect initiates a connection on socket fd to addr.
func (s *Service) Connect(fd int, addr *syscall.RawSockaddrAny, addrLen uint64, iflags uint8) *task.Task[int] {
	p := s.newPromise(addr)
	s.submitOp(p, iflags, func(sqe *liburing.SubmissionQueueEntry) {
		sqe.PrepareConnect(fd, addr, addrLen)
	})
	return asTask(p)
}
