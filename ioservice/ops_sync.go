package ioservice

import (
	"github.com/faizol/uringcoro/pkg/liburing"
	"github.com/faizol/uringcoro/task"
)

// Fsync flushes fd's data (and, depending on flags, metadata) to disk.
func (s *Service) Fsync(fd int, flags uint32, iflags uint8) *task.Task[int] {
	p := s.newPromise(nil)
	s.submitOp(p, iflags, func(sqe *liburing.SubmissionQueueEntry) {
		sqe.PrepareFsync(fd, flags)
	})
	return asTask(p)
}

// SyncFileRange flushes a byte range of fd to disk. The SQE is built by the
// binding's PrepareSyncFileRange, which sets up an RW-shaped entry (fd,
// nbytes, offset) and then stores flags in the opcode-specific flags field.
func (s *Service) SyncFileRange(fd int, offset uint64, nbytes uint32, flags uint32, iflags uint8) *task.Task[int] {
	p := s.newPromise(nil)
	s.submitOp(p, iflags, func(sqe *liburing.SubmissionQueueEntry) {
		sqe.PrepareSyncFileRange(fd, nbytes, offset, int(flags))
	})
	return asTask(p)
}
