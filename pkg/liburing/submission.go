//go:build linux

package liburing

import (
	"syscall"
	"unsafe"
)

// Opcode numbers for the subset of IORING_OP_* this package's ioservice
// layer drives. The kernel ABI defines roughly seventy opcodes; listing
// only the ones a Prepare helper below actually builds keeps this table a
// map of what the runtime can submit rather than a transcript of the UAPI
// header. Values are pinned to their real opcode number so a future helper
// can be slotted in without renumbering anything already here.
const (
	IORING_OP_NOP             uint8 = 0
	IORING_OP_FSYNC           uint8 = 3
	IORING_OP_POLL_ADD        uint8 = 6
	IORING_OP_SYNC_FILE_RANGE uint8 = 8
	IORING_OP_SENDMSG         uint8 = 9
	IORING_OP_RECVMSG         uint8 = 10
	IORING_OP_TIMEOUT         uint8 = 11
	IORING_OP_ACCEPT          uint8 = 13
	IORING_OP_ASYNC_CANCEL    uint8 = 14
	IORING_OP_CONNECT         uint8 = 16
	IORING_OP_OPENAT          uint8 = 18
	IORING_OP_CLOSE           uint8 = 19
	IORING_OP_READ            uint8 = 22
	IORING_OP_WRITE           uint8 = 23
	IORING_OP_SEND            uint8 = 26
	IORING_OP_RECV            uint8 = 27
	IORING_OP_READV           uint8 = 1
	IORING_OP_WRITEV          uint8 = 2
	IORING_OP_READ_FIXED      uint8 = 4
	IORING_OP_WRITE_FIXED     uint8 = 5
	IORING_OP_SOCKET          uint8 = 45
)

// IOSQE_* are the per-SQE submission flags set via SetFlags, independent of
// which opcode the SQE carries (linked timeouts, draining a request until
// everything ahead of it finishes, and so on).
const (
	IOSQE_FIXED_FILE uint8 = 1 << iota
	IOSQE_IO_DRAIN
	IOSQE_IO_LINK
	IOSQE_IO_HARDLINK
	IOSQE_ASYNC
	IOSQE_BUFFER_SELECT
	IOSQE_CQE_SKIP_SUCCESS
)

const (
	IORING_TIMEOUT_ABS uint32 = 1 << iota
	IORING_TIMEOUT_UPDATE
	IORING_TIMEOUT_BOOTTIME
	IORING_TIMEOUT_REALTIME
)

const (
	IORING_ASYNC_CANCEL_ALL uint32 = 1 << iota
	IORING_ASYNC_CANCEL_FD
	IORING_ASYNC_CANCEL_ANY
)

// SubmissionQueueEntry is the wire layout of struct io_uring_sqe. Its field
// order and sizes must match the kernel's exactly, since the slice backing
// the SQ ring is mapped straight over kernel-owned memory (or a
// kernel-filled allocation, under IORING_SETUP_NO_MMAP) rather than
// serialized by this package.
type SubmissionQueueEntry struct {
	OpCode      uint8
	Flags       uint8
	IoPrio      uint16
	Fd          int32
	Off         uint64
	Addr        uint64
	Len         uint32
	OpcodeFlags uint32
	UserData    uint64
	BufIG       uint16
	Personality uint16
	SpliceFdIn  int32
	Addr3       uint64
	_pad2       [1]uint64
}

func (entry *SubmissionQueueEntry) SetData(data unsafe.Pointer) {
	entry.UserData = uint64(uintptr(data))
}

func (entry *SubmissionQueueEntry) SetData64(data uint64) {
	entry.UserData = data
}

func (entry *SubmissionQueueEntry) SetFlags(flags uint8) {
	entry.Flags |= flags
}

func (entry *SubmissionQueueEntry) SetBufferGroup(bgid uint16) {
	entry.BufIG = bgid
}

// --- no-op, used only to keep the run loop moving without any real syscall ---

func (entry *SubmissionQueueEntry) PrepareNop() {
	entry.prepareRW(IORING_OP_NOP, -1, 0, 0, 0)
}

// --- sockets ---

// PrepareAccept builds an IORING_OP_ACCEPT SQE. addrLen is forwarded
// verbatim into the SQE's off field: for this opcode the kernel treats off
// as the address of a socklen_t it writes the peer address's actual length
// back through (mirroring accept4(2)'s *addrlen out-parameter), not the
// buffer size itself, so whatever the caller passes here must already be a
// pointer cast to uint64 rather than a plain size.
func (entry *SubmissionQueueEntry) PrepareAccept(fd int, addr *syscall.RawSockaddrAny, addrLen uint64, flags int) {
	entry.prepareRW(IORING_OP_ACCEPT, fd, uintptr(unsafe.Pointer(addr)), 0, addrLen)
	entry.OpcodeFlags = uint32(flags)
}

// PrepareConnect builds an IORING_OP_CONNECT SQE. Unlike PrepareAccept,
// addrLen here really is the sockaddr's size — off carries a value, not a
// pointer, for this opcode.
func (entry *SubmissionQueueEntry) PrepareConnect(fd int, addr *syscall.RawSockaddrAny, addrLen uint64) {
	entry.prepareRW(IORING_OP_CONNECT, fd, uintptr(unsafe.Pointer(addr)), 0, addrLen)
}

func (entry *SubmissionQueueEntry) PrepareRecv(fd int, buf uintptr, length uint32, flags int) {
	entry.prepareRW(IORING_OP_RECV, fd, buf, length, 0)
	entry.OpcodeFlags = uint32(flags)
}

func (entry *SubmissionQueueEntry) PrepareRecvMsg(fd int, msg *syscall.Msghdr, flags uint32) {
	entry.prepareRW(IORING_OP_RECVMSG, fd, uintptr(unsafe.Pointer(msg)), 1, 0)
	entry.OpcodeFlags = flags
}

func (entry *SubmissionQueueEntry) PrepareSend(fd int, addr uintptr, length uint32, flags int) {
	entry.prepareRW(IORING_OP_SEND, fd, addr, length, 0)
	entry.OpcodeFlags = uint32(flags)
}

func (entry *SubmissionQueueEntry) PrepareSendMsg(fd int, msg *syscall.Msghdr, flags uint32) {
	entry.prepareRW(IORING_OP_SENDMSG, fd, uintptr(unsafe.Pointer(msg)), 1, 0)
	entry.OpcodeFlags = flags
}

// PrepareSocket builds an IORING_OP_SOCKET SQE, the io_uring-native
// equivalent of the socket(2) syscall; RegisterFileAllocRange's fixed-file
// range tests exercise this directly against a sparse file table.
func (entry *SubmissionQueueEntry) PrepareSocket(domain, socketType, protocol int, flags uint32) {
	entry.prepareRW(IORING_OP_SOCKET, domain, 0, uint32(protocol), uint64(socketType))
	entry.OpcodeFlags = flags
}

// PrepareSocketDirectAlloc is PrepareSocket with the result installed
// straight into an auto-picked fixed-file slot rather than returned as a
// process fd.
func (entry *SubmissionQueueEntry) PrepareSocketDirectAlloc(domain, socketType, protocol int, flags uint32) {
	entry.PrepareSocket(domain, socketType, protocol, flags)
	entry.setTargetFixedFile(IORING_FILE_INDEX_ALLOC - 1)
}

// --- cancellation ---

// PrepareCancel64 builds an IORING_OP_ASYNC_CANCEL SQE keyed on userdata,
// the same 64-bit value the target operation's SQE carries as its own
// UserData. A cancel SQE has no UserData of its own that the caller needs
// back, so callers typically zero it with SetData64 right after this.
func (entry *SubmissionQueueEntry) PrepareCancel64(userdata uint64, flags uint32) {
	entry.prepareRW(IORING_OP_ASYNC_CANCEL, -1, 0, 0, 0)
	entry.Addr = userdata
	entry.OpcodeFlags = flags
}

// --- timeouts ---

func (entry *SubmissionQueueEntry) PrepareTimeout(spec *syscall.Timespec, count, flags uint32) {
	entry.prepareRW(IORING_OP_TIMEOUT, -1, uintptr(unsafe.Pointer(spec)), 1, uint64(count))
	entry.OpcodeFlags = flags
}

// --- file descriptors ---

func (entry *SubmissionQueueEntry) PrepareClose(fd int) {
	entry.prepareRW(IORING_OP_CLOSE, fd, 0, 0, 0)
}

// PrepareOpenat builds an IORING_OP_OPENAT SQE. path must be a
// NUL-terminated byte slice (the same convention openat(2) expects for its
// path argument); the SQE's Addr points at path's first byte, not at the
// slice header.
func (entry *SubmissionQueueEntry) PrepareOpenat(dfd int, path []byte, flags int, mode uint32) {
	entry.prepareRW(IORING_OP_OPENAT, dfd, uintptr(unsafe.Pointer(&path[0])), mode, 0)
	entry.OpcodeFlags = uint32(flags)
}

// --- reads and writes ---

func (entry *SubmissionQueueEntry) PrepareRead(fd int, buf uintptr, nbytes uint32, offset uint64) {
	entry.prepareRW(IORING_OP_READ, fd, buf, nbytes, offset)
}

func (entry *SubmissionQueueEntry) PrepareReadFixed(fd int, buf uintptr, nbytes uint32, offset uint64, bufIndex int) {
	entry.prepareRW(IORING_OP_READ_FIXED, fd, buf, nbytes, offset)
	entry.BufIG = uint16(bufIndex)
}

func (entry *SubmissionQueueEntry) PrepareReadv(fd int, iovecs uintptr, nrVecs uint32, offset uint64) {
	entry.prepareRW(IORING_OP_READV, fd, iovecs, nrVecs, offset)
}

func (entry *SubmissionQueueEntry) PrepareWrite(fd int, buf uintptr, nbytes uint32, offset uint64) {
	entry.prepareRW(IORING_OP_WRITE, fd, buf, nbytes, offset)
}

func (entry *SubmissionQueueEntry) PrepareWriteFixed(fd int, vectors uintptr, length uint32, offset uint64, index int) {
	entry.prepareRW(IORING_OP_WRITE_FIXED, fd, vectors, length, offset)
	entry.BufIG = uint16(index)
}

func (entry *SubmissionQueueEntry) PrepareWritev(fd int, iovecs uintptr, nrVecs uint32, offset uint64) {
	entry.prepareRW(IORING_OP_WRITEV, fd, iovecs, nrVecs, offset)
}

// PrepareSyncFileRange builds an IORING_OP_SYNC_FILE_RANGE SQE.
// The opcode never touches a path or socket address, just an fd plus an
// offset/length pair already sitting in prepareRW's argument list, with
// flags stored in the opcode-specific flags field.
func (entry *SubmissionQueueEntry) PrepareSyncFileRange(fd int, length uint32, offset uint64, flags int) {
	entry.prepareRW(IORING_OP_SYNC_FILE_RANGE, fd, 0, length, offset)
	entry.OpcodeFlags = uint32(flags)
}

// --- polling ---

func (entry *SubmissionQueueEntry) PreparePollAdd(fd int, pollMask uint32) {
	entry.prepareRW(IORING_OP_POLL_ADD, fd, 0, 0, 0)
	entry.OpcodeFlags = pollMask
}

// --- shared plumbing ---

func (entry *SubmissionQueueEntry) prepareRW(opcode uint8, fd int, addr uintptr, length uint32, offset uint64) {
	entry.OpCode = opcode
	entry.Flags = 0
	entry.IoPrio = 0
	entry.Fd = int32(fd)
	entry.Off = offset
	entry.Addr = uint64(addr)
	entry.Len = length
	entry.UserData = 0
	entry.BufIG = 0
	entry.Personality = 0
	entry.SpliceFdIn = 0
}

func (entry *SubmissionQueueEntry) setTargetFixedFile(fileIndex uint32) {
	entry.SpliceFdIn = int32(fileIndex + 1)
}

const (
	IORING_SQ_NEED_WAKEUP uint32 = 1 << iota
	IORING_SQ_CQ_OVERFLOW
	IORING_SQ_TASKRUN
)

type SQRingOffsets struct {
	head        uint32
	tail        uint32
	ringMask    uint32
	ringEntries uint32
	flags       uint32
	dropped     uint32
	array       uint32
	resv1       uint32
	userAddr    uint64
}

type SubmissionQueue struct {
	head        *uint32
	tail        *uint32
	ringMask    *uint32
	ringEntries *uint32
	flags       *uint32
	dropped     *uint32
	array       *uint32
	sqes        *SubmissionQueueEntry
	ringSize    uint
	ringPtr     unsafe.Pointer
	sqeHead     uint32
	sqeTail     uint32
	pad         [2]uint32
}
