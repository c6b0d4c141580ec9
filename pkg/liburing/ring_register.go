//go:build linux

package liburing

import (
	"fmt"
	"os"
	"runtime"
	"syscall"
	"unsafe"
)

const (
	sysRegister = 427
)

// Only the IORING_REGISTER_* opcodes this package actually issues get a
// constant; the kernel ABI defines many more (personality, restrictions,
// IOWQ affinity, sync-cancel, ...) that nothing here submits.
const (
	IORING_REGISTER_BUFFERS uint32 = iota
	IORING_UNREGISTER_BUFFERS
	IORING_REGISTER_FILES
	IORING_UNREGISTER_FILES
	_
	_
	IORING_REGISTER_FILES_UPDATE
	_
	IORING_REGISTER_PROBE
	_
	_
	_
	IORING_REGISTER_ENABLE_RINGS
	IORING_REGISTER_FILES2
	_
	_
	_
	_
	_
	_
	IORING_REGISTER_RING_FDS
	IORING_UNREGISTER_RING_FDS
	IORING_REGISTER_PBUF_RING
	IORING_UNREGISTER_PBUF_RING
	_
	IORING_REGISTER_FILE_ALLOC_RANGE

	IORING_REGISTER_USE_REGISTERED_RING = 1 << 31
)

type FilesUpdate struct {
	Offset uint32
	Resv   uint32
	Fds    uint64
}

// RsrcRegister is the argument struct for the "2" family of register
// opcodes (IORING_REGISTER_FILES2, IORING_REGISTER_BUFFERS2), which carry a
// Flags/Tags pair the original single-struct opcodes didn't.
type RsrcRegister struct {
	Nr    uint32
	Flags uint32
	Resv2 uint64
	Data  uint64
	Tags  uint64
}

type RsrcUpdate struct {
	Offset uint32
	Resv   uint32
	Data   uint64
}

type FileIndexRange struct {
	Off  uint32
	Len  uint32
	Resv uint64
}

// Register issues a raw io_uring_register(2) call. Every typed helper below
// funnels through doRegister/doRegisterErrno, which add the registered-ring
// fast path; callers needing an opcode this file doesn't wrap can still
// reach the kernel directly through this.
func (ring *Ring) Register(fd int, opcode uint32, arg unsafe.Pointer, nrArgs uint32) (uint, syscall.Errno) {
	r1, _, errno := syscall.Syscall6(
		sysRegister,
		uintptr(fd),
		uintptr(opcode),
		uintptr(arg),
		uintptr(nrArgs),
		0,
		0,
	)
	return uint(r1), errno
}

// RegisterBuffers installs iovecs as the fixed-buffer table ReadFixed and
// WriteFixed index into.
func (ring *Ring) RegisterBuffers(iovecs []syscall.Iovec) (uint, error) {
	return ring.doRegister(IORING_REGISTER_BUFFERS, unsafe.Pointer(&iovecs[0]), uint32(len(iovecs)))
}

func (ring *Ring) UnregisterBuffers() (uint, error) {
	return ring.doRegister(IORING_UNREGISTER_BUFFERS, unsafe.Pointer(nil), 0)
}

// RegisterFilesUpdate replaces a slice of an already-registered fixed-file
// table starting at off, without tearing down the whole table first.
func (ring *Ring) RegisterFilesUpdate(off uint, files []int) (uint, error) {
	update := &FilesUpdate{
		Offset: uint32(off),
		Fds:    uint64(uintptr(unsafe.Pointer(&files[0]))),
	}
	result, err := ring.doRegister(IORING_REGISTER_FILES_UPDATE, unsafe.Pointer(update), uint32(len(files)))
	runtime.KeepAlive(update)
	return result, err
}

// RegisterFilesSparse reserves nr fixed-file slots without binding any of
// them to a real fd yet, for callers that install files incrementally via
// RegisterFilesUpdate afterward.
func (ring *Ring) RegisterFilesSparse(nr uint32) (uint, error) {
	reg := &RsrcRegister{
		Flags: IORING_RSRC_REGISTER_SPARSE,
		Nr:    nr,
	}
	ret, err := registerFilesRetrying(ring, func() (uint, syscall.Errno) {
		return ring.doRegisterErrno(IORING_REGISTER_FILES2, unsafe.Pointer(reg), uint32(unsafe.Sizeof(*reg)))
	}, nr)
	runtime.KeepAlive(reg)
	return ret, err
}

// RegisterFiles installs files as a fixed-file table: operations that take
// an IOSQE_FIXED_FILE flag reference a file by its index into this table
// rather than by its process-wide fd.
func (ring *Ring) RegisterFiles(files []int) (uint, error) {
	return registerFilesRetrying(ring, func() (uint, syscall.Errno) {
		return ring.doRegisterErrno(IORING_REGISTER_FILES, unsafe.Pointer(&files[0]), uint32(len(files)))
	}, uint32(len(files)))
}

func (ring *Ring) UnregisterFiles() (uint, error) {
	return ring.doRegister(IORING_UNREGISTER_FILES, unsafe.Pointer(nil), 0)
}

// registerFilesRetrying runs a files-registration call once, and once more
// after bumping RLIMIT_NOFILE if the kernel rejected it with EMFILE — a
// fixed-file table this large needs more open-file headroom than the
// process currently has.
func registerFilesRetrying(ring *Ring, do func() (uint, syscall.Errno), nr uint32) (uint, error) {
	ret, errno := do()
	if errno != syscall.EMFILE {
		if errno != 0 {
			return ret, os.NewSyscallError("io_uring_register", errno)
		}
		return ret, nil
	}
	if err := increaseRlimitNoFile(uint64(nr)); err != nil {
		return ret, err
	}
	ret, errno = do()
	if errno != 0 {
		return ret, os.NewSyscallError("io_uring_register", errno)
	}
	return ret, nil
}

// RegisterProbe asks the kernel which opcodes it supports, filling probe's
// OpsLen entries in place.
func (ring *Ring) RegisterProbe(probe *Probe, nrOps int) (uint, error) {
	result, err := ring.doRegister(IORING_REGISTER_PROBE, unsafe.Pointer(probe), uint32(nrOps))
	runtime.KeepAlive(probe)
	return result, err
}

func (ring *Ring) doRegisterErrno(opCode uint32, arg unsafe.Pointer, nrArgs uint32) (uint, syscall.Errno) {
	var fd int
	if ring.kind&regRing != 0 {
		opCode |= IORING_REGISTER_USE_REGISTERED_RING
		fd = ring.enterRingFd
	} else {
		fd = ring.ringFd
	}
	return ring.Register(fd, opCode, arg, nrArgs)
}

// registerRingFdOffset is the sentinel the kernel expects when asked to
// pick the slot for a registered ring fd itself, mirroring
// IORING_FILE_INDEX_ALLOC for the file table.
const registerRingFdOffset = uint32(4294967295)

// RegisterRingFd registers this ring's own fd with the kernel so later
// io_uring_enter calls can reference it by registered index instead of by
// fd, skipping a file-table lookup per call. No option of New registers
// the ring fd, and nothing else in this package calls this.
func (ring *Ring) RegisterRingFd() (uint, error) {
	if (ring.kind & regRing) != 0 {
		return 0, syscall.EEXIST
	}
	update := &RsrcUpdate{
		Data:   uint64(ring.ringFd),
		Offset: registerRingFdOffset,
	}
	ret, err := ring.doRegister(IORING_REGISTER_RING_FDS, unsafe.Pointer(update), 1)
	if err != nil {
		return ret, err
	}
	if ret != 1 {
		return ret, fmt.Errorf("unexpected return from ring.Register: %d", ret)
	}
	ring.enterRingFd = int(update.Offset)
	ring.kind |= regRing
	if ring.features&IORING_FEAT_REG_REG_RING != 0 {
		ring.kind |= doubleRegRing
	}
	return ret, nil
}

// UnregisterRingFd undoes RegisterRingFd. Close calls this during teardown
// only when the ring's fd is registered; on a ring that never registered
// its fd it does nothing and returns EINVAL.
func (ring *Ring) UnregisterRingFd() (uint, error) {
	if (ring.kind & regRing) == 0 {
		return 0, syscall.EINVAL
	}
	update := &RsrcUpdate{
		Offset: uint32(ring.enterRingFd),
	}
	ret, err := ring.doRegister(IORING_UNREGISTER_RING_FDS, unsafe.Pointer(update), 1)
	if err != nil {
		return ret, err
	}
	if ret == 1 {
		ring.enterRingFd = ring.ringFd
		ring.kind &= ^(regRing | doubleRegRing)
	}
	return ret, nil
}

// RegisterBufferRing installs a provided-buffer ring (registered via
// IORING_REGISTER_PBUF_RING) for multishot recv/read to pull buffers from
// without a round trip back to userspace per completion.
func (ring *Ring) RegisterBufferRing(reg *BufReg, _ uint32) (uint, error) {
	result, err := ring.doRegister(IORING_REGISTER_PBUF_RING, unsafe.Pointer(reg), 1)
	runtime.KeepAlive(reg)
	return result, err
}

func (ring *Ring) UnregisterBufferRing(bgid uint16) (uint, error) {
	reg := &BufReg{
		Bgid: bgid,
	}
	result, err := ring.doRegister(IORING_UNREGISTER_PBUF_RING, unsafe.Pointer(reg), 1)
	runtime.KeepAlive(reg)
	return result, err
}

// RegisterFileAllocRange restricts IORING_FILE_INDEX_ALLOC to the
// [off, off+length) slice of the fixed-file table, so direct-accept/socket
// operations that ask the kernel to pick a slot never collide with indices
// the caller manages by hand.
func (ring *Ring) RegisterFileAllocRange(off, length uint32) (uint, error) {
	fileRange := &FileIndexRange{
		Off: off,
		Len: length,
	}
	result, err := ring.doRegister(IORING_REGISTER_FILE_ALLOC_RANGE, unsafe.Pointer(fileRange), 0)
	runtime.KeepAlive(fileRange)
	return result, err
}

func (ring *Ring) doRegister(opCode uint32, arg unsafe.Pointer, nrArgs uint32) (uint, error) {
	ret, errno := ring.doRegisterErrno(opCode, arg, nrArgs)
	if errno != 0 {
		return 0, os.NewSyscallError("io_uring_register", errno)
	}
	return ret, nil
}

func increaseRlimitNoFile(nr uint64) error {
	limit := syscall.Rlimit{}
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &limit); err != nil {
		return err
	}
	if limit.Cur < nr {
		limit.Cur += nr
		return syscall.Setrlimit(syscall.RLIMIT_NOFILE, &limit)
	}
	return nil
}
