//go:build linux

package liburing

import (
	"sync/atomic"
	"unsafe"
)

var bufferAndRingStructSize = uint16(unsafe.Sizeof(BufferAndRing{}))

type BufferAndRing struct {
	Addr uint64
	Len  uint32
	Bid  uint16
	Tail uint16
}

func (br *BufferAndRing) BufRingAdd(addr uintptr, length uint16, bid uint16, mask, bufOffset uint16) {
	buf := (*BufferAndRing)(
		unsafe.Pointer(uintptr(unsafe.Pointer(br)) +
			(uintptr(((br.Tail + bufOffset) & mask) * bufferAndRingStructSize))))
	buf.Addr = uint64(addr)
	buf.Len = uint32(length)
	buf.Bid = bid
}

const bit16offset = 16

func (br *BufferAndRing) BufRingAdvance(count uint16) {
	newTail := br.Tail + count
	bidAndTail := (*uint32)(unsafe.Pointer(&br.Bid))
	bidAndTailVal := uint32(newTail)<<bit16offset + uint32(br.Bid)
	atomic.StoreUint32(bidAndTail, bidAndTailVal)
}

func (ring *Ring) internalBufRingCQAdvance(br *BufferAndRing, bufCount, cqeCount int) {
	br.BufRingAdvance(uint16(bufCount))
	ring.CQAdvance(uint32(cqeCount))
}

func (ring *Ring) BufRingCQAdvance(br *BufferAndRing, count int) {
	// note: it does not work well for [IORING_RECVSEND_BUNDLE]
	ring.internalBufRingCQAdvance(br, count, count)
}

func (br *BufferAndRing) BufRingInit() {
	br.Tail = 0
}

func BufferRingMask(entries uint16) uint16 {
	return entries - 1
}

type BufReg struct {
	RingAddr    uint64
	RingEntries uint32
	Bgid        uint16
	Pad         uint16
	Resv        [3]uint64
}

// BufferAndRingConfig owns a provided-buffer ring set up over a single
// backing slice: it slices pool into bufLen-sized chunks, seeds every slot
// into the ring once, and tracks how much of the ring has been consumed so
// Advance can feed completed buffers back in the same order they were handed
// out. It exists because SetupBufRing only brings up the bare ring; filling
// it with a caller's pool and recycling buffers as CQEs report them back is
// left to the caller, the same division of labor io_uring_buf_ring_add and
// io_uring_buf_ring_advance have in the kernel's own buffer-ring helpers.
type BufferAndRingConfig struct {
	ring    *Ring
	br      *BufferAndRing
	bgid    int
	entries uint16
	mask    uint16
	bufLen  int
	pool    []byte
}

// NewBufferAndRingConfig sets up a provided-buffer ring of entries slots
// over pool, splits pool evenly across those slots, and seeds every slot
// into the ring so the kernel can select from it immediately.
func NewBufferAndRingConfig(ring *Ring, bgid int, entries uint16, flags uint32, pool []byte) (*BufferAndRingConfig, error) {
	br, err := ring.SetupBufRing(uint32(entries), bgid, flags)
	if err != nil {
		return nil, err
	}

	bufLen := len(pool) / int(entries)
	mask := BufferRingMask(entries)
	c := &BufferAndRingConfig{
		ring:    ring,
		br:      br,
		bgid:    bgid,
		entries: entries,
		mask:    mask,
		bufLen:  bufLen,
		pool:    pool,
	}

	for i := uint16(0); i < entries; i++ {
		addr := uintptr(unsafe.Pointer(&pool[int(i)*bufLen]))
		br.BufRingAdd(addr, uint16(bufLen), i, mask, i)
	}
	br.BufRingAdvance(entries)

	return c, nil
}

// Bid extracts the buffer index the kernel selected for cqe, valid only
// when cqe.Flags carries IORING_CQE_F_BUFFER.
func (c *BufferAndRingConfig) Bid(cqe *CompletionQueueEvent) uint16 {
	return uint16(cqe.Flags >> IORING_CQE_BUFFER_SHIFT)
}

// Advance returns count consumed buffers to the ring, re-adding each one at
// its original slot so the kernel can select it again.
func (c *BufferAndRingConfig) Advance(count int) {
	for i := 0; i < count; i++ {
		bid := c.br.Tail & c.mask
		addr := uintptr(unsafe.Pointer(&c.pool[int(bid)*c.bufLen]))
		c.br.BufRingAdd(addr, uint16(c.bufLen), bid, c.mask, 0)
		c.br.BufRingAdvance(1)
	}
}

// Close unregisters the buffer ring and unmaps its backing memory.
func (c *BufferAndRingConfig) Close() error {
	_, err := c.ring.UnregisterBufferRing(uint16(c.bgid))
	if err != nil {
		return err
	}
	size := uintptr(c.entries) * unsafe.Sizeof(BufferAndRing{})
	return munmap(uintptr(unsafe.Pointer(c.br)), size)
}
