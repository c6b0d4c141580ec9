//go:build linux

package liburing

// DefaultEntries is used when New is called without an explicit WithEntries
// option. It comfortably covers a single-threaded run loop driving a modest
// number of in-flight operations without forcing a submission round-trip.
const DefaultEntries = 64

// Options collects the parameters New needs to build a Params struct and
// call Ring.setup. It is only ever constructed and mutated through Option
// functions.
type Options struct {
	Entries      uint32
	Flags        uint32
	SQThreadCPU  uint32
	SQThreadIdle uint32
	WQFd         uint32
	MemoryBuffer []byte
}

// Option mutates Options while constructing a Ring via New. An Option
// returns an error so that options depending on runtime feature checks
// (kernel version, probe results) can fail fast instead of silently
// producing an unusable ring.
type Option func(*Options) error

// WithEntries sets the submission queue depth. It is rounded up to the next
// power of two by the kernel.
func WithEntries(entries uint32) Option {
	return func(o *Options) error {
		o.Entries = entries
		return nil
	}
}

// WithFlags ORs additional IORING_SETUP_* bits into the ring's setup flags.
func WithFlags(flags uint32) Option {
	return func(o *Options) error {
		o.Flags |= flags
		return nil
	}
}

// WithSQThreadCPU pins the SQPOLL kernel thread to a CPU and sets
// SetupSQAff. Only meaningful combined with WithFlags(SetupSQPoll).
func WithSQThreadCPU(cpu uint32) Option {
	return func(o *Options) error {
		o.SQThreadCPU = cpu
		o.Flags |= SetupSQAff
		return nil
	}
}

// WithSQThreadIdle sets, in milliseconds, how long the SQPOLL kernel thread
// idles before it must be woken with IORING_ENTER_SQ_WAKEUP.
func WithSQThreadIdle(ms uint32) Option {
	return func(o *Options) error {
		o.SQThreadIdle = ms
		return nil
	}
}

// WithAttachWQFd shares another ring's async worker backend (and, if
// SetupSQPoll is also set, its poller thread) instead of spinning up a new
// one.
func WithAttachWQFd(fd uint32) Option {
	return func(o *Options) error {
		o.WQFd = fd
		o.Flags |= SetupAttachWQ
		return nil
	}
}

// WithMemoryBuffer supplies caller-allocated memory for the SQ/CQ rings and
// SQEs, implying SetupNoMmap. The buffer must remain valid and pinned for
// the lifetime of the ring.
func WithMemoryBuffer(buf []byte) Option {
	return func(o *Options) error {
		o.MemoryBuffer = buf
		return nil
	}
}
