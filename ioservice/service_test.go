//go:build linux

package ioservice_test

import (
	"context"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/faizol/uringcoro/ioservice"
	"github.com/faizol/uringcoro/pkg/liburing"
	"github.com/faizol/uringcoro/task"
)

func newService(t *testing.T, entries uint32) *ioservice.Service {
	t.Helper()
	s, err := ioservice.New(liburing.WithEntries(entries))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestYield(t *testing.T) {
	s := newService(t, 8)
	tk := s.Yield(0)
	ioservice.Run(s, tk)

	v, err := tk.Result()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v < 0 {
		t.Fatalf("yield failed with %v", syscall.Errno(-v))
	}
}

func TestYieldIdempotent(t *testing.T) {
	s := newService(t, 8)
	for i := 0; i < 5; i++ {
		tk := s.Yield(0)
		ioservice.Run(s, tk)
		if v, err := tk.Result(); err != nil || v < 0 {
			t.Fatalf("yield %d: (%d, %v)", i, v, err)
		}
	}
}

func TestTimeoutResolvesWithETime(t *testing.T) {
	s := newService(t, 8)
	tk := s.Timeout(10*time.Millisecond, 0)
	ioservice.Run(s, tk)

	v, err := tk.Result()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ioservice.IsTimeout(int32(v)) {
		t.Fatalf("got %d (%v), want -ETIME", v, syscall.Errno(-v))
	}
}

// TestTimeoutOrdering checks that a shorter timeout observably completes
// before a longer one submitted ahead of it, i.e. the run loop resolves
// completions in the order the kernel reports them, not submission order.
func TestTimeoutOrdering(t *testing.T) {
	s := newService(t, 8)
	long := s.Timeout(50*time.Millisecond, 0)
	short := s.Timeout(10*time.Millisecond, 0)

	go ioservice.Run(s, long)

	deadline := time.After(30 * time.Millisecond)
	for !short.Done() {
		select {
		case <-deadline:
			t.Fatal("short timeout did not resolve within its own window")
		case <-time.After(time.Millisecond):
		}
	}
	if long.Done() {
		t.Fatal("expected the 10ms timeout to resolve before the 50ms timeout")
	}

	if _, err := long.Result(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestReadWriteRoundTrip(t *testing.T) {
	s := newService(t, 8)

	f, err := os.CreateTemp(t.TempDir(), "ioservice-rw")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	defer f.Close()
	fd := int(f.Fd())

	payload := []byte("hello io_uring")
	wTask := s.Write(fd, payload, 0, 0)
	ioservice.Run(s, wTask)
	n, err := wTask.Result()
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if n != len(payload) {
		t.Fatalf("wrote %d bytes, want %d", n, len(payload))
	}

	buf := make([]byte, len(payload))
	rTask := s.Read(fd, buf, 0, 0)
	ioservice.Run(s, rTask)
	n, err = rTask.Result()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if n != len(payload) || string(buf[:n]) != string(payload) {
		t.Fatalf("read %q, want %q", buf[:n], payload)
	}
}

func TestFsync(t *testing.T) {
	s := newService(t, 8)

	f, err := os.CreateTemp(t.TempDir(), "ioservice-fsync")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	defer f.Close()

	tk := s.Fsync(int(f.Fd()), 0, 0)
	ioservice.Run(s, tk)
	if v, err := tk.Result(); err != nil || v < 0 {
		t.Fatalf("fsync: (%d, %v)", v, err)
	}
}

func TestPollReadyOnPipeWrite(t *testing.T) {
	s := newService(t, 8)

	var fds [2]int
	if err := syscall.Pipe2(fds[:], syscall.O_CLOEXEC|syscall.O_NONBLOCK); err != nil {
		t.Fatalf("Pipe2: %v", err)
	}
	rfd, wfd := fds[0], fds[1]
	defer syscall.Close(rfd)
	defer syscall.Close(wfd)

	pollTask := s.Poll(rfd, syscall.POLLIN, 0)

	go func() {
		time.Sleep(5 * time.Millisecond)
		_, _ = syscall.Write(wfd, []byte("x"))
	}()

	ioservice.Run(s, pollTask)
	v, err := pollTask.Result()
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if v&syscall.POLLIN == 0 {
		t.Fatalf("got mask %d, want POLLIN set", v)
	}
}

func TestRecvSendRoundTrip(t *testing.T) {
	s := newService(t, 8)

	fds, err := syscall.Socketpair(syscall.AF_UNIX, syscall.SOCK_STREAM, 0)
	if err != nil {
		t.Fatalf("Socketpair: %v", err)
	}
	a, b := fds[0], fds[1]
	defer syscall.Close(a)
	defer syscall.Close(b)

	payload := []byte("ping")
	sendTask := s.Send(a, payload, 0, 0)
	ioservice.Run(s, sendTask)
	if n, err := sendTask.Result(); err != nil || n != len(payload) {
		t.Fatalf("send: (%d, %v)", n, err)
	}

	buf := make([]byte, len(payload))
	recvTask := s.Recv(b, buf, 0, 0)
	ioservice.Run(s, recvTask)
	n, err := recvTask.Result()
	if err != nil {
		t.Fatalf("recv: %v", err)
	}
	if string(buf[:n]) != string(payload) {
		t.Fatalf("recv %q, want %q", buf[:n], payload)
	}
}

// TestAcceptAwaitDeadlineReturnsPromptly checks that awaiting a pending
// Accept under a context deadline returns once the deadline passes rather
// than hanging until a connection actually arrives. Task.Await does not
// cancel the accept itself: it stays in flight in the kernel, and no
// -ECANCELED result is observed here.
func TestAcceptAwaitDeadlineReturnsPromptly(t *testing.T) {
	s := newService(t, 8)

	fd, err := syscall.Socket(syscall.AF_INET, syscall.SOCK_STREAM, 0)
	if err != nil {
		t.Fatalf("Socket: %v", err)
	}
	defer syscall.Close(fd)
	if err := syscall.Bind(fd, &syscall.SockaddrInet4{}); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if err := syscall.Listen(fd, 1); err != nil {
		t.Fatalf("Listen: %v", err)
	}

	var addr syscall.RawSockaddrAny
	addrLen := uint64(syscall.SizeofSockaddrAny)
	acceptTask := s.Accept(fd, &addr, &addrLen, 0, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	go ioservice.Run(s, acceptTask)

	v, err := acceptTask.Await(ctx)
	if err == nil && v >= 0 {
		t.Fatalf("expected Await on Accept to time out, got (%d, %v)", v, err)
	}
}

// TestOversubscriptionCompletesEveryYield submits more NOPs than the ring
// has submission-queue slots for without ever draining in between, and
// checks that every one of them completes successfully. Each submitOp
// flushes its SQE to the kernel at once, so the SQ does not fill up here
// and getSQE's full-queue recovery path is not exercised by this test.
func TestOversubscriptionCompletesEveryYield(t *testing.T) {
	s := newService(t, 4)

	const n = 64
	tasks := make([]*task.Task[int], n)
	for i := 0; i < n; i++ {
		tasks[i] = s.Yield(0)
	}

	last := tasks[n-1]
	ioservice.Run(s, last)

	for i, tk := range tasks {
		v, err := tk.Result()
		if err != nil {
			t.Fatalf("task %d: unexpected error: %v", i, err)
		}
		if v < 0 {
			t.Fatalf("task %d failed with %v", i, syscall.Errno(-v))
		}
	}
}
