//go:build linux

package liburing_test

import (
	"github.com/faizol/uringcoro/pkg/liburing"
	"testing"
)

func TestNew(t *testing.T) {
	ring, ringErr := liburing.New(liburing.WithEntries(4))
	if ringErr != nil {
		t.Error(ringErr)
		return
	}
	defer ring.Close()

	t.Log("sq:", ring.SQEntries())
	t.Log("cq:", ring.CQEntries())
	probe, probeErr := ring.Probe()
	if probeErr != nil {
		t.Error(probeErr)
		return
	}
	t.Log("read:", probe.IsSupported(liburing.IORING_OP_READ))
	t.Log("openat:", probe.IsSupported(liburing.IORING_OP_OPENAT))
	t.Log("socket:", probe.IsSupported(liburing.IORING_OP_SOCKET))

	sq := ring.GetSQE()
	if sq == nil {
		t.Error("SQE is nil")
		return
	}
	sq.PrepareNop()
	sq.SetData64(1)

	n, subErr := ring.Submit()
	if subErr != nil {
		t.Error(subErr)
		return
	}
	t.Log("sub:", n)

	cqe, waitErr := ring.WaitCQE()
	if waitErr != nil {
		t.Error(waitErr)
		return
	}
	if cqe.UserData == sq.UserData {
		t.Log("succeed")
	} else {
		t.Error("UserData not equal")
	}
}
