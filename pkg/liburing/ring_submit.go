//go:build linux

package liburing

// Submit flushes the prepared SQEs to the kernel without waiting for any
// completions. It mirrors liburing's io_uring_submit(3): a plain syscall
// enter when the kernel needs poking, or a no-op when SQPOLL has already
// picked the entries up.
func (ring *Ring) Submit() (uint, error) {
	return ring.submit(0, false)
}

// SubmitAndWait flushes the prepared SQEs and blocks in the kernel until at
// least waitNr completions are available.
func (ring *Ring) SubmitAndWait(waitNr uint32) (uint, error) {
	return ring.submit(waitNr, false)
}

// SubmitAndGetEvents is like Submit but also asks the kernel to reap any
// already-ready completions into the CQ ring before returning.
func (ring *Ring) SubmitAndGetEvents() (uint, error) {
	return ring.submit(0, true)
}

func (ring *Ring) submit(waitNr uint32, getEvents bool) (uint, error) {
	submitted := ring.flushSQ()

	var flags uint32
	needsEnter := ring.sqRingNeedsEnter(submitted, &flags)

	if waitNr > 0 || getEvents {
		flags |= IORING_ENTER_GETEVENTS
		needsEnter = true
	}
	if ring.kind&regRing != 0 {
		flags |= IORING_ENTER_REGISTERED_RING
	}

	if !needsEnter {
		return uint(submitted), nil
	}
	return ring.Enter(submitted, waitNr, flags, nil)
}
