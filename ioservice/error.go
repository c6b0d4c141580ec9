package ioservice

import (
	"fmt"
	"runtime/debug"
	"syscall"

	"github.com/brickingsoft/errors"
)

// ErrSetupFailed tags a failure to bring up the ring itself in New — a
// fatal, synchronous, Go-error failure, unlike the signed-int results
// individual operations return. Registration failures are tagged with
// ErrRegistrationFailed instead.
var ErrSetupFailed = errors.Define("ioservice: ring setup failed")

// ErrRegistrationFailed tags a failure from one of the synchronous
// registration calls (RegisterFiles, RegisterBuffers, and friends).
var ErrRegistrationFailed = errors.Define("ioservice: registration failed")

// Debug gates the stack trace attached by PanicOnError. It mirrors the
// debug-build-only backtrace the combinator this is grounded on prints;
// flip it on in tests or when chasing a panic, leave it off otherwise.
var Debug = false

// IsCanceled reports whether a raw operation result is the kernel's
// -ECANCELED, i.e. the operation was aborted via Promise.Cancel.
func IsCanceled(result int32) bool {
	return result == -int32(syscall.ECANCELED)
}

// IsTimeout reports whether a raw operation result is the kernel's
// -ETIME, the result every linked or explicit Timeout op resolves with
// when it fires rather than being raced out by its sibling.
func IsTimeout(result int32) bool {
	return result == -int32(syscall.ETIME)
}

// PanicOnError is the "or die" combinator: pipe any operation's raw result
// through it to turn every negative result except -ETIME into a fatal
// abort, and pass everything else through unchanged. -ETIME is excluded
// because a timeout racing its sibling operation is an expected, commonly
// ignored outcome, not a programming error.
func PanicOnError(result int32, command string) int32 {
	if result < 0 && result != -int32(syscall.ETIME) {
		err := fmt.Errorf("%s: %w", command, syscall.Errno(-result))
		if Debug {
			panic(fmt.Errorf("%w\n%s", err, debug.Stack()))
		}
		panic(err)
	}
	return result
}
