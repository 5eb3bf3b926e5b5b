package fwait

import "errors"

// Exit codes reported by the fwait process. Codes 0 through 3 match the
// historical behavior of the tool; 4 and 5 cover bounded waits and
// infrastructure failures.
const (
	ExitOK          = 0
	ExitCannotLock  = 1
	ExitIsDirectory = 2
	ExitFileMissing = 3
	ExitWaitAborted = 4
	ExitInternal    = 5
)

// Sentinel errors returned by the lock manager and the wait engine. Callers
// match them with errors.Is; each maps to exactly one exit code.
var (
	// ErrCannotLock means another process already holds the target's lock.
	ErrCannotLock = errors.New("cannot acquire target lock")

	// ErrIsDirectory means the target is a directory, which cannot be
	// tracked for updates.
	ErrIsDirectory = errors.New("target is a directory")

	// ErrFileMissing means the target existed when the update wait started
	// but disappeared during polling.
	ErrFileMissing = errors.New("target went missing")

	// ErrWaitAborted means the wait timed out or was canceled before the
	// target condition was met.
	ErrWaitAborted = errors.New("wait aborted")
)

// ExitCode maps an error returned by the engine to the process exit code.
// A nil error maps to ExitOK; anything outside the sentinel taxonomy is an
// infrastructure failure and maps to ExitInternal.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrCannotLock):
		return ExitCannotLock
	case errors.Is(err, ErrIsDirectory):
		return ExitIsDirectory
	case errors.Is(err, ErrFileMissing):
		return ExitFileMissing
	case errors.Is(err, ErrWaitAborted):
		return ExitWaitAborted
	default:
		return ExitInternal
	}
}
