package ad

import "fmt"

// UsageError signals a contract violation by the caller: a size
// mismatch, an out-of-order Forward/Reverse call, or a recording
// started or finished out of turn. The engine does not attempt
// recovery; it panics with a UsageError and expects the host to
// recover at whatever boundary it controls.
type UsageError struct {
	Msg string
}

func (e *UsageError) Error() string { return "ad: usage error: " + e.Msg }

func usageError(format string, args ...interface{}) {
	panic(&UsageError{Msg: fmt.Sprintf(format, args...)})
}

// UnknownError signals an engine-internal invariant violation: a bug
// in the engine itself, not in client code. Checks that raise
// UnknownError are gated by DebugChecks, which a host can set to
// false to skip them.
type UnknownError struct {
	Msg string
}

func (e *UnknownError) Error() string { return "ad: internal error: " + e.Msg }

// DebugChecks enables UnknownError assertions. It defaults to true;
// setting it to false skips them.
var DebugChecks = true

func assertUnknown(cond bool, format string, args ...interface{}) {
	if DebugChecks && !cond {
		panic(&UnknownError{Msg: fmt.Sprintf(format, args...)})
	}
}
