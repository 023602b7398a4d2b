package transform

import "errors"

// Transform failures.
var (
	// ErrUnknownEncodedName marks input to DecodeToolName that could not
	// have been produced by EncodeToolName.
	ErrUnknownEncodedName = errors.New("transform: unknown encoded tool name")

	// ErrEncodedNameTooLong marks a tool name whose encoded form exceeds
	// the provider name length limit.
	ErrEncodedNameTooLong = errors.New("transform: encoded tool name too long")

	// ErrBreakpointLimit marks a request that already carries, or would
	// end up with, more cache breakpoints than allowed.
	ErrBreakpointLimit = errors.New("transform: cache breakpoint limit exceeded")
)
