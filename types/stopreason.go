package types

// StopReason explains why generation ended. Values outside the known
// constants are provider extensions carried verbatim so callers can
// observe them; they still map across formats without error.
type StopReason string

// Known stop reasons.
const (
	StopReasonEndTurn      StopReason = "end_turn"
	StopReasonToolUse      StopReason = "tool_use"
	StopReasonMaxTokens    StopReason = "max_tokens"
	StopReasonStopSequence StopReason = "stop_sequence"
)

// Known reports whether s is one of the canonical stop reasons.
func (s StopReason) Known() bool {
	switch s {
	case StopReasonEndTurn, StopReasonToolUse, StopReasonMaxTokens, StopReasonStopSequence:
		return true
	}
	return false
}

// FinishReason maps a canonical stop reason to the alternate
// finish_reason token. Unknown values pass through unchanged.
func (s StopReason) FinishReason() string {
	switch s {
	case StopReasonEndTurn:
		return "stop"
	case StopReasonToolUse:
		return "tool_calls"
	case StopReasonMaxTokens:
		return "length"
	case StopReasonStopSequence:
		return "stop"
	default:
		return string(s)
	}
}

// StopReasonFromFinishReason maps an alternate finish_reason token to
// the canonical stop reason. Unknown values pass through unchanged.
func StopReasonFromFinishReason(reason string) StopReason {
	switch reason {
	case "stop":
		return StopReasonEndTurn
	case "tool_calls", "function_call":
		return StopReasonToolUse
	case "length":
		return StopReasonMaxTokens
	default:
		return StopReason(reason)
	}
}
