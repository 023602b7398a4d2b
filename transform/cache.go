package transform

import (
	"fmt"

	"github.com/okhsunrog/llm-relay/types"
)

// CacheConfig controls cache breakpoint placement.
type CacheConfig struct {
	MaxBreakpoints int
	MarkSystem     bool
	MarkHistory    bool
	MarkTools      bool
}

// DefaultCacheConfig marks the stable request prefix, the system prompt
// and the settled history tail, within the provider limit of four
// breakpoints.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{MaxBreakpoints: 4, MarkSystem: true, MarkHistory: true}
}

// InjectCacheControl returns a copy of the request with ephemeral cache
// markers placed per cfg: on the last system block, on the last markable
// block of the second-to-last message, and on the last tool definition.
// Sections the request does not have are skipped. Marking an already
// marked block replaces the marker rather than adding a breakpoint.
// Existing markers count toward the limit, and a request that ends up
// over cfg.MaxBreakpoints is rejected whole; markers are never dropped
// to make it fit.
func InjectCacheControl(req types.ChatRequest, cfg CacheConfig) (types.ChatRequest, error) {
	out := req
	count := countBreakpoints(req)

	if cfg.MarkSystem && len(req.System) > 0 {
		out.System = cloneBlocks(req.System)
		last := &out.System[len(out.System)-1]
		if last.CacheControl == nil {
			count++
		}
		last.CacheControl = types.EphemeralCacheControl()
	}

	if cfg.MarkHistory && len(req.Messages) >= 2 {
		idx := len(req.Messages) - 2
		if j := lastMarkable(req.Messages[idx].Content); j >= 0 {
			out.Messages = cloneMessages(req.Messages)
			msg := &out.Messages[idx]
			msg.Content = cloneBlocks(msg.Content)
			if msg.Content[j].CacheControl == nil {
				count++
			}
			msg.Content[j].CacheControl = types.EphemeralCacheControl()
		}
	}

	if cfg.MarkTools && len(req.Tools) > 0 {
		out.Tools = make([]types.ToolDefinition, len(req.Tools))
		copy(out.Tools, req.Tools)
		last := &out.Tools[len(out.Tools)-1]
		if last.CacheControl == nil {
			count++
		}
		last.CacheControl = types.EphemeralCacheControl()
	}

	if count > cfg.MaxBreakpoints {
		return types.ChatRequest{}, fmt.Errorf("%w: %d breakpoints, limit %d", ErrBreakpointLimit, count, cfg.MaxBreakpoints)
	}
	return out, nil
}

// lastMarkable finds the last block that may carry a cache marker.
// Thinking blocks cannot.
func lastMarkable(blocks []types.ContentBlock) int {
	for j := len(blocks) - 1; j >= 0; j-- {
		switch blocks[j].Type {
		case types.BlockTypeThinking, types.BlockTypeRedactedThinking:
		default:
			return j
		}
	}
	return -1
}

func countBreakpoints(req types.ChatRequest) int {
	n := 0
	for _, b := range req.System {
		if b.CacheControl != nil {
			n++
		}
	}
	for _, m := range req.Messages {
		for _, b := range m.Content {
			if b.CacheControl != nil {
				n++
			}
		}
	}
	for _, t := range req.Tools {
		if t.CacheControl != nil {
			n++
		}
	}
	return n
}

func cloneBlocks(blocks []types.ContentBlock) []types.ContentBlock {
	out := make([]types.ContentBlock, len(blocks))
	copy(out, blocks)
	return out
}

func cloneMessages(msgs []types.Message) []types.Message {
	out := make([]types.Message, len(msgs))
	copy(out, msgs)
	return out
}
