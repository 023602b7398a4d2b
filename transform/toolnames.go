package transform

import (
	"fmt"
	"strings"

	"github.com/okhsunrog/llm-relay/types"
)

// EncodeToolName rewrites a tool name so that only letters, digits and
// underscores remain. Any other byte becomes a dash followed by its two
// lowercase hex digits. The encoding is total and injective, so
// DecodeToolName can always recover the original.
func EncodeToolName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		if isSafeNameByte(c) {
			b.WriteByte(c)
		} else {
			fmt.Fprintf(&b, "-%02x", c)
		}
	}
	return b.String()
}

// DecodeToolName inverts EncodeToolName. It accepts exactly the image of
// the encoder: a dash must introduce two lowercase hex digits, and the
// escaped byte must be one the encoder would actually escape. Everything
// else is ErrUnknownEncodedName.
func DecodeToolName(encoded string) (string, error) {
	var b strings.Builder
	b.Grow(len(encoded))
	for i := 0; i < len(encoded); {
		c := encoded[i]
		if isSafeNameByte(c) {
			b.WriteByte(c)
			i++
			continue
		}
		if c != '-' {
			return "", fmt.Errorf("%w: invalid byte %q in %q", ErrUnknownEncodedName, c, encoded)
		}
		if i+2 >= len(encoded) {
			return "", fmt.Errorf("%w: truncated escape in %q", ErrUnknownEncodedName, encoded)
		}
		hi, okHi := unhexLower(encoded[i+1])
		lo, okLo := unhexLower(encoded[i+2])
		if !okHi || !okLo {
			return "", fmt.Errorf("%w: invalid escape %q in %q", ErrUnknownEncodedName, encoded[i:i+3], encoded)
		}
		decoded := hi<<4 | lo
		if isSafeNameByte(decoded) {
			return "", fmt.Errorf("%w: escape %q of unreserved byte in %q", ErrUnknownEncodedName, encoded[i:i+3], encoded)
		}
		b.WriteByte(decoded)
		i += 3
	}
	return b.String(), nil
}

func isSafeNameByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_'
}

func unhexLower(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	default:
		return 0, false
	}
}

// EncodeRequestToolNames returns a copy of the request with every tool
// name encoded: the tool definitions, a named tool_choice, and tool_use
// blocks in assistant history, which must keep matching the definitions.
func EncodeRequestToolNames(req types.ChatRequest) (types.ChatRequest, error) {
	out := req

	if len(req.Tools) > 0 {
		out.Tools = make([]types.ToolDefinition, len(req.Tools))
		copy(out.Tools, req.Tools)
		for i := range out.Tools {
			encoded, err := encodeBounded(out.Tools[i].Name)
			if err != nil {
				return types.ChatRequest{}, err
			}
			out.Tools[i].Name = encoded
		}
	}

	if req.ToolChoice != nil && req.ToolChoice.Name != "" {
		choice := *req.ToolChoice
		encoded, err := encodeBounded(choice.Name)
		if err != nil {
			return types.ChatRequest{}, err
		}
		choice.Name = encoded
		out.ToolChoice = &choice
	}

	if len(req.Messages) > 0 {
		out.Messages = make([]types.Message, len(req.Messages))
		copy(out.Messages, req.Messages)
		for i := range out.Messages {
			msg := &out.Messages[i]
			if !hasToolUse(msg.Content) {
				continue
			}
			blocks := make([]types.ContentBlock, len(msg.Content))
			copy(blocks, msg.Content)
			for j := range blocks {
				if blocks[j].Type != types.BlockTypeToolUse {
					continue
				}
				encoded, err := encodeBounded(blocks[j].Name)
				if err != nil {
					return types.ChatRequest{}, err
				}
				blocks[j].Name = encoded
			}
			msg.Content = blocks
		}
	}

	return out, nil
}

// DecodeResponseToolNames returns a copy of the response with tool_use
// names restored to their originals. A name the encoder could not have
// produced is ErrUnknownEncodedName; the response belongs to somebody
// else's naming scheme and restoring it would corrupt the linkage.
func DecodeResponseToolNames(resp types.ChatResponse) (types.ChatResponse, error) {
	if !hasToolUse(resp.Content) {
		return resp, nil
	}
	out := resp
	out.Content = make([]types.ContentBlock, len(resp.Content))
	copy(out.Content, resp.Content)
	for i := range out.Content {
		if out.Content[i].Type != types.BlockTypeToolUse {
			continue
		}
		decoded, err := DecodeToolName(out.Content[i].Name)
		if err != nil {
			return types.ChatResponse{}, err
		}
		out.Content[i].Name = decoded
	}
	return out, nil
}

func encodeBounded(name string) (string, error) {
	encoded := EncodeToolName(name)
	if len(encoded) > types.ToolNameMaxLen {
		return "", fmt.Errorf("%w: %q encodes to %d bytes, limit %d", ErrEncodedNameTooLong, name, len(encoded), types.ToolNameMaxLen)
	}
	return encoded, nil
}

func hasToolUse(blocks []types.ContentBlock) bool {
	for _, b := range blocks {
		if b.Type == types.BlockTypeToolUse {
			return true
		}
	}
	return false
}
