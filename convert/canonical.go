package convert

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/okhsunrog/llm-relay/types"
)

// ChatRequestFromOpenAI converts an OpenAI-style chat completion request
// into canonical form. System and developer messages become system blocks,
// tool-role messages become tool_result blocks on a user turn, and
// consecutive tool-role messages coalesce into a single user turn so the
// grouping survives a round trip.
func ChatRequestFromOpenAI(req types.ChatCompletionRequest) (types.ChatRequest, error) {
	out := types.ChatRequest{
		Model:         req.Model,
		Temperature:   req.Temperature,
		TopP:          req.TopP,
		StopSequences: req.Stop,
		Stream:        req.Stream,
	}
	// max_completion_tokens supersedes the deprecated max_tokens.
	if req.MaxCompletionTokens > 0 {
		out.MaxTokens = req.MaxCompletionTokens
	} else {
		out.MaxTokens = req.MaxTokens
	}

	prevWasTool := false
	for i, msg := range req.Messages {
		switch msg.Role {
		case "system", "developer":
			blocks, err := systemBlocksFromContent(msg.Content)
			if err != nil {
				return types.ChatRequest{}, wrapAt(i, err)
			}
			out.System = append(out.System, blocks...)
			prevWasTool = false
		case "tool":
			block, err := toolResultFromMessage(msg)
			if err != nil {
				return types.ChatRequest{}, wrapAt(i, err)
			}
			if prevWasTool && len(out.Messages) > 0 {
				last := &out.Messages[len(out.Messages)-1]
				last.Content = append(last.Content, block)
			} else {
				out.Messages = append(out.Messages, types.Message{
					Role:    types.RoleUser,
					Content: []types.ContentBlock{block},
				})
			}
			prevWasTool = true
		case "assistant":
			m, err := assistantFromMessage(msg)
			if err != nil {
				return types.ChatRequest{}, wrapAt(i, err)
			}
			out.Messages = append(out.Messages, m)
			prevWasTool = false
		default:
			// user, plus any role this schema does not know, carries
			// over as a user turn.
			blocks, err := blocksFromContent(msg.Content)
			if err != nil {
				return types.ChatRequest{}, wrapAt(i, err)
			}
			if len(blocks) == 0 {
				return types.ChatRequest{}, wrapAt(i, errMalformed("message has no content"))
			}
			out.Messages = append(out.Messages, types.Message{Role: types.RoleUser, Content: blocks})
			prevWasTool = false
		}
	}

	for i, tool := range req.Tools {
		if tool.Type != "" && tool.Type != "function" {
			return types.ChatRequest{}, errUnsupported("tools[%d]: unsupported tool type %q", i, tool.Type)
		}
		if tool.Function == nil || tool.Function.Name == "" {
			return types.ChatRequest{}, errMalformed("tools[%d]: missing function definition", i)
		}
		out.Tools = append(out.Tools, types.ToolDefinition{
			Name:        tool.Function.Name,
			Description: tool.Function.Description,
			InputSchema: tool.Function.Parameters,
		})
	}

	if req.ToolChoice != nil {
		choice, err := toolChoiceFromOpenAI(req.ToolChoice)
		if err != nil {
			return types.ChatRequest{}, err
		}
		out.ToolChoice = choice
	}

	if req.ReasoningEffort != "" {
		out.Thinking = &types.ThinkingConfig{Type: types.ThinkingAdaptive}
		out.OutputConfig = &types.OutputConfig{Effort: effortFromOpenAI(req.ReasoningEffort)}
	}

	return out, nil
}

// ChatResponseFromOpenAI converts a chat completion response into canonical
// form. Only the first choice is considered. reasoning_content is never
// reconstructed into thinking blocks; its provenance cannot be proven.
func ChatResponseFromOpenAI(resp types.ChatCompletionResponse) (types.ChatResponse, error) {
	if len(resp.Choices) == 0 {
		return types.ChatResponse{}, errMalformed("response has no choices")
	}
	choice := resp.Choices[0]

	out := types.ChatResponse{
		ID:    resp.ID,
		Type:  "message",
		Role:  types.RoleAssistant,
		Model: resp.Model,
	}

	if choice.Message.Content != nil && *choice.Message.Content != "" {
		out.Content = append(out.Content, types.TextBlock(*choice.Message.Content))
	}
	for i, tc := range choice.Message.ToolCalls {
		block, err := toolUseFromCall(tc)
		if err != nil {
			return types.ChatResponse{}, wrapField("tool_calls", i, err)
		}
		out.Content = append(out.Content, block)
	}

	if choice.FinishReason != nil && *choice.FinishReason != "" {
		out.StopReason = types.StopReasonFromFinishReason(*choice.FinishReason)
	}

	if u := resp.Usage; u != nil {
		out.Usage = types.Usage{
			InputTokens:  u.PromptTokens,
			OutputTokens: u.CompletionTokens,
		}
		if u.CompletionTokensDetails != nil {
			out.Usage.ThinkingTokens = u.CompletionTokensDetails.ReasoningTokens
		}
		if u.PromptTokensDetails != nil {
			out.Usage.CacheReadInputTokens = u.PromptTokensDetails.CachedTokens
		}
	}

	return out, nil
}

func wrapAt(i int, err error) error {
	return wrapField("messages", i, err)
}

func wrapField(field string, i int, err error) error {
	if e, ok := AsError(err); ok {
		return &Error{
			Kind:    e.Kind,
			Message: field + "[" + strconv.Itoa(i) + "]: " + e.Message,
			Cause:   e.Cause,
		}
	}
	return err
}

// systemBlocksFromContent accepts only textual content for system and
// developer messages. Anything else has no canonical system equivalent.
func systemBlocksFromContent(content any) ([]types.ContentBlock, error) {
	switch c := content.(type) {
	case nil:
		return nil, nil
	case string:
		if c == "" {
			return nil, nil
		}
		return []types.ContentBlock{types.TextBlock(c)}, nil
	case []any:
		var blocks []types.ContentBlock
		for i, raw := range c {
			part, ok := raw.(map[string]any)
			if !ok {
				return nil, errMalformed("content[%d]: expected object part, got %T", i, raw)
			}
			ptype, _ := part["type"].(string)
			if ptype != "text" {
				return nil, errUnsupported("content[%d]: system message with %q part", i, ptype)
			}
			text, _ := part["text"].(string)
			if text == "" {
				return nil, errMalformed("content[%d]: text part without text", i)
			}
			blocks = append(blocks, types.TextBlock(text))
		}
		return blocks, nil
	default:
		return nil, errMalformed("system content: expected string or parts, got %T", content)
	}
}

// blocksFromContent converts user-side message content, either a plain
// string or an array of typed parts.
func blocksFromContent(content any) ([]types.ContentBlock, error) {
	switch c := content.(type) {
	case nil:
		return nil, nil
	case string:
		if c == "" {
			return nil, nil
		}
		return []types.ContentBlock{types.TextBlock(c)}, nil
	case []any:
		return blocksFromParts(c)
	default:
		return nil, errMalformed("content: expected string or parts, got %T", content)
	}
}

func blocksFromParts(parts []any) ([]types.ContentBlock, error) {
	var blocks []types.ContentBlock
	for i, raw := range parts {
		part, ok := raw.(map[string]any)
		if !ok {
			return nil, errMalformed("content[%d]: expected object part, got %T", i, raw)
		}
		ptype, _ := part["type"].(string)
		switch ptype {
		case "text":
			text, _ := part["text"].(string)
			if text == "" {
				return nil, errMalformed("content[%d]: text part without text", i)
			}
			blocks = append(blocks, types.TextBlock(text))
		case "image_url":
			url := imageURLFromPart(part)
			if url == "" {
				return nil, errMalformed("content[%d]: image part without url", i)
			}
			src, err := imageSourceFromURL(url)
			if err != nil {
				return nil, wrapField("content", i, err)
			}
			blocks = append(blocks, types.ContentBlock{Type: types.BlockTypeImage, Source: src})
		default:
			return nil, errUnsupported("content[%d]: unsupported part type %q", i, ptype)
		}
	}
	return blocks, nil
}

// imageURLFromPart tolerates both the nested {"image_url":{"url":...}}
// shape and the flattened {"image_url":"..."} shape seen in the wild.
func imageURLFromPart(part map[string]any) string {
	switch v := part["image_url"].(type) {
	case string:
		return v
	case map[string]any:
		url, _ := v["url"].(string)
		return url
	default:
		return ""
	}
}

// imageSourceFromURL classifies an image reference. data: URLs become
// inline base64 sources, http(s) URLs stay by reference.
func imageSourceFromURL(url string) (*types.ImageSource, error) {
	if strings.HasPrefix(url, "data:") {
		rest := strings.TrimPrefix(url, "data:")
		mediaType, data, found := strings.Cut(rest, ";base64,")
		if !found || mediaType == "" || data == "" {
			return nil, errMalformed("image data url is not base64 encoded")
		}
		return &types.ImageSource{
			Type:      types.ImageSourceBase64,
			MediaType: mediaType,
			Data:      data,
		}, nil
	}
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		return &types.ImageSource{Type: types.ImageSourceURL, URL: url}, nil
	}
	return nil, errMalformed("unsupported image url scheme in %q", truncateForError(url))
}

func assistantFromMessage(msg types.ChatCompletionMessage) (types.Message, error) {
	out := types.Message{Role: types.RoleAssistant}

	blocks, err := blocksFromContent(msg.Content)
	if err != nil {
		return types.Message{}, err
	}
	for _, b := range blocks {
		if b.Type != types.BlockTypeText {
			return types.Message{}, errUnsupported("assistant message with %q content", b.Type)
		}
	}
	out.Content = blocks

	for i, tc := range msg.ToolCalls {
		block, err := toolUseFromCall(tc)
		if err != nil {
			return types.Message{}, wrapField("tool_calls", i, err)
		}
		out.Content = append(out.Content, block)
	}

	if len(out.Content) == 0 {
		return types.Message{}, errMalformed("assistant message has no content")
	}
	return out, nil
}

func toolUseFromCall(tc types.ToolCall) (types.ContentBlock, error) {
	if tc.Type != "" && tc.Type != "function" {
		return types.ContentBlock{}, errUnsupported("unsupported tool call type %q", tc.Type)
	}
	if tc.ID == "" {
		return types.ContentBlock{}, errMalformed("tool call missing id")
	}
	if tc.Function.Name == "" {
		return types.ContentBlock{}, errMalformed("tool call missing function name")
	}
	input, err := parseToolArguments(tc.Function.Arguments)
	if err != nil {
		return types.ContentBlock{}, err
	}
	return types.ToolUseBlock(tc.ID, tc.Function.Name, input), nil
}

// parseToolArguments decodes the JSON-string arguments of a tool call.
// An empty string normalizes to an empty object; anything else that does
// not parse is a malformed-input error, never a silent default.
func parseToolArguments(args string) (any, error) {
	trimmed := strings.TrimSpace(args)
	if trimmed == "" {
		return map[string]any{}, nil
	}
	var v any
	if err := json.Unmarshal([]byte(trimmed), &v); err != nil {
		return nil, &Error{
			Kind:    ErrKindMalformedInput,
			Message: "tool call arguments are not valid JSON: " + truncateForError(trimmed),
			Cause:   err,
		}
	}
	return v, nil
}

func toolResultFromMessage(msg types.ChatCompletionMessage) (types.ContentBlock, error) {
	if msg.ToolCallID == "" {
		return types.ContentBlock{}, errMalformed("tool message missing tool_call_id")
	}
	blocks, err := blocksFromContent(msg.Content)
	if err != nil {
		return types.ContentBlock{}, err
	}
	return types.ContentBlock{
		Type:      types.BlockTypeToolResult,
		ToolUseID: msg.ToolCallID,
		Content:   blocks,
	}, nil
}

func toolChoiceFromOpenAI(choice any) (*types.ToolChoice, error) {
	switch c := choice.(type) {
	case string:
		switch c {
		case "auto":
			return &types.ToolChoice{Type: types.ToolChoiceAuto}, nil
		case "none":
			return &types.ToolChoice{Type: types.ToolChoiceNone}, nil
		case "required":
			return &types.ToolChoice{Type: types.ToolChoiceAny}, nil
		default:
			return nil, errMalformed("unknown tool_choice %q", c)
		}
	case map[string]any:
		ctype, _ := c["type"].(string)
		if ctype != "" && ctype != "function" {
			return nil, errUnsupported("unsupported tool_choice type %q", ctype)
		}
		fn, _ := c["function"].(map[string]any)
		name, _ := fn["name"].(string)
		if name == "" {
			return nil, errMalformed("tool_choice function missing name")
		}
		return &types.ToolChoice{Type: types.ToolChoiceTool, Name: name}, nil
	default:
		return nil, errMalformed("tool_choice: expected string or object, got %T", choice)
	}
}

// effortFromOpenAI folds reasoning_effort onto the canonical effort scale.
// Unrecognized values pass through untouched so nothing is silently lost.
func effortFromOpenAI(effort string) string {
	if effort == "minimal" {
		return types.EffortLow
	}
	return effort
}

func truncateForError(s string) string {
	const max = 48
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
