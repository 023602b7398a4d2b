package convert

import (
	"encoding/json"
	"strings"

	"github.com/okhsunrog/llm-relay/types"
)

// ChatRequestToOpenAI converts a canonical chat request into the OpenAI
// chat completion shape. System blocks become a leading system message,
// tool_result blocks expand into tool-role messages in block order, and
// thinking configuration maps through only where an equivalent exists.
func ChatRequestToOpenAI(req types.ChatRequest) (types.ChatCompletionRequest, error) {
	out := types.ChatCompletionRequest{
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		Stop:        req.StopSequences,
		Stream:      req.Stream,
	}

	if len(req.System) > 0 {
		text, err := systemText(req.System)
		if err != nil {
			return types.ChatCompletionRequest{}, err
		}
		if text != "" {
			out.Messages = append(out.Messages, types.ChatCompletionMessage{
				Role:    "system",
				Content: text,
			})
		}
	}

	for i, msg := range req.Messages {
		converted, err := openAIMessagesFromCanonical(msg)
		if err != nil {
			return types.ChatCompletionRequest{}, wrapAt(i, err)
		}
		out.Messages = append(out.Messages, converted...)
	}

	for _, t := range req.Tools {
		out.Tools = append(out.Tools, types.ChatTool{
			Type: "function",
			Function: &types.FunctionDef{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.InputSchema,
			},
		})
	}

	if req.ToolChoice != nil {
		choice, err := toolChoiceToOpenAI(req.ToolChoice)
		if err != nil {
			return types.ChatCompletionRequest{}, err
		}
		out.ToolChoice = choice
	}

	if req.Thinking != nil && req.Thinking.Type == types.ThinkingAdaptive {
		if req.OutputConfig != nil && req.OutputConfig.Effort != "" {
			out.ReasoningEffort = effortToOpenAI(req.OutputConfig.Effort)
		}
	}
	// Manual thinking budgets have no chat-completion equivalent and are
	// dropped without error. Disabled thinking emits nothing.

	return out, nil
}

// ChatResponseToOpenAI converts a canonical response into the chat
// completion envelope. Thinking text surfaces as reasoning_content,
// redacted thinking is opaque and dropped. The id and model carry over
// verbatim; timestamps are the caller's concern.
func ChatResponseToOpenAI(resp types.ChatResponse) (types.ChatCompletionResponse, error) {
	msg := types.ChatResponseMsg{Role: "assistant"}

	var texts []string
	var reasoning strings.Builder
	for i, b := range resp.Content {
		switch b.Type {
		case types.BlockTypeText:
			texts = append(texts, b.Text)
		case types.BlockTypeThinking:
			reasoning.WriteString(b.Thinking)
		case types.BlockTypeRedactedThinking:
			// Opaque payload, not representable.
		case types.BlockTypeToolUse:
			args, err := marshalToolInput(b.Input)
			if err != nil {
				return types.ChatCompletionResponse{}, wrapField("content", i, err)
			}
			msg.ToolCalls = append(msg.ToolCalls, types.ToolCall{
				ID:   b.ID,
				Type: "function",
				Function: types.FunctionCall{
					Name:      b.Name,
					Arguments: args,
				},
			})
		default:
			return types.ChatCompletionResponse{}, errUnsupported("content[%d]: %q block in response", i, b.Type)
		}
	}
	if len(texts) > 0 {
		msg.Content = types.StringPtr(strings.Join(texts, ""))
	}
	msg.ReasoningContent = reasoning.String()

	choice := types.ChatChoice{Index: 0, Message: msg}
	if resp.StopReason != "" {
		choice.FinishReason = types.StringPtr(resp.StopReason.FinishReason())
	}

	out := types.ChatCompletionResponse{
		ID:      resp.ID,
		Object:  "chat.completion",
		Model:   resp.Model,
		Choices: []types.ChatChoice{choice},
		Usage: &types.ChatCompletionUsage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
	}
	if resp.Usage.ThinkingTokens > 0 {
		out.Usage.CompletionTokensDetails = &types.CompletionTokensDetails{
			ReasoningTokens: resp.Usage.ThinkingTokens,
		}
	}
	if resp.Usage.CacheReadInputTokens > 0 {
		out.Usage.PromptTokensDetails = &types.PromptTokensDetails{
			CachedTokens: resp.Usage.CacheReadInputTokens,
		}
	}
	return out, nil
}

// systemText flattens system blocks into a single prompt, joined with
// blank lines. Non-text system blocks cannot cross this boundary.
func systemText(blocks []types.ContentBlock) (string, error) {
	var parts []string
	for i, b := range blocks {
		if b.Type != types.BlockTypeText {
			return "", errUnsupported("system[%d]: %q block has no system-message equivalent", i, b.Type)
		}
		if b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n\n"), nil
}

// openAIMessagesFromCanonical expands one canonical message into one or
// more chat completion messages. tool_result blocks must become tool-role
// messages of their own, so pending text and image parts flush to a user
// message whenever one appears, preserving block order.
func openAIMessagesFromCanonical(msg types.Message) ([]types.ChatCompletionMessage, error) {
	if len(msg.Content) == 0 {
		return nil, errMalformed("message has no content")
	}
	switch msg.Role {
	case types.RoleAssistant:
		return assistantToOpenAI(msg)
	case types.RoleUser:
		return userToOpenAI(msg)
	case types.RoleSystem:
		text, err := systemText(msg.Content)
		if err != nil {
			return nil, err
		}
		return []types.ChatCompletionMessage{{Role: "system", Content: text}}, nil
	default:
		return nil, errSchema("unknown message role %q", msg.Role)
	}
}

func userToOpenAI(msg types.Message) ([]types.ChatCompletionMessage, error) {
	var out []types.ChatCompletionMessage
	var pending []types.ContentPart
	pendingTextOnly := true

	flush := func() {
		if len(pending) == 0 {
			return
		}
		m := types.ChatCompletionMessage{Role: "user"}
		if pendingTextOnly {
			var texts []string
			for _, p := range pending {
				texts = append(texts, p.Text)
			}
			m.Content = strings.Join(texts, "\n")
		} else {
			m.Content = pending
		}
		out = append(out, m)
		pending = nil
		pendingTextOnly = true
	}

	for i, b := range msg.Content {
		switch b.Type {
		case types.BlockTypeText:
			pending = append(pending, types.ContentPart{Type: "text", Text: b.Text})
		case types.BlockTypeImage:
			url, err := imageURLFromSource(b.Source)
			if err != nil {
				return nil, wrapField("content", i, err)
			}
			pending = append(pending, types.ContentPart{Type: "image_url", ImageURL: &types.ImageURL{URL: url}})
			pendingTextOnly = false
		case types.BlockTypeToolResult:
			flush()
			m, err := toolResultToOpenAI(b)
			if err != nil {
				return nil, wrapField("content", i, err)
			}
			out = append(out, m)
		default:
			return nil, errUnsupported("content[%d]: %q block in a user message", i, b.Type)
		}
	}
	flush()
	return out, nil
}

func assistantToOpenAI(msg types.Message) ([]types.ChatCompletionMessage, error) {
	m := types.ChatCompletionMessage{Role: "assistant"}

	var texts []string
	for i, b := range msg.Content {
		switch b.Type {
		case types.BlockTypeText:
			texts = append(texts, b.Text)
		case types.BlockTypeToolUse:
			args, err := marshalToolInput(b.Input)
			if err != nil {
				return nil, wrapField("content", i, err)
			}
			m.ToolCalls = append(m.ToolCalls, types.ToolCall{
				ID:   b.ID,
				Type: "function",
				Function: types.FunctionCall{
					Name:      b.Name,
					Arguments: args,
				},
			})
		case types.BlockTypeThinking, types.BlockTypeRedactedThinking:
			// Dropped on this boundary. The reverse direction never
			// reconstructs them, so the loss is one-way and final.
		default:
			return nil, errUnsupported("content[%d]: %q block in an assistant message", i, b.Type)
		}
	}
	if len(texts) > 0 {
		m.Content = strings.Join(texts, "\n")
	}

	if m.Content == nil && len(m.ToolCalls) == 0 {
		// Thinking-only turns vanish entirely rather than producing an
		// empty assistant message the target schema rejects.
		return nil, nil
	}
	return []types.ChatCompletionMessage{m}, nil
}

// toolResultToOpenAI renders a tool_result block as a tool-role message.
// Nested text joins with newlines; an error result is prefixed with a
// conventional marker because the target has no error flag.
func toolResultToOpenAI(b types.ContentBlock) (types.ChatCompletionMessage, error) {
	if b.ToolUseID == "" {
		return types.ChatCompletionMessage{}, errMalformed("tool_result missing tool_use_id")
	}
	var texts []string
	for i, inner := range b.Content {
		if inner.Type != types.BlockTypeText {
			return types.ChatCompletionMessage{}, errUnsupported("tool_result content[%d]: %q block cannot cross this boundary", i, inner.Type)
		}
		texts = append(texts, inner.Text)
	}
	text := strings.Join(texts, "\n")
	if b.IsError != nil && *b.IsError {
		text = "Error: " + text
	}
	return types.ChatCompletionMessage{
		Role:       "tool",
		ToolCallID: b.ToolUseID,
		Content:    text,
	}, nil
}

func toolChoiceToOpenAI(choice *types.ToolChoice) (any, error) {
	switch choice.Type {
	case types.ToolChoiceAuto:
		return "auto", nil
	case types.ToolChoiceNone:
		return "none", nil
	case types.ToolChoiceAny:
		return "required", nil
	case types.ToolChoiceTool:
		if choice.Name == "" {
			return nil, errMalformed("tool_choice missing tool name")
		}
		return map[string]any{
			"type":     "function",
			"function": map[string]any{"name": choice.Name},
		}, nil
	default:
		return nil, errSchema("unknown tool_choice type %q", choice.Type)
	}
}

// marshalToolInput serializes tool input back to the JSON-string argument
// form. Absent input means an empty object, mirroring the reverse
// direction's normalization.
func marshalToolInput(input any) (string, error) {
	if input == nil {
		return "{}", nil
	}
	data, err := json.Marshal(input)
	if err != nil {
		return "", &Error{Kind: ErrKindSchemaViolation, Message: "tool input is not serializable", Cause: err}
	}
	return string(data), nil
}

func imageURLFromSource(src *types.ImageSource) (string, error) {
	if src == nil {
		return "", errMalformed("image block missing source")
	}
	switch src.Type {
	case types.ImageSourceBase64:
		if src.MediaType == "" || src.Data == "" {
			return "", errMalformed("base64 image source missing media_type or data")
		}
		return "data:" + src.MediaType + ";base64," + src.Data, nil
	case types.ImageSourceURL:
		if src.URL == "" {
			return "", errMalformed("url image source missing url")
		}
		return src.URL, nil
	default:
		return "", errUnsupported("unknown image source type %q", src.Type)
	}
}

// effortToOpenAI folds the canonical effort scale onto reasoning_effort.
// max downgrades to high, the strongest value the target defines.
func effortToOpenAI(effort string) string {
	if effort == types.EffortMax {
		return types.EffortHigh
	}
	return effort
}
