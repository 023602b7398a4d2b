package convert

import (
	"reflect"
	"testing"

	"github.com/okhsunrog/llm-relay/types"
)

func TestChatRequestToOpenAIBasic(t *testing.T) {
	req := types.ChatRequest{
		Model:     "test-model",
		MaxTokens: 512,
		System:    types.SystemBlocks("Be terse."),
		Messages: []types.Message{
			types.UserMessage("Hello"),
		},
		Temperature: types.Float64Ptr(0.2),
	}

	got, err := ChatRequestToOpenAI(req)
	if err != nil {
		t.Fatalf("ChatRequestToOpenAI: %v", err)
	}
	if got.Model != "test-model" || got.MaxTokens != 512 {
		t.Errorf("envelope: got %+v", got)
	}
	if len(got.Messages) != 2 {
		t.Fatalf("Messages: got %d, want 2", len(got.Messages))
	}
	if got.Messages[0].Role != "system" || got.Messages[0].Content != "Be terse." {
		t.Errorf("system message: got %+v", got.Messages[0])
	}
	if got.Messages[1].Role != "user" || got.Messages[1].Content != "Hello" {
		t.Errorf("user message: got %+v", got.Messages[1])
	}
}

func TestChatRequestToOpenAISystemJoin(t *testing.T) {
	req := types.ChatRequest{
		Model: "m",
		System: []types.ContentBlock{
			types.TextBlock("first"),
			types.TextBlock("second"),
		},
		Messages: []types.Message{types.UserMessage("hi")},
	}
	got, err := ChatRequestToOpenAI(req)
	if err != nil {
		t.Fatalf("ChatRequestToOpenAI: %v", err)
	}
	if got.Messages[0].Content != "first\n\nsecond" {
		t.Errorf("system join: got %q", got.Messages[0].Content)
	}
}

func TestChatRequestToOpenAIToolResultExpansion(t *testing.T) {
	req := types.ChatRequest{
		Model: "m",
		Messages: []types.Message{
			{
				Role: types.RoleUser,
				Content: []types.ContentBlock{
					types.ToolResultBlock("call_1", "result one", false),
					types.ToolResultBlock("call_2", "result two", true),
					types.TextBlock("keep going"),
				},
			},
		},
	}

	got, err := ChatRequestToOpenAI(req)
	if err != nil {
		t.Fatalf("ChatRequestToOpenAI: %v", err)
	}
	if len(got.Messages) != 3 {
		t.Fatalf("Messages: got %d, want 3", len(got.Messages))
	}
	first := got.Messages[0]
	if first.Role != "tool" || first.ToolCallID != "call_1" || first.Content != "result one" {
		t.Errorf("first tool message: got %+v", first)
	}
	second := got.Messages[1]
	if second.Role != "tool" || second.ToolCallID != "call_2" {
		t.Errorf("second tool message: got %+v", second)
	}
	if second.Content != "Error: result two" {
		t.Errorf("error marker: got %q, want %q", second.Content, "Error: result two")
	}
	if got.Messages[2].Role != "user" || got.Messages[2].Content != "keep going" {
		t.Errorf("trailing user message: got %+v", got.Messages[2])
	}
}

func TestChatRequestToOpenAIMixedContentKeepsOrder(t *testing.T) {
	req := types.ChatRequest{
		Model: "m",
		Messages: []types.Message{
			{
				Role: types.RoleUser,
				Content: []types.ContentBlock{
					types.TextBlock("before"),
					types.ToolResultBlock("call_1", "tool says", false),
					types.TextBlock("after"),
				},
			},
		},
	}
	got, err := ChatRequestToOpenAI(req)
	if err != nil {
		t.Fatalf("ChatRequestToOpenAI: %v", err)
	}
	roles := make([]string, len(got.Messages))
	for i, m := range got.Messages {
		roles[i] = m.Role
	}
	want := []string{"user", "tool", "user"}
	if !reflect.DeepEqual(roles, want) {
		t.Fatalf("roles: got %v, want %v", roles, want)
	}
	if got.Messages[0].Content != "before" || got.Messages[2].Content != "after" {
		t.Errorf("flushed text: got %+v", got.Messages)
	}
}

func TestChatRequestToOpenAIImageContent(t *testing.T) {
	req := types.ChatRequest{
		Model: "m",
		Messages: []types.Message{
			{
				Role: types.RoleUser,
				Content: []types.ContentBlock{
					types.TextBlock("look at this"),
					types.ImageBlockBase64("image/png", "iVBORw0KGgo="),
				},
			},
		},
	}
	got, err := ChatRequestToOpenAI(req)
	if err != nil {
		t.Fatalf("ChatRequestToOpenAI: %v", err)
	}
	parts, ok := got.Messages[0].Content.([]types.ContentPart)
	if !ok {
		t.Fatalf("Content: got %T, want parts", got.Messages[0].Content)
	}
	if len(parts) != 2 || parts[0].Type != "text" || parts[1].Type != "image_url" {
		t.Fatalf("parts: got %+v", parts)
	}
	if parts[1].ImageURL.URL != "data:image/png;base64,iVBORw0KGgo=" {
		t.Errorf("image url: got %q", parts[1].ImageURL.URL)
	}
}

func TestChatRequestToOpenAIAssistantToolCalls(t *testing.T) {
	input := map[string]any{"a": float64(1), "b": []any{true, nil}}
	req := types.ChatRequest{
		Model: "m",
		Messages: []types.Message{
			{
				Role: types.RoleAssistant,
				Content: []types.ContentBlock{
					types.TextBlock("calling"),
					types.ToolUseBlock("call_7", "search", input),
				},
			},
		},
	}
	got, err := ChatRequestToOpenAI(req)
	if err != nil {
		t.Fatalf("ChatRequestToOpenAI: %v", err)
	}
	m := got.Messages[0]
	if m.Role != "assistant" || m.Content != "calling" {
		t.Errorf("assistant message: got %+v", m)
	}
	if len(m.ToolCalls) != 1 {
		t.Fatalf("ToolCalls: got %d, want 1", len(m.ToolCalls))
	}
	back, err := parseToolArguments(m.ToolCalls[0].Function.Arguments)
	if err != nil {
		t.Fatalf("parseToolArguments: %v", err)
	}
	if !reflect.DeepEqual(back, input) {
		t.Errorf("arguments round trip: got %#v, want %#v", back, input)
	}
}

func TestChatRequestToOpenAINilToolInput(t *testing.T) {
	req := types.ChatRequest{
		Model: "m",
		Messages: []types.Message{
			{
				Role:    types.RoleAssistant,
				Content: []types.ContentBlock{types.ToolUseBlock("call_1", "ping", nil)},
			},
		},
	}
	got, err := ChatRequestToOpenAI(req)
	if err != nil {
		t.Fatalf("ChatRequestToOpenAI: %v", err)
	}
	if args := got.Messages[0].ToolCalls[0].Function.Arguments; args != "{}" {
		t.Errorf("Arguments: got %q, want %q", args, "{}")
	}
}

func TestChatRequestToOpenAIManualBudgetDropped(t *testing.T) {
	req := types.ChatRequest{
		Model:    "m",
		Messages: []types.Message{types.UserMessage("hi")},
		Thinking: &types.ThinkingConfig{Type: types.ThinkingEnabled, BudgetTokens: 2000},
	}
	got, err := ChatRequestToOpenAI(req)
	if err != nil {
		t.Fatalf("manual budget must not error: %v", err)
	}
	if got.ReasoningEffort != "" {
		t.Errorf("ReasoningEffort: got %q, want empty", got.ReasoningEffort)
	}
}

func TestChatRequestToOpenAIAdaptiveEffort(t *testing.T) {
	tests := []struct {
		effort string
		want   string
	}{
		{types.EffortLow, "low"},
		{types.EffortMedium, "medium"},
		{types.EffortHigh, "high"},
		{types.EffortMax, "high"},
	}
	for _, tt := range tests {
		t.Run(tt.effort, func(t *testing.T) {
			req := types.ChatRequest{
				Model:        "m",
				Messages:     []types.Message{types.UserMessage("hi")},
				Thinking:     &types.ThinkingConfig{Type: types.ThinkingAdaptive},
				OutputConfig: &types.OutputConfig{Effort: tt.effort},
			}
			got, err := ChatRequestToOpenAI(req)
			if err != nil {
				t.Fatalf("ChatRequestToOpenAI: %v", err)
			}
			if got.ReasoningEffort != tt.want {
				t.Errorf("ReasoningEffort: got %q, want %q", got.ReasoningEffort, tt.want)
			}
		})
	}
}

func TestChatRequestToOpenAIThinkingOnlyTurnVanishes(t *testing.T) {
	req := types.ChatRequest{
		Model: "m",
		Messages: []types.Message{
			types.UserMessage("question"),
			{
				Role: types.RoleAssistant,
				Content: []types.ContentBlock{
					{Type: types.BlockTypeThinking, Thinking: "hmm", Signature: "sig"},
				},
			},
			types.UserMessage("follow up"),
		},
	}
	got, err := ChatRequestToOpenAI(req)
	if err != nil {
		t.Fatalf("ChatRequestToOpenAI: %v", err)
	}
	for _, m := range got.Messages {
		if m.Role == "assistant" {
			t.Fatalf("thinking-only assistant turn must vanish: %+v", got.Messages)
		}
	}
	if len(got.Messages) != 2 {
		t.Errorf("Messages: got %d, want 2", len(got.Messages))
	}
}

func TestChatRequestToOpenAIRejectsToolResultImage(t *testing.T) {
	req := types.ChatRequest{
		Model: "m",
		Messages: []types.Message{
			{
				Role: types.RoleUser,
				Content: []types.ContentBlock{
					{
						Type:      types.BlockTypeToolResult,
						ToolUseID: "call_1",
						Content: []types.ContentBlock{
							types.ImageBlockBase64("image/png", "iVBORw0KGgo="),
						},
					},
				},
			},
		},
	}
	_, err := ChatRequestToOpenAI(req)
	if !IsKind(err, ErrKindUnsupportedConstruct) {
		t.Fatalf("got %v, want %v", err, ErrKindUnsupportedConstruct)
	}
}

func TestChatResponseToOpenAI(t *testing.T) {
	resp := types.ChatResponse{
		ID:    "msg_01",
		Type:  "message",
		Role:  types.RoleAssistant,
		Model: "m",
		Content: []types.ContentBlock{
			{Type: types.BlockTypeThinking, Thinking: "working it out", Signature: "s"},
			types.TextBlock("The answer is 4."),
			types.ToolUseBlock("tu_1", "calc", map[string]any{"expr": "2+2"}),
		},
		StopReason: types.StopReasonToolUse,
		Usage: types.Usage{
			InputTokens:    10,
			OutputTokens:   20,
			ThinkingTokens: 7,
		},
	}

	got, err := ChatResponseToOpenAI(resp)
	if err != nil {
		t.Fatalf("ChatResponseToOpenAI: %v", err)
	}
	if got.ID != "msg_01" || got.Object != "chat.completion" || got.Model != "m" {
		t.Errorf("envelope: got %+v", got)
	}
	if len(got.Choices) != 1 {
		t.Fatalf("Choices: got %d, want 1", len(got.Choices))
	}
	choice := got.Choices[0]
	if choice.Message.Content == nil || *choice.Message.Content != "The answer is 4." {
		t.Errorf("content: got %v", choice.Message.Content)
	}
	if choice.Message.ReasoningContent != "working it out" {
		t.Errorf("reasoning_content: got %q", choice.Message.ReasoningContent)
	}
	if len(choice.Message.ToolCalls) != 1 || choice.Message.ToolCalls[0].Function.Name != "calc" {
		t.Errorf("tool_calls: got %+v", choice.Message.ToolCalls)
	}
	if choice.FinishReason == nil || *choice.FinishReason != "tool_calls" {
		t.Errorf("finish_reason: got %v", choice.FinishReason)
	}
	if got.Usage == nil || got.Usage.PromptTokens != 10 || got.Usage.CompletionTokens != 20 || got.Usage.TotalTokens != 30 {
		t.Errorf("usage: got %+v", got.Usage)
	}
	if got.Usage.CompletionTokensDetails == nil || got.Usage.CompletionTokensDetails.ReasoningTokens != 7 {
		t.Errorf("reasoning tokens: got %+v", got.Usage.CompletionTokensDetails)
	}
	if got.Created != 0 {
		t.Errorf("Created must stay unset: got %d", got.Created)
	}
}

func TestChatResponseToOpenAITextOnlyHasNullToolCalls(t *testing.T) {
	resp := types.ChatResponse{
		ID:         "msg_02",
		Role:       types.RoleAssistant,
		Model:      "m",
		Content:    []types.ContentBlock{types.TextBlock("hi")},
		StopReason: types.StopReasonEndTurn,
	}
	got, err := ChatResponseToOpenAI(resp)
	if err != nil {
		t.Fatalf("ChatResponseToOpenAI: %v", err)
	}
	if got.Choices[0].Message.ToolCalls != nil {
		t.Errorf("ToolCalls: got %+v, want nil", got.Choices[0].Message.ToolCalls)
	}
	if fr := got.Choices[0].FinishReason; fr == nil || *fr != "stop" {
		t.Errorf("finish_reason: got %v, want stop", fr)
	}
}

func TestRequestRoundTripThroughOpenAI(t *testing.T) {
	orig := types.ChatRequest{
		Model:     "test-model",
		MaxTokens: 300,
		System:    types.SystemBlocks("Be helpful."),
		Messages: []types.Message{
			types.UserMessage("What is the weather?"),
			{
				Role: types.RoleAssistant,
				Content: []types.ContentBlock{
					types.ToolUseBlock("call_1", "weather", map[string]any{"city": "Oslo"}),
				},
			},
			{
				Role: types.RoleUser,
				Content: []types.ContentBlock{
					{
						Type:      types.BlockTypeToolResult,
						ToolUseID: "call_1",
						Content:   []types.ContentBlock{types.TextBlock("Sunny, 21C")},
					},
				},
			},
			types.UserMessage("Thanks!"),
		},
	}

	wire, err := ChatRequestToOpenAI(orig)
	if err != nil {
		t.Fatalf("ChatRequestToOpenAI: %v", err)
	}
	back, err := ChatRequestFromOpenAI(wire)
	if err != nil {
		t.Fatalf("ChatRequestFromOpenAI: %v", err)
	}

	if !reflect.DeepEqual(back.System, orig.System) {
		t.Errorf("System: got %+v, want %+v", back.System, orig.System)
	}
	if len(back.Messages) != len(orig.Messages) {
		t.Fatalf("message count: got %d, want %d", len(back.Messages), len(orig.Messages))
	}
	for i := range orig.Messages {
		if back.Messages[i].Role != orig.Messages[i].Role {
			t.Errorf("messages[%d] role: got %q, want %q", i, back.Messages[i].Role, orig.Messages[i].Role)
		}
	}
	if !reflect.DeepEqual(back.Messages[1].Content, orig.Messages[1].Content) {
		t.Errorf("tool_use round trip: got %+v, want %+v", back.Messages[1].Content, orig.Messages[1].Content)
	}
	if back.Messages[2].Content[0].ToolUseID != "call_1" {
		t.Errorf("tool linkage: got %q, want call_1", back.Messages[2].Content[0].ToolUseID)
	}
	if back.Messages[3].Content[0].Text != "Thanks!" {
		t.Errorf("text content: got %q", back.Messages[3].Content[0].Text)
	}
}

func TestResponseRoundTripThroughCanonical(t *testing.T) {
	finish := "stop"
	content := "All done."
	orig := types.ChatCompletionResponse{
		ID:    "chatcmpl-42",
		Model: "m",
		Choices: []types.ChatChoice{{
			Message:      types.ChatResponseMsg{Role: "assistant", Content: &content},
			FinishReason: &finish,
		}},
		Usage: &types.ChatCompletionUsage{PromptTokens: 3, CompletionTokens: 4, TotalTokens: 7},
	}

	canonical, err := ChatResponseFromOpenAI(orig)
	if err != nil {
		t.Fatalf("ChatResponseFromOpenAI: %v", err)
	}
	back, err := ChatResponseToOpenAI(canonical)
	if err != nil {
		t.Fatalf("ChatResponseToOpenAI: %v", err)
	}

	if back.ID != orig.ID || back.Model != orig.Model {
		t.Errorf("envelope: got %+v", back)
	}
	if *back.Choices[0].Message.Content != content {
		t.Errorf("content: got %q", *back.Choices[0].Message.Content)
	}
	if *back.Choices[0].FinishReason != finish {
		t.Errorf("finish_reason: got %q", *back.Choices[0].FinishReason)
	}
	if back.Usage.TotalTokens != 7 {
		t.Errorf("usage: got %+v", back.Usage)
	}
}
