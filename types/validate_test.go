package types

import (
	"strings"
	"testing"
)

func validRequest() ChatRequest {
	return ChatRequest{
		Model:     "claude-sonnet-4-5",
		MaxTokens: 1024,
		Messages:  []Message{UserMessage("hi")},
	}
}

func TestValidateRequestAcceptsMinimal(t *testing.T) {
	r := validRequest()
	if err := ValidateRequest(&r); err != nil {
		t.Fatalf("ValidateRequest returned error: %v", err)
	}
}

func TestValidateRequestRejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ChatRequest)
		wantSub string
	}{
		{"missing model", func(r *ChatRequest) { r.Model = "" }, "model"},
		{"zero max_tokens", func(r *ChatRequest) { r.MaxTokens = 0 }, "max_tokens"},
		{"no messages", func(r *ChatRequest) { r.Messages = nil }, "messages"},
		{"system role turn", func(r *ChatRequest) {
			r.Messages = []Message{{Role: RoleSystem, Content: []ContentBlock{TextBlock("x")}}}
		}, "role"},
		{"empty content", func(r *ChatRequest) {
			r.Messages = []Message{{Role: RoleUser}}
		}, "content"},
		{"empty text block", func(r *ChatRequest) {
			r.Messages = []Message{{Role: RoleUser, Content: []ContentBlock{TextBlock("")}}}
		}, "text block"},
		{"tool_use without id", func(r *ChatRequest) {
			r.Messages = []Message{{Role: RoleAssistant, Content: []ContentBlock{{Type: BlockTypeToolUse, Name: "f"}}}}
		}, "tool_use"},
		{"tool_result without id", func(r *ChatRequest) {
			r.Messages = []Message{{Role: RoleUser, Content: []ContentBlock{{Type: BlockTypeToolResult}}}}
		}, "tool_result"},
		{"unknown block type", func(r *ChatRequest) {
			r.Messages = []Message{{Role: RoleUser, Content: []ContentBlock{{Type: "video"}}}}
		}, "unknown block"},
		{"bad tool name", func(r *ChatRequest) {
			r.Tools = []ToolDefinition{{Name: "mcp.server/tool"}}
		}, "tool name"},
		{"duplicate tool name", func(r *ChatRequest) {
			r.Tools = []ToolDefinition{{Name: "dup"}, {Name: "dup"}}
		}, "duplicate"},
		{"tool_choice tool without name", func(r *ChatRequest) {
			r.ToolChoice = &ToolChoice{Type: ToolChoiceTool}
		}, "tool_choice"},
		{"thinking budget below minimum", func(r *ChatRequest) {
			r.Thinking = &ThinkingConfig{Type: ThinkingEnabled, BudgetTokens: 512}
		}, "budget_tokens"},
		{"unknown thinking type", func(r *ChatRequest) {
			r.Thinking = &ThinkingConfig{Type: "turbo"}
		}, "thinking"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRequest()
			tt.mutate(&r)
			err := ValidateRequest(&r)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Fatalf("error %q does not mention %q", err, tt.wantSub)
			}
		})
	}
}

func TestValidateToolName(t *testing.T) {
	if err := ValidateToolName("get_weather-v2"); err != nil {
		t.Fatalf("valid name rejected: %v", err)
	}
	if err := ValidateToolName(""); err == nil {
		t.Fatal("empty name accepted")
	}
	if err := ValidateToolName(strings.Repeat("a", ToolNameMaxLen+1)); err == nil {
		t.Fatal("overlong name accepted")
	}
	if err := ValidateToolName("mcp.server/tool"); err == nil {
		t.Fatal("name with punctuation accepted")
	}
}
