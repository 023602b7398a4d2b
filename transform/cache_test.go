package transform

import (
	"errors"
	"testing"

	"github.com/okhsunrog/llm-relay/types"
)

func cacheTestRequest() types.ChatRequest {
	return types.ChatRequest{
		Model:  "m",
		System: types.SystemBlocks("You are helpful."),
		Messages: []types.Message{
			types.UserMessage("first question"),
			types.AssistantMessage("first answer"),
			types.UserMessage("second question"),
		},
		Tools: []types.ToolDefinition{
			{Name: "lookup"},
			{Name: "fetch"},
		},
	}
}

func TestInjectCacheControlDefaults(t *testing.T) {
	req := cacheTestRequest()
	got, err := InjectCacheControl(req, DefaultCacheConfig())
	if err != nil {
		t.Fatalf("InjectCacheControl: %v", err)
	}

	if got.System[len(got.System)-1].CacheControl == nil {
		t.Error("last system block not marked")
	}
	history := got.Messages[1].Content
	if history[len(history)-1].CacheControl == nil {
		t.Error("settled history tail not marked")
	}
	if got.Messages[2].Content[0].CacheControl != nil {
		t.Error("latest message must stay unmarked")
	}
	if got.Tools[1].CacheControl != nil {
		t.Error("tools marked without MarkTools")
	}
	if n := countBreakpoints(got); n != 2 {
		t.Errorf("breakpoints: got %d, want 2", n)
	}
}

func TestInjectCacheControlMarkTools(t *testing.T) {
	cfg := CacheConfig{MaxBreakpoints: 4, MarkTools: true}
	got, err := InjectCacheControl(cacheTestRequest(), cfg)
	if err != nil {
		t.Fatalf("InjectCacheControl: %v", err)
	}
	if got.Tools[0].CacheControl != nil {
		t.Error("only the last tool definition should be marked")
	}
	if got.Tools[1].CacheControl == nil {
		t.Error("last tool definition not marked")
	}
	if got.System[0].CacheControl != nil {
		t.Error("system marked without MarkSystem")
	}
}

func TestInjectCacheControlDoesNotMutateInput(t *testing.T) {
	req := cacheTestRequest()
	if _, err := InjectCacheControl(req, DefaultCacheConfig()); err != nil {
		t.Fatalf("InjectCacheControl: %v", err)
	}
	if req.System[0].CacheControl != nil {
		t.Error("input system mutated")
	}
	for i, m := range req.Messages {
		for j, b := range m.Content {
			if b.CacheControl != nil {
				t.Errorf("input messages[%d].content[%d] mutated", i, j)
			}
		}
	}
}

func TestInjectCacheControlIdempotent(t *testing.T) {
	req := cacheTestRequest()
	once, err := InjectCacheControl(req, DefaultCacheConfig())
	if err != nil {
		t.Fatalf("first injection: %v", err)
	}
	twice, err := InjectCacheControl(once, DefaultCacheConfig())
	if err != nil {
		t.Fatalf("second injection: %v", err)
	}
	if n := countBreakpoints(twice); n != countBreakpoints(once) {
		t.Errorf("re-injection changed breakpoint count: %d vs %d", n, countBreakpoints(once))
	}
}

func TestInjectCacheControlSkipsMissingSections(t *testing.T) {
	req := types.ChatRequest{
		Model:    "m",
		Messages: []types.Message{types.UserMessage("only one turn")},
	}
	got, err := InjectCacheControl(req, DefaultCacheConfig())
	if err != nil {
		t.Fatalf("InjectCacheControl: %v", err)
	}
	if n := countBreakpoints(got); n != 0 {
		t.Errorf("breakpoints: got %d, want 0", n)
	}
}

func TestInjectCacheControlBreakpointLimit(t *testing.T) {
	req := cacheTestRequest()
	// Two pre-existing markers elsewhere plus two new ones exceed three.
	req.Messages[0].Content[0].CacheControl = types.EphemeralCacheControl()
	req.Tools[0].CacheControl = types.EphemeralCacheControl()

	cfg := DefaultCacheConfig()
	cfg.MaxBreakpoints = 3
	_, err := InjectCacheControl(req, cfg)
	if !errors.Is(err, ErrBreakpointLimit) {
		t.Fatalf("got %v, want ErrBreakpointLimit", err)
	}
}

func TestInjectCacheControlSkipsThinkingTail(t *testing.T) {
	req := types.ChatRequest{
		Model: "m",
		Messages: []types.Message{
			{
				Role: types.RoleAssistant,
				Content: []types.ContentBlock{
					types.TextBlock("visible"),
					{Type: types.BlockTypeThinking, Thinking: "hidden", Signature: "s"},
				},
			},
			types.UserMessage("next"),
		},
	}
	got, err := InjectCacheControl(req, DefaultCacheConfig())
	if err != nil {
		t.Fatalf("InjectCacheControl: %v", err)
	}
	content := got.Messages[0].Content
	if content[1].CacheControl != nil {
		t.Error("thinking block must not carry a marker")
	}
	if content[0].CacheControl == nil {
		t.Error("marker should land on the preceding text block")
	}
}
