package types

import (
	"fmt"
	"regexp"
)

// ToolNameMaxLen bounds tool identifiers, per the stricter of the two
// providers' rules.
const ToolNameMaxLen = 64

var toolNameRe = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateToolName checks an identifier against the tool name grammar.
func ValidateToolName(name string) error {
	if name == "" {
		return fmt.Errorf("tool name is empty")
	}
	if len(name) > ToolNameMaxLen {
		return fmt.Errorf("tool name %q exceeds %d characters", name, ToolNameMaxLen)
	}
	if !toolNameRe.MatchString(name) {
		return fmt.Errorf("tool name %q contains characters outside [a-zA-Z0-9_-]", name)
	}
	return nil
}

// ValidateRequest checks the structural invariants of a transport-bound
// request. It does not judge model capabilities.
func ValidateRequest(r *ChatRequest) error {
	if r.Model == "" {
		return fmt.Errorf("model is required")
	}
	if r.MaxTokens < 1 {
		return fmt.Errorf("max_tokens must be at least 1")
	}
	if len(r.Messages) == 0 {
		return fmt.Errorf("messages must not be empty")
	}
	for i, m := range r.Messages {
		if m.Role != RoleUser && m.Role != RoleAssistant {
			return fmt.Errorf("messages[%d]: role %q is not allowed in a conversation turn", i, m.Role)
		}
		if len(m.Content) == 0 {
			return fmt.Errorf("messages[%d]: content must not be empty", i)
		}
		for j, b := range m.Content {
			if err := validateBlock(b); err != nil {
				return fmt.Errorf("messages[%d].content[%d]: %w", i, j, err)
			}
		}
	}
	seen := make(map[string]struct{}, len(r.Tools))
	for i, t := range r.Tools {
		if err := ValidateToolName(t.Name); err != nil {
			return fmt.Errorf("tools[%d]: %w", i, err)
		}
		if _, dup := seen[t.Name]; dup {
			return fmt.Errorf("tools[%d]: duplicate tool name %q", i, t.Name)
		}
		seen[t.Name] = struct{}{}
	}
	if tc := r.ToolChoice; tc != nil {
		switch tc.Type {
		case ToolChoiceAuto, ToolChoiceAny, ToolChoiceNone:
		case ToolChoiceTool:
			if tc.Name == "" {
				return fmt.Errorf("tool_choice: name is required for type %q", ToolChoiceTool)
			}
		default:
			return fmt.Errorf("tool_choice: unknown type %q", tc.Type)
		}
	}
	if th := r.Thinking; th != nil {
		switch th.Type {
		case ThinkingDisabled, ThinkingAdaptive:
		case ThinkingEnabled:
			if th.BudgetTokens < MinThinkingBudget {
				return fmt.Errorf("thinking: budget_tokens %d is below the minimum %d", th.BudgetTokens, MinThinkingBudget)
			}
		default:
			return fmt.Errorf("thinking: unknown type %q", th.Type)
		}
	}
	return nil
}

func validateBlock(b ContentBlock) error {
	switch b.Type {
	case BlockTypeText:
		if b.Text == "" {
			return fmt.Errorf("text block is empty")
		}
	case BlockTypeImage:
		if b.Source == nil {
			return fmt.Errorf("image block has no source")
		}
		switch b.Source.Type {
		case ImageSourceBase64:
			if b.Source.Data == "" || b.Source.MediaType == "" {
				return fmt.Errorf("base64 image source needs media_type and data")
			}
		case ImageSourceURL:
			if b.Source.URL == "" {
				return fmt.Errorf("url image source needs url")
			}
		default:
			return fmt.Errorf("unknown image source type %q", b.Source.Type)
		}
	case BlockTypeToolUse:
		if b.ID == "" || b.Name == "" {
			return fmt.Errorf("tool_use block needs id and name")
		}
	case BlockTypeToolResult:
		if b.ToolUseID == "" {
			return fmt.Errorf("tool_result block needs tool_use_id")
		}
	case BlockTypeThinking:
		if b.Thinking == "" {
			return fmt.Errorf("thinking block is empty")
		}
	case BlockTypeRedactedThinking:
		if b.Data == "" {
			return fmt.Errorf("redacted_thinking block has no data")
		}
	default:
		return fmt.Errorf("unknown block type %q", b.Type)
	}
	return nil
}
