package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Role identifies the author of a message.
type Role string

// Message roles. Canonical conversations carry only user and assistant
// turns; system content travels in the request's System field.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Content block type tags.
const (
	BlockTypeText             = "text"
	BlockTypeImage            = "image"
	BlockTypeToolUse          = "tool_use"
	BlockTypeToolResult       = "tool_result"
	BlockTypeThinking         = "thinking"
	BlockTypeRedactedThinking = "redacted_thinking"
)

// Image source kinds.
const (
	ImageSourceBase64 = "base64"
	ImageSourceURL    = "url"
)

// ContentBlock is one typed unit of message content. Type selects the
// variant; only the fields belonging to that variant are set.
type ContentBlock struct {
	Type string `json:"type"`

	// text
	Text string `json:"text,omitempty"`

	// image
	Source *ImageSource `json:"source,omitempty"`

	// tool_use
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Input any    `json:"input,omitempty"`

	// tool_result
	ToolUseID string         `json:"tool_use_id,omitempty"`
	Content   []ContentBlock `json:"content,omitempty"`
	IsError   *bool          `json:"is_error,omitempty"`

	// thinking
	Thinking  string `json:"thinking,omitempty"`
	Signature string `json:"signature,omitempty"`

	// redacted_thinking
	Data string `json:"data,omitempty"`

	CacheControl *CacheControl `json:"cache_control,omitempty"`
}

// ImageSource locates image data for an image block.
type ImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type,omitempty"`
	Data      string `json:"data,omitempty"`
	URL       string `json:"url,omitempty"`
}

// CacheControl marks a cacheable request-prefix boundary.
type CacheControl struct {
	Type string `json:"type"`
}

// EphemeralCacheControl returns the standard cache boundary marker.
func EphemeralCacheControl() *CacheControl {
	return &CacheControl{Type: "ephemeral"}
}

// UnmarshalJSON accepts the documented shorthand for tool_result
// content, where a bare string stands for a single text block.
func (b *ContentBlock) UnmarshalJSON(data []byte) error {
	type alias ContentBlock
	aux := struct {
		Content json.RawMessage `json:"content"`
		*alias
	}{alias: (*alias)(b)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	blocks, err := parseBlockList(aux.Content)
	if err != nil {
		return fmt.Errorf("tool_result content: %w", err)
	}
	b.Content = blocks
	return nil
}

// Message is a single conversation turn.
type Message struct {
	Role    Role           `json:"role"`
	Content []ContentBlock `json:"content"`
}

// UnmarshalJSON accepts bare-string content as shorthand for a single
// text block.
func (m *Message) UnmarshalJSON(data []byte) error {
	type alias Message
	aux := struct {
		Content json.RawMessage `json:"content"`
		*alias
	}{alias: (*alias)(m)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	blocks, err := parseBlockList(aux.Content)
	if err != nil {
		return fmt.Errorf("content for role %q: %w", m.Role, err)
	}
	m.Content = blocks
	return nil
}

// parseBlockList decodes a content value that may be a JSON string or
// an array of blocks.
func parseBlockList(raw json.RawMessage) ([]ContentBlock, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return []ContentBlock{TextBlock(s)}, nil
	}
	var blocks []ContentBlock
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return nil, fmt.Errorf("expected string or block array")
	}
	if len(blocks) == 0 {
		return nil, nil
	}
	return blocks, nil
}

// ToolDefinition declares a tool the model may invoke.
type ToolDefinition struct {
	Name         string        `json:"name"`
	Description  string        `json:"description,omitempty"`
	InputSchema  any           `json:"input_schema,omitempty"`
	CacheControl *CacheControl `json:"cache_control,omitempty"`
}

// Tool choice modes.
const (
	ToolChoiceAuto = "auto"
	ToolChoiceAny  = "any"
	ToolChoiceTool = "tool"
	ToolChoiceNone = "none"
)

// ToolChoice constrains which tool the model may call.
type ToolChoice struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
}

// Thinking configuration kinds.
const (
	ThinkingDisabled = "disabled"
	ThinkingAdaptive = "adaptive"
	ThinkingEnabled  = "enabled"
)

// MinThinkingBudget is the provider's minimum manual thinking budget.
const MinThinkingBudget = 1024

// ThinkingConfig governs extended reasoning. ThinkingEnabled carries a
// manual token budget; ThinkingAdaptive lets the provider decide,
// optionally steered by OutputConfig.Effort on the request.
type ThinkingConfig struct {
	Type         string `json:"type"`
	BudgetTokens int    `json:"budget_tokens,omitempty"`
}

// Effort levels for adaptive thinking.
const (
	EffortLow    = "low"
	EffortMedium = "medium"
	EffortHigh   = "high"
	EffortMax    = "max"
)

// OutputConfig carries the adaptive-thinking effort hint.
type OutputConfig struct {
	Effort string `json:"effort,omitempty"`
}

// ChatRequest is the canonical chat request.
type ChatRequest struct {
	Model         string           `json:"model"`
	MaxTokens     int              `json:"max_tokens,omitempty"`
	System        []ContentBlock   `json:"system,omitempty"`
	Messages      []Message        `json:"messages"`
	Tools         []ToolDefinition `json:"tools,omitempty"`
	ToolChoice    *ToolChoice      `json:"tool_choice,omitempty"`
	Thinking      *ThinkingConfig  `json:"thinking,omitempty"`
	OutputConfig  *OutputConfig    `json:"output_config,omitempty"`
	Temperature   *float64         `json:"temperature,omitempty"`
	TopP          *float64         `json:"top_p,omitempty"`
	StopSequences []string         `json:"stop_sequences,omitempty"`
	Stream        bool             `json:"stream,omitempty"`
}

// UnmarshalJSON accepts bare-string system content as shorthand for a
// single text block.
func (r *ChatRequest) UnmarshalJSON(data []byte) error {
	type alias ChatRequest
	aux := struct {
		System json.RawMessage `json:"system"`
		*alias
	}{alias: (*alias)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	blocks, err := parseBlockList(aux.System)
	if err != nil {
		return fmt.Errorf("system: %w", err)
	}
	r.System = blocks
	return nil
}

// ChatResponse is the canonical chat response.
type ChatResponse struct {
	ID           string         `json:"id,omitempty"`
	Type         string         `json:"type,omitempty"`
	Role         Role           `json:"role,omitempty"`
	Model        string         `json:"model,omitempty"`
	Content      []ContentBlock `json:"content"`
	StopReason   StopReason     `json:"stop_reason,omitempty"`
	StopSequence *string        `json:"stop_sequence,omitempty"`
	Usage        Usage          `json:"usage"`
}

// Text concatenates the text blocks of the response.
func (r *ChatResponse) Text() string {
	var out strings.Builder
	for _, b := range r.Content {
		if b.Type == BlockTypeText {
			out.WriteString(b.Text)
		}
	}
	return out.String()
}

// ThinkingText concatenates the thinking blocks of the response.
func (r *ChatResponse) ThinkingText() string {
	var out strings.Builder
	for _, b := range r.Content {
		if b.Type == BlockTypeThinking {
			out.WriteString(b.Thinking)
		}
	}
	return out.String()
}

// ToolUses returns the tool_use blocks of the response in order.
func (r *ChatResponse) ToolUses() []ContentBlock {
	var uses []ContentBlock
	for _, b := range r.Content {
		if b.Type == BlockTypeToolUse {
			uses = append(uses, b)
		}
	}
	return uses
}

// HasToolUse reports whether the response requests any tool call.
func (r *ChatResponse) HasToolUse() bool {
	for _, b := range r.Content {
		if b.Type == BlockTypeToolUse {
			return true
		}
	}
	return false
}

// Usage holds token accounting for a chat or embeddings exchange.
// Optional fields stay zero when the provider does not report them.
type Usage struct {
	InputTokens              int `json:"input_tokens"`
	OutputTokens             int `json:"output_tokens"`
	ThinkingTokens           int `json:"thinking_tokens,omitempty"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens,omitempty"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens,omitempty"`
}

// EmbeddingRequest is the canonical embeddings request.
type EmbeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// UnmarshalJSON accepts a bare string as shorthand for a single input.
func (r *EmbeddingRequest) UnmarshalJSON(data []byte) error {
	type alias EmbeddingRequest
	aux := struct {
		Input json.RawMessage `json:"input"`
		*alias
	}{alias: (*alias)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(aux.Input) == 0 || string(aux.Input) == "null" {
		r.Input = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(aux.Input, &s); err == nil {
		r.Input = []string{s}
		return nil
	}
	var list []string
	if err := json.Unmarshal(aux.Input, &list); err != nil {
		return fmt.Errorf("input: expected string or string array")
	}
	r.Input = list
	return nil
}

// EmbeddingResponse is the canonical embeddings response. Vectors are
// ordered to match the request inputs.
type EmbeddingResponse struct {
	Vectors [][]float64 `json:"vectors"`
	Usage   Usage       `json:"usage"`
}

// TextBlock builds a text content block.
func TextBlock(text string) ContentBlock {
	return ContentBlock{Type: BlockTypeText, Text: text}
}

// ImageBlockBase64 builds an image block from inline base64 data.
func ImageBlockBase64(mediaType, data string) ContentBlock {
	return ContentBlock{Type: BlockTypeImage, Source: &ImageSource{
		Type:      ImageSourceBase64,
		MediaType: mediaType,
		Data:      data,
	}}
}

// ImageBlockURL builds an image block referencing a remote URL.
func ImageBlockURL(url string) ContentBlock {
	return ContentBlock{Type: BlockTypeImage, Source: &ImageSource{
		Type: ImageSourceURL,
		URL:  url,
	}}
}

// ToolUseBlock builds a tool_use block.
func ToolUseBlock(id, name string, input any) ContentBlock {
	return ContentBlock{Type: BlockTypeToolUse, ID: id, Name: name, Input: input}
}

// ToolResultBlock builds a tool_result block carrying plain text.
// is_error is emitted only when set.
func ToolResultBlock(toolUseID, text string, isError bool) ContentBlock {
	b := ContentBlock{
		Type:      BlockTypeToolResult,
		ToolUseID: toolUseID,
		Content:   []ContentBlock{TextBlock(text)},
	}
	if isError {
		b.IsError = BoolPtr(true)
	}
	return b
}

// UserMessage builds a single-text user turn.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: []ContentBlock{TextBlock(text)}}
}

// AssistantMessage builds a single-text assistant turn.
func AssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Content: []ContentBlock{TextBlock(text)}}
}

// SystemBlocks wraps plain system text in its block form.
func SystemBlocks(text string) []ContentBlock {
	if text == "" {
		return nil
	}
	return []ContentBlock{TextBlock(text)}
}
