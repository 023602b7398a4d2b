package types

import "fmt"

// --- Request types ---

// ChatCompletionRequest is a chat-completions request in the alternate
// wire format.
type ChatCompletionRequest struct {
	Model               string                  `json:"model"`
	Messages            []ChatCompletionMessage `json:"messages"`
	MaxTokens           int                     `json:"max_tokens,omitempty"`
	MaxCompletionTokens int                     `json:"max_completion_tokens,omitempty"`
	Temperature         *float64                `json:"temperature,omitempty"`
	TopP                *float64                `json:"top_p,omitempty"`
	Stop                []string                `json:"stop,omitempty"`
	Stream              bool                    `json:"stream,omitempty"`
	Tools               []ChatTool              `json:"tools,omitempty"`
	ToolChoice          any                     `json:"tool_choice,omitempty"`
	ReasoningEffort     string                  `json:"reasoning_effort,omitempty"`
	User                string                  `json:"user,omitempty"`
}

// ChatCompletionMessage is a single message in the alternate format.
// Content may be a string, a part list, or null (assistant tool-call
// turns).
type ChatCompletionMessage struct {
	Role       string     `json:"role"`
	Content    any        `json:"content,omitempty"`
	Name       string     `json:"name,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ContentPart is a part of a multimodal content array.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL holds an image URL reference.
type ImageURL struct {
	URL string `json:"url"`
}

// ChatTool wraps a function tool definition.
type ChatTool struct {
	Type     string       `json:"type"`
	Function *FunctionDef `json:"function,omitempty"`
}

// FunctionDef defines a function tool.
type FunctionDef struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Parameters  any    `json:"parameters,omitempty"`
}

// ToolCall is a function invocation requested by the model.
type ToolCall struct {
	ID       string       `json:"id,omitempty"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall holds the function name and its JSON-string arguments.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// --- Response types ---

// ChatCompletionResponse is a non-streaming chat-completions response.
type ChatCompletionResponse struct {
	ID      string               `json:"id,omitempty"`
	Object  string               `json:"object,omitempty"`
	Created int64                `json:"created,omitempty"`
	Model   string               `json:"model,omitempty"`
	Choices []ChatChoice         `json:"choices"`
	Usage   *ChatCompletionUsage `json:"usage,omitempty"`
}

// ChatChoice is a single response choice.
type ChatChoice struct {
	Index        int             `json:"index"`
	Message      ChatResponseMsg `json:"message"`
	FinishReason *string         `json:"finish_reason,omitempty"`
}

// ChatResponseMsg is the assistant message inside a choice. Content is
// null when the turn consists only of tool calls.
type ChatResponseMsg struct {
	Role             string     `json:"role,omitempty"`
	Content          *string    `json:"content"`
	ReasoningContent string     `json:"reasoning_content,omitempty"`
	ToolCalls        []ToolCall `json:"tool_calls,omitempty"`
}

// ChatCompletionUsage holds token usage in the alternate format.
type ChatCompletionUsage struct {
	PromptTokens            int                      `json:"prompt_tokens"`
	CompletionTokens        int                      `json:"completion_tokens"`
	TotalTokens             int                      `json:"total_tokens"`
	PromptTokensDetails     *PromptTokensDetails     `json:"prompt_tokens_details,omitempty"`
	CompletionTokensDetails *CompletionTokensDetails `json:"completion_tokens_details,omitempty"`
}

// PromptTokensDetails breaks down prompt token usage.
type PromptTokensDetails struct {
	CachedTokens int `json:"cached_tokens,omitempty"`
}

// CompletionTokensDetails breaks down completion token usage.
type CompletionTokensDetails struct {
	ReasoningTokens int `json:"reasoning_tokens,omitempty"`
}

// --- Embeddings types ---

// EmbeddingsRequest is an embeddings request in the alternate format.
// Input may be a string or an array of strings.
type EmbeddingsRequest struct {
	Model string `json:"model"`
	Input any    `json:"input"`
}

// InputStrings normalizes the request input to a string slice.
func (r *EmbeddingsRequest) InputStrings() ([]string, error) {
	switch in := r.Input.(type) {
	case string:
		return []string{in}, nil
	case []string:
		return in, nil
	case []any:
		out := make([]string, 0, len(in))
		for i, v := range in {
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("input[%d]: expected string, got %T", i, v)
			}
			out = append(out, s)
		}
		return out, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("input: expected string or string array, got %T", r.Input)
	}
}

// EmbeddingsResponse is an embeddings response in the alternate format.
type EmbeddingsResponse struct {
	Object string            `json:"object,omitempty"`
	Data   []EmbeddingObject `json:"data"`
	Model  string            `json:"model,omitempty"`
	Usage  *EmbeddingsUsage  `json:"usage,omitempty"`
}

// EmbeddingObject is a single embedding vector with its input index.
type EmbeddingObject struct {
	Object    string    `json:"object,omitempty"`
	Embedding []float64 `json:"embedding"`
	Index     int       `json:"index"`
}

// EmbeddingsUsage holds embeddings token usage.
type EmbeddingsUsage struct {
	PromptTokens int `json:"prompt_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// --- Listing and error envelopes ---

// ModelList is the response for GET /v1/models.
type ModelList struct {
	Object string        `json:"object"`
	Data   []ModelObject `json:"data"`
}

// ModelObject represents a single model entry.
type ModelObject struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	OwnedBy string `json:"owned_by,omitempty"`
}

// ErrorResponse wraps an API error in the alternate format.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail holds the error payload.
type ErrorDetail struct {
	Type    string `json:"type,omitempty"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ErrorEnvelope is the canonical-format error envelope.
type ErrorEnvelope struct {
	Type  string    `json:"type"`
	Error ErrorBody `json:"error"`
}

// ErrorBody is the nested canonical error payload.
type ErrorBody struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
