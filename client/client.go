package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/okhsunrog/llm-relay/convert"
	"github.com/okhsunrog/llm-relay/types"
)

// Client talks to a single upstream provider. It holds no mutable state
// after New and is safe for concurrent use.
type Client struct {
	cfg       Config
	transport Transport
	creds     Credentials
	logger    *slog.Logger
}

// ChatOptions overrides request fields for a single call. Zero fields
// fall back to the client configuration.
type ChatOptions struct {
	Model         string
	MaxTokens     int
	System        string
	Tools         []types.ToolDefinition
	ToolChoice    *types.ToolChoice
	Thinking      *types.ThinkingConfig
	Effort        string
	Temperature   *float64
	TopP          *float64
	StopSequences []string
}

// New validates cfg, fills provider defaults and returns a ready client.
func New(cfg Config) (*Client, error) {
	switch cfg.Provider {
	case ProviderAnthropic, ProviderOpenAICompatible:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
	if cfg.Model == "" {
		return nil, ErrMissingModel
	}
	if cfg.APIKey == "" && cfg.TokenSource == nil {
		return nil, ErrMissingAPIKey
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL(cfg.Provider)
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, cfg.BaseURL)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout(cfg.Provider)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	transport := cfg.Transport
	if transport == nil {
		transport = NewHTTPTransport(cfg.Timeout, cfg.Logger)
	}

	return &Client{
		cfg:       cfg,
		transport: transport,
		creds:     credentialsFor(cfg),
		logger:    cfg.Logger,
	}, nil
}

// credentialsFor picks the wire scheme: a token source always means
// bearer, otherwise the canonical provider takes its key header and
// everything else takes a bearer key.
func credentialsFor(cfg Config) Credentials {
	creds := Credentials{APIKey: cfg.APIKey, TokenSource: cfg.TokenSource}
	if cfg.TokenSource != nil || cfg.Provider != ProviderAnthropic {
		creds.Scheme = SchemeBearer
	} else {
		creds.Scheme = SchemeAPIKey
	}
	return creds
}

// Chat sends one conversation turn set upstream and returns the
// canonical response. For the canonical provider the request encodes
// as-is; for OpenAI-compatible providers it converts on the way out and
// the response converts back.
func (c *Client) Chat(ctx context.Context, messages []types.Message, opts *ChatOptions) (*types.ChatResponse, error) {
	req, err := c.buildRequest(messages, opts)
	if err != nil {
		return nil, err
	}
	return c.Do(ctx, req)
}

// Do sends a fully assembled canonical request. Model and max_tokens
// fall back to the client configuration when the request leaves them
// empty; everything else goes out exactly as given.
func (c *Client) Do(ctx context.Context, req types.ChatRequest) (*types.ChatResponse, error) {
	if req.Model == "" {
		req.Model = c.cfg.Model
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = c.cfg.MaxTokens
		// A manual thinking budget must leave room for the answer.
		if th := req.Thinking; th != nil && th.Type == types.ThinkingEnabled && th.BudgetTokens >= req.MaxTokens {
			req.MaxTokens = th.BudgetTokens + c.cfg.MaxTokens
		}
	}
	if err := types.ValidateRequest(&req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	callID := uuid.NewString()
	c.logger.Debug("chat request built",
		"call_id", callID,
		"provider", c.cfg.Provider,
		"model", req.Model,
		"messages", len(req.Messages),
		"tools", len(req.Tools),
	)

	var resp *types.ChatResponse
	var err error
	switch c.cfg.Provider {
	case ProviderAnthropic:
		resp, err = c.chatAnthropic(ctx, req)
	default:
		resp, err = c.chatOpenAI(ctx, req)
	}
	if err != nil {
		c.logger.Warn("chat failed", "call_id", callID, "error", err)
		return nil, err
	}
	c.logger.Debug("chat done",
		"call_id", callID,
		"stop_reason", string(resp.StopReason),
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
	)
	return resp, nil
}

func (c *Client) buildRequest(messages []types.Message, opts *ChatOptions) (types.ChatRequest, error) {
	var o ChatOptions
	if opts != nil {
		o = *opts
	}

	model := o.Model
	if model == "" {
		model = c.cfg.Model
	}
	effort := o.Effort
	if base, suffix, ok := convert.SplitModelEffort(model); ok {
		model = base
		if effort == "" {
			effort = suffix
		}
	}

	maxTokens := o.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.cfg.MaxTokens
	}

	req := types.ChatRequest{
		Model:         model,
		MaxTokens:     maxTokens,
		Messages:      messages,
		Tools:         o.Tools,
		ToolChoice:    o.ToolChoice,
		Thinking:      o.Thinking,
		Temperature:   o.Temperature,
		TopP:          o.TopP,
		StopSequences: o.StopSequences,
	}
	if o.System != "" {
		req.System = types.SystemBlocks(o.System)
	}
	if req.Thinking == nil && effort != "" {
		th, err := convert.ThinkingFromEffort(effort)
		if err != nil {
			return types.ChatRequest{}, err
		}
		if th.Type != types.ThinkingDisabled {
			req.Thinking = th
		}
		// The visible answer needs room beyond the thinking budget.
		if th.Type == types.ThinkingEnabled && th.BudgetTokens >= req.MaxTokens {
			req.MaxTokens = th.BudgetTokens + maxTokens
		}
	}
	return req, nil
}

func (c *Client) chatAnthropic(ctx context.Context, req types.ChatRequest) (*types.ChatResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("client: encoding request: %w", err)
	}
	body, err := c.transport.Send(ctx, c.cfg.BaseURL+"/v1/messages", payload, c.creds)
	if err != nil {
		return nil, err
	}
	var resp types.ChatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &TransportError{Kind: ErrKindMalformedResponse, Message: "decoding response", Cause: err}
	}
	return &resp, nil
}

func (c *Client) chatOpenAI(ctx context.Context, req types.ChatRequest) (*types.ChatResponse, error) {
	wire, err := convert.ChatRequestToOpenAI(req)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("client: encoding request: %w", err)
	}
	body, err := c.transport.Send(ctx, c.cfg.BaseURL+"/v1/chat/completions", payload, c.creds)
	if err != nil {
		return nil, err
	}
	var wireResp types.ChatCompletionResponse
	if err := json.Unmarshal(body, &wireResp); err != nil {
		return nil, &TransportError{Kind: ErrKindMalformedResponse, Message: "decoding response", Cause: err}
	}
	resp, err := convert.ChatResponseFromOpenAI(wireResp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Complete sends a single user turn and returns the response text.
func (c *Client) Complete(ctx context.Context, system, userText string, opts *ChatOptions) (string, error) {
	var o ChatOptions
	if opts != nil {
		o = *opts
	}
	if system != "" {
		o.System = system
	}
	resp, err := c.Chat(ctx, []types.Message{types.UserMessage(userText)}, &o)
	if err != nil {
		return "", err
	}
	text := resp.Text()
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// Embed returns one vector per input, in input order. Only
// OpenAI-compatible providers expose an embeddings endpoint.
func (c *Client) Embed(ctx context.Context, input []string, model string) (*types.EmbeddingResponse, error) {
	if c.cfg.Provider != ProviderOpenAICompatible {
		return nil, ErrEmbeddingsUnsupported
	}
	if len(input) == 0 {
		return nil, fmt.Errorf("client: embeddings input is empty")
	}
	if model == "" {
		model = c.cfg.Model
	}

	wire := convert.EmbeddingRequestToOpenAI(types.EmbeddingRequest{Model: model, Input: input})
	payload, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("client: encoding request: %w", err)
	}
	body, err := c.transport.Send(ctx, c.cfg.BaseURL+"/v1/embeddings", payload, c.creds)
	if err != nil {
		return nil, err
	}
	var wireResp types.EmbeddingsResponse
	if err := json.Unmarshal(body, &wireResp); err != nil {
		return nil, &TransportError{Kind: ErrKindMalformedResponse, Message: "decoding response", Cause: err}
	}
	resp, err := convert.EmbeddingResponseFromOpenAI(wireResp)
	if err != nil {
		return nil, err
	}
	if len(resp.Vectors) != len(input) {
		return nil, &TransportError{
			Kind:    ErrKindMalformedResponse,
			Message: fmt.Sprintf("expected %d embeddings, got %d", len(input), len(resp.Vectors)),
		}
	}
	return &resp, nil
}
