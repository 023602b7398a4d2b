package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/okhsunrog/llm-relay/convert"
	"github.com/okhsunrog/llm-relay/transform"
	"github.com/okhsunrog/llm-relay/types"
)

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// handleModels lists the model aliases declared in the config, falling
// back to the upstream model when no aliases are configured.
func (s *Server) handleModels(c echo.Context) error {
	list := types.ModelList{Object: "list"}
	for _, alias := range s.cfg.Models {
		list.Data = append(list.Data, types.ModelObject{ID: alias.ID, Object: "model", OwnedBy: "llm-relay"})
	}
	if len(list.Data) == 0 {
		list.Data = []types.ModelObject{{ID: s.cfg.Upstream.Model, Object: "model", OwnedBy: "llm-relay"}}
	}
	return c.JSON(http.StatusOK, list)
}

/// handleChatCompletions relays a chat-completions request: decode,
// translate to the canonical form, round-trip upstream, translate
// back, stamp the response envelope.
func (s *Server) handleChatCompletions(c echo.Context) error {
	var wireReq types.ChatCompletionRequest
	if err := decodeRequestBody(c, &wireReq); err != nil {
		return err
	}
	if wireReq.Stream {
		return badRequest("streaming responses are not supported")
	}

	req, err := convert.ChatRequestFromOpenAI(wireReq)
	if err != nil {
		return toRequestError(err)
	}

	resp, err := s.relay(c, req)
	if err != nil {
		return err
	}

	wireResp, err := convert.ChatResponseToOpenAI(*resp)
	if err != nil {
		return badGateway("upstream response could not be translated: " + err.Error())
	}
	wireResp.ID = "chatcmpl-" + uuid.NewString()
	wireResp.Created = time.Now().Unix()
	if wireReq.Model != "" {
		wireResp.Model = wireReq.Model
	}
	return c.JSON(http.StatusOK, wireResp)
}

// handleMessages relays a canonical request as-is, stamping envelope
// fields only when the upstream left them empty.
func (s *Server) handleMessages(c echo.Context) error {
	var req types.ChatRequest
	if err := decodeRequestBody(c, &req); err != nil {
		return err
	}
	if req.Stream {
		return badRequest("streaming responses are not supported")
	}

	resp, err := s.relay(c, req)
	if err != nil {
		return err
	}

	out := *resp
	if out.ID == "" {
		out.ID = "msg_" + uuid.NewString()
	}
	if out.Type == "" {
		out.Type = "message"
	}
	if out.Role == "" {
		out.Role = types.RoleAssistant
	}
	if out.Model == "" {
		out.Model = req.Model
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleEmbeddings(c echo.Context) error {
	var wireReq types.EmbeddingsRequest
	if err := decodeRequestBody(c, &wireReq); err != nil {
		return err
	}
	input, err := wireReq.InputStrings()
	if err != nil {
		return badRequest(err.Error())
	}
	if len(input) == 0 {
		return badRequest("input must not be empty")
	}

	resp, err := s.client.Embed(c.Request().Context(), input, s.cfg.Resolve(wireReq.Model))
	if err != nil {
		return toRequestError(err)
	}

	out := types.EmbeddingsResponse{
		Object: "list",
		Model:  wireReq.Model,
		Data:   make([]types.EmbeddingObject, len(resp.Vectors)),
		Usage: &types.EmbeddingsUsage{
			PromptTokens: resp.Usage.InputTokens,
			TotalTokens:  resp.Usage.InputTokens,
		},
	}
	for i, vec := range resp.Vectors {
		out.Data[i] = types.EmbeddingObject{Object: "embedding", Embedding: vec, Index: i}
	}
	return c.JSON(http.StatusOK, out)
}

// relay resolves the model, applies the configured transform passes,
// and performs one upstream round trip.
func (s *Server) relay(c echo.Context, req types.ChatRequest) (*types.ChatResponse, error) {
	req, err := s.resolveModel(req)
	if err != nil {
		return nil, err
	}

	if s.cfg.ToolNames.Encode {
		req, err = transform.EncodeRequestToolNames(req)
		if err != nil {
			return nil, toRequestError(err)
		}
	}
	if s.cfg.CacheControl.Enabled {
		req, err = transform.InjectCacheControl(req, transform.CacheConfig{
			MaxBreakpoints: s.cfg.CacheControl.MaxBreakpoints,
			MarkSystem:     s.cfg.CacheControl.MarkSystem,
			MarkHistory:    s.cfg.CacheControl.MarkHistory,
			MarkTools:      s.cfg.CacheControl.MarkTools,
		})
		if err != nil {
			return nil, toRequestError(err)
		}
	}

	resp, err := s.client.Do(c.Request().Context(), req)
	if err != nil {
		return nil, toRequestError(err)
	}

	if s.cfg.ToolNames.Encode {
		decoded, err := transform.DecodeResponseToolNames(*resp)
		if err != nil {
			return nil, toRequestError(err)
		}
		resp = &decoded
	}
	return resp, nil
}

// resolveModel maps the requested model through the alias table and
// honors a trailing effort suffix. The suffix on the inbound name wins
// over one carried by the alias target.
func (s *Server) resolveModel(req types.ChatRequest) (types.ChatRequest, error) {
	base, effort, ok := convert.SplitModelEffort(req.Model)
	if !ok {
		base = req.Model
	}
	base = s.cfg.Resolve(base)
	if aliasBase, aliasEffort, ok := convert.SplitModelEffort(base); ok {
		base = aliasBase
		if effort == "" {
			effort = aliasEffort
		}
	}
	req.Model = base

	if effort == "" || req.Thinking != nil {
		return req, nil
	}
	th, err := convert.ThinkingFromEffort(effort)
	if err != nil {
		return req, toRequestError(err)
	}
	if th.Type == types.ThinkingDisabled {
		return req, nil
	}
	req.Thinking = th
	if th.Type == types.ThinkingEnabled && req.MaxTokens > 0 && th.BudgetTokens >= req.MaxTokens {
		// The visible answer needs room beyond the thinking budget.
		req.MaxTokens += th.BudgetTokens
	}
	return req, nil
}

// decodeRequestBody reads the request body as a single JSON object.
func decodeRequestBody[T any](c echo.Context, target *T) error {
	req := c.Request()
	defer req.Body.Close()

	decoder := json.NewDecoder(req.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return badRequest("request body is required")
		}
		return badRequest(fmt.Sprintf("invalid JSON payload: %v", err))
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return badRequest("request body must contain a single JSON object")
	}
	return nil
}
