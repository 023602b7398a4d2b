package convert

import (
	"github.com/okhsunrog/llm-relay/types"
)

// EmbeddingRequestToOpenAI converts a canonical embedding request to the
// OpenAI wire shape.
func EmbeddingRequestToOpenAI(req types.EmbeddingRequest) types.EmbeddingsRequest {
	return types.EmbeddingsRequest{Model: req.Model, Input: req.Input}
}

// EmbeddingResponseFromOpenAI reorders the returned vectors by their
// declared index. Providers may answer out of order; a vector whose
// index is out of range or repeated makes the response unusable.
func EmbeddingResponseFromOpenAI(resp types.EmbeddingsResponse) (types.EmbeddingResponse, error) {
	vectors := make([][]float64, len(resp.Data))
	seen := make([]bool, len(resp.Data))
	for i, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(resp.Data) {
			return types.EmbeddingResponse{}, errMalformed("data[%d]: embedding index %d out of range", i, d.Index)
		}
		if seen[d.Index] {
			return types.EmbeddingResponse{}, errMalformed("data[%d]: duplicate embedding index %d", i, d.Index)
		}
		seen[d.Index] = true
		vectors[d.Index] = d.Embedding
	}

	out := types.EmbeddingResponse{Vectors: vectors}
	if resp.Usage != nil {
		out.Usage = types.Usage{InputTokens: resp.Usage.PromptTokens}
	}
	return out, nil
}
