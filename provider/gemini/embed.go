package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/polyprompt/polyprompt/capability"
	"github.com/polyprompt/polyprompt/llmerr"
	"github.com/polyprompt/polyprompt/transport"
)

// embedContentRequest is the request body for POST
// {baseURL}/models/{model}:batchEmbedContents. Each entry of Requests embeds
// one input string as its own content with a single text part.
type embedContentRequest struct {
	Requests []embedContentEntry `json:"requests"`
}

type embedContentEntry struct {
	Model                string       `json:"model"`
	Content              wireContent  `json:"content"`
	TaskType             string       `json:"taskType,omitempty"`
	Title                string       `json:"title,omitempty"`
	OutputDimensionality int          `json:"outputDimensionality,omitempty"`
}

type embedContentResponse struct {
	Embeddings []struct {
		Values []float32 `json:"values"`
	} `json:"embeddings"`
}

// Embed implements capability.EmbeddingCapability via Gemini's
// batchEmbedContents endpoint, sending every req.Input entry as a single
// batched call so usage collapses to one round trip regardless of input
// count.
func (c *Client) Embed(ctx context.Context, req capability.EmbeddingRequest) (*capability.EmbeddingResponse, error) {
	if len(req.Input) == 0 {
		return &capability.EmbeddingResponse{}, nil
	}
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	entries := make([]embedContentEntry, len(req.Input))
	for i, text := range req.Input {
		entries[i] = embedContentEntry{
			Model:                "models/" + model,
			Content:              wireContent{Parts: []wirePart{{Text: text}}},
			TaskType:             req.TaskType,
			Title:                req.Title,
			OutputDimensionality: req.Dimensions,
		}
	}

	body, err := json.Marshal(embedContentRequest{Requests: entries})
	if err != nil {
		return nil, llmerr.New("gemini", llmerr.KindInvalidRequest, err).WithMessage("failed to encode embed request")
	}

	url := fmt.Sprintf("%s/models/%s:batchEmbedContents", c.baseURL, model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, llmerr.New("gemini", llmerr.KindInvalidRequest, err).WithMessage("failed to build embed request")
	}

	resp, err := transport.Do(ctx, c.httpClient, httpReq,
		transport.WithHeader("x-goog-api-key", c.apiKey),
		transport.WithHeader("Content-Type", "application/json"))
	if err != nil {
		return nil, classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, llmerr.New("gemini", llmerr.KindHTTP, err).WithMessage("failed to read embed response body")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, mapHTTPError(resp.StatusCode, respBody)
	}

	var wireResp embedContentResponse
	if err := json.Unmarshal(respBody, &wireResp); err != nil {
		return nil, llmerr.New("gemini", llmerr.KindResponseFormat, err).WithMessage("failed to decode embed response")
	}

	out := make([]capability.Embedding, len(wireResp.Embeddings))
	for i, e := range wireResp.Embeddings {
		out[i] = capability.Embedding{Index: i, Vector: e.Values}
	}
	return &capability.EmbeddingResponse{
		Embeddings: out,
		ProviderMetadata: map[string]map[string]any{
			"gemini":           {"model": model},
			"gemini.embedding": {"model": model},
		},
	}, nil
}
