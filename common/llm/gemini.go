package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"

// geminiClient talks to the Generative Language API over its v1beta REST
// surface. It is the only provider that can attach maps-grounding citations
// to an answer.
type geminiClient struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	model      string
}

func newGeminiClient(cfg Config) (Client, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}

	return &geminiClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		model:      model,
	}, nil
}

func (c *geminiClient) Chat(ctx context.Context, req Request) (*Response, error) {
	body := c.buildRequest(req)

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal gemini request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build gemini request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gemini generate content: %w", err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read gemini response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gemini returned %d: %s", httpResp.StatusCode, truncateBody(raw))
	}

	var parsed geminiResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode gemini response: %w", err)
	}

	if len(parsed.Candidates) == 0 {
		return nil, fmt.Errorf("no candidates in gemini response")
	}

	candidate := parsed.Candidates[0]
	result := &Response{
		FinishReason: candidate.FinishReason,
	}

	for _, part := range candidate.Content.Parts {
		if part.Text != "" {
			result.Content += part.Text
		}
		if part.FunctionCall != nil {
			args := "{}"
			if len(part.FunctionCall.Args) > 0 {
				args = string(part.FunctionCall.Args)
			}
			result.ToolCalls = append(result.ToolCalls, ToolCall{
				Name:      part.FunctionCall.Name,
				Arguments: args,
			})
		}
	}

	if candidate.GroundingMetadata != nil {
		for _, chunk := range candidate.GroundingMetadata.GroundingChunks {
			ref := chunk.Maps
			if ref == nil {
				ref = chunk.Web
			}
			if ref != nil && ref.URI != "" {
				result.Citations = append(result.Citations, Citation{
					URI:   ref.URI,
					Title: ref.Title,
				})
			}
		}
	}

	slog.DebugContext(ctx, "gemini chat completed",
		"model", c.model,
		"duration_ms", time.Since(start).Milliseconds(),
		"finish_reason", candidate.FinishReason,
		"citations", len(result.Citations),
		"tool_calls", len(result.ToolCalls))

	return result, nil
}

func (c *geminiClient) Model() string {
	return c.model
}

func (c *geminiClient) buildRequest(req Request) geminiRequest {
	body := geminiRequest{}

	for _, msg := range req.Messages {
		switch msg.Role {
		case "system":
			body.SystemInstruction = &geminiContent{
				Parts: []geminiPart{{Text: msg.Content}},
			}
		case "assistant":
			body.Contents = append(body.Contents, geminiContent{
				Role:  "model",
				Parts: []geminiPart{{Text: msg.Content}},
			})
		default:
			body.Contents = append(body.Contents, geminiContent{
				Role:  "user",
				Parts: []geminiPart{{Text: msg.Content}},
			})
		}
	}

	// The maps tool is always declared; place answers come back as grounding
	// chunks rather than tool calls.
	body.Tools = append(body.Tools, geminiTool{GoogleMaps: &struct{}{}})

	if len(req.Tools) > 0 {
		decls := make([]geminiFunctionDecl, 0, len(req.Tools))
		for _, t := range req.Tools {
			decl := geminiFunctionDecl{
				Name:        t.Name,
				Description: t.Description,
			}
			if t.Parameters != nil {
				if data, err := json.Marshal(t.Parameters); err == nil {
					decl.Parameters = data
				}
			}
			decls = append(decls, decl)
		}
		body.Tools = append(body.Tools, geminiTool{FunctionDeclarations: decls})
	}

	if req.Location != nil {
		body.ToolConfig = &geminiToolConfig{
			RetrievalConfig: &geminiRetrievalConfig{
				LatLng: &geminiLatLng{
					Latitude:  req.Location.Latitude,
					Longitude: req.Location.Longitude,
				},
			},
		}
	}

	if req.MaxTokens > 0 {
		body.GenerationConfig = &geminiGenerationConfig{
			MaxOutputTokens: req.MaxTokens,
		}
	}

	return body
}

func truncateBody(raw []byte) string {
	const max = 512
	if len(raw) > max {
		return string(raw[:max]) + "..."
	}
	return string(raw)
}

// Wire types for the v1beta generateContent endpoint.

type geminiRequest struct {
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	Contents          []geminiContent         `json:"contents"`
	Tools             []geminiTool            `json:"tools,omitempty"`
	ToolConfig        *geminiToolConfig       `json:"toolConfig,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text         string              `json:"text,omitempty"`
	FunctionCall *geminiFunctionCall `json:"functionCall,omitempty"`
}

type geminiFunctionCall struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args,omitempty"`
}

type geminiTool struct {
	GoogleMaps           *struct{}            `json:"googleMaps,omitempty"`
	FunctionDeclarations []geminiFunctionDecl `json:"functionDeclarations,omitempty"`
}

type geminiFunctionDecl struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

type geminiToolConfig struct {
	RetrievalConfig *geminiRetrievalConfig `json:"retrievalConfig,omitempty"`
}

type geminiRetrievalConfig struct {
	LatLng *geminiLatLng `json:"latLng,omitempty"`
}

type geminiLatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type geminiGenerationConfig struct {
	MaxOutputTokens int `json:"maxOutputTokens,omitempty"`
}

type geminiResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}

type geminiCandidate struct {
	Content           geminiContent            `json:"content"`
	FinishReason      string                   `json:"finishReason"`
	GroundingMetadata *geminiGroundingMetadata `json:"groundingMetadata,omitempty"`
}

type geminiGroundingMetadata struct {
	GroundingChunks []geminiGroundingChunk `json:"groundingChunks"`
}

type geminiGroundingChunk struct {
	Maps *geminiChunkRef `json:"maps,omitempty"`
	Web  *geminiChunkRef `json:"web,omitempty"`
}

type geminiChunkRef struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}
