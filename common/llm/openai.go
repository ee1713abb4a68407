package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// openaiClient is the alternate chat provider. It supports the declared
// function tools but has no maps grounding, so responses carry no citations.
type openaiClient struct {
	client openai.Client
	model  string
}

func newOpenAIClient(cfg Config) (Client, error) {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	return &openaiClient{
		client: openai.NewClient(opts...),
		model:  model,
	}, nil
}

func (c *openaiClient) Chat(ctx context.Context, req Request) (*Response, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 2048
	}

	params := openai.ChatCompletionNewParams{
		Model:               c.model,
		Messages:            c.convertMessages(req),
		MaxCompletionTokens: openai.Int(int64(maxTokens)),
	}

	if tools := c.convertTools(req.Tools); len(tools) > 0 {
		params.Tools = tools
	}

	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai chat: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	choice := resp.Choices[0]

	slog.DebugContext(ctx, "openai chat completed",
		"model", c.model,
		"duration_ms", time.Since(start).Milliseconds(),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
		"finish_reason", choice.FinishReason)

	result := &Response{
		Content:      choice.Message.Content,
		FinishReason: string(choice.FinishReason),
	}

	for _, tc := range choice.Message.ToolCalls {
		args := tc.Function.Arguments
		if args == "" {
			args = "{}"
		}
		result.ToolCalls = append(result.ToolCalls, ToolCall{
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}

	return result, nil
}

func (c *openaiClient) Model() string {
	return c.model
}

func (c *openaiClient) convertMessages(req Request) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)

	for _, msg := range req.Messages {
		switch msg.Role {
		case "system":
			result = append(result, openai.SystemMessage(msg.Content))
		case "assistant":
			result = append(result, openai.AssistantMessage(msg.Content))
		default:
			result = append(result, openai.UserMessage(msg.Content))
		}
	}

	// No retrieval config on this provider; the hint rides along as context.
	if req.Location != nil {
		hint := fmt.Sprintf("The user's approximate location is latitude %.5f, longitude %.5f.",
			req.Location.Latitude, req.Location.Longitude)
		result = append(result, openai.SystemMessage(hint))
	}

	return result
}

func (c *openaiClient) convertTools(tools []Tool) []openai.ChatCompletionToolParam {
	result := make([]openai.ChatCompletionToolParam, len(tools))

	for i, t := range tools {
		var params shared.FunctionParameters
		if t.Parameters != nil {
			data, _ := json.Marshal(t.Parameters)
			_ = json.Unmarshal(data, &params)
		}

		result[i] = openai.ChatCompletionToolParam{
			Function: shared.FunctionDefinitionParam{
				Name:        t.Name,
				Description: openai.String(t.Description),
				Parameters:  params,
			},
		}
	}

	return result
}
