package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// Provider constants for client selection.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Config holds LLM client configuration.
type Config struct {
	Provider  string // "gemini" or "openai"
	APIKey    string // Required
	BaseURL   string // Optional: custom API endpoint
	Model     string
	MaxTokens int
}

// Client supports grounded, tool-calling chat turns.
type Client interface {
	Chat(ctx context.Context, req Request) (*Response, error)
	Model() string
}

// Request contains the messages, declared tools and optional location
// grounding hint for one chat turn.
type Request struct {
	Messages  []Message
	Tools     []Tool
	Location  *LatLng // Best-known device coordinate, forwarded as a grounding hint
	MaxTokens int
}

// Message represents a conversation message.
type Message struct {
	Role    string // "system", "user", "assistant"
	Content string
}

// LatLng is a geographic coordinate passed to grounding-capable providers.
type LatLng struct {
	Latitude  float64
	Longitude float64
}

// Tool defines a function the model can call instead of answering in prose.
type Tool struct {
	Name        string
	Description string
	Parameters  any // JSON Schema for parameters, nil for parameterless tools
}

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	Name      string
	Arguments string // JSON-encoded arguments, "{}" when none
}

// Citation is a grounding source reference attached to a response.
// For maps-grounded answers these are place references.
type Citation struct {
	URI   string
	Title string
}

// Response contains the model's reply for one turn. Citations are passed
// through in provider order, undeduplicated.
type Response struct {
	Content      string
	Citations    []Citation
	ToolCalls    []ToolCall
	FinishReason string
}

// NewClient creates a Client for the configured provider.
// Defaults to Gemini, the only provider with maps grounding.
func NewClient(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	provider := cfg.Provider
	if provider == "" {
		provider = ProviderGemini
	}

	switch provider {
	case ProviderGemini:
		return newGeminiClient(cfg)
	case ProviderOpenAI:
		return newOpenAIClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}
}

// ParseToolArguments unmarshals tool arguments into the target struct.
func ParseToolArguments[T any](arguments string) (T, error) {
	var result T
	if err := json.Unmarshal([]byte(arguments), &result); err != nil {
		return result, fmt.Errorf("parse tool arguments: %w", err)
	}
	return result, nil
}

// GenerateSchemaFrom generates a JSON schema for a tool's parameters from an
// instance value.
func GenerateSchemaFrom(v any) any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	return reflector.Reflect(v)
}
