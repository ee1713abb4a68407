package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields automatically added to all logs within
// a context. Handlers set them once; every slog call below inherits them.
type LogFields struct {
	ConversationID *int64  // Chat conversation ID
	SessionID      *string // Browser session ID (opaque, not the provider token)
	Provider       *string // Source-control provider ("github", "gitlab")
	Component      string  // Component name, e.g. "mapchat.service.chat"
}

// WithLogFields enriches context with structured log fields. Multiple calls
// merge fields, with newer non-nil/non-empty values taking precedence.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	merged := mergeFields(GetLogFields(ctx), fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields retrieves log fields from context, empty if none are set.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, incoming LogFields) LogFields {
	result := existing

	if incoming.ConversationID != nil {
		result.ConversationID = incoming.ConversationID
	}
	if incoming.SessionID != nil {
		result.SessionID = incoming.SessionID
	}
	if incoming.Provider != nil {
		result.Provider = incoming.Provider
	}
	if incoming.Component != "" {
		result.Component = incoming.Component
	}

	return result
}

// Ptr is a helper to create a pointer from a value, for inline LogFields.
func Ptr[T any](v T) *T {
	return &v
}

// Truncate truncates a string to maxLen characters, appending "..." if
// truncated. Useful for logging user prompts without flooding the logs.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
