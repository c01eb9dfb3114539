package llm

import (
	"context"

	"ai-health-advisor/internal/shared"
)

// Chat roles understood by every TextGenerator.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a chat-completion conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ContentRequest is an ordered conversation plus a bound on generated tokens.
type ContentRequest struct {
	Messages    []Message
	MaxTokens   int
	Temperature float32
}

// ContentResponse contains the generated text and metadata like token usage.
type ContentResponse struct {
	Content string
	Usage   shared.TokenUsage
}

// TextGenerator is an interface for chat-completion models.
type TextGenerator interface {
	GenerateContent(ctx context.Context, req ContentRequest) (ContentResponse, error)
}

// EmbeddingGenerator is an interface for generating vector embeddings from text.
type EmbeddingGenerator interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// ImageTranscriber turns an encoded image into the text printed on it.
type ImageTranscriber interface {
	TranscribeImage(ctx context.Context, mimeType string, data []byte) (string, error)
}

// Closer is an interface for closing resources.
type Closer interface {
	Close() error
}

// SystemAndUser builds the common two-turn conversation.
func SystemAndUser(system, user string) []Message {
	return []Message{
		{Role: RoleSystem, Content: system},
		{Role: RoleUser, Content: user},
	}
}
