package llm

import (
	"context"
	"fmt"
	"strings"

	"ai-health-advisor/internal/config"
	"ai-health-advisor/internal/shared"

	"github.com/google/generative-ai-go/genai"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
)

const (
	geminiTextModel      = "gemini-2.0-flash"
	geminiEmbeddingModel = "text-embedding-004"

	transcribeInstruction = "Transcribe all text visible in this medical document image. " +
		"Keep the original line breaks. Render table rows with cells separated by ' | '. " +
		"Return only the transcribed text."
)

// GeminiClient talks to the Google Gemini API. It serves embeddings, image
// transcription for scanned reports and, optionally, chat completion.
type GeminiClient struct {
	client  *genai.Client
	limiter *rate.Limiter
}

// NewGeminiClient creates a new Gemini API client paced at cfg.GeminiRPM requests per minute.
func NewGeminiClient(ctx context.Context, cfg *config.Config) (*GeminiClient, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: GEMINI_API_KEY not set", ErrUnavailable)
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	rpm := cfg.GeminiRPM
	if rpm <= 0 {
		rpm = 60
	}
	return &GeminiClient{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1),
	}, nil
}

// GenerateEmbedding returns the text-embedding-004 vector for text.
func (c *GeminiClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		// The API rejects empty content; a neutral query has no direction.
		return nil, nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	em := c.client.EmbeddingModel(geminiEmbeddingModel)
	res, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("failed to embed content: %w", classifyGoogleErr(err))
	}
	if res == nil || res.Embedding == nil {
		return nil, fmt.Errorf("no embedding returned")
	}
	return res.Embedding.Values, nil
}

// GenerateContent folds system turns into the system instruction and sends
// the remaining turns as one prompt.
func (c *GeminiClient) GenerateContent(ctx context.Context, req ContentRequest) (ContentResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return ContentResponse{}, err
	}
	model := c.client.GenerativeModel(geminiTextModel)
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	model.SetTemperature(req.Temperature)

	var system []genai.Part
	var parts []genai.Part
	for _, m := range req.Messages {
		if m.Role == RoleSystem {
			system = append(system, genai.Text(m.Content))
			continue
		}
		parts = append(parts, genai.Text(m.Content))
	}
	if len(system) > 0 {
		model.SystemInstruction = &genai.Content{Parts: system}
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to generate content: %w", classifyGoogleErr(err))
	}
	text, err := firstText(resp)
	if err != nil {
		return ContentResponse{}, err
	}

	usage := shared.TokenUsage{Model: geminiTextModel}
	if resp.UsageMetadata != nil {
		usage.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		usage.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		usage.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	return ContentResponse{Content: text, Usage: usage}, nil
}

// TranscribeImage runs the vision model over one page image.
func (c *GeminiClient) TranscribeImage(ctx context.Context, mimeType string, data []byte) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	format := strings.TrimPrefix(mimeType, "image/")
	model := c.client.GenerativeModel(geminiTextModel)
	model.SetTemperature(0)

	resp, err := model.GenerateContent(ctx, genai.ImageData(format, data), genai.Text(transcribeInstruction))
	if err != nil {
		return "", fmt.Errorf("failed to transcribe image: %w", classifyGoogleErr(err))
	}
	return firstText(resp)
}

// Close closes the underlying Gemini client.
func (c *GeminiClient) Close() error {
	return c.client.Close()
}

func firstText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no content generated")
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("generated content is not text")
	}
	return sb.String(), nil
}
