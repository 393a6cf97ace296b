package corrector

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/siherrmann/cinegraph/helper"
)

const systemPrompt = "You are a Wikidata expert. Given an actor name, reply ONLY with the exact name as it appears in Wikidata (format: \"First Last\" in English). No explanation, just the name."

// Corrector suggests the canonical spelling of a misspelled actor name.
// Implementations return the input unchanged when they have no suggestion.
type Corrector interface {
	Correct(ctx context.Context, name string) string
}

// Config configures an OpenAI compatible chat corrector
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float32
}

// DefaultConfig returns the settings for a local Ollama server
func DefaultConfig() Config {
	return Config{
		BaseURL:     "http://localhost:11434/v1",
		Model:       "llama3:70b",
		Temperature: 0.1,
	}
}

// OpenAICorrector asks a chat completion model for the canonical name
type OpenAICorrector struct {
	client      *openai.Client
	model       string
	temperature float32
	logger      *slog.Logger
}

// NewOpenAICorrector creates a corrector for any OpenAI compatible endpoint
func NewOpenAICorrector(config Config, logger *slog.Logger) *OpenAICorrector {
	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &OpenAICorrector{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       config.Model,
		temperature: config.Temperature,
		logger:      helper.LoggerOrDefault(logger),
	}
}

// Correct never fails, any error yields the original name
func (c *OpenAICorrector) Correct(ctx context.Context, name string) string {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf("What is the exact Wikidata name of this actor: %q", name)},
		},
		Temperature: c.temperature,
	})
	if err != nil {
		c.logger.Warn("Name correction failed", slog.String("name", name), slog.String("error", err.Error()))
		return name
	}
	if len(resp.Choices) == 0 {
		c.logger.Warn("Name correction returned no choices", slog.String("name", name))
		return name
	}

	suggestion := cleanSuggestion(resp.Choices[0].Message.Content)
	if suggestion == "" {
		return name
	}
	c.logger.Debug("Corrected name", slog.String("name", name), slog.String("suggestion", suggestion))
	return suggestion
}

// cleanSuggestion keeps the first line and drops surrounding quotes
func cleanSuggestion(content string) string {
	content = strings.TrimSpace(content)
	if i := strings.IndexByte(content, '\n'); i >= 0 {
		content = content[:i]
	}
	content = strings.Trim(content, "\"'` .")
	return helper.CleanString(content)
}

// Noop never suggests a correction
type Noop struct{}

func (Noop) Correct(ctx context.Context, name string) string {
	return name
}

// Static returns fixed corrections, unknown names are returned unchanged
type Static map[string]string

func (s Static) Correct(ctx context.Context, name string) string {
	if suggestion, ok := s[name]; ok {
		return suggestion
	}
	return name
}
