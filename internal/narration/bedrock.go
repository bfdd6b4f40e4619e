package narration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/client"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/bedrockruntime"

	"github.com/cognia-intellilearn/voicegate/internal/config"
	"github.com/cognia-intellilearn/voicegate/internal/session"
)

const anthropicVersion = "bedrock-2023-05-31"

// ErrEmptyCompletion is returned when the model answers without text.
var ErrEmptyCompletion = errors.New("bedrock: model returned no text")

// BedrockAPI is the subset of the Bedrock runtime client used by BedrockWriter.
type BedrockAPI interface {
	InvokeModelWithContext(ctx aws.Context, input *bedrockruntime.InvokeModelInput, opts ...request.Option) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockWriter generates lesson text with an Anthropic model on Bedrock.
type BedrockWriter struct {
	api BedrockAPI
	cfg config.BedrockConfig
}

// NewBedrockWriter creates a writer from an AWS session.
func NewBedrockWriter(sess client.ConfigProvider, cfg config.BedrockConfig) *BedrockWriter {
	return NewBedrockWriterWithAPI(bedrockruntime.New(sess), cfg)
}

// NewBedrockWriterWithAPI wraps an existing Bedrock runtime client.
func NewBedrockWriterWithAPI(api BedrockAPI, cfg config.BedrockConfig) *BedrockWriter {
	return &BedrockWriter{api: api, cfg: cfg}
}

type invokeRequest struct {
	AnthropicVersion string          `json:"anthropic_version"`
	MaxTokens        int             `json:"max_tokens"`
	Messages         []invokeMessage `json:"messages"`
	Temperature      float64         `json:"temperature"`
	TopP             float64         `json:"top_p"`
}

type invokeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type invokeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Write asks the model for a lesson marked up with [SEGMENT N] headers.
func (w *BedrockWriter) Write(ctx context.Context, cfg session.Config) (string, error) {
	body, err := json.Marshal(invokeRequest{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        w.cfg.MaxTokens,
		Messages:         []invokeMessage{{Role: "user", Content: LessonPrompt(cfg)}},
		Temperature:      w.cfg.Temperature,
		TopP:             w.cfg.TopP,
	})
	if err != nil {
		return "", fmt.Errorf("encoding bedrock request: %w", err)
	}

	out, err := w.api.InvokeModelWithContext(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(w.cfg.ModelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return "", fmt.Errorf("invoking %s: %w", w.cfg.ModelID, err)
	}

	var resp invokeResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return "", fmt.Errorf("decoding bedrock response: %w", err)
	}
	if len(resp.Content) == 0 || strings.TrimSpace(resp.Content[0].Text) == "" {
		return "", ErrEmptyCompletion
	}

	slog.Debug("lesson text generated", "model", w.cfg.ModelID, "topic", cfg.Topic, "chars", len(resp.Content[0].Text))
	return resp.Content[0].Text, nil
}

// LessonPrompt builds the lesson-writing instruction for a session config.
func LessonPrompt(cfg session.Config) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are an expert %s professor teaching about %s.\n\n", cfg.Personality, cfg.Topic)
	fmt.Fprintf(&b, "Create a %d-minute educational lesson for %s level students.\n\n", cfg.Duration, cfg.Level)
	b.WriteString("Requirements:\n")
	fmt.Fprintf(&b, "- Speak in a %s teaching style\n", cfg.VoiceStyle)
	fmt.Fprintf(&b, "- Divide the content into %d segments of approximately 1 minute each\n", cfg.Duration)
	b.WriteString("- Each segment should be clearly marked with [SEGMENT X] headers\n")
	fmt.Fprintf(&b, "- Use %s level of student interaction prompts\n", cfg.InteractionLevel)
	b.WriteString("- Make it engaging and educational\n")
	b.WriteString("- Include practical examples and real-world applications\n\n")
	b.WriteString("Format your response as:\n[SEGMENT 1]\nContent for first minute...\n\n[SEGMENT 2]\nContent for second minute...\n\n")
	fmt.Fprintf(&b, "And so on for %d segments.\n\nBegin the lesson now:", cfg.Duration)
	return b.String()
}
