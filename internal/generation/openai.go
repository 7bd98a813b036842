package generation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"voicenote-ai/internal/config"
	"voicenote-ai/internal/note"
	"voicenote-ai/pkg/logger"
)

// OpenAIGenerator drives any OpenAI-compatible chat-completions endpoint.
// The default configuration points it at Gemini's OpenAI-compatible surface,
// the same arrangement works against api.openai.com or a proxy.
type OpenAIGenerator struct {
	client      *openai.Client
	model       string
	temperature float32
	logger      *logger.Logger
}

// noteContentSchema is the parameter schema of the forced tool. Required
// properties are exactly {emoji, title, summary}; nothing else is permitted.
var noteContentSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"emoji": map[string]interface{}{
			"type":        "string",
			"description": emojiDescription,
		},
		"title": map[string]interface{}{
			"type":        "string",
			"description": titleDescription,
		},
		"summary": map[string]interface{}{
			"type":        "string",
			"description": summaryDescription,
		},
	},
	"required":             []string{"emoji", "title", "summary"},
	"additionalProperties": false,
}

// NewOpenAIGenerator creates a generator against an OpenAI-compatible endpoint
func NewOpenAIGenerator(cfg config.GenerationConfig, log *logger.Logger) *OpenAIGenerator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = &http.Client{Timeout: time.Duration(cfg.TimeoutSecs) * time.Second}

	return &OpenAIGenerator{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: float32(cfg.Temperature),
		logger:      log.Named("openai-generator"),
	}
}

// Generate sends the two-message exchange with the forced tool and validates
// the returned tool call.
func (g *OpenAIGenerator) Generate(ctx context.Context, transcript string) (*note.StructuredNote, error) {
	req := openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userMessage(transcript)},
		},
		Tools: []openai.Tool{
			{
				Type: openai.ToolTypeFunction,
				Function: &openai.FunctionDefinition{
					Name:        ToolName,
					Description: toolDescription,
					Strict:      true,
					Parameters:  noteContentSchema,
				},
			},
		},
		// The service must not answer in free text
		ToolChoice: openai.ToolChoice{
			Type:     openai.ToolTypeFunction,
			Function: openai.ToolFunction{Name: ToolName},
		},
		Temperature: g.temperature,
	}

	g.logger.Debug("Requesting note content generation",
		logger.String("model", g.model),
		logger.Int("transcript_length", len(transcript)))

	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return nil, note.UpstreamError(apiErr.HTTPStatusCode,
				fmt.Sprintf("generation service error: %v", apiErr), err)
		}
		return nil, note.UpstreamError(0, "generation request failed", err)
	}

	if len(resp.Choices) == 0 {
		return nil, note.GenerationContractError("no choices in generation response", nil)
	}

	toolCalls := resp.Choices[0].Message.ToolCalls
	if len(toolCalls) == 0 {
		return nil, note.GenerationContractError("no tool call received from the model", nil)
	}

	call := toolCalls[0]
	if call.Function.Name != ToolName {
		return nil, note.GenerationContractError(
			fmt.Sprintf("unexpected tool call: %s", call.Function.Name), nil)
	}

	content, err := parseArguments([]byte(call.Function.Arguments))
	if err != nil {
		return nil, err
	}

	return &note.StructuredNote{
		Emoji:         content.Emoji,
		Title:         content.Title,
		Transcription: transcript, // Input echoed back unchanged
		Summary:       content.Summary,
	}, nil
}
