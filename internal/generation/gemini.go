package generation

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/genai"
	"voicenote-ai/internal/config"
	"voicenote-ai/internal/note"
	"voicenote-ai/pkg/logger"
)

// GeminiGenerator drives the Gemini API natively through the genai SDK, with
// function calling restricted to the one declaration so the model cannot
// reply in free text.
type GeminiGenerator struct {
	client      *genai.Client
	model       string
	temperature float32
	logger      *logger.Logger
}

// NewGeminiGenerator creates a generator against the Gemini API
func NewGeminiGenerator(ctx context.Context, cfg config.GenerationConfig, log *logger.Logger) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiGenerator{
		client:      client,
		model:       cfg.Model,
		temperature: float32(cfg.Temperature),
		logger:      log.Named("gemini-generator"),
	}, nil
}

// Generate invokes the model with forced function calling and validates the
// returned call against the contract.
func (g *GeminiGenerator) Generate(ctx context.Context, transcript string) (*note.StructuredNote, error) {
	declaration := &genai.FunctionDeclaration{
		Name:        ToolName,
		Description: toolDescription,
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"emoji":   {Type: genai.TypeString, Description: emojiDescription},
				"title":   {Type: genai.TypeString, Description: titleDescription},
				"summary": {Type: genai.TypeString, Description: summaryDescription},
			},
			Required: []string{"emoji", "title", "summary"},
		},
	}

	genCfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(g.temperature),
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: systemPrompt}},
		},
		Tools: []*genai.Tool{
			{FunctionDeclarations: []*genai.FunctionDeclaration{declaration}},
		},
		ToolConfig: &genai.ToolConfig{
			FunctionCallingConfig: &genai.FunctionCallingConfig{
				// ANY mode with a single allowed name forces the call
				Mode:                 genai.FunctionCallingConfigModeAny,
				AllowedFunctionNames: []string{ToolName},
			},
		},
	}

	g.logger.Debug("Requesting note content generation",
		logger.String("model", g.model),
		logger.Int("transcript_length", len(transcript)))

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(userMessage(transcript)), genCfg)
	if err != nil {
		return nil, note.UpstreamError(0, "generation request failed", err)
	}

	calls := resp.FunctionCalls()
	if len(calls) == 0 {
		return nil, note.GenerationContractError("no function call received from the model", nil)
	}

	call := calls[0]
	if call.Name != ToolName {
		return nil, note.GenerationContractError(
			fmt.Sprintf("unexpected function call: %s", call.Name), nil)
	}

	// Args arrive as a decoded map; round-trip through JSON to share the
	// same field validation as the OpenAI-compatible path
	arguments, err := json.Marshal(call.Args)
	if err != nil {
		return nil, note.GenerationContractError("failed to encode function arguments", err)
	}

	content, err := parseArguments(arguments)
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
