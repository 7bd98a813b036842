package generation

import (
	"context"
	"encoding/json"
	"fmt"

	"voicenote-ai/internal/config"
	"voicenote-ai/internal/note"
	"voicenote-ai/pkg/logger"
)

// Generator turns a transcript into a structured note. Implementations call
// a chat-completion-style service with exactly one available tool and force
// its invocation, so the response shape is machine-parseable instead of
// prose. The returned note carries the input transcript unchanged in its
// Transcription field. Partial results are never returned.
type Generator interface {
	Generate(ctx context.Context, transcript string) (*note.StructuredNote, error)
}

// ToolName is the single tool the generation service must invoke
const ToolName = "generate_note_content"

const toolDescription = "Generate emoji, title, and summary from voice transcription."

const systemPrompt = `You are an AI assistant specialized in processing voice notes.
Your task is to:
1. Choose a single emoji that best represents the note's theme or topic
2. Create a clear, contextual title that reflects the content
3. Generate a comprehensive summary that:
   - Captures the key points and main ideas
   - Provides essential context and significance
   - Is 2-3 paragraphs long
   - Includes important details and implications
   - Makes the content clear and understandable

Focus on creating a summary that helps readers quickly understand
the full context and importance of the voice note.`

const (
	emojiDescription   = "A single emoji that captures the main theme, topic, or emotion of the note"
	titleDescription   = "A clear, contextual title that reflects the note's content (max 50 characters)"
	summaryDescription = "A comprehensive summary that captures the key points, context, and significance of the transcription. Should be 2-3 paragraphs long and provide meaningful insights."
)

// userMessage wraps the transcript verbatim for the user turn
func userMessage(transcript string) string {
	return fmt.Sprintf("Please process this voice note transcription: %s", transcript)
}

// parseArguments decodes tool-call arguments and enforces that every
// required field is present. All four failure modes here are contract
// violations by the generation service, never user mistakes.
func parseArguments(arguments []byte) (*note.Content, error) {
	var content note.Content
	if err := json.Unmarshal(arguments, &content); err != nil {
		return nil, note.GenerationContractError("failed to parse tool arguments", err)
	}

	for field, value := range map[string]string{
		"emoji":   content.Emoji,
		"title":   content.Title,
		"summary": content.Summary,
	} {
		if value == "" {
			return nil, note.GenerationContractError(fmt.Sprintf("missing required field: %s", field), nil)
		}
	}

	return &content, nil
}

// NewFromConfig builds the configured generator
func NewFromConfig(ctx context.Context, cfg config.GenerationConfig, log *logger.Logger) (Generator, error) {
	switch cfg.Provider {
	case config.GenerationProviderOpenAI:
		return NewOpenAIGenerator(cfg, log), nil
	case config.GenerationProviderGemini:
		return NewGeminiGenerator(ctx, cfg, log)
	}
	return nil, fmt.Errorf("unknown generation provider: %q", cfg.Provider)
}
