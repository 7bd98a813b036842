package transcription

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"voicenote-ai/internal/config"
	"voicenote-ai/internal/note"
	"voicenote-ai/pkg/logger"
)

// ChatAudioClient transcribes audio through a general multimodal chat
// endpoint: the payload is base64-embedded as an input_audio content block
// next to a text instruction, and the transcript is read back from the first
// choice's text content.
type ChatAudioClient struct {
	apiKey      string
	model       string
	baseURL     string // Stored without trailing slash
	constraints Constraints
	httpClient  *http.Client
	logger      *logger.Logger
}

// chatAudioFormats is the strict MIME-to-format table. Anything absent from
// the table is rejected; no suffix heuristics apply here because the chat
// endpoint only decodes formats it was told about exactly.
var chatAudioFormats = map[string]string{
	"audio/wav":   "wav",
	"audio/x-wav": "wav",
	"audio/wave":  "wav",
	"audio/mp3":   "mp3",
	"audio/mpeg":  "mp3",
	"audio/flac":  "flac",
	"audio/ogg":   "ogg",
	"audio/webm":  "webm",
	"audio/m4a":   "m4a",
	"audio/x-m4a": "m4a",
	"audio/mp4":   "m4a",
}

const transcribeInstruction = "Transcribe the following audio recording exactly. Respond with the transcription text only, without commentary."

// NewChatAudioClient creates a new multimodal-chat transcription client
func NewChatAudioClient(cfg config.TranscriptionConfig, log *logger.Logger) *ChatAudioClient {
	model := cfg.ChatModel
	if model == "" {
		model = cfg.SpeechModel
	}

	return &ChatAudioClient{
		apiKey:  cfg.APIKey,
		model:   model,
		baseURL: strings.TrimRight(cfg.ChatBaseURL, "/"),
		constraints: Constraints{
			Formats:  chatAudioFormats,
			MaxBytes: cfg.MaxUploadBytes(),
		},
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSecs) * time.Second,
		},
		logger: log.Named("chat-audio-transcription"),
	}
}

// Name identifies the provider in transcript sources and log entries
func (c *ChatAudioClient) Name() string {
	return "chat_audio"
}

// Constraints exposes the provider's input bounds
func (c *ChatAudioClient) Constraints() Constraints {
	return c.constraints
}

// Transcribe validates the payload against the MIME table and sends a single
// deterministic chat turn carrying the audio inline.
func (c *ChatAudioClient) Transcribe(ctx context.Context, audio note.AudioPayload, opts Options) (*note.Transcript, error) {
	format, err := c.constraints.Validate(audio)
	if err != nil {
		return nil, err
	}

	type inputAudio struct {
		Data   string `json:"data"`
		Format string `json:"format"`
	}

	type contentPart struct {
		Type       string      `json:"type"`
		Text       string      `json:"text,omitempty"`
		InputAudio *inputAudio `json:"input_audio,omitempty"`
	}

	type message struct {
		Role    string        `json:"role"`
		Content []contentPart `json:"content"`
	}

	type request struct {
		Model       string    `json:"model"`
		Messages    []message `json:"messages"`
		Temperature float64   `json:"temperature"`
	}

	instruction := transcribeInstruction
	if opts.Language != "" {
		instruction = fmt.Sprintf("%s The audio is in language %q.", instruction, opts.Language)
	}

	reqBody := request{
		Model: c.model,
		Messages: []message{
			{
				Role: "user",
				Content: []contentPart{
					{Type: "text", Text: instruction},
					{Type: "input_audio", InputAudio: &inputAudio{
						Data:   base64.StdEncoding.EncodeToString(audio.Data),
						Format: format,
					}},
				},
			},
		},
		// Temperature 0 keeps the single-turn completion deterministic
		Temperature: 0,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	apiURL := c.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, "POST", apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	c.logger.Debug("Sending audio to chat endpoint for transcription",
		logger.String("model", c.model),
		logger.String("format", format),
		logger.Int("size_bytes", audio.Size()))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, note.UpstreamError(0, "chat transcription request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		c.logger.Error("Chat endpoint returned an error",
			logger.Int("status_code", resp.StatusCode),
			logger.String("response", string(bodyBytes)))
		return nil, note.UpstreamError(resp.StatusCode,
			fmt.Sprintf("chat transcription error: %s", string(bodyBytes)), nil)
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, note.UpstreamError(resp.StatusCode, "failed to parse chat transcription response", err)
	}

	if len(result.Choices) == 0 {
		return nil, note.UpstreamError(resp.StatusCode, "no choices in chat transcription response", nil)
	}

	text := strings.TrimSpace(result.Choices[0].Message.Content)
	if text == "" {
		return nil, note.UpstreamError(resp.StatusCode, "chat endpoint returned an empty transcript", nil)
	}

	return &note.Transcript{Text: text, Source: c.Name()}, nil
}
