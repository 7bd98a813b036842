package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"voicenote-ai/internal/config"
	"voicenote-ai/internal/note"
	"voicenote-ai/pkg/logger"
)

// SpeechClient transcribes audio through a dedicated speech-transcription
// endpoint (Groq-style /audio/transcriptions, multipart upload).
type SpeechClient struct {
	apiKey      string
	model       string
	baseURL     string // Stored without trailing slash
	temperature float64
	constraints Constraints
	httpClient  *http.Client
	logger      *logger.Logger
}

// speechFormats is the fixed allow-list of format suffixes the endpoint
// accepts, matched against the content type's final path segment.
var speechFormats = []string{"flac", "mp3", "mp4", "mpeg", "mpga", "m4a", "ogg", "wav", "webm"}

// NewSpeechClient creates a new speech-endpoint transcription client
func NewSpeechClient(cfg config.TranscriptionConfig, log *logger.Logger) *SpeechClient {
	return &SpeechClient{
		apiKey:      cfg.APIKey,
		model:       cfg.SpeechModel,
		baseURL:     strings.TrimRight(cfg.SpeechBaseURL, "/"),
		temperature: cfg.Temperature,
		constraints: Constraints{
			Suffixes: speechFormats,
			MaxBytes: cfg.MaxUploadBytes(),
		},
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSecs) * time.Second,
		},
		logger: log.Named("speech-transcription"),
	}
}

// Name identifies the provider in transcript sources and log entries
func (c *SpeechClient) Name() string {
	return "speech"
}

// Constraints exposes the provider's input bounds
func (c *SpeechClient) Constraints() Constraints {
	return c.constraints
}

// Transcribe validates the payload, uploads it as a multipart form and
// extracts the `text` field from the upstream JSON response.
func (c *SpeechClient) Transcribe(ctx context.Context, audio note.AudioPayload, opts Options) (*note.Transcript, error) {
	format, err := c.constraints.Validate(audio)
	if err != nil {
		return nil, err
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", "audio_file."+format)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(audio.Data); err != nil {
		return nil, fmt.Errorf("failed to write audio data: %w", err)
	}

	if err := writer.WriteField("model", c.model); err != nil {
		return nil, fmt.Errorf("failed to write model field: %w", err)
	}
	if opts.Language != "" {
		writer.WriteField("language", opts.Language)
	}
	if opts.Prompt != "" {
		writer.WriteField("prompt", opts.Prompt)
	}
	writer.WriteField("response_format", "json")
	writer.WriteField("temperature", strconv.FormatFloat(c.temperature, 'f', -1, 64))

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	apiURL := c.baseURL + "/audio/transcriptions"
	req, err := http.NewRequestWithContext(ctx, "POST", apiURL, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	c.logger.Debug("Uploading audio for transcription",
		logger.String("model", c.model),
		logger.String("format", format),
		logger.Int("size_bytes", audio.Size()))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, note.UpstreamError(0, "transcription request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		c.logger.Error("Transcription service returned an error",
			logger.Int("status_code", resp.StatusCode),
			logger.String("response", string(bodyBytes)))
		return nil, note.UpstreamError(resp.StatusCode,
			fmt.Sprintf("transcription service error: %s", string(bodyBytes)), nil)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, note.UpstreamError(resp.StatusCode, "failed to parse transcription response", err)
	}

	if result.Text == "" {
		return nil, note.UpstreamError(resp.StatusCode, "transcription service returned an empty transcript", nil)
	}

	return &note.Transcript{Text: result.Text, Source: c.Name()}, nil
}
