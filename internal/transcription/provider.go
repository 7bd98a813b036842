package transcription

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"voicenote-ai/internal/config"
	"voicenote-ai/internal/note"
	"voicenote-ai/pkg/logger"
)

// Options carries optional per-request hints through to the upstream service
type Options struct {
	Language string // Optional language hint (e.g., "en")
	Prompt   string // Optional domain-adaptation prompt
}

// Provider converts an audio payload into a plain-text transcript.
// Implementations validate the payload against their own constraints before
// any network call is issued.
type Provider interface {
	// Name identifies the provider in transcript sources and log entries
	Name() string

	// Transcribe validates the payload and delegates to the upstream
	// service. An empty transcript is always returned as an error.
	Transcribe(ctx context.Context, audio note.AudioPayload, opts Options) (*note.Transcript, error)
}

// Constraints holds a provider's immutable input bounds: which content types
// it accepts and how large a payload may be. Every provider defines both a
// format rule and a size cap. Exactly one of Suffixes or Formats is set.
type Constraints struct {
	// Suffixes is an allow-list of format tags matched against the final
	// path segment of the content type ("audio/mp3" -> "mp3", with the
	// "x-m4a" suffix normalized to "m4a").
	Suffixes []string

	// Formats maps exact MIME types to the format tag sent upstream.
	// Content types absent from the table are rejected; no suffix
	// heuristics apply.
	Formats map[string]string

	// MaxBytes is the payload size cap in bytes
	MaxBytes int64
}

// Validate checks the payload against the constraints and returns the
// normalized format tag. Failures are client-input errors carrying the list
// of accepted formats.
func (c Constraints) Validate(audio note.AudioPayload) (string, error) {
	format, ok := c.format(audio.ContentType)
	if !ok {
		return "", note.ClientInputError("unsupported content type %q. Supported formats: %s",
			audio.ContentType, strings.Join(c.acceptedFormats(), ", "))
	}

	if int64(audio.Size()) > c.MaxBytes {
		return "", note.ClientInputError("file size %d bytes exceeds maximum limit of %dMB",
			audio.Size(), c.MaxBytes/(1024*1024))
	}

	return format, nil
}

func (c Constraints) format(contentType string) (string, bool) {
	ct := strings.ToLower(strings.TrimSpace(contentType))

	if c.Formats != nil {
		format, ok := c.Formats[ct]
		return format, ok
	}

	suffix := ct
	if idx := strings.LastIndex(ct, "/"); idx >= 0 {
		suffix = ct[idx+1:]
	}
	if suffix == "x-m4a" {
		suffix = "m4a"
	}
	for _, allowed := range c.Suffixes {
		if suffix == allowed {
			return suffix, true
		}
	}
	return "", false
}

// acceptedFormats returns the sorted, de-duplicated set of format tags
func (c Constraints) acceptedFormats() []string {
	if c.Formats == nil {
		formats := make([]string, len(c.Suffixes))
		copy(formats, c.Suffixes)
		sort.Strings(formats)
		return formats
	}

	seen := make(map[string]bool)
	formats := make([]string, 0, len(c.Formats))
	for _, tag := range c.Formats {
		if !seen[tag] {
			seen[tag] = true
			formats = append(formats, tag)
		}
	}
	sort.Strings(formats)
	return formats
}

// NewFromConfig builds the configured provider. With fallback enabled the
// primary is wrapped in a chain that tries the other variant when the
// primary fails with an upstream error.
func NewFromConfig(cfg config.TranscriptionConfig, log *logger.Logger) (Provider, error) {
	speech := NewSpeechClient(cfg, log)
	chatAudio := NewChatAudioClient(cfg, log)

	var primary, secondary Provider
	switch cfg.Provider {
	case config.TranscriptionProviderSpeech:
		primary, secondary = speech, chatAudio
	case config.TranscriptionProviderChatAudio:
		primary, secondary = chatAudio, speech
	default:
		return nil, fmt.Errorf("unknown transcription provider: %q", cfg.Provider)
	}

	if !cfg.Fallback {
		return primary, nil
	}
	return &fallbackChain{primary: primary, secondary: secondary, logger: log.Named("transcription-fallback")}, nil
}

// fallbackChain tries the primary provider and, on an upstream failure only,
// retries once with the secondary. Client-input rejections are final: if the
// payload is invalid for the primary, switching providers cannot help the
// caller understand what to fix.
type fallbackChain struct {
	primary   Provider
	secondary Provider
	logger    *logger.Logger
}

func (f *fallbackChain) Name() string {
	return f.primary.Name()
}

func (f *fallbackChain) Transcribe(ctx context.Context, audio note.AudioPayload, opts Options) (*note.Transcript, error) {
	transcript, err := f.primary.Transcribe(ctx, audio, opts)
	if err == nil {
		return transcript, nil
	}

	var classified *note.Error
	if !errors.As(err, &classified) || classified.Kind != note.KindUpstream {
		return nil, err
	}

	f.logger.Warn("Primary transcription provider failed, trying fallback",
		logger.String("primary", f.primary.Name()),
		logger.String("fallback", f.secondary.Name()),
		logger.Error(err))

	transcript, fallbackErr := f.secondary.Transcribe(ctx, audio, opts)
	if fallbackErr != nil {
		// Surface the primary failure; the fallback attempt is logged
		f.logger.Error("Fallback transcription provider also failed",
			logger.String("fallback", f.secondary.Name()),
			logger.Error(fallbackErr))
		return nil, err
	}
	return transcript, nil
}
