package pipeline

import (
	"context"

	"voicenote-ai/internal/generation"
	"voicenote-ai/internal/note"
	"voicenote-ai/internal/transcription"
	"voicenote-ai/internal/youtube"
	"voicenote-ai/pkg/logger"
)

// TranscriptFetcher retrieves a pre-existing transcript for a video id
type TranscriptFetcher interface {
	FetchTranscript(ctx context.Context, videoID string) (*note.Transcript, error)
}

// Pipeline orchestrates the two entry paths into one output shape:
// audio -> transcription -> generation, and
// video URL -> id extraction -> transcript fetch -> generation.
// It holds only immutable collaborators; every invocation is independent.
type Pipeline struct {
	transcriber transcription.Provider
	fetcher     TranscriptFetcher
	generator   generation.Generator
	opts        transcription.Options
	logger      *logger.Logger
}

// New creates a pipeline from its three collaborators
func New(transcriber transcription.Provider, fetcher TranscriptFetcher, generator generation.Generator, opts transcription.Options, log *logger.Logger) *Pipeline {
	return &Pipeline{
		transcriber: transcriber,
		fetcher:     fetcher,
		generator:   generator,
		opts:        opts,
		logger:      log.Named("pipeline"),
	}
}

// FromAudio transcribes the payload and generates the structured note.
// Generation is never attempted on an empty transcript.
func (p *Pipeline) FromAudio(ctx context.Context, audio note.AudioPayload) (*note.StructuredNote, error) {
	transcript, err := p.transcriber.Transcribe(ctx, audio, p.opts)
	if err != nil {
		return nil, err
	}
	if transcript == nil || transcript.Text == "" {
		return nil, note.UpstreamError(0, "failed to transcribe audio", nil)
	}

	p.logger.Debug("Audio transcribed",
		logger.String("source", transcript.Source),
		logger.Int("transcript_length", len(transcript.Text)))

	result, err := p.generator.Generate(ctx, transcript.Text)
	if err != nil {
		return nil, err
	}

	// Defense in depth beyond the generator's own contract checks
	if err := result.Validate(); err != nil {
		return nil, err
	}

	return result, nil
}

// FromVideoURL extracts the video id, fetches its transcript and generates
// the structured note. The returned note carries the fetched transcript
// verbatim, not whatever the generator echoes back.
func (p *Pipeline) FromVideoURL(ctx context.Context, videoURL string) (*note.StructuredNote, error) {
	videoID, ok := youtube.ExtractVideoID(videoURL)
	if !ok {
		return nil, note.ClientInputError("invalid YouTube URL or could not extract video ID")
	}

	transcript, err := p.fetcher.FetchTranscript(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if transcript == nil || transcript.Text == "" {
		return nil, note.UpstreamError(0, "failed to fetch video transcript", nil)
	}

	p.logger.Debug("Video transcript fetched",
		logger.String("video_id", videoID),
		logger.Int("transcript_length", len(transcript.Text)))

	generated, err := p.generator.Generate(ctx, transcript.Text)
	if err != nil {
		return nil, err
	}

	result := &note.StructuredNote{
		Emoji:         generated.Emoji,
		Title:         generated.Title,
		Transcription: transcript.Text,
		Summary:       generated.Summary,
	}

	if err := result.Validate(); err != nil {
		return nil, err
	}

	return result, nil
}
