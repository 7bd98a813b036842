package pipeline

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"voicenote-ai/internal/note"
	"voicenote-ai/internal/transcription"
	"voicenote-ai/pkg/logger"
)

type fakeTranscriber struct {
	transcript *note.Transcript
	err        error
	calls      int
}

func (f *fakeTranscriber) Name() string { return "fake" }

func (f *fakeTranscriber) Transcribe(ctx context.Context, audio note.AudioPayload, opts transcription.Options) (*note.Transcript, error) {
	f.calls++
	return f.transcript, f.err
}

type fakeFetcher struct {
	transcript *note.Transcript
	err        error
	calls      int
	lastID     string
}

func (f *fakeFetcher) FetchTranscript(ctx context.Context, videoID string) (*note.Transcript, error) {
	f.calls++
	f.lastID = videoID
	return f.transcript, f.err
}

// fakeGenerator produces a deterministic note from the transcript, echoing
// the input back in the Transcription field like the real generators do.
type fakeGenerator struct {
	err   error
	calls int
}

func (f *fakeGenerator) Generate(ctx context.Context, transcript string) (*note.StructuredNote, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &note.StructuredNote{
		Emoji:         "👋",
		Title:         "Greeting",
		Transcription: transcript,
		Summary:       fmt.Sprintf("Summary of: %s", transcript),
	}, nil
}

func newTestPipeline(transcriber *fakeTranscriber, fetcher *fakeFetcher, generator *fakeGenerator) *Pipeline {
	return New(transcriber, fetcher, generator, transcription.Options{}, logger.NewNop())
}

func TestFromAudio(t *testing.T) {
	transcriber := &fakeTranscriber{transcript: &note.Transcript{Text: "Hello world", Source: "fake"}}
	generator := &fakeGenerator{}
	p := newTestPipeline(transcriber, &fakeFetcher{}, generator)

	result, err := p.FromAudio(context.Background(), note.AudioPayload{Data: []byte("x"), ContentType: "audio/mp3"})
	if err != nil {
		t.Fatalf("FromAudio failed: %v", err)
	}

	want := &note.StructuredNote{
		Emoji:         "👋",
		Title:         "Greeting",
		Transcription: "Hello world",
		Summary:       "Summary of: Hello world",
	}
	if !reflect.DeepEqual(result, want) {
		t.Errorf("FromAudio = %+v, want %+v", result, want)
	}
}

func TestFromAudioIsRepeatable(t *testing.T) {
	transcriber := &fakeTranscriber{transcript: &note.Transcript{Text: "Hello world", Source: "fake"}}
	p := newTestPipeline(transcriber, &fakeFetcher{}, &fakeGenerator{})

	payload := note.AudioPayload{Data: []byte("x"), ContentType: "audio/mp3"}
	first, err := p.FromAudio(context.Background(), payload)
	if err != nil {
		t.Fatalf("first invocation failed: %v", err)
	}
	second, err := p.FromAudio(context.Background(), payload)
	if err != nil {
		t.Fatalf("second invocation failed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated invocations differ: %+v vs %+v", first, second)
	}
}

func TestFromAudioEmptyTranscriptSkipsGeneration(t *testing.T) {
	tests := []struct {
		name       string
		transcript *note.Transcript
	}{
		{"nil transcript", nil},
		{"empty text", &note.Transcript{Text: "", Source: "fake"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			generator := &fakeGenerator{}
			p := newTestPipeline(&fakeTranscriber{transcript: tc.transcript}, &fakeFetcher{}, generator)

			_, err := p.FromAudio(context.Background(), note.AudioPayload{Data: []byte("x")})

			var classified *note.Error
			if !errors.As(err, &classified) || classified.Kind != note.KindUpstream {
				t.Fatalf("expected upstream error, got %v", err)
			}
			if generator.calls != 0 {
				t.Errorf("generation must not run on an empty transcript")
			}
		})
	}
}

func TestFromAudioTranscriberErrorPassesThrough(t *testing.T) {
	transcriberErr := note.ClientInputError("unsupported content type")
	generator := &fakeGenerator{}
	p := newTestPipeline(&fakeTranscriber{err: transcriberErr}, &fakeFetcher{}, generator)

	_, err := p.FromAudio(context.Background(), note.AudioPayload{})
	if !errors.Is(err, transcriberErr) {
		t.Fatalf("expected the transcriber error unchanged, got %v", err)
	}
	if generator.calls != 0 {
		t.Errorf("generation must not run when transcription fails")
	}
}

func TestFromVideoURL(t *testing.T) {
	fetcher := &fakeFetcher{transcript: &note.Transcript{Text: "Fetched transcript", Source: "youtube:dQw4w9WgXcQ"}}
	transcriber := &fakeTranscriber{}
	p := newTestPipeline(transcriber, fetcher, &fakeGenerator{})

	result, err := p.FromVideoURL(context.Background(), "https://youtu.be/dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("FromVideoURL failed: %v", err)
	}

	if fetcher.lastID != "dQw4w9WgXcQ" {
		t.Errorf("fetched video id = %q", fetcher.lastID)
	}
	if result.Transcription != "Fetched transcript" {
		t.Errorf("transcription = %q, want the fetched text", result.Transcription)
	}
	if result.Emoji != "👋" || result.Title != "Greeting" {
		t.Errorf("generated fields missing: %+v", result)
	}
	if transcriber.calls != 0 {
		t.Errorf("audio transcription must not run on the video path")
	}
}

// The note's Transcription field always comes from the fetched transcript,
// even if the generator mangles its echo of the input.
func TestFromVideoURLUsesFetchedTranscriptNotGeneratorEcho(t *testing.T) {
	fetcher := &fakeFetcher{transcript: &note.Transcript{Text: "Fetched transcript", Source: "youtube:abc123xyz00"}}
	mangling := &manglingGenerator{}
	p := New(&fakeTranscriber{}, fetcher, mangling, transcription.Options{}, logger.NewNop())

	result, err := p.FromVideoURL(context.Background(), "https://www.youtube.com/watch?v=abc123xyz00")
	if err != nil {
		t.Fatalf("FromVideoURL failed: %v", err)
	}
	if result.Transcription != "Fetched transcript" {
		t.Errorf("transcription = %q, want the fetched text regardless of the generator echo", result.Transcription)
	}
}

type manglingGenerator struct{}

func (m *manglingGenerator) Generate(ctx context.Context, transcript string) (*note.StructuredNote, error) {
	return &note.StructuredNote{
		Emoji:         "🎬",
		Title:         "Video",
		Transcription: "MANGLED: " + transcript,
		Summary:       "A video summary.",
	}, nil
}

func TestFromVideoURLInvalidURL(t *testing.T) {
	fetcher := &fakeFetcher{}
	p := newTestPipeline(&fakeTranscriber{}, fetcher, &fakeGenerator{})

	tests := []string{
		"https://vimeo.com/12345",
		"https://www.youtube.com/watch",
		"not a url",
	}

	for _, videoURL := range tests {
		_, err := p.FromVideoURL(context.Background(), videoURL)

		var classified *note.Error
		if !errors.As(err, &classified) || classified.Kind != note.KindClientInput {
			t.Errorf("FromVideoURL(%q) = %v, want client_input error", videoURL, err)
		}
	}
	if fetcher.calls != 0 {
		t.Errorf("fetch must not run for unrecognized URLs")
	}
}

func TestFromVideoURLEmptyTranscriptSkipsGeneration(t *testing.T) {
	generator := &fakeGenerator{}
	fetcher := &fakeFetcher{transcript: &note.Transcript{Text: ""}}
	p := newTestPipeline(&fakeTranscriber{}, fetcher, generator)

	_, err := p.FromVideoURL(context.Background(), "https://youtu.be/dQw4w9WgXcQ")

	var classified *note.Error
	if !errors.As(err, &classified) || classified.Kind != note.KindUpstream {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if generator.calls != 0 {
		t.Errorf("generation must not run on an empty transcript")
	}
}

func TestGeneratorErrorPassesThrough(t *testing.T) {
	genErr := note.GenerationContractError("no tool call received from the model", nil)
	transcriber := &fakeTranscriber{transcript: &note.Transcript{Text: "Hello world"}}
	p := newTestPipeline(transcriber, &fakeFetcher{}, &fakeGenerator{err: genErr})

	_, err := p.FromAudio(context.Background(), note.AudioPayload{Data: []byte("x")})
	if !errors.Is(err, genErr) {
		t.Fatalf("expected the generator error unchanged, got %v", err)
	}
}
