package api

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"voicenote-ai/internal/config"
	"voicenote-ai/internal/note"
	"voicenote-ai/internal/pipeline"
	"voicenote-ai/pkg/logger"
)

// Handler contains the API handlers
type Handler struct {
	pipeline *pipeline.Pipeline
	config   *config.Config
	logger   *logger.Logger
}

// NewHandler creates a new API handler
func NewHandler(p *pipeline.Pipeline, cfg *config.Config, log *logger.Logger) *Handler {
	return &Handler{
		pipeline: p,
		config:   cfg,
		logger:   log.Named("api-handler"),
	}
}

// ErrorResponse is the body returned for every failed request
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// youtubeNoteRequest is the body of a video-URL submission
type youtubeNoteRequest struct {
	VideoURL string `json:"video_url"`
}

// uploadEnvelopeSlack is headroom above the file size cap for the multipart
// boundary lines and part headers, so a file exactly at the cap parses and a
// modestly oversized one reaches the provider's own size message.
const uploadEnvelopeSlack = 10 << 10

// Root returns basic API information
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"message": "Server is running"})
}

// Health is the unauthenticated health check
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// CreateVoiceNote processes an uploaded audio file into a structured note
func (h *Handler) CreateVoiceNote(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	// The reader cap protects the server; the provider classifies the
	// file size itself, so the cap sits above it by the envelope slack
	maxBytes := h.config.Transcription.MaxUploadBytes()
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+uploadEnvelopeSlack)

	file, header, err := r.FormFile("file")
	if err != nil {
		WriteError(w, note.ClientInputError("missing or unreadable file field: %v", err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		WriteError(w, note.ClientInputError("failed to read uploaded file: %v", err))
		return
	}

	payload := note.AudioPayload{
		Data:        data,
		ContentType: header.Header.Get("Content-Type"),
	}

	result, err := h.pipeline.FromAudio(r.Context(), payload)
	if err != nil {
		h.logger.Error("Voice note processing failed",
			logger.String("content_type", payload.ContentType),
			logger.Int("size_bytes", payload.Size()),
			logger.Error(err))
		WriteError(w, err)
		return
	}

	h.logger.Info("Voice note processed",
		logger.String("content_type", payload.ContentType),
		logger.Int("size_bytes", payload.Size()),
		logger.Duration("duration", time.Since(start)))

	WriteJSON(w, http.StatusOK, result)
}

// CreateYouTubeNote processes a video URL into a structured note
func (h *Handler) CreateYouTubeNote(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req youtubeNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, note.ClientInputError("invalid request body: %v", err))
		return
	}
	if req.VideoURL == "" {
		WriteError(w, note.ClientInputError("video_url is required"))
		return
	}

	result, err := h.pipeline.FromVideoURL(r.Context(), req.VideoURL)
	if err != nil {
		h.logger.Error("YouTube note processing failed",
			logger.String("video_url", req.VideoURL),
			logger.Error(err))
		WriteError(w, err)
		return
	}

	h.logger.Info("YouTube note processed",
		logger.String("video_url", req.VideoURL),
		logger.Duration("duration", time.Since(start)))

	WriteJSON(w, http.StatusOK, result)
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// WriteError maps a pipeline error onto a status code and {detail} body.
// Unclassified errors degrade to a generic upstream failure so the caller
// always receives a structured body.
func WriteError(w http.ResponseWriter, err error) {
	classified := note.AsError(err)
	WriteJSON(w, classified.HTTPStatus(), ErrorResponse{Detail: classified.Detail})
}
