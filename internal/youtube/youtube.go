package youtube

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"voicenote-ai/internal/config"
	"voicenote-ai/internal/note"
	"voicenote-ai/pkg/logger"
)

// ExtractVideoID pulls the video id out of the two known URL shapes:
// the short-link host (youtu.be/<id>) and the canonical host
// (youtube.com/watch?v=<id>). Any other host, or a missing id, returns
// ok=false — that is a distinct outcome from an upstream failure and callers
// report it as an invalid URL.
func ExtractVideoID(rawURL string) (string, bool) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}

	switch parsed.Hostname() {
	case "youtu.be", "www.youtu.be":
		id := strings.TrimPrefix(parsed.Path, "/")
		// Drop any trailing path segments after the id
		if idx := strings.Index(id, "/"); idx >= 0 {
			id = id[:idx]
		}
		return id, id != ""
	case "youtube.com", "www.youtube.com":
		id := parsed.Query().Get("v")
		return id, id != ""
	}

	return "", false
}

// Client fetches pre-existing transcripts from the third-party transcript
// service. This is a data fetch, not audio transcription: it only serves the
// video-URL path.
type Client struct {
	baseURL    string
	formatted  bool
	httpClient *http.Client
	logger     *logger.Logger
}

// NewClient creates a transcript-fetch client. Outbound TLS connections are
// verified against the system root bundle.
func NewClient(cfg config.YouTubeConfig, log *logger.Logger) (*Client, error) {
	roots, err := x509.SystemCertPool()
	if err != nil {
		return nil, fmt.Errorf("failed to load system root certificates: %w", err)
	}

	return &Client{
		baseURL:   cfg.BaseURL,
		formatted: cfg.Formatted,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSecs) * time.Second,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{RootCAs: roots},
			},
		},
		logger: log.Named("youtube-transcript"),
	}, nil
}

// FetchTranscript retrieves the transcript for the given video id. A single
// POST, no retry: any non-200 status or transport failure is wrapped into
// one upstream error with the status and response body attached.
func (c *Client) FetchTranscript(ctx context.Context, videoID string) (*note.Transcript, error) {
	reqBody := struct {
		VideoID string `json:"video_id"`
		Format  bool   `json:"format"`
	}{
		VideoID: videoID,
		Format:  c.formatted,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/plain, */*")

	c.logger.Debug("Fetching video transcript", logger.String("video_id", videoID))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, note.UpstreamError(0, "transcript fetch failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		c.logger.Error("Transcript service returned an error",
			logger.Int("status_code", resp.StatusCode),
			logger.String("response", string(bodyBytes)))
		return nil, note.UpstreamError(resp.StatusCode,
			fmt.Sprintf("failed to fetch transcript. Status: %d, Error: %s", resp.StatusCode, string(bodyBytes)), nil)
	}

	var result struct {
		Transcript string `json:"transcript"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, note.UpstreamError(resp.StatusCode, "failed to parse transcript response", err)
	}

	if result.Transcript == "" {
		return nil, note.UpstreamError(resp.StatusCode, "transcript service returned an empty transcript", nil)
	}

	return &note.Transcript{Text: result.Transcript, Source: "youtube:" + videoID}, nil
}
