package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"voicenote-ai/internal/config"
	"voicenote-ai/internal/note"
	"voicenote-ai/pkg/logger"
)

func testGenConfig(baseURL string) config.GenerationConfig {
	return config.GenerationConfig{
		Provider:    config.GenerationProviderOpenAI,
		BaseURL:     baseURL,
		Model:       "gemini-2.0-flash",
		Temperature: 0.7,
		TimeoutSecs: 5,
		APIKey:      "test-key",
	}
}

// toolCallResponse builds a minimal chat-completion body whose first choice
// carries a single tool call with the given name and arguments.
func toolCallResponse(toolName, arguments string) string {
	body := map[string]interface{}{
		"id":     "chatcmpl-test",
		"object": "chat.completion",
		"model":  "gemini-2.0-flash",
		"choices": []map[string]interface{}{
			{
				"index": 0,
				"message": map[string]interface{}{
					"role": "assistant",
					"tool_calls": []map[string]interface{}{
						{
							"id":   "call_1",
							"type": "function",
							"function": map[string]interface{}{
								"name":      toolName,
								"arguments": arguments,
							},
						},
					},
				},
				"finish_reason": "tool_calls",
			},
		},
	}
	data, _ := json.Marshal(body)
	return string(data)
}

func TestOpenAIGeneratorGenerate(t *testing.T) {
	transcript := "Hello world, this is a quick note about the garden."

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
			Tools []struct {
				Type     string `json:"type"`
				Function struct {
					Name string `json:"name"`
				} `json:"function"`
			} `json:"tools"`
			ToolChoice struct {
				Type     string `json:"type"`
				Function struct {
					Name string `json:"name"`
				} `json:"function"`
			} `json:"tool_choice"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}

		if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Role != "user" {
			t.Errorf("expected system + user messages, got %+v", req.Messages)
		}
		if len(req.Tools) != 1 || req.Tools[0].Function.Name != ToolName {
			t.Errorf("expected exactly one tool %q, got %+v", ToolName, req.Tools)
		}
		if req.ToolChoice.Function.Name != ToolName {
			t.Errorf("tool invocation not forced, tool_choice = %+v", req.ToolChoice)
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, toolCallResponse(ToolName,
			`{"emoji":"🌱","title":"Garden Notes","summary":"Observations about the garden."}`))
	}))
	defer server.Close()

	gen := NewOpenAIGenerator(testGenConfig(server.URL), logger.NewNop())
	result, err := gen.Generate(context.Background(), transcript)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if result.Emoji != "🌱" {
		t.Errorf("emoji = %q", result.Emoji)
	}
	if result.Title != "Garden Notes" {
		t.Errorf("title = %q", result.Title)
	}
	if result.Summary != "Observations about the garden." {
		t.Errorf("summary = %q", result.Summary)
	}
	if result.Transcription != transcript {
		t.Errorf("transcription = %q, want the input echoed unchanged", result.Transcription)
	}
}

func TestOpenAIGeneratorContractViolations(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "no choices",
			body: `{"id":"chatcmpl-test","object":"chat.completion","choices":[]}`,
		},
		{
			name: "free text instead of tool call",
			body: `{"id":"chatcmpl-test","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"Here is a summary..."},"finish_reason":"stop"}]}`,
		},
		{
			name: "wrong tool name",
			body: toolCallResponse("delete_everything", `{"emoji":"💣","title":"x","summary":"y"}`),
		},
		{
			name: "unparseable arguments",
			body: toolCallResponse(ToolName, `not json`),
		},
		{
			name: "missing field",
			body: toolCallResponse(ToolName, `{"emoji":"🌱","title":"Garden Notes"}`),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprint(w, tc.body)
			}))
			defer server.Close()

			gen := NewOpenAIGenerator(testGenConfig(server.URL), logger.NewNop())
			_, err := gen.Generate(context.Background(), "some transcript")

			var classified *note.Error
			if !errors.As(err, &classified) || classified.Kind != note.KindGenerationContract {
				t.Fatalf("expected generation_contract error, got %v", err)
			}
		})
	}
}

func TestOpenAIGeneratorUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, `{"error":{"message":"model overloaded","type":"server_error"}}`)
	}))
	defer server.Close()

	gen := NewOpenAIGenerator(testGenConfig(server.URL), logger.NewNop())
	_, err := gen.Generate(context.Background(), "some transcript")

	var classified *note.Error
	if !errors.As(err, &classified) {
		t.Fatalf("expected classified error, got %v", err)
	}
	if classified.Kind != note.KindUpstream {
		t.Errorf("error kind = %v, want upstream", classified.Kind)
	}
	if classified.Status != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", classified.Status)
	}
}

func TestNewFromConfigUnknownProvider(t *testing.T) {
	cfg := testGenConfig("http://unused")
	cfg.Provider = "bogus"

	if _, err := NewFromConfig(context.Background(), cfg, logger.NewNop()); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}
