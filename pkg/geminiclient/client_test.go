package geminiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aihub/generation-service/internal/domain"
)

func TestCompleteBuildsContentsFromHistory(t *testing.T) {
	var captured struct {
		Contents []struct {
			Role  string `json:"role"`
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"contents"`
		GenerationConfig *GenerationConfig `json:"generationConfig"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1beta/models/gemini-1.5-flash:generateContent" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Errorf("missing api key header")
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{
					"role":  "model",
					"parts": []map[string]string{{"text": "the "}, {"text": "reply"}},
				}},
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", "gemini-1.5-flash", 5*time.Second)
	history := []domain.Message{
		{Role: "user", Parts: []domain.Part{{Text: "hi"}}},
		{Role: "model", Parts: []domain.Part{{Text: "hello"}}},
	}

	reply, err := client.Complete(context.Background(), history, "how are you?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != "the reply" {
		t.Fatalf("multi-part candidates must be concatenated, got %q", reply)
	}

	if len(captured.Contents) != 3 {
		t.Fatalf("expected history plus prompt, got %d contents", len(captured.Contents))
	}
	if captured.Contents[0].Role != "user" || captured.Contents[1].Role != "model" {
		t.Fatalf("history roles out of order: %+v", captured.Contents)
	}
	last := captured.Contents[2]
	if last.Role != "user" || last.Parts[0].Text != "how are you?" {
		t.Fatalf("prompt must be the final user turn, got %+v", last)
	}
	if captured.GenerationConfig != nil {
		t.Fatal("generation config must be omitted when unset")
	}
}

func TestCompleteSendsGenerationConfig(t *testing.T) {
	var gotConfig *GenerationConfig

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			GenerationConfig *GenerationConfig `json:"generationConfig"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		gotConfig = req.GenerationConfig
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]string{{"text": "ok"}}}},
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", "gemini-1.5-pro", 5*time.Second)
	client.GenerationConfig = &GenerationConfig{Temperature: 0.7, TopK: 40, TopP: 0.95, MaxOutputTokens: 2048}

	if _, err := client.Complete(context.Background(), nil, "write code"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotConfig == nil || gotConfig.MaxOutputTokens != 2048 || gotConfig.TopK != 40 {
		t.Fatalf("generation config not forwarded: %+v", gotConfig)
	}
}

func TestCompleteTranslatesAPIErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": 429, "message": "quota exhausted", "status": "RESOURCE_EXHAUSTED"},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", "gemini-1.5-flash", 5*time.Second)

	_, err := client.Complete(context.Background(), nil, "hi")
	var apiErr *ErrorResponse
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected ErrorResponse, got %v", err)
	}
	if apiErr.ErrorDetail.Status != "RESOURCE_EXHAUSTED" {
		t.Fatalf("unexpected error detail: %+v", apiErr)
	}
}

func TestCompleteRejectsEmptyCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"candidates": []any{}})
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", "gemini-1.5-flash", 5*time.Second)
	if _, err := client.Complete(context.Background(), nil, "hi"); err == nil {
		t.Fatal("expected error for empty candidates")
	}
}
