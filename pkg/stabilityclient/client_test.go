package stabilityclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestGenerateForwardsDiffusionParameters(t *testing.T) {
	var captured struct {
		TextPrompts []struct {
			Text   string  `json:"text"`
			Weight float64 `json:"weight"`
		} `json:"text_prompts"`
		CfgScale float64 `json:"cfg_scale"`
		Height   int     `json:"height"`
		Width    int     `json:"width"`
		Samples  int     `json:"samples"`
		Steps    int     `json:"steps"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/generation/stable-diffusion-v1-6/text-to-image" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("missing bearer token")
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"artifacts": []map[string]any{
				{"base64": "one", "seed": 1},
				{"base64": "two", "seed": 2},
				{"base64": "three", "seed": 3},
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", 5*time.Second)
	payloads, err := client.Generate(context.Background(), "a lighthouse", 3, 1024, 768)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(payloads) != 3 {
		t.Fatalf("expected 3 artifacts, got %d", len(payloads))
	}
	for i, want := range []string{"one", "two", "three"} {
		if payloads[i] != want {
			t.Fatalf("artifact %d out of order: %q", i, payloads[i])
		}
	}

	if captured.TextPrompts[0].Text != "a lighthouse" || captured.TextPrompts[0].Weight != 1 {
		t.Fatalf("unexpected prompt payload: %+v", captured.TextPrompts)
	}
	if captured.Samples != 3 || captured.Width != 1024 || captured.Height != 768 {
		t.Fatalf("unexpected dimensions: %+v", captured)
	}
	if captured.CfgScale != 7 || captured.Steps != 30 {
		t.Fatalf("unexpected diffusion settings: %+v", captured)
	}
}

func TestGenerateTranslatesAPIErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{
			"name":    "invalid_prompts",
			"message": "prompt was flagged",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", 5*time.Second)
	_, err := client.Generate(context.Background(), "something", 1, 512, 512)

	var apiErr *ErrorResponse
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected ErrorResponse, got %v", err)
	}
	if apiErr.Name != "invalid_prompts" {
		t.Fatalf("unexpected error payload: %+v", apiErr)
	}
}
