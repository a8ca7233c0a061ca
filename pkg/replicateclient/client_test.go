package replicateclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// newPredictionServer simulates the prediction lifecycle: create, poll a few
// times, then settle with the given output builder.
func newPredictionServer(t *testing.T, pollsUntilDone int, finalStatus string, output func(baseURL string) any) *httptest.Server {
	t.Helper()

	var polls atomic.Int64
	var server *httptest.Server
	mux := http.NewServeMux()

	mux.HandleFunc("/v1/predictions", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Token test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"detail": "invalid token"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"id": "p1", "status": "starting"})
	})

	mux.HandleFunc("/v1/predictions/p1", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.NotFound(w, r)
			return
		}
		if polls.Add(1) < int64(pollsUntilDone) {
			json.NewEncoder(w).Encode(map[string]any{"id": "p1", "status": "processing"})
			return
		}
		resp := map[string]any{"id": "p1", "status": finalStatus}
		if finalStatus == "succeeded" {
			resp["output"] = output(server.URL)
		} else {
			resp["error"] = "boom"
		}
		json.NewEncoder(w).Encode(resp)
	})

	mux.HandleFunc("/files/audio.wav", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/wav")
		w.Write([]byte("RIFFbytes"))
	})

	mux.HandleFunc("/files/clip.mp4", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		w.Write([]byte("mp4bytes"))
	})

	mux.HandleFunc("/files/empty", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/wav")
		// Stream with zero chunks.
	})

	server = httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestClient(baseURL string) *Client {
	c := NewClient(baseURL, "test-token")
	c.PollInterval = time.Millisecond
	return c
}

func TestComposeDrainsAudioAfterPolling(t *testing.T) {
	server := newPredictionServer(t, 3, "succeeded", func(baseURL string) any {
		return map[string]string{
			"audio":       baseURL + "/files/audio.wav",
			"spectrogram": baseURL + "/files/clip.mp4",
		}
	})

	data, contentType, err := newTestClient(server.URL).Compose(context.Background(), "lofi piano")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "RIFFbytes" {
		t.Fatalf("unexpected audio bytes: %q", data)
	}
	if contentType != "audio/wav" {
		t.Fatalf("unexpected content type: %q", contentType)
	}
}

func TestRenderDownloadsFirstOutputFile(t *testing.T) {
	server := newPredictionServer(t, 1, "succeeded", func(baseURL string) any {
		return []string{baseURL + "/files/clip.mp4"}
	})

	data, err := newTestClient(server.URL).Render(context.Background(), "a drone shot")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "mp4bytes" {
		t.Fatalf("unexpected video bytes: %q", data)
	}
}

func TestEmptyOutputStreamIsAnError(t *testing.T) {
	server := newPredictionServer(t, 1, "succeeded", func(baseURL string) any {
		return map[string]string{"audio": baseURL + "/files/empty"}
	})

	_, _, err := newTestClient(server.URL).Compose(context.Background(), "lofi piano")
	if !errors.Is(err, ErrEmptyStream) {
		t.Fatalf("expected ErrEmptyStream, got %v", err)
	}
}

func TestFailedPredictionSurfacesProviderError(t *testing.T) {
	server := newPredictionServer(t, 2, "failed", nil)

	_, err := newTestClient(server.URL).Render(context.Background(), "a drone shot")
	if err == nil {
		t.Fatal("expected error for failed prediction")
	}
}

func TestCanceledContextStopsPolling(t *testing.T) {
	server := newPredictionServer(t, 1000, "succeeded", func(baseURL string) any {
		return []string{baseURL + "/files/clip.mp4"}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := newTestClient(server.URL).Render(ctx, "a drone shot")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context deadline error, got %v", err)
	}
}

func TestUnauthorizedCreateReturnsAPIError(t *testing.T) {
	server := newPredictionServer(t, 1, "succeeded", nil)

	client := newTestClient(server.URL)
	client.APIToken = "wrong"

	_, err := client.Render(context.Background(), "a drone shot")
	var apiErr *ErrorResponse
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected ErrorResponse, got %v", err)
	}
	if fmt.Sprint(apiErr) == "" {
		t.Fatal("error message must not be empty")
	}
}
