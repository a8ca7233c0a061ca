/**
 * @description
 * This package provides a client for the Google Gemini generateContent API.
 * It encapsulates the logic for making authenticated HTTP requests, building
 * request bodies from normalized conversation turns, and parsing responses.
 *
 * @dependencies
 * - bytes, context, encoding/json, fmt, net/http, time: Standard Go libraries.
 */
package geminiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aihub/generation-service/internal/domain"
)

// Client is a client for the Gemini API, bound to a single model.
type Client struct {
	BaseURL    string
	APIKey     string
	Model      string
	HTTPClient *http.Client

	// GenerationConfig is sent with every request when non-nil. The code
	// model uses it to pin sampling parameters.
	GenerationConfig *GenerationConfig
}

// NewClient creates a new Gemini API client for the given model.
func NewClient(baseURL, apiKey, model string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Model:   model,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// GenerationConfig mirrors the API's sampling controls.
type GenerationConfig struct {
	Temperature     float64 `json:"temperature,omitempty"`
	TopK            int     `json:"topK,omitempty"`
	TopP            float64 `json:"topP,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type contentPart struct {
	Text string `json:"text"`
}

type content struct {
	Role  string        `json:"role"`
	Parts []contentPart `json:"parts"`
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *GenerationConfig `json:"generationConfig,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Role  string        `json:"role"`
			Parts []contentPart `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
}

// ErrorResponse represents an error from the Gemini API.
type ErrorResponse struct {
	ErrorDetail struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func (e *ErrorResponse) Error() string {
	return fmt.Sprintf("gemini api error: %s - %s", e.ErrorDetail.Status, e.ErrorDetail.Message)
}

// Complete sends the conversation history plus the new user prompt and
// returns the model's text reply.
func (c *Client) Complete(ctx context.Context, history []domain.Message, prompt string) (string, error) {
	contents := make([]content, 0, len(history)+1)
	for _, msg := range history {
		turn := content{Role: msg.Role}
		for _, part := range msg.Parts {
			turn.Parts = append(turn.Parts, contentPart{Text: part.Text})
		}
		contents = append(contents, turn)
	}
	contents = append(contents, content{
		Role:  "user",
		Parts: []contentPart{{Text: prompt}},
	})

	reqPayload := generateRequest{
		Contents:         contents,
		GenerationConfig: c.GenerationConfig,
	}

	body, err := json.Marshal(reqPayload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal generate request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.BaseURL, c.Model)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("failed to create generate request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute generate request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read generate response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp ErrorResponse
		if err := json.Unmarshal(bodyBytes, &errResp); err != nil {
			return "", fmt.Errorf("failed to decode error response (status %d)", resp.StatusCode)
		}
		return "", &errResp
	}

	var successResp generateResponse
	if err := json.Unmarshal(bodyBytes, &successResp); err != nil {
		return "", fmt.Errorf("failed to decode success response: %w", err)
	}

	if len(successResp.Candidates) == 0 || len(successResp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini returned no candidates")
	}

	var reply string
	for _, part := range successResp.Candidates[0].Content.Parts {
		reply += part.Text
	}
	return reply, nil
}
