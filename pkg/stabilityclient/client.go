/**
 * @description
 * This package provides a client for the Stability AI text-to-image API.
 * It builds the diffusion request from a prompt plus sample count and
 * resolution, and returns the generated artifacts as base64 payloads.
 *
 * @dependencies
 * - bytes, context, encoding/json, fmt, net/http, time: Standard Go libraries.
 */
package stabilityclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultEngine = "stable-diffusion-v1-6"

// Client is a client for the Stability API.
type Client struct {
	BaseURL    string
	APIKey     string
	Engine     string
	HTTPClient *http.Client
}

// NewClient creates a new Stability API client.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Engine:  defaultEngine,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type textPrompt struct {
	Text   string  `json:"text"`
	Weight float64 `json:"weight"`
}

type textToImageRequest struct {
	TextPrompts []textPrompt `json:"text_prompts"`
	CfgScale    float64      `json:"cfg_scale"`
	Height      int          `json:"height"`
	Width       int          `json:"width"`
	Samples     int          `json:"samples"`
	Steps       int          `json:"steps"`
}

type textToImageResponse struct {
	Artifacts []struct {
		Base64       string `json:"base64"`
		Seed         int64  `json:"seed"`
		FinishReason string `json:"finishReason"`
	} `json:"artifacts"`
}

// ErrorResponse represents an error from the Stability API.
type ErrorResponse struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

func (e *ErrorResponse) Error() string {
	return fmt.Sprintf("stability api error: %s - %s", e.Name, e.Message)
}

// Generate produces samples images at the given resolution and returns their
// base64 payloads in the order the provider emitted them.
func (c *Client) Generate(ctx context.Context, prompt string, samples, width, height int) ([]string, error) {
	reqPayload := textToImageRequest{
		TextPrompts: []textPrompt{{Text: prompt, Weight: 1}},
		CfgScale:    7,
		Height:      height,
		Width:       width,
		Samples:     samples,
		Steps:       30,
	}

	body, err := json.Marshal(reqPayload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal image request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/generation/%s/text-to-image", c.BaseURL, c.Engine)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create image request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute image request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp ErrorResponse
		if err := json.Unmarshal(bodyBytes, &errResp); err != nil {
			return nil, fmt.Errorf("failed to decode error response (status %d)", resp.StatusCode)
		}
		return nil, &errResp
	}

	var successResp textToImageResponse
	if err := json.Unmarshal(bodyBytes, &successResp); err != nil {
		return nil, fmt.Errorf("failed to decode success response: %w", err)
	}

	payloads := make([]string, 0, len(successResp.Artifacts))
	for _, artifact := range successResp.Artifacts {
		payloads = append(payloads, artifact.Base64)
	}
	return payloads, nil
}
